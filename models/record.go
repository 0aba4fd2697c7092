package models

import "time"

// Record is the flat result of a single scrape operation. Content fields
// are pointers so that "absent" serialises as JSON null rather than a
// zero value — tool callers distinguish "no title" from "empty title".
type Record struct {
	// URL echoes the requested URL.
	URL string `json:"url"`

	// StatusCode is the HTTP status of the fetched page, or null when
	// the engine did not expose one.
	StatusCode *int `json:"status_code"`

	// Title is the text content of the page's first <title> element.
	Title *string `json:"title"`

	// Text is the whole-page text with whitespace-stripped normalization.
	Text *string `json:"text"`

	// HTML is the raw page body.
	HTML *string `json:"html"`

	// Headers carries response headers when the fetch path exposes them.
	Headers map[string]string `json:"headers,omitempty"`

	// Selectors holds per-name extraction results when selectors were
	// supplied. Each value is a scalar, a list, or null (see extract).
	Selectors map[string]any `json:"selectors,omitempty"`

	// Timestamp is the UTC completion time in ISO-8601 with trailing Z.
	Timestamp string `json:"timestamp"`

	// Error is set when the operation failed; all content fields stay null.
	Error *string `json:"error"`
}

// SessionRecord is the result of a session-persistent scrape. It embeds
// the base record plus the session identity and its cookie jar.
type SessionRecord struct {
	Record

	// SessionID identifies the session used (echoed or auto-generated).
	SessionID string `json:"session_id"`

	// Cookies reflects the session's cookie jar after the fetch.
	Cookies map[string]string `json:"cookies"`
}

// ExtractRecord is the result of a structured-extraction scrape.
type ExtractRecord struct {
	Record

	// Extracted maps selector names to their extracted values.
	Extracted map[string]any `json:"extracted"`
}

// BatchError records one failed URL inside a batch.
type BatchError struct {
	Index int    `json:"index"`
	URL   string `json:"url"`
	Error string `json:"error"`
}

// BatchResult aggregates a whole batch run. Results keeps input order:
// len(Results) always equals the input URL count and slot i corresponds
// to input URL i regardless of per-item outcome.
type BatchResult struct {
	Total      int          `json:"total"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	Results    []*Record    `json:"results"`
	Errors     []BatchError `json:"errors"`
	Timestamp  string       `json:"timestamp"`
}

// UTCTimestamp formats t as ISO-8601 UTC with a trailing Z, the
// timestamp shape used by every record.
func UTCTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000") + "Z"
}
