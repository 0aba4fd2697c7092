package models

// SimpleScrapeRequest is the payload for POST /api/v1/scrape/simple.
type SimpleScrapeRequest struct {
	// URL is the target page to scrape. Required.
	URL string `json:"url" binding:"required"`

	// Selector is an optional CSS selector for targeted extraction.
	Selector string `json:"selector,omitempty"`

	// Extract controls what the response carries.
	// Allowed: "text" (default), "html", "both".
	Extract string `json:"extract,omitempty" binding:"omitempty,oneof=text html both"`

	// Timeout is the request timeout in milliseconds.
	// Default: 30000. Range: 1000-300000.
	Timeout int `json:"timeout,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *SimpleScrapeRequest) Defaults() {
	if r.Extract == "" {
		r.Extract = "text"
	}
	if r.Timeout == 0 {
		r.Timeout = 30000
	}
}

// StealthScrapeRequest is the payload for POST /api/v1/scrape/stealth.
type StealthScrapeRequest struct {
	URL string `json:"url" binding:"required"`

	// StealthLevel selects the evasion preset.
	// Allowed: "minimal", "standard" (default), "maximum".
	StealthLevel string `json:"stealth_level,omitempty" binding:"omitempty,oneof=minimal standard maximum"`

	// SolveChallenge waits out interstitial anti-bot challenges.
	SolveChallenge bool `json:"solve_challenge,omitempty"`

	// NetworkIdle waits for network inactivity before snapshotting.
	// Default: true.
	NetworkIdle *bool `json:"network_idle,omitempty"`

	// WaitForDOM waits for DOM stability before snapshotting.
	// Default: true.
	WaitForDOM *bool `json:"wait_for_dom,omitempty"`

	// Timeout is the request timeout in milliseconds.
	// Default: 30000. Range: 1000-300000.
	Timeout int `json:"timeout,omitempty"`

	// Proxy overrides the configured proxy pool for this request.
	Proxy string `json:"proxy,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *StealthScrapeRequest) Defaults() {
	if r.StealthLevel == "" {
		r.StealthLevel = "standard"
	}
	if r.NetworkIdle == nil {
		t := true
		r.NetworkIdle = &t
	}
	if r.WaitForDOM == nil {
		t := true
		r.WaitForDOM = &t
	}
	if r.Timeout == 0 {
		r.Timeout = 30000
	}
}

// SessionScrapeRequest is the payload for POST /api/v1/scrape/session.
type SessionScrapeRequest struct {
	URL string `json:"url" binding:"required"`

	// SessionID names the persistent session. Auto-generated when empty.
	SessionID string `json:"session_id,omitempty"`

	// Cookies are seeded into the session before navigation.
	Cookies map[string]string `json:"cookies,omitempty"`

	StealthLevel string `json:"stealth_level,omitempty" binding:"omitempty,oneof=minimal standard maximum"`
}

// Defaults applies default values to unset fields.
func (r *SessionScrapeRequest) Defaults() {
	if r.StealthLevel == "" {
		r.StealthLevel = "standard"
	}
}

// ExtractRequest is the payload for POST /api/v1/extract.
type ExtractRequest struct {
	URL string `json:"url" binding:"required"`

	// Selectors maps output names to CSS selectors. Required.
	// Selector syntax: "sel" (text), "sel::html" (inner HTML),
	// "sel@attr" (attribute), "sel@a@b" (multiple attributes).
	Selectors map[string]string `json:"selectors" binding:"required"`

	StealthLevel string `json:"stealth_level,omitempty" binding:"omitempty,oneof=minimal standard maximum"`
}

// Defaults applies default values to unset fields.
func (r *ExtractRequest) Defaults() {
	if r.StealthLevel == "" {
		r.StealthLevel = "standard"
	}
}

// BatchScrapeRequest is the payload for POST /api/v1/scrape/batch.
type BatchScrapeRequest struct {
	// URLs lists the pages to scrape in order. Max 100.
	URLs []string `json:"urls" binding:"required"`

	StealthLevel string `json:"stealth_level,omitempty" binding:"omitempty,oneof=minimal standard maximum"`

	// Delay is the pause between requests in seconds. Default: 1.0.
	Delay *float64 `json:"delay,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *BatchScrapeRequest) Defaults() {
	if r.StealthLevel == "" {
		r.StealthLevel = "standard"
	}
	if r.Delay == nil {
		d := 1.0
		r.Delay = &d
	}
}
