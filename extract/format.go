package extract

import (
	"log/slog"
	"time"

	"github.com/use-agent/prowl/engine"
	"github.com/use-agent/prowl/models"
)

// headerCapable is probed on pages whose fetch path captured response
// headers (the HTTP engine does, the browser engine does not).
type headerCapable interface {
	Headers() map[string]string
}

// Format normalizes a fetched page into a flat result record. Every
// field is extracted defensively: a missing or failing capability
// degrades to null rather than propagating — formatting never fails,
// even against a misbehaving Page implementation.
func Format(page engine.Page, url string, selectors map[string]string) *models.Record {
	record := &models.Record{
		URL:       url,
		Timestamp: models.UTCTimestamp(time.Now()),
	}
	if page == nil {
		return record
	}

	if status := safeStatus(page); status != 0 {
		record.StatusCode = &status
	}

	record.Title = safeTitle(page)

	if body := safeBody(page); body != "" {
		record.HTML = &body
	}

	text := safeText(page)
	record.Text = &text

	if hc, ok := page.(headerCapable); ok {
		record.Headers = hc.Headers()
	}

	if len(selectors) > 0 {
		record.Selectors = Selectors(page, selectors)
	}

	return record
}

func safeStatus(page engine.Page) (status int) {
	defer recoverField("status")
	return page.Status()
}

func safeBody(page engine.Page) (body string) {
	defer recoverField("body")
	return page.Body()
}

func safeText(page engine.Page) (text string) {
	defer recoverField("text")
	return page.Text()
}

// safeTitle pulls the text of the first <title> element through the
// text-extraction ladder, or nil when there is none.
func safeTitle(page engine.Page) (title *string) {
	defer recoverField("title")

	el, err := page.First("title")
	if err != nil || el == nil {
		return nil
	}
	if text, ok := elementText(el); ok {
		return &text
	}
	return nil
}

func recoverField(field string) {
	if r := recover(); r != nil {
		slog.Debug("page field access panicked", "field", field, "panic", r)
	}
}
