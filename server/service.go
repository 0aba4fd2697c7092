// Package server implements the tool surface: parameter validation, the
// five scraping operations, and their registration on the MCP server.
// The same service backs the HTTP API handlers.
package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/use-agent/prowl/config"
	"github.com/use-agent/prowl/engine"
	"github.com/use-agent/prowl/extract"
	"github.com/use-agent/prowl/models"
	"github.com/use-agent/prowl/scraper"
	"github.com/use-agent/prowl/security"
	"github.com/use-agent/prowl/stealth"
)

// Service bundles the collaborators every tool call needs. It is
// injected into the MCP and HTTP handlers; nothing lives in package
// state.
type Service struct {
	fast     *scraper.Orchestrator // TLS-fingerprint HTTP engine, scrape_simple path
	browser  *scraper.Orchestrator // rod browser engine, stealth paths
	registry *scraper.Registry
	cfg      *config.Config

	// sleep is the batch inter-item delay, injectable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewService wires a Service from the two engines and the session
// registry.
func NewService(fastEngine, browserEngine engine.Engine, registry *scraper.Registry, cfg *config.Config) *Service {
	return &Service{
		fast:     scraper.NewOrchestrator(fastEngine),
		browser:  scraper.NewOrchestrator(browserEngine),
		registry: registry,
		cfg:      cfg,
		sleep: func(ctx context.Context, d time.Duration) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d):
				return nil
			}
		},
	}
}

// Registry exposes the session registry for shutdown wiring.
func (s *Service) Registry() *scraper.Registry { return s.registry }

// retryOptions builds the per-call retry options from config.
func (s *Service) retryOptions() scraper.Options {
	return scraper.Options{
		MaxAttempts: s.cfg.Scraper.MaxRetries,
		BackoffBase: s.cfg.Scraper.BackoffBase,
		ProxyPool:   s.cfg.Scraper.ProxyPool,
	}
}

// errorRecord returns a record with only url, timestamp, and the error
// message populated — the shape every validation failure produces.
func errorRecord(url, message string) *models.Record {
	return &models.Record{
		URL:       url,
		Timestamp: models.UTCTimestamp(time.Now()),
		Error:     &message,
	}
}

// failureMessage renders an operation error as the caller-facing error
// string, keyed off the error taxonomy.
func failureMessage(err error) string {
	msg := err.Error()
	if se, ok := err.(*models.ScrapeError); ok {
		msg = se.Message
	}
	switch models.CodeOf(err) {
	case models.ErrCodeChallenge:
		return "Challenge detected: " + msg
	case models.ErrCodeBlocked:
		return "Request blocked: " + msg
	case models.ErrCodeTimeout:
		return "Request timed out: " + msg
	case models.ErrCodeURLRejected:
		return msg
	case models.ErrCodeInvalidInput:
		return "Validation error: " + msg
	default:
		return "Scraping error: " + msg
	}
}

// ScrapeSimple is the fast path: plain TLS-fingerprinted HTTP with the
// minimal stealth preset forced, no browser rendering.
func (s *Service) ScrapeSimple(ctx context.Context, url, selector, extractMode string, timeoutMS int) *models.Record {
	slog.Debug("scrape_simple", "url", url, "selector", selector, "extract", extractMode, "timeoutMs", timeoutMS)

	if msg := validateURLParam(url); msg != "" {
		return errorRecord(url, msg)
	}
	if msg := validateExtractMode(extractMode); msg != "" {
		return errorRecord(url, msg)
	}
	if msg := validateTimeoutMS(timeoutMS); msg != "" {
		return errorRecord(url, msg)
	}
	if !security.IsAllowed(url) {
		return errorRecord(url, security.RejectionMessage)
	}

	profile := stealth.Minimal()
	profile.Timeout = time.Duration(timeoutMS) * time.Millisecond

	var selectors map[string]string
	if selector != "" {
		selectors = map[string]string{"content": selector}
	}

	page, err := s.fast.FetchWithRetry(ctx, url, profile, s.retryOptions())
	if err != nil {
		slog.Error("scrape_simple failed", "url", url, "error", err)
		return errorRecord(url, failureMessage(err))
	}

	record := extract.Format(page, url, selectors)
	if record.Headers == nil {
		record.Headers = map[string]string{}
	}

	// The extract parameter narrows the content fields.
	switch extractMode {
	case "text":
		record.HTML = nil
	case "html":
		record.Text = nil
	}

	slog.Info("scrape_simple completed", "url", url)
	return record
}

// StealthParams are the scrape_stealth inputs beyond the URL.
type StealthParams struct {
	Level          string
	SolveChallenge bool
	NetworkIdle    bool
	WaitForDOM     bool
	TimeoutMS      int
	Proxy          string
}

// ScrapeStealth fetches through the browser engine with a configurable
// anti-detection posture.
func (s *Service) ScrapeStealth(ctx context.Context, url string, params StealthParams) *models.Record {
	slog.Debug("scrape_stealth", "url", url, "level", params.Level,
		"solveChallenge", params.SolveChallenge, "timeoutMs", params.TimeoutMS)

	if msg := validateURLParam(url); msg != "" {
		return errorRecord(url, msg)
	}
	level, err := stealth.ParseLevel(params.Level)
	if err != nil {
		return errorRecord(url, err.Error())
	}
	if msg := validateTimeoutMS(params.TimeoutMS); msg != "" {
		return errorRecord(url, msg)
	}
	if !security.IsAllowed(url) {
		return errorRecord(url, security.RejectionMessage)
	}

	profile := stealth.ForLevel(level)
	profile.SolveChallenge = params.SolveChallenge
	profile.NetworkIdle = params.NetworkIdle
	profile.WaitForDOM = params.WaitForDOM
	profile.Timeout = time.Duration(params.TimeoutMS) * time.Millisecond
	if params.Proxy != "" {
		profile.Proxy = params.Proxy
	}

	page, fetchErr := s.browser.FetchWithRetry(ctx, url, profile, s.retryOptions())
	if fetchErr != nil {
		slog.Error("scrape_stealth failed", "url", url, "error", fetchErr)
		return errorRecord(url, failureMessage(fetchErr))
	}

	slog.Info("scrape_stealth completed", "url", url)
	return extract.Format(page, url, nil)
}

// ScrapeSession fetches through a long-lived named session so cookies
// and state persist across calls. The session id is echoed back
// (generated when absent); concurrent calls reusing one id are the
// caller's responsibility to avoid.
func (s *Service) ScrapeSession(ctx context.Context, url, sessionID string, cookies map[string]string, level string) *models.SessionRecord {
	slog.Debug("scrape_session", "url", url, "sessionID", sessionID, "level", level)

	fail := func(msg string) *models.SessionRecord {
		return &models.SessionRecord{Record: *errorRecord(url, msg), SessionID: sessionID}
	}

	if msg := validateURLParam(url); msg != "" {
		return fail(msg)
	}
	parsedLevel, err := stealth.ParseLevel(level)
	if err != nil {
		return fail(err.Error())
	}
	if !security.IsAllowed(url) {
		return fail(security.RejectionMessage)
	}

	if sessionID == "" {
		sessionID = scraper.GenerateSessionID()
	}

	profile := stealth.ForLevel(parsedLevel)

	fetchCtx := ctx
	var cancel context.CancelFunc
	if profile.Timeout > 0 {
		fetchCtx, cancel = context.WithTimeout(ctx, profile.Timeout)
		defer cancel()
	}

	sess, err := s.registry.Named(fetchCtx, sessionID, profile)
	if err != nil {
		slog.Error("scrape_session: session open failed", "sessionID", sessionID, "error", err)
		return fail(failureMessage(err))
	}

	if len(cookies) > 0 {
		if err := sess.Engine.SetCookies(cookies); err != nil {
			slog.Warn("scrape_session: cookie seed failed", "sessionID", sessionID, "error", err)
		}
	}

	page, err := s.sessionFetch(fetchCtx, sess.Engine, url, profile)
	if err != nil {
		slog.Error("scrape_session failed", "url", url, "sessionID", sessionID, "error", err)
		return fail(failureMessage(err))
	}

	record := extract.Format(page, url, nil)

	jar, err := sess.Engine.Cookies()
	if err != nil {
		slog.Warn("scrape_session: cookie read failed", "sessionID", sessionID, "error", err)
		jar = map[string]string{}
	}

	slog.Info("scrape_session completed", "url", url, "sessionID", sessionID)
	return &models.SessionRecord{Record: *record, SessionID: sessionID, Cookies: jar}
}

// sessionFetch runs one fetch on a persistent session, applying the
// same challenge handling as the retry path but without retries: the
// session's state must not be churned by attempt-scoped sessions.
func (s *Service) sessionFetch(ctx context.Context, sess engine.Session, url string, profile *stealth.Profile) (engine.Page, error) {
	page, err := sess.Fetch(ctx, url, 2*time.Second)
	if err != nil {
		return nil, err
	}

	if stealth.IsChallenge(page.Body()) {
		if !profile.SolveChallenge {
			return nil, models.NewScrapeError(models.ErrCodeChallenge, "challenge could not be solved", nil)
		}
		slog.Info("challenge detected in session, waiting for it to clear", "url", url)
		if err := s.sleep(ctx, 3*time.Second); err != nil {
			return nil, models.NewScrapeError(models.ErrCodeTimeout, "challenge wait canceled", err)
		}
		page, err = sess.Fetch(ctx, url, 5*time.Second)
		if err != nil {
			return nil, err
		}
	}

	return page, nil
}

// ExtractStructured fetches a page and applies the selector
// mini-language per named selector.
func (s *Service) ExtractStructured(ctx context.Context, url string, selectors map[string]string, level string) *models.ExtractRecord {
	slog.Debug("extract_structured", "url", url, "selectors", len(selectors), "level", level)

	fail := func(msg string) *models.ExtractRecord {
		return &models.ExtractRecord{Record: *errorRecord(url, msg)}
	}

	if msg := validateSelectorsMap(selectors); msg != "" {
		return fail(msg)
	}
	if msg := validateURLParam(url); msg != "" {
		return fail(msg)
	}
	parsedLevel, err := stealth.ParseLevel(level)
	if err != nil {
		return fail(err.Error())
	}
	if !security.IsAllowed(url) {
		return fail(security.RejectionMessage)
	}

	profile := stealth.ForLevel(parsedLevel)

	page, fetchErr := s.browser.FetchWithRetry(ctx, url, profile, s.retryOptions())
	if fetchErr != nil {
		slog.Error("extract_structured failed", "url", url, "error", fetchErr)
		return fail(failureMessage(fetchErr))
	}

	record := extract.Format(page, url, nil)
	record.HTML = nil // extraction callers get selectors, not the raw body

	extracted := extract.Selectors(page, selectors)

	slog.Info("extract_structured completed", "url", url, "extracted", len(extracted))
	return &models.ExtractRecord{
		Record:    *record,
		Extracted: SafeJSONMap(extracted),
	}
}

// ScrapeBatch fetches every URL sequentially with a delay between
// items. Partial failures never halt the batch: results[i] always
// corresponds to urls[i] and carries either content or an error.
func (s *Service) ScrapeBatch(ctx context.Context, urls []string, level string, delaySeconds float64) *models.BatchResult {
	slog.Debug("scrape_batch", "urls", len(urls), "level", level, "delay", delaySeconds)

	now := func() string { return models.UTCTimestamp(time.Now()) }

	if msg := validateURLsList(urls); msg != "" {
		return &models.BatchResult{
			Results:   []*models.Record{},
			Errors:    []models.BatchError{{Error: msg}},
			Timestamp: now(),
		}
	}

	failAll := func(msg string) *models.BatchResult {
		return &models.BatchResult{
			Total:     len(urls),
			Failed:    len(urls),
			Results:   []*models.Record{},
			Errors:    []models.BatchError{{Error: msg}},
			Timestamp: now(),
		}
	}
	if _, err := stealth.ParseLevel(level); err != nil {
		return failAll(err.Error())
	}
	if msg := validateDelay(delaySeconds); msg != "" {
		return failAll(msg)
	}

	delay := time.Duration(delaySeconds * float64(time.Second))
	batch := &models.BatchResult{
		Total:   len(urls),
		Results: make([]*models.Record, len(urls)),
		Errors:  []models.BatchError{},
	}

	for i, url := range urls {
		if i > 0 {
			if err := s.sleep(ctx, delay); err != nil {
				// Context gone: fail the remaining slots and stop.
				for j := i; j < len(urls); j++ {
					msg := "Request timed out: batch canceled"
					batch.Results[j] = errorRecord(urls[j], msg)
					batch.Errors = append(batch.Errors, models.BatchError{Index: j, URL: urls[j], Error: msg})
					batch.Failed++
				}
				break
			}
		}

		record := s.batchItem(ctx, url, level)
		batch.Results[i] = record
		if record.Error != nil {
			batch.Errors = append(batch.Errors, models.BatchError{Index: i, URL: url, Error: *record.Error})
			batch.Failed++
		} else {
			batch.Successful++
		}
		slog.Debug("batch item done", "index", i+1, "total", len(urls), "url", url)
	}

	batch.Timestamp = now()
	slog.Info("batch scraping complete",
		"successful", batch.Successful, "failed", batch.Failed, "total", batch.Total)
	return batch
}

// batchItem fetches one batch URL through the browser orchestrator.
func (s *Service) batchItem(ctx context.Context, url, level string) *models.Record {
	if msg := validateURLParam(url); msg != "" {
		return errorRecord(url, msg)
	}
	if !security.IsAllowed(url) {
		return errorRecord(url, security.RejectionMessage)
	}

	parsed, _ := stealth.ParseLevel(level) // validated by the caller
	profile := stealth.ForLevel(parsed)

	page, err := s.browser.FetchWithRetry(ctx, url, profile, s.retryOptions())
	if err != nil {
		return errorRecord(url, failureMessage(err))
	}
	return extract.Format(page, url, nil)
}
