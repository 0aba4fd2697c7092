// Package scraper drives fetches through the external engines: the
// retry orchestrator with backoff and proxy rotation, and the registry
// of long-lived sessions.
package scraper

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/use-agent/prowl/engine"
	"github.com/use-agent/prowl/models"
	"github.com/use-agent/prowl/stealth"
)

// Fetch timing constants. A short settle follows every normal fetch; a
// challenge re-fetch waits longer after a fixed grace period, giving the
// interstitial time to clear.
const (
	settleWait      = 2 * time.Second
	challengeSettle = 5 * time.Second
	challengeGrace  = 3 * time.Second
)

// Options tune one FetchWithRetry call.
type Options struct {
	// MaxAttempts is the total number of attempts (not retries after
	// the first). Values < 1 are treated as 1.
	MaxAttempts int

	// BackoffBase is the exponential growth base for the wait between
	// attempts: base^i + uniform(0,1) seconds, i 0-based. Defaults to 1.5.
	BackoffBase float64

	// ProxyPool lists egress proxies for rotation. Empty means direct.
	ProxyPool []string
}

// Orchestrator retries fetches against an engine, classifying each
// fetched page and deciding between returning, backing off, and
// rotating proxies. Retries for one call are strictly sequential.
type Orchestrator struct {
	engine engine.Engine

	// sleep and jitter are injection points for tests.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func() float64
}

// NewOrchestrator creates an Orchestrator over the given engine.
func NewOrchestrator(eng engine.Engine) *Orchestrator {
	return &Orchestrator{
		engine: eng,
		sleep: func(ctx context.Context, d time.Duration) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d):
				return nil
			}
		},
		jitter: rand.Float64,
	}
}

// attemptResult carries one attempt's outcome into the retry loop. The
// loop transitions purely on the classification value; no error is
// thrown across the loop boundary.
type attemptResult struct {
	page  engine.Page
	class stealth.Classification
	err   error
}

// FetchWithRetry fetches url through the engine, up to MaxAttempts
// times. Each attempt opens a fresh engine session (independent of the
// session registry), applies the current proxy, fetches with a short
// settle, and classifies the result:
//
//   - challenge + SolveChallenge: wait a grace period, re-fetch once
//     with a longer settle, then continue forward with the new page
//   - challenge without SolveChallenge: attempt fails as challenged
//   - block signature: attempt fails as blocked; the proxy rotator
//     advances when the pool has more than one entry
//   - engine timeout: attempt fails as timed out
//   - any other engine failure: attempt fails as errored
//
// Between failed attempts the loop sleeps base^i + uniform(0,1) seconds.
// After exhaustion the last attempt's error is returned. There is no
// whole-call deadline beyond ctx: the de facto ceiling is
// MaxAttempts x (profile timeout + backoff).
func (o *Orchestrator) FetchWithRetry(ctx context.Context, url string, profile *stealth.Profile, opts Options) (engine.Page, error) {
	maxAttempts := opts.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	backoffBase := opts.BackoffBase
	if backoffBase <= 0 {
		backoffBase = 1.5
	}

	// Private working copy: proxy swaps between attempts never touch
	// the caller's profile.
	work := profile.Clone()
	rotator := stealth.NewRotator(opts.ProxyPool)

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if !rotator.Empty() {
			work.Proxy = rotator.Current()
			slog.Debug("using proxy", "proxy", work.Proxy, "index", rotator.Index())
		}

		slog.Info("scrape attempt", "attempt", attempt+1, "max", maxAttempts, "url", url)
		result := o.attempt(ctx, url, work)

		switch result.class {
		case stealth.ClassSuccess:
			slog.Info("scrape succeeded", "url", url, "attempt", attempt+1)
			return result.page, nil

		case stealth.ClassChallenged:
			slog.Warn("challenge on attempt", "attempt", attempt+1, "url", url)
			lastErr = result.err

		case stealth.ClassBlocked:
			slog.Warn("blocked on attempt", "attempt", attempt+1, "url", url)
			if rotator.Size() > 1 {
				rotator.Advance()
				slog.Info("rotating proxy", "next", rotator.Index()+1, "pool", rotator.Size())
			}
			lastErr = result.err

		case stealth.ClassTimedOut:
			slog.Warn("timeout on attempt", "attempt", attempt+1, "url", url)
			lastErr = result.err

		default:
			slog.Warn("error on attempt", "attempt", attempt+1, "url", url, "error", result.err)
			lastErr = result.err
		}

		if attempt < maxAttempts-1 {
			delay := time.Duration((math.Pow(backoffBase, float64(attempt)) + o.jitter()) * float64(time.Second))
			slog.Debug("backing off", "delay", delay)
			if err := o.sleep(ctx, delay); err != nil {
				return nil, models.NewScrapeError(models.ErrCodeTimeout, "retry wait canceled", err)
			}
		}
	}

	if lastErr == nil {
		// Should not occur: every failed attempt records an error.
		lastErr = models.NewScrapeError(models.ErrCodeScrape, "max retries exceeded", nil)
	}
	return nil, lastErr
}

// attempt runs one fetch attempt in a fresh, attempt-scoped session and
// classifies the outcome.
func (o *Orchestrator) attempt(ctx context.Context, url string, profile *stealth.Profile) attemptResult {
	attemptCtx := ctx
	var cancel context.CancelFunc
	if profile.Timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, profile.Timeout)
		defer cancel()
	}

	sess, err := o.engine.NewSession(attemptCtx, profile)
	if err != nil {
		return classifyFailure(err)
	}
	defer func() {
		if closeErr := sess.Close(); closeErr != nil {
			slog.Debug("attempt session close failed", "error", closeErr)
		}
	}()

	page, err := sess.Fetch(attemptCtx, url, settleWait)
	if err != nil {
		return classifyFailure(err)
	}

	// Challenge check runs before the block check; the order matters
	// because challenge bodies often also match block signatures.
	if stealth.IsChallenge(page.Body()) {
		if !profile.SolveChallenge {
			return attemptResult{
				class: stealth.ClassChallenged,
				err:   models.NewScrapeError(models.ErrCodeChallenge, "challenge could not be solved", nil),
			}
		}

		slog.Info("challenge detected, waiting for it to clear", "url", url)
		if err := o.sleep(attemptCtx, challengeGrace); err != nil {
			return classifyFailure(models.NewScrapeError(models.ErrCodeTimeout, "challenge wait canceled", err))
		}

		// One forward re-fetch with a longer settle; no loop back.
		page, err = sess.Fetch(attemptCtx, url, challengeSettle)
		if err != nil {
			return classifyFailure(err)
		}
		if stealth.IsChallenge(page.Body()) {
			return attemptResult{
				class: stealth.ClassChallenged,
				err:   models.NewScrapeError(models.ErrCodeChallenge, "challenge could not be solved", nil),
			}
		}
	}

	if stealth.IsBlocked(page.Body()) {
		return attemptResult{
			class: stealth.ClassBlocked,
			err:   models.NewScrapeError(models.ErrCodeBlocked, "request blocked by anti-bot measures", nil),
		}
	}

	return attemptResult{page: page, class: stealth.ClassSuccess}
}

// classifyFailure maps an engine error to an attempt classification.
func classifyFailure(err error) attemptResult {
	switch models.CodeOf(err) {
	case models.ErrCodeTimeout:
		return attemptResult{class: stealth.ClassTimedOut, err: err}
	case models.ErrCodeChallenge:
		return attemptResult{class: stealth.ClassChallenged, err: err}
	case models.ErrCodeBlocked:
		return attemptResult{class: stealth.ClassBlocked, err: err}
	default:
		if _, ok := err.(*models.ScrapeError); !ok {
			err = models.NewScrapeError(models.ErrCodeScrape, "scraping failed", err)
		}
		return attemptResult{class: stealth.ClassErrored, err: err}
	}
}
