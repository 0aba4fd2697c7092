package scraper

import (
	"context"
	"testing"
	"time"

	"github.com/use-agent/prowl/models"
	"github.com/use-agent/prowl/stealth"
)

func TestFetchSucceedsFirstAttempt(t *testing.T) {
	eng := &fakeEngine{steps: []fetchStep{{body: "<html>content</html>"}}}
	o, sleeps := testOrchestrator(eng)

	page, err := o.FetchWithRetry(context.Background(), "https://example.com", stealth.Standard(), Options{MaxAttempts: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Body() != "<html>content</html>" {
		t.Errorf("body = %q", page.Body())
	}
	if len(*sleeps) != 0 {
		t.Errorf("no backoff expected on first-attempt success, got %v", *sleeps)
	}
	if eng.sessionsOpened != 1 || eng.sessionsClosed != 1 {
		t.Errorf("sessions opened/closed = %d/%d, want 1/1", eng.sessionsOpened, eng.sessionsClosed)
	}
}

func TestFetchRetriesThenSucceeds(t *testing.T) {
	eng := &fakeEngine{steps: []fetchStep{
		{body: "Access Denied"},
		{body: "<html>real content</html>"},
	}}
	o, sleeps := testOrchestrator(eng)

	page, err := o.FetchWithRetry(context.Background(), "https://example.com", stealth.Standard(), Options{MaxAttempts: 3, BackoffBase: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Body() != "<html>real content</html>" {
		t.Errorf("body = %q", page.Body())
	}

	// Exactly one backoff between the two attempts: 2^0 + 0 jitter = 1s.
	if len(*sleeps) != 1 {
		t.Fatalf("sleeps = %v, want exactly one", *sleeps)
	}
	if (*sleeps)[0] != time.Second {
		t.Errorf("first backoff = %s, want 1s", (*sleeps)[0])
	}

	// Every attempt got its own session.
	if eng.sessionsOpened != 2 || eng.sessionsClosed != 2 {
		t.Errorf("sessions opened/closed = %d/%d, want 2/2", eng.sessionsOpened, eng.sessionsClosed)
	}
}

func TestBackoffGrowsExponentially(t *testing.T) {
	eng := &fakeEngine{steps: []fetchStep{
		{body: "Access Denied"},
		{body: "Access Denied"},
		{body: "Access Denied"},
	}}
	o, sleeps := testOrchestrator(eng)

	_, err := o.FetchWithRetry(context.Background(), "https://example.com", stealth.Standard(), Options{MaxAttempts: 3, BackoffBase: 2})
	if err == nil {
		t.Fatal("expected error after exhaustion")
	}

	// base^0, base^1 — no sleep after the final attempt.
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(*sleeps) != len(want) {
		t.Fatalf("sleeps = %v, want %v", *sleeps, want)
	}
	for i := range want {
		if (*sleeps)[i] != want[i] {
			t.Errorf("backoff[%d] = %s, want %s", i, (*sleeps)[i], want[i])
		}
	}
}

func TestBlockedExhaustionReturnsBlockedError(t *testing.T) {
	eng := &fakeEngine{steps: []fetchStep{
		{body: "Access Denied"},
		{body: "Access Denied"},
		{body: "Access Denied"},
	}}
	o, _ := testOrchestrator(eng)

	_, err := o.FetchWithRetry(context.Background(), "https://example.com", stealth.Standard(), Options{MaxAttempts: 3})
	if err == nil {
		t.Fatal("expected error")
	}
	if !models.HasCode(err, models.ErrCodeBlocked) {
		t.Errorf("error code = %s, want REQUEST_BLOCKED", models.CodeOf(err))
	}
}

func TestProxyRotatesOnlyOnBlock(t *testing.T) {
	eng := &fakeEngine{steps: []fetchStep{
		{body: "Access Denied"},
		{body: "Access Denied"},
		{body: "Access Denied"},
	}}
	o, _ := testOrchestrator(eng)

	pool := []string{"http://p1", "http://p2", "http://p3"}
	_, err := o.FetchWithRetry(context.Background(), "https://example.com", stealth.Standard(), Options{MaxAttempts: 3, ProxyPool: pool})
	if err == nil {
		t.Fatal("expected error")
	}

	want := []string{"http://p1", "http://p2", "http://p3"}
	if len(eng.proxiesUsed) != len(want) {
		t.Fatalf("proxies used = %v, want %v", eng.proxiesUsed, want)
	}
	for i := range want {
		if eng.proxiesUsed[i] != want[i] {
			t.Errorf("attempt %d proxy = %q, want %q", i, eng.proxiesUsed[i], want[i])
		}
	}
}

func TestProxyDoesNotRotateOnChallenge(t *testing.T) {
	eng := &fakeEngine{steps: []fetchStep{
		{body: "Checking your browser"},
		{body: "Checking your browser"},
	}}
	o, _ := testOrchestrator(eng)

	pool := []string{"http://p1", "http://p2"}
	profile := stealth.Standard() // SolveChallenge off
	_, err := o.FetchWithRetry(context.Background(), "https://example.com", profile, Options{MaxAttempts: 2, ProxyPool: pool})
	if err == nil {
		t.Fatal("expected error")
	}
	if !models.HasCode(err, models.ErrCodeChallenge) {
		t.Errorf("error code = %s, want CHALLENGE_DETECTED", models.CodeOf(err))
	}

	for i, p := range eng.proxiesUsed {
		if p != "http://p1" {
			t.Errorf("attempt %d proxy = %q; challenges must not rotate the proxy", i, p)
		}
	}
}

func TestSingleProxyNeverRotates(t *testing.T) {
	eng := &fakeEngine{steps: []fetchStep{
		{body: "Access Denied"},
		{body: "Access Denied"},
	}}
	o, _ := testOrchestrator(eng)

	_, _ = o.FetchWithRetry(context.Background(), "https://example.com", stealth.Standard(), Options{MaxAttempts: 2, ProxyPool: []string{"http://only"}})

	for i, p := range eng.proxiesUsed {
		if p != "http://only" {
			t.Errorf("attempt %d proxy = %q, want the single pool entry", i, p)
		}
	}
}

func TestProxyRotationDoesNotMutateCallerProfile(t *testing.T) {
	eng := &fakeEngine{steps: []fetchStep{
		{body: "Access Denied"},
		{body: "ok"},
	}}
	o, _ := testOrchestrator(eng)

	profile := stealth.Standard()
	_, err := o.FetchWithRetry(context.Background(), "https://example.com", profile, Options{MaxAttempts: 2, ProxyPool: []string{"http://p1", "http://p2"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.Proxy != "" {
		t.Errorf("caller profile proxy = %q, must stay untouched", profile.Proxy)
	}
}

func TestChallengeWithSolveRefetches(t *testing.T) {
	eng := &fakeEngine{steps: []fetchStep{
		{body: "Just a moment..."},
		{body: "<html>cleared content</html>"},
	}}
	o, sleeps := testOrchestrator(eng)

	profile := stealth.Maximum() // SolveChallenge on
	page, err := o.FetchWithRetry(context.Background(), "https://example.com", profile, Options{MaxAttempts: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Body() != "<html>cleared content</html>" {
		t.Errorf("body = %q, want the re-fetched page", page.Body())
	}

	// Both fetches ran inside one attempt on one session, with the
	// challenge grace wait in between.
	if eng.sessionsOpened != 1 {
		t.Errorf("sessions opened = %d, want 1", eng.sessionsOpened)
	}
	if len(*sleeps) != 1 || (*sleeps)[0] != challengeGrace {
		t.Errorf("sleeps = %v, want one grace wait of %s", *sleeps, challengeGrace)
	}
}

func TestChallengePersistsAfterRefetch(t *testing.T) {
	eng := &fakeEngine{steps: []fetchStep{
		{body: "Just a moment..."},
		{body: "Just a moment..."},
	}}
	o, _ := testOrchestrator(eng)

	profile := stealth.Maximum()
	_, err := o.FetchWithRetry(context.Background(), "https://example.com", profile, Options{MaxAttempts: 1})
	if err == nil {
		t.Fatal("expected error")
	}
	if !models.HasCode(err, models.ErrCodeChallenge) {
		t.Errorf("error code = %s, want CHALLENGE_DETECTED", models.CodeOf(err))
	}
	// Exactly one re-fetch; the attempt never loops back on itself.
	if eng.calls != 2 {
		t.Errorf("fetch calls = %d, want 2", eng.calls)
	}
}

func TestChallengeWithoutSolveFailsAttempt(t *testing.T) {
	eng := &fakeEngine{steps: []fetchStep{
		{body: "Just a moment..."},
	}}
	o, _ := testOrchestrator(eng)

	profile := stealth.Standard()
	_, err := o.FetchWithRetry(context.Background(), "https://example.com", profile, Options{MaxAttempts: 1})
	if err == nil {
		t.Fatal("expected error")
	}
	if !models.HasCode(err, models.ErrCodeChallenge) {
		t.Errorf("error code = %s, want CHALLENGE_DETECTED", models.CodeOf(err))
	}
	if eng.calls != 1 {
		t.Errorf("fetch calls = %d, want 1 (no re-fetch without solve)", eng.calls)
	}
}

func TestSessionOpenFailureErrors(t *testing.T) {
	eng := &fakeEngine{newSessionErr: models.NewScrapeError(models.ErrCodeBrowserCrash, "browser gone", nil)}
	o, _ := testOrchestrator(eng)

	_, err := o.FetchWithRetry(context.Background(), "https://example.com", stealth.Standard(), Options{MaxAttempts: 2})
	if err == nil {
		t.Fatal("expected error")
	}
	if !models.HasCode(err, models.ErrCodeBrowserCrash) {
		t.Errorf("error code = %s, want BROWSER_CRASH", models.CodeOf(err))
	}
}

func TestMaxAttemptsFloor(t *testing.T) {
	eng := &fakeEngine{steps: []fetchStep{{body: "ok"}}}
	o, _ := testOrchestrator(eng)

	page, err := o.FetchWithRetry(context.Background(), "https://example.com", stealth.Standard(), Options{MaxAttempts: 0})
	if err != nil {
		t.Fatalf("MaxAttempts 0 should still run one attempt: %v", err)
	}
	if page == nil {
		t.Fatal("page is nil")
	}
}

func TestCanceledContextStopsRetries(t *testing.T) {
	eng := &fakeEngine{steps: []fetchStep{
		{body: "Access Denied"},
		{body: "ok"},
	}}
	o := NewOrchestrator(eng)
	o.jitter = func() float64 { return 0 }
	o.sleep = func(ctx context.Context, _ time.Duration) error {
		return context.Canceled
	}

	_, err := o.FetchWithRetry(context.Background(), "https://example.com", stealth.Standard(), Options{MaxAttempts: 3})
	if err == nil {
		t.Fatal("expected error")
	}
	if !models.HasCode(err, models.ErrCodeTimeout) {
		t.Errorf("error code = %s, want SCRAPE_TIMEOUT for canceled wait", models.CodeOf(err))
	}
	if eng.calls != 1 {
		t.Errorf("fetch calls = %d, want 1 (no attempt after canceled wait)", eng.calls)
	}
}
