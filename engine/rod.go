package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/use-agent/prowl/models"
	stealthcfg "github.com/use-agent/prowl/stealth"
)

// RodOptions are host-level settings for the browser engine, independent
// of any stealth profile.
type RodOptions struct {
	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string
}

// RodEngine launches a dedicated headless browser per session. Each
// session owns its own browser process because launcher-level knobs
// (proxy, headless, WebRTC policy) cannot change on a live browser.
type RodEngine struct {
	opts RodOptions
}

// NewRodEngine creates the browser engine.
func NewRodEngine(opts RodOptions) *RodEngine {
	return &RodEngine{opts: opts}
}

func (e *RodEngine) Name() string { return "rod" }

// osUserAgents is the rotation pool used when a profile asks for OS
// fingerprint randomization.
var osUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
}

// NewSession launches a browser configured from the profile and opens a
// single page in it.
func (e *RodEngine) NewSession(ctx context.Context, profile *stealthcfg.Profile) (Session, error) {
	l := launcher.New().
		Headless(profile.Headless).
		NoSandbox(e.opts.NoSandbox)

	if e.opts.BrowserBin != "" {
		l = l.Bin(e.opts.BrowserBin)
	}
	if profile.Proxy != "" {
		l = l.Proxy(profile.Proxy)
	}

	// Anti-automation launcher flags.
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-prompt-on-repost"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	if profile.BlockWebRTC {
		// Keeps WebRTC from leaking the real egress IP behind a proxy.
		l.Set(flags.Flag("force-webrtc-ip-handling-policy"), "disable_non_proxied_udp")
	}
	if !profile.AllowWebGL {
		l.Set(flags.Flag("disable-webgl"))
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to launch browser", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to connect to browser", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "failed to open page", err)
	}

	// Stealth JS must be installed before the first navigation.
	if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
		slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
	}

	if profile.OSRandomize {
		ua := osUserAgents[rand.Intn(len(osUserAgents))]
		if uaErr := (proto.NetworkSetUserAgentOverride{UserAgent: ua}).Call(page); uaErr != nil {
			slog.Warn("user agent override failed", "error", uaErr)
		}
	}

	router := setupHijack(page, profile)

	return &rodSession{
		launcher: l,
		browser:  browser,
		page:     page,
		router:   router,
		profile:  profile.Clone(),
	}, nil
}

// rodSession owns one browser process and one page in it.
type rodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	router   *rod.HijackRouter
	profile  *stealthcfg.Profile

	// pending cookies are applied on the next Fetch once the target
	// domain is known.
	pending map[string]string
	closed  bool
}

func (s *rodSession) Fetch(ctx context.Context, target string, settle time.Duration) (Page, error) {
	if s.closed {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "session is closed", nil)
	}

	p := s.page.Context(ctx)

	// Browser-like referer for Chrome impersonation, unless the caller
	// already set one via cookies/headers upstream.
	if s.profile.ImpersonateChrome {
		if u, parseErr := url.Parse(target); parseErr == nil {
			headers := proto.NetworkHeaders{
				"Referer": gson.New("https://www.google.com/search?q=" + url.QueryEscape(u.Hostname())),
			}
			_ = proto.NetworkSetExtraHTTPHeaders{Headers: headers}.Call(p)
		}
	}

	if len(s.pending) > 0 {
		s.applyPendingCookies(target)
	}

	if err := p.Navigate(target); err != nil {
		return nil, categorizeNavError(err)
	}

	s.waitForLoad(p)

	if s.profile.Humanize.Enabled {
		humanizeGesture(p, s.profile.Humanize.Duration)
	}

	if settle > 0 {
		select {
		case <-ctx.Done():
			return nil, categorizeNavError(ctx.Err())
		case <-time.After(settle):
		}
	}

	status := captureStatus(p)

	body, err := p.HTML()
	if err != nil {
		return nil, categorizeNavError(err)
	}

	return ParsePage(body, status, nil)
}

// waitForLoad applies the profile's wait strategy. WaitRequestIdle is
// avoided while the hijack router is mounted: both use the Fetch domain
// and conflict on Chromium 145+, so DOM stability is the fallback.
func (s *rodSession) waitForLoad(p *rod.Page) {
	if s.profile.NetworkIdle && s.router == nil {
		wait := p.WaitRequestIdle(300*time.Millisecond, nil, nil, nil)
		wait()
	} else if s.profile.WaitForDOM || s.profile.NetworkIdle {
		if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
			slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", err)
		}
	}

	if ws := s.profile.WaitSelector; ws != nil && ws.Selector != "" {
		if _, err := p.Element(ws.Selector); err != nil {
			slog.Debug("wait selector did not appear", "selector", ws.Selector, "error", err)
		}
	}
}

func (s *rodSession) applyPendingCookies(target string) {
	u, err := url.Parse(target)
	if err != nil {
		return
	}
	for name, value := range s.pending {
		_, _ = proto.NetworkSetCookie{
			Name:   name,
			Value:  value,
			Domain: u.Hostname(),
			Path:   "/",
		}.Call(s.page)
	}
	s.pending = nil
}

func (s *rodSession) SetCookies(cookies map[string]string) error {
	if s.closed {
		return models.NewScrapeError(models.ErrCodeBrowserCrash, "session is closed", nil)
	}
	if s.pending == nil {
		s.pending = make(map[string]string, len(cookies))
	}
	for name, value := range cookies {
		s.pending[name] = value
	}
	return nil
}

func (s *rodSession) Cookies() (map[string]string, error) {
	if s.closed {
		return nil, models.NewScrapeError(models.ErrCodeBrowserCrash, "session is closed", nil)
	}
	cookies, err := s.page.Cookies(nil)
	if err != nil {
		return nil, fmt.Errorf("read cookies: %w", err)
	}
	jar := make(map[string]string, len(cookies))
	for _, c := range cookies {
		jar[c.Name] = c.Value
	}
	return jar, nil
}

func (s *rodSession) Alive() bool {
	return !s.closed && s.browser != nil
}

// Close tears the whole session down: page, hijack router, browser
// process. Individual failures are logged and swallowed so shutdown
// always completes.
func (s *rodSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if s.router != nil {
		if err := s.router.Stop(); err != nil {
			slog.Debug("hijack router stop failed", "error", err)
		}
	}
	if err := s.page.Close(); err != nil {
		slog.Debug("page close failed", "error", err)
	}
	if err := s.browser.Close(); err != nil {
		slog.Debug("browser close failed", "error", err)
	}
	s.launcher.Kill()
	return nil
}

// humanizeGesture wanders the mouse along a few random waypoints, spread
// across at most maxDuration.
func humanizeGesture(p *rod.Page, maxDuration time.Duration) {
	waypoints := 2 + rand.Intn(3)
	pause := maxDuration / time.Duration(waypoints+1)
	for i := 0; i < waypoints; i++ {
		x := 80 + rand.Float64()*800
		y := 80 + rand.Float64()*500
		if err := p.Mouse.MoveTo(proto.NewPoint(x, y)); err != nil {
			return
		}
		time.Sleep(pause)
	}
}

// captureStatus reads the navigation's HTTP status from the performance
// timeline. This avoids CDP Network-domain listeners, which conflict
// with the Fetch domain used by the hijack router.
func captureStatus(p *rod.Page) int {
	res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`)
	if err != nil {
		return 0
	}
	return res.Value.Int()
}

// categorizeNavError wraps raw navigation errors into the error taxonomy.
func categorizeNavError(err error) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, "navigation timed out", err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeScrape, "navigation to target URL failed", err)
	}
}
