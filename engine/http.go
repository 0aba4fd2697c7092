package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	tls "github.com/refraction-networking/utls"

	"github.com/use-agent/prowl/models"
	stealthcfg "github.com/use-agent/prowl/stealth"
)

// HTTPEngine fetches pages over plain HTTP with a Chrome-like TLS
// fingerprint. It is the fast path behind scrape_simple: no rendering,
// no JavaScript, just the document as served.
type HTTPEngine struct{}

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to
// http/1.1 only. Computed once at init time and reused per connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		// Fallback: spec generation should never fail with a valid
		// utls version; the zero spec makes UClient use its default.
		return
	}
	// Replace h2 with http/1.1 only in the ALPN extension so the server
	// never negotiates HTTP/2 (which Go's http.Transport cannot handle
	// over a utls connection).
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// NewHTTPEngine creates the TLS-fingerprinting HTTP engine.
func NewHTTPEngine() *HTTPEngine {
	return &HTTPEngine{}
}

func (e *HTTPEngine) Name() string { return "http" }

// NewSession builds a client with its own cookie jar. When the profile
// carries a proxy, the session routes through it with the standard TLS
// stack instead — utls' custom dial bypasses Transport's CONNECT
// handling, so fingerprinting and proxying are mutually exclusive here.
func (e *HTTPEngine) NewSession(_ context.Context, profile *stealthcfg.Profile) (Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInternal, "cookie jar init failed", err)
	}

	var transport *http.Transport
	if profile.Proxy != "" {
		proxyURL, parseErr := url.Parse(profile.Proxy)
		if parseErr != nil {
			return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "invalid proxy URL", parseErr)
		}
		transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
	} else {
		transport = &http.Transport{
			DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				dialer := &net.Dialer{Timeout: 10 * time.Second}
				conn, dialErr := dialer.DialContext(ctx, network, addr)
				if dialErr != nil {
					return nil, dialErr
				}
				host, _, _ := net.SplitHostPort(addr)
				tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
				if applyErr := tlsConn.ApplyPreset(&chromeH1Spec); applyErr != nil {
					conn.Close()
					return nil, fmt.Errorf("apply tls spec: %w", applyErr)
				}
				if hsErr := tlsConn.HandshakeContext(ctx); hsErr != nil {
					conn.Close()
					return nil, hsErr
				}
				return tlsConn, nil
			},
			ForceAttemptHTTP2: false,
		}
	}

	client := &http.Client{
		Transport: transport,
		Jar:       jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	return &httpSession{client: client, jar: jar, profile: profile.Clone()}, nil
}

type httpSession struct {
	client  *http.Client
	jar     http.CookieJar
	profile *stealthcfg.Profile

	// lastURL remembers where cookies were last exchanged so Cookies()
	// can read the jar for the right origin.
	lastURL *url.URL
	pending map[string]string
	closed  bool
}

func (s *httpSession) Fetch(ctx context.Context, target string, settle time.Duration) (Page, error) {
	if s.closed {
		return nil, models.NewScrapeError(models.ErrCodeScrape, "session is closed", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeScrape, "build request", err)
	}

	req.Header.Set("User-Agent", osUserAgents[0])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "identity") // no compression for simplicity

	for name, value := range s.pending {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, categorizeHTTPError(err, s.profile.Timeout)
	}
	defer resp.Body.Close()

	// 10 MB body cap to prevent unbounded memory use.
	const maxBody = 10 << 20
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeScrape, "read body", err)
	}

	s.lastURL = resp.Request.URL

	headers := make(map[string]string, len(resp.Header))
	for name := range resp.Header {
		headers[name] = resp.Header.Get(name)
	}

	// The settle wait is a rendering concern; plain HTTP has nothing to
	// settle, so it is ignored here.
	return ParsePage(string(body), resp.StatusCode, headers)
}

func (s *httpSession) SetCookies(cookies map[string]string) error {
	if s.pending == nil {
		s.pending = make(map[string]string, len(cookies))
	}
	for name, value := range cookies {
		s.pending[name] = value
	}
	return nil
}

func (s *httpSession) Cookies() (map[string]string, error) {
	jar := make(map[string]string)
	if s.lastURL != nil {
		for _, c := range s.jar.Cookies(s.lastURL) {
			jar[c.Name] = c.Value
		}
	}
	for name, value := range s.pending {
		if _, ok := jar[name]; !ok {
			jar[name] = value
		}
	}
	return jar, nil
}

func (s *httpSession) Alive() bool { return !s.closed && s.client != nil }

func (s *httpSession) Close() error {
	s.closed = true
	s.client.CloseIdleConnections()
	return nil
}

// categorizeHTTPError maps client errors into the taxonomy. net/http
// reports deadline expiry through a url.Error with Timeout() true.
func categorizeHTTPError(err error, timeout time.Duration) *models.ScrapeError {
	var urlErr *url.Error
	if errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &urlErr) && urlErr.Timeout()) {
		return models.NewScrapeError(models.ErrCodeTimeout,
			fmt.Sprintf("request timed out after %s", timeout), err)
	}
	return models.NewScrapeError(models.ErrCodeScrape, "request failed", err)
}
