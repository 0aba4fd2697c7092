// Package security provides the SSRF guard applied to every target URL
// before any network activity.
package security

import (
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/use-agent/prowl/models"
)

// RejectionMessage is the caller-facing message returned whenever the
// guard rejects a URL. Tool handlers must return it verbatim.
const RejectionMessage = "Invalid or disallowed URL. URLs must use http/https and cannot point to localhost or private IP addresses."

// localhostHosts are literal hostnames that always resolve to the local
// machine. Matching is exact on the lower-cased hostname.
var localhostHosts = map[string]struct{}{
	"localhost":             {},
	"127.0.0.1":             {},
	"::1":                   {},
	"0.0.0.0":               {},
	"::":                    {},
	"localhost.localdomain": {},
}

// privateHostPatterns match private and link-local IPv4 literals:
// 10.0.0.0/8, 172.16.0.0/12, 192.168.0.0/16, 169.254.0.0/16, 127.0.0.0/8.
var privateHostPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^10\.`),
	regexp.MustCompile(`^172\.(1[6-9]|2[0-9]|3[0-1])\.`),
	regexp.MustCompile(`^192\.168\.`),
	regexp.MustCompile(`^169\.254\.`),
	regexp.MustCompile(`^127\.`),
}

// internalSuffixes are TLDs that only appear on internal networks.
var internalSuffixes = []string{".local", ".internal", ".corp", ".lan"}

// IsAllowed reports whether url is safe to scrape. It rejects non-http(s)
// schemes, empty hosts, localhost variants, private/link-local IPv4
// literals, and internal TLDs.
//
// The check is pure string matching on the literal hostname — no DNS
// resolution is performed. A public DNS name that resolves to a private
// address is therefore NOT caught; adding resolution would change the
// guard's performance and availability characteristics, so the gap is
// documented rather than closed here. Note that net/url strips the
// brackets from IPv6 hosts, so "http://[::1]/" is matched by the
// literal "::1" entry.
func IsAllowed(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		slog.Warn("url guard: parse failure", "url", rawURL, "error", err)
		return false
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		slog.Warn("url guard: disallowed scheme", "scheme", parsed.Scheme)
		return false
	}

	hostname := strings.ToLower(parsed.Hostname())
	if hostname == "" {
		slog.Warn("url guard: URL has no host", "url", rawURL)
		return false
	}

	if _, ok := localhostHosts[hostname]; ok {
		slog.Warn("url guard: blocked localhost host", "host", hostname)
		return false
	}

	for _, pattern := range privateHostPatterns {
		if pattern.MatchString(hostname) {
			slog.Warn("url guard: blocked private IP", "host", hostname)
			return false
		}
	}

	for _, suffix := range internalSuffixes {
		if strings.HasSuffix(hostname, suffix) {
			slog.Warn("url guard: blocked internal hostname", "host", hostname)
			return false
		}
	}

	return true
}

// Check wraps IsAllowed in the error taxonomy for callers that thread
// errors instead of booleans.
func Check(rawURL string) error {
	if IsAllowed(rawURL) {
		return nil
	}
	return models.NewScrapeError(models.ErrCodeURLRejected, RejectionMessage, nil)
}
