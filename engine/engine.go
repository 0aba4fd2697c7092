// Package engine abstracts the external page-fetching engines. The
// orchestration layer only sees these interfaces; the rod browser engine
// and the utls HTTP engine are interchangeable behind them.
package engine

import (
	"context"
	"time"

	"github.com/use-agent/prowl/stealth"
)

// Engine opens fetch sessions configured from a stealth profile.
type Engine interface {
	// Name returns the engine identifier (e.g. "http", "rod").
	Name() string

	// NewSession opens a fresh session configured from the profile.
	// Callers own the returned session and must Close it.
	NewSession(ctx context.Context, profile *stealth.Profile) (Session, error)
}

// Session is one live engine session. It keeps state (cookies) across
// fetches until closed. Sessions are not safe for concurrent fetches.
type Session interface {
	// Fetch retrieves the page at url, waiting settle after load before
	// capturing the document.
	Fetch(ctx context.Context, url string, settle time.Duration) (Page, error)

	// SetCookies seeds name=value cookies into the session jar.
	SetCookies(cookies map[string]string) error

	// Cookies returns the session's current cookie jar.
	Cookies() (map[string]string, error)

	// Alive reports whether the underlying engine resource is still
	// usable. No active probe is performed; this checks the resource
	// marker only.
	Alive() bool

	// Close releases the session's engine resources.
	Close() error
}

// Page is a fetched document. It is read-only and lives for one fetch.
type Page interface {
	// Status returns the HTTP status code, or 0 when the engine did not
	// expose one.
	Status() int

	// Body returns the raw page body.
	Body() string

	// Text returns the whole-page text content with whitespace-stripped
	// normalization.
	Text() string

	// First returns the first element matching the CSS selector, or
	// (nil, nil) when nothing matches.
	First(selector string) (Element, error)

	// All returns every element matching the CSS selector in DOM order.
	All(selector string) ([]Element, error)
}

// Element is an opaque matched node. Extraction code probes it through
// the capability interfaces below in a fixed strategy order, because the
// wrapped engines' element shapes vary.
type Element any

// TextCapable exposes an element's text content.
type TextCapable interface {
	Text() string
}

// HTMLCapable exposes an element's inner HTML.
type HTMLCapable interface {
	HTML() string
}

// AttributeCapable exposes element attributes by name.
type AttributeCapable interface {
	Attribute(name string) (string, bool)
}
