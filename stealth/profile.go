// Package stealth holds the anti-detection policy data: named stealth
// profiles, page classification heuristics, and proxy rotation.
package stealth

import (
	"fmt"
	"time"
)

// Level names a stealth preset.
type Level string

// Preset levels, ordered by protection strength.
const (
	LevelMinimal  Level = "minimal"
	LevelStandard Level = "standard"
	LevelMaximum  Level = "maximum"
)

// ParseLevel validates a stealth level string.
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case LevelMinimal, LevelStandard, LevelMaximum:
		return Level(s), nil
	}
	return "", fmt.Errorf("invalid stealth level: %q (valid options are: minimal, standard, maximum)", s)
}

// Humanize controls human-like cursor behavior during a fetch.
type Humanize struct {
	Enabled bool
	// Duration is the maximum cursor movement time per gesture.
	Duration time.Duration
}

// WaitSelector instructs the engine to wait for an element to reach a
// state ("attached", "visible") before returning the page.
type WaitSelector struct {
	Selector string
	State    string
}

// Profile is a bundle of anti-detection knobs for one fetch attempt.
//
// A Profile is treated as immutable for the duration of a single attempt.
// The retry loop mutates only its own Clone between attempts (proxy
// rotation); profiles must never be shared across concurrent fetches
// after such mutation.
type Profile struct {
	Headless       bool
	SolveChallenge bool
	Humanize       Humanize
	GeoIP          bool
	OSRandomize    bool
	BlockWebRTC    bool
	AllowWebGL     bool
	// ImpersonateChrome makes the fetch present a Chrome identity
	// (user agent, TLS fingerprint, Google-search referer).
	ImpersonateChrome bool
	BlockImages       bool
	BlockAds          bool
	// DisableResources blocks CSS and script subresources entirely.
	DisableResources bool
	NetworkIdle      bool
	WaitForDOM       bool
	WaitSelector     *WaitSelector
	// Timeout is the per-attempt deadline. Canonical unit is
	// milliseconds on the wire; stored as a duration here.
	Timeout time.Duration
	// Proxy is the egress proxy URL, empty for direct egress.
	Proxy string
}

// Minimal returns the fast preset: basic anti-detection for simple sites.
func Minimal() *Profile {
	return &Profile{
		Headless:          true,
		SolveChallenge:    false,
		Humanize:          Humanize{Enabled: false, Duration: 1500 * time.Millisecond},
		GeoIP:             false,
		OSRandomize:       false,
		BlockWebRTC:       false,
		AllowWebGL:        false,
		ImpersonateChrome: false,
		BlockImages:       true,
		BlockAds:          true,
		DisableResources:  true,
		Timeout:           15 * time.Second,
	}
}

// Standard returns the balanced preset suitable for most sites.
func Standard() *Profile {
	return &Profile{
		Headless:          true,
		SolveChallenge:    false,
		Humanize:          Humanize{Enabled: true, Duration: 1500 * time.Millisecond},
		GeoIP:             false,
		OSRandomize:       true,
		BlockWebRTC:       true,
		AllowWebGL:        false,
		ImpersonateChrome: true,
		BlockImages:       false,
		BlockAds:          true,
		DisableResources:  false,
		Timeout:           30 * time.Second,
	}
}

// Maximum returns the heaviest preset for strongly protected sites:
// challenge solving, geoip routing, and full fingerprint randomization.
func Maximum() *Profile {
	return &Profile{
		Headless:          true,
		SolveChallenge:    true,
		Humanize:          Humanize{Enabled: true, Duration: 1500 * time.Millisecond},
		GeoIP:             true,
		OSRandomize:       true,
		BlockWebRTC:       true,
		AllowWebGL:        false,
		ImpersonateChrome: true,
		BlockImages:       false,
		BlockAds:          true,
		DisableResources:  false,
		Timeout:           60 * time.Second,
	}
}

// ForLevel returns a fresh Profile for the given preset level.
func ForLevel(level Level) *Profile {
	switch level {
	case LevelMinimal:
		return Minimal()
	case LevelMaximum:
		return Maximum()
	default:
		return Standard()
	}
}

// Clone returns a private working copy of p. The retry loop clones the
// caller's profile once so proxy swaps never touch shared state.
func (p *Profile) Clone() *Profile {
	cp := *p
	if p.WaitSelector != nil {
		ws := *p.WaitSelector
		cp.WaitSelector = &ws
	}
	return &cp
}

// Fingerprint returns a stable string identity for the profile, used by
// the session registry to decide whether an existing engine session can
// be reused for an equal profile.
func (p *Profile) Fingerprint() string {
	ws := ""
	if p.WaitSelector != nil {
		ws = p.WaitSelector.Selector + "/" + p.WaitSelector.State
	}
	return fmt.Sprintf("h=%t|cf=%t|hum=%t/%s|geo=%t|osr=%t|rtc=%t|gl=%t|chrome=%t|img=%t|ads=%t|res=%t|idle=%t|dom=%t|ws=%s|to=%s|proxy=%s",
		p.Headless, p.SolveChallenge,
		p.Humanize.Enabled, p.Humanize.Duration,
		p.GeoIP, p.OSRandomize, p.BlockWebRTC, p.AllowWebGL,
		p.ImpersonateChrome, p.BlockImages, p.BlockAds, p.DisableResources,
		p.NetworkIdle, p.WaitForDOM, ws, p.Timeout, p.Proxy,
	)
}

// Equal reports whether two profiles are value-equal.
func (p *Profile) Equal(other *Profile) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.Fingerprint() == other.Fingerprint()
}
