package engine

import (
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	stealthcfg "github.com/use-agent/prowl/stealth"
)

// adDomains is a set of well-known ad and tracking domains blocked when
// a profile enables BlockAds.
var adDomains = map[string]struct{}{
	"doubleclick.net":        {},
	"googlesyndication.com":  {},
	"googleadservices.com":   {},
	"google-analytics.com":   {},
	"googletagmanager.com":   {},
	"googletagservices.com":  {},
	"connect.facebook.net":   {},
	"fbcdn.net":              {},
	"adnxs.com":              {},
	"adsrvr.org":             {},
	"amazon-adsystem.com":    {},
	"criteo.com":             {},
	"criteo.net":             {},
	"outbrain.com":           {},
	"taboola.com":            {},
	"moatads.com":            {},
	"pubmatic.com":           {},
	"rubiconproject.com":     {},
	"scorecardresearch.com":  {},
	"quantserve.com":         {},
	"hotjar.com":             {},
	"mixpanel.com":           {},
	"segment.io":             {},
	"segment.com":            {},
	"ads-twitter.com":        {},
	"static.ads-twitter.com": {},
	"chartbeat.com":          {},
	"openx.net":              {},
	"casalemedia.com":        {},
	"demdex.net":             {},
	"bluekai.com":            {},
	"mathtag.com":            {},
	"serving-sys.com":        {},
	"sharethis.com":          {},
	"addthis.com":            {},
}

// isAdDomain checks the hostname and every parent domain against the
// ad blocklist.
func isAdDomain(host string) bool {
	host = strings.ToLower(host)
	if _, ok := adDomains[host]; ok {
		return true
	}
	for {
		idx := strings.IndexByte(host, '.')
		if idx < 0 {
			break
		}
		host = host[idx+1:]
		if _, ok := adDomains[host]; ok {
			return true
		}
	}
	return false
}

// blockedTypes derives the CDP resource types to drop from a profile.
func blockedTypes(profile *stealthcfg.Profile) map[proto.NetworkResourceType]struct{} {
	blocked := make(map[proto.NetworkResourceType]struct{})
	if profile.BlockImages {
		blocked[proto.NetworkResourceTypeImage] = struct{}{}
	}
	if profile.DisableResources {
		blocked[proto.NetworkResourceTypeStylesheet] = struct{}{}
		blocked[proto.NetworkResourceTypeScript] = struct{}{}
		blocked[proto.NetworkResourceTypeFont] = struct{}{}
		blocked[proto.NetworkResourceTypeMedia] = struct{}{}
	}
	return blocked
}

// setupHijack installs a request interceptor on the page that drops the
// profile's blocked resource types and, optionally, requests to known
// ad/tracking domains.
//
// Returns the running HijackRouter so the session can Stop() it on
// close, or nil when the profile blocks nothing.
func setupHijack(page *rod.Page, profile *stealthcfg.Profile) *rod.HijackRouter {
	blocked := blockedTypes(profile)
	if len(blocked) == 0 && !profile.BlockAds {
		return nil
	}

	router := page.HijackRequests()

	// Pattern "*" + empty resourceType = intercept ALL requests, then
	// decide per-request whether to block or continue.
	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		if _, drop := blocked[ctx.Request.Type()]; drop {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}

		if profile.BlockAds {
			if u, err := url.Parse(ctx.Request.URL().String()); err == nil && isAdDomain(u.Hostname()) {
				ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
				return
			}
		}

		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// router.Run() blocks, so it must live in its own goroutine.
	// It exits when router.Stop() is called.
	go router.Run()

	return router
}
