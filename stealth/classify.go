package stealth

import "strings"

// Classification is the outcome category of one fetch attempt.
type Classification string

// Attempt classifications.
const (
	ClassSuccess    Classification = "success"
	ClassChallenged Classification = "challenged"
	ClassBlocked    Classification = "blocked"
	ClassTimedOut   Classification = "timed_out"
	ClassErrored    Classification = "errored"
)

// challengeSignatures are lower-cased substrings that mark an anti-bot
// interstitial (Cloudflare and similar) rather than real content.
var challengeSignatures = []string{
	"cloudflare",
	"checking your browser",
	"just a moment",
	"enable cookies",
	"ray id",
}

// blockSignatures are lower-cased substrings that mark an explicit
// denial (403/429-style content).
var blockSignatures = []string{
	"access denied",
	"forbidden",
	"rate limit",
	"blocked",
	"captcha",
	"please wait",
	"too many requests",
}

// IsChallenge reports whether the page body looks like an anti-bot
// challenge interstitial. This is a substring heuristic over arbitrary
// page content: false positives are expected and acceptable. Callers
// must run the challenge check before the block check.
func IsChallenge(body string) bool {
	return containsAny(body, challengeSignatures)
}

// IsBlocked reports whether the page body looks like an explicit block
// or rate-limit response. Same heuristic caveats as IsChallenge.
func IsBlocked(body string) bool {
	return containsAny(body, blockSignatures)
}

func containsAny(body string, signatures []string) bool {
	lower := strings.ToLower(body)
	for _, sig := range signatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}
