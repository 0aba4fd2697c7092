package stealth

import "testing"

func TestIsChallenge(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"cloudflare interstitial", "<html>Checking your browser before accessing example.com</html>", true},
		{"just a moment", "<title>Just a moment...</title>", true},
		{"ray id footer", "<div>Ray ID: 8a1b2c3d</div>", true},
		{"enable cookies", "Please enable cookies to continue", true},
		{"case insensitive", "CLOUDFLARE", true},
		{"plain content", "<html><body>Welcome to our store</body></html>", false},
		{"empty body", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsChallenge(tt.body); got != tt.want {
				t.Errorf("IsChallenge = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsBlocked(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"access denied", "<h1>Access Denied</h1>", true},
		{"forbidden", "403 Forbidden", true},
		{"rate limited", "You have hit the rate limit", true},
		{"captcha", "Please solve the CAPTCHA below", true},
		{"too many requests", "Too Many Requests", true},
		{"plain content", "<html><body>Product catalog</body></html>", false},
		{"empty body", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBlocked(tt.body); got != tt.want {
				t.Errorf("IsBlocked = %v, want %v", got, tt.want)
			}
		})
	}
}

// A Cloudflare challenge page usually also contains block phrasing; the
// orchestrator relies on checking IsChallenge first, so both heuristics
// firing on the same body must be possible.
func TestChallengeBodyAlsoMatchesBlock(t *testing.T) {
	body := "Checking your browser... please wait"
	if !IsChallenge(body) {
		t.Error("expected challenge signature to fire")
	}
	if !IsBlocked(body) {
		t.Error("expected block signature to fire too")
	}
}
