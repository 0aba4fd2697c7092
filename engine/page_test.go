package engine

import (
	"fmt"
	"strings"
	"testing"
)

const sampleHTML = `<html>
<head><title>  Sample   Page  </title></head>
<body>
  <h1 id="main" class="hero">Hello    World</h1>
  <p>First paragraph.</p>
  <p>Second   paragraph.</p>
  <a href="/one">One</a>
  <a href="/two">Two</a>
</body>
</html>`

func mustParse(t *testing.T, body string, status int) *DocumentPage {
	t.Helper()
	page, err := ParsePage(body, status, nil)
	if err != nil {
		t.Fatalf("ParsePage: %v", err)
	}
	return page
}

func TestPageStatusAndBody(t *testing.T) {
	page := mustParse(t, sampleHTML, 200)
	if page.Status() != 200 {
		t.Errorf("Status = %d, want 200", page.Status())
	}
	if page.Body() != sampleHTML {
		t.Error("Body should return the raw captured input")
	}
}

func TestPageTextNormalization(t *testing.T) {
	page := mustParse(t, "<p>  a \n\t b   c  </p>", 200)
	if got := page.Text(); got != "a b c" {
		t.Errorf("Text = %q, want %q", got, "a b c")
	}
}

func TestPageAll(t *testing.T) {
	page := mustParse(t, sampleHTML, 200)

	els, err := page.All("p")
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(els) != 2 {
		t.Fatalf("All(p) matched %d elements, want 2", len(els))
	}
	if got := els[0].(TextCapable).Text(); got != "First paragraph." {
		t.Errorf("first <p> text = %q", got)
	}

	none, err := page.All(".missing")
	if err != nil {
		t.Fatalf("All(.missing): %v", err)
	}
	if len(none) != 0 {
		t.Errorf("All(.missing) matched %d elements, want 0", len(none))
	}
}

func TestPageAllInvalidSelector(t *testing.T) {
	page := mustParse(t, sampleHTML, 200)
	if _, err := page.All("p["); err == nil {
		t.Error("invalid selector should return an error, not panic")
	}
}

func TestPageFirst(t *testing.T) {
	page := mustParse(t, sampleHTML, 200)

	el, err := page.First("h1")
	if err != nil {
		t.Fatalf("First: %v", err)
	}
	if el == nil {
		t.Fatal("First(h1) = nil")
	}
	if got := el.(TextCapable).Text(); got != "Hello World" {
		t.Errorf("h1 text = %q, want whitespace-normalized %q", got, "Hello World")
	}

	missing, err := page.First(".nope")
	if err != nil {
		t.Fatalf("First(.nope): %v", err)
	}
	if missing != nil {
		t.Error("First with no match should return nil, nil")
	}
}

func TestElementCapabilities(t *testing.T) {
	page := mustParse(t, sampleHTML, 200)
	el, err := page.First("h1")
	if err != nil || el == nil {
		t.Fatalf("First(h1): el=%v err=%v", el, err)
	}

	if v, ok := el.(AttributeCapable).Attribute("id"); !ok || v != "main" {
		t.Errorf("Attribute(id) = %q, %v", v, ok)
	}
	if _, ok := el.(AttributeCapable).Attribute("data-missing"); ok {
		t.Error("missing attribute should report ok=false")
	}

	if h := el.(HTMLCapable).HTML(); !strings.Contains(h, "Hello") {
		t.Errorf("HTML = %q, should contain inner text", h)
	}

	s, ok := el.(fmt.Stringer)
	if !ok {
		t.Fatal("element should implement fmt.Stringer")
	}
	if outer := s.String(); !strings.Contains(outer, "<h1") || !strings.Contains(outer, `id="main"`) {
		t.Errorf("String (outer HTML) = %q", outer)
	}
}

func TestPageHeaders(t *testing.T) {
	headers := map[string]string{"Content-Type": "text/html"}
	page, err := ParsePage("<p>x</p>", 200, headers)
	if err != nil {
		t.Fatalf("ParsePage: %v", err)
	}
	if page.Headers()["Content-Type"] != "text/html" {
		t.Error("Headers should round-trip")
	}
}
