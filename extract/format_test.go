package extract

import (
	"strings"
	"testing"

	"github.com/use-agent/prowl/engine"
)

func TestFormatPopulatesRecord(t *testing.T) {
	page, err := engine.ParsePage(productHTML, 200, map[string]string{"Server": "nginx"})
	if err != nil {
		t.Fatalf("ParsePage: %v", err)
	}

	record := Format(page, "https://shop.example.com", map[string]string{
		"price": "span.price",
	})

	if record.URL != "https://shop.example.com" {
		t.Errorf("url = %q", record.URL)
	}
	if record.StatusCode == nil || *record.StatusCode != 200 {
		t.Errorf("status_code = %v, want 200", record.StatusCode)
	}
	if record.Title == nil || *record.Title != "Widget Shop" {
		t.Errorf("title = %v, want Widget Shop", record.Title)
	}
	if record.HTML == nil || !strings.Contains(*record.HTML, "Deluxe Widget") {
		t.Error("html should carry the raw body")
	}
	if record.Text == nil || !strings.Contains(*record.Text, "$19.99") {
		t.Errorf("text = %v", record.Text)
	}
	if record.Headers["Server"] != "nginx" {
		t.Errorf("headers = %v", record.Headers)
	}
	if record.Selectors["price"] != "$19.99" {
		t.Errorf("selectors[price] = %#v", record.Selectors["price"])
	}
	if record.Timestamp == "" || !strings.HasSuffix(record.Timestamp, "Z") {
		t.Errorf("timestamp = %q, want UTC ISO-8601 with trailing Z", record.Timestamp)
	}
	if record.Error != nil {
		t.Errorf("error = %v, want nil", *record.Error)
	}
}

func TestFormatNilPage(t *testing.T) {
	record := Format(nil, "https://example.com", nil)
	if record.URL != "https://example.com" {
		t.Errorf("url = %q", record.URL)
	}
	if record.StatusCode != nil || record.Title != nil || record.HTML != nil {
		t.Error("nil page should leave content fields null")
	}
}

func TestFormatNoTitle(t *testing.T) {
	page, err := engine.ParsePage("<body><p>untitled</p></body>", 200, nil)
	if err != nil {
		t.Fatalf("ParsePage: %v", err)
	}
	record := Format(page, "https://example.com", nil)
	if record.Title != nil {
		t.Errorf("title = %q, want nil for a page without <title>", *record.Title)
	}
}

func TestFormatZeroStatusIsNull(t *testing.T) {
	page, err := engine.ParsePage("<p>x</p>", 0, nil)
	if err != nil {
		t.Fatalf("ParsePage: %v", err)
	}
	record := Format(page, "https://example.com", nil)
	if record.StatusCode != nil {
		t.Errorf("status_code = %v, want null when the engine exposed none", *record.StatusCode)
	}
}

// panickyPage blows up on every accessor. Format must still return a
// usable record.
type panickyPage struct{}

func (panickyPage) Status() int  { panic("status") }
func (panickyPage) Body() string { panic("body") }
func (panickyPage) Text() string { panic("text") }
func (panickyPage) First(string) (engine.Element, error) {
	panic("first")
}
func (panickyPage) All(string) ([]engine.Element, error) {
	panic("all")
}

func TestFormatSurvivesPanickingPage(t *testing.T) {
	record := Format(panickyPage{}, "https://example.com", nil)
	if record == nil {
		t.Fatal("Format returned nil")
	}
	if record.URL != "https://example.com" {
		t.Errorf("url = %q", record.URL)
	}
	if record.StatusCode != nil {
		t.Error("status should degrade to null")
	}
	if record.Title != nil {
		t.Error("title should degrade to null")
	}
	if record.HTML != nil {
		t.Error("html should degrade to null")
	}
}
