package engine

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

// DocumentPage is the Page implementation shared by all engines: a
// captured body parsed once into a queryable document. DOM queries run
// against the snapshot, not the live browser, so a page stays usable
// after its session is returned or closed.
type DocumentPage struct {
	status  int
	body    string
	headers map[string]string
	doc     *goquery.Document
}

// ParsePage builds a DocumentPage from a captured body and status code.
// Parse failures are not possible for any input the HTML parser accepts
// (it is error-tolerant), but a reader error still surfaces.
func ParsePage(body string, status int, headers map[string]string) (*DocumentPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	return &DocumentPage{status: status, body: body, headers: headers, doc: doc}, nil
}

// Status returns the HTTP status code, 0 when unknown.
func (p *DocumentPage) Status() int { return p.status }

// Body returns the raw captured body.
func (p *DocumentPage) Body() string { return p.body }

// Headers returns response headers when the fetch path captured them.
func (p *DocumentPage) Headers() map[string]string { return p.headers }

// Text returns the whole-page text, whitespace-normalized: runs of
// whitespace collapse to single spaces and the edges are trimmed.
func (p *DocumentPage) Text() string {
	return strings.Join(strings.Fields(p.doc.Text()), " ")
}

// First returns the first match for the selector, or (nil, nil) when
// nothing matches.
func (p *DocumentPage) First(selector string) (Element, error) {
	matches, err := p.All(selector)
	if err != nil || len(matches) == 0 {
		return nil, err
	}
	return matches[0], nil
}

// All returns every match for the selector in DOM order. The selector
// is compiled with cascadia so an invalid selector returns an error
// instead of panicking.
func (p *DocumentPage) All(selector string) ([]Element, error) {
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return nil, err
	}

	sel := p.doc.FindMatcher(matcher)
	elements := make([]Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		elements = append(elements, &documentElement{sel: s})
	})
	return elements, nil
}

// documentElement adapts a goquery selection of one node to the element
// capability interfaces.
type documentElement struct {
	sel *goquery.Selection
}

func (e *documentElement) Text() string {
	return strings.Join(strings.Fields(e.sel.Text()), " ")
}

func (e *documentElement) HTML() string {
	h, err := e.sel.Html()
	if err != nil {
		return ""
	}
	return h
}

func (e *documentElement) Attribute(name string) (string, bool) {
	return e.sel.Attr(name)
}

// String renders the element's outer HTML, the stringification fallback
// at the bottom of the extraction ladder.
func (e *documentElement) String() string {
	var sb strings.Builder
	for _, node := range e.sel.Nodes {
		if err := html.Render(&sb, node); err != nil {
			return ""
		}
	}
	return sb.String()
}
