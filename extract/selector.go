// Package extract pulls values out of fetched pages: a small selector
// mini-language for targeted extraction, and the response formatter
// that flattens a page into a result record.
package extract

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/use-agent/prowl/engine"
)

// Value is the tagged result of one selector: a scalar, a list, or
// empty. Internal code branches on the tag; the raw JSON shape (value,
// array, or null) only appears at the serialization edge via JSON().
//
// The scalar/list asymmetry is deliberate and load-bearing: one match
// yields a bare scalar, several matches yield a list, zero matches
// yield null. Callers of the tool surface rely on that shape.
type Value struct {
	kind   valueKind
	scalar any
	list   []any
}

type valueKind int

const (
	kindEmpty valueKind = iota
	kindScalar
	kindList
)

// Empty returns the null value.
func Empty() Value { return Value{kind: kindEmpty} }

// Scalar wraps a single extracted value.
func Scalar(v any) Value { return Value{kind: kindScalar, scalar: v} }

// List wraps multiple extracted values in DOM match order.
func List(vs []any) Value { return Value{kind: kindList, list: vs} }

// IsEmpty reports whether the value is null.
func (v Value) IsEmpty() bool { return v.kind == kindEmpty }

// JSON flattens the tagged value to its wire shape: the bare scalar, a
// plain slice, or nil.
func (v Value) JSON() any {
	switch v.kind {
	case kindScalar:
		return v.scalar
	case kindList:
		return v.list
	default:
		return nil
	}
}

// mode is the extraction mode parsed out of a selector string.
type mode int

const (
	modeText mode = iota
	modeHTML
	modeAttr
	modeMultiAttr
)

// parsedSelector is the decoded form of one mini-language selector.
type parsedSelector struct {
	base  string
	mode  mode
	attrs []string
}

// parseSelector decodes the mini-language:
//
//	"sel"            text extraction
//	"sel::html"      inner HTML extraction
//	"sel@attr"       single attribute
//	"sel@a1@a2"      multiple attributes, one mapping per element
//
// The attribute split happens on the LAST '@' first so that attribute
// names may not contain selectors but selectors may contain '@' only as
// part of the attr spec.
func parseSelector(selector string) parsedSelector {
	if strings.Contains(selector, "::html") {
		return parsedSelector{
			base: strings.ReplaceAll(selector, "::html", ""),
			mode: modeHTML,
		}
	}

	if idx := strings.LastIndexByte(selector, '@'); idx >= 0 {
		base, spec := selector[:idx], selector[idx+1:]
		if strings.ContainsRune(base, '@') {
			// More '@'s in front: the whole tail after the first '@'
			// is a multi-attribute spec.
			first := strings.IndexByte(selector, '@')
			attrs := strings.Split(selector[first+1:], "@")
			return parsedSelector{base: selector[:first], mode: modeMultiAttr, attrs: attrs}
		}
		return parsedSelector{base: base, mode: modeAttr, attrs: []string{spec}}
	}

	return parsedSelector{base: selector, mode: modeText}
}

// Selectors extracts every named selector from the page. A failing
// selector yields null for its name; extraction never fails as a whole.
func Selectors(page engine.Page, selectors map[string]string) map[string]any {
	extracted := make(map[string]any, len(selectors))
	for name, selector := range selectors {
		extracted[name] = One(page, selector).JSON()
	}
	return extracted
}

// One extracts a single selector from the page and returns the tagged
// value: Empty for zero matches, Scalar for exactly one, List otherwise.
func One(page engine.Page, selector string) Value {
	parsed := parseSelector(selector)

	elements, err := page.All(parsed.base)
	if err != nil {
		slog.Warn("selector query failed", "selector", parsed.base, "error", err)
		return Empty()
	}
	if len(elements) == 0 {
		return Empty()
	}

	if len(elements) == 1 {
		return Scalar(extractElement(elements[0], parsed))
	}

	values := make([]any, len(elements))
	for i, el := range elements {
		values[i] = extractElement(el, parsed)
	}
	return List(values)
}

// extractElement applies the parsed mode to one element.
func extractElement(el engine.Element, parsed parsedSelector) any {
	switch parsed.mode {
	case modeHTML:
		return nullable(elementHTML(el))
	case modeAttr:
		return nullable(elementAttribute(el, parsed.attrs[0]))
	case modeMultiAttr:
		attrMap := make(map[string]any, len(parsed.attrs))
		for _, attr := range parsed.attrs {
			attrMap[attr] = nullable(elementAttribute(el, attr))
		}
		return attrMap
	default:
		return nullable(elementText(el))
	}
}

// The extraction ladders below are ordered strategy lists, tried first
// to last, because the wrapped engines' element shapes vary. The order
// is policy, covered by tests — not incidental.

var textStrategies = []func(engine.Element) (string, bool){
	func(el engine.Element) (string, bool) {
		if t, ok := el.(engine.TextCapable); ok {
			return t.Text(), true
		}
		return "", false
	},
	func(el engine.Element) (string, bool) {
		if h, ok := el.(engine.HTMLCapable); ok {
			return h.HTML(), true
		}
		return "", false
	},
	stringerStrategy,
}

var htmlStrategies = []func(engine.Element) (string, bool){
	func(el engine.Element) (string, bool) {
		if h, ok := el.(engine.HTMLCapable); ok {
			return h.HTML(), true
		}
		return "", false
	},
	stringerStrategy,
}

func stringerStrategy(el engine.Element) (string, bool) {
	if s, ok := el.(fmt.Stringer); ok {
		return s.String(), true
	}
	return "", false
}

func elementText(el engine.Element) (string, bool) {
	return runLadder(el, textStrategies)
}

func elementHTML(el engine.Element) (string, bool) {
	return runLadder(el, htmlStrategies)
}

func elementAttribute(el engine.Element, name string) (string, bool) {
	if a, ok := el.(engine.AttributeCapable); ok {
		return a.Attribute(name)
	}
	return "", false
}

func runLadder(el engine.Element, ladder []func(engine.Element) (string, bool)) (string, bool) {
	for _, strategy := range ladder {
		if v, ok := strategy(el); ok {
			return v, true
		}
	}
	return "", false
}

// nullable maps an absent extraction to nil so it serialises as null.
func nullable(v string, ok bool) any {
	if !ok {
		return nil
	}
	return v
}
