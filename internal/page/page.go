// Package page adapts parsed HTML documents to the selector-query capability
// the extractor relies on.
package page

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Type classifies a page for the extractor.
type Type string

// Page types recognised by the scraper.
const (
	TypeUnknown Type = "unknown"
	TypeListing Type = "listing"
	TypeDetail  Type = "detail"
)

// Page is a parsed document (or a fragment of one) that can be queried by CSS selector.
type Page interface {
	// URL is the absolute address the document was served from.
	URL() string
	// Exists reports whether the selector matches anything.
	Exists(selector string) bool
	// Text returns the text of the first match.
	Text(selector string) (string, bool)
	// Texts returns the text of every match in document order.
	Texts(selector string) []string
	// Attr returns an attribute of the first match.
	Attr(selector, name string) (string, bool)
	// SelfText returns the text of the page or fragment itself.
	SelfText() string
	// SelfAttr returns an attribute of the fragment's own root element.
	SelfAttr(name string) (string, bool)
	// Each calls fn with a fragment scoped to every match.
	Each(selector string, fn func(Page))
	// Resolve turns a possibly relative reference into an absolute URL.
	Resolve(ref string) (string, bool)
}

// Links are the follow-up references a page hands back to the crawl engine.
type Links struct {
	Next    string
	Details []string
}

// All returns every link, next page last.
func (l Links) All() []string {
	out := make([]string, 0, len(l.Details)+1)
	out = append(out, l.Details...)
	if l.Next != "" {
		out = append(out, l.Next)
	}
	return out
}

// Handler consumes pages delivered by a crawl engine and returns the links to
// follow next.
type Handler interface {
	HandlePage(ctx context.Context, p Page) (Links, error)
}

// Document implements Page on top of a goquery selection.
type Document struct {
	base *url.URL
	sel  *goquery.Selection
}

// FromReader parses HTML served from rawURL.
func FromReader(rawURL string, r io.Reader) (*Document, error) {
	base, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{base: base, sel: doc.Selection}, nil
}

// FromString parses an HTML string served from rawURL.
func FromString(rawURL, html string) (*Document, error) {
	return FromReader(rawURL, strings.NewReader(html))
}

// URL implements Page.
func (d *Document) URL() string {
	return d.base.String()
}

// Exists implements Page.
func (d *Document) Exists(selector string) bool {
	return d.sel.Find(selector).Length() > 0
}

// Text implements Page.
func (d *Document) Text(selector string) (string, bool) {
	match := d.sel.Find(selector).First()
	if match.Length() == 0 {
		return "", false
	}
	return match.Text(), true
}

// Texts implements Page.
func (d *Document) Texts(selector string) []string {
	var out []string
	d.sel.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, s.Text())
	})
	return out
}

// Attr implements Page.
func (d *Document) Attr(selector, name string) (string, bool) {
	return d.sel.Find(selector).First().Attr(name)
}

// SelfText implements Page.
func (d *Document) SelfText() string {
	return d.sel.Text()
}

// SelfAttr implements Page.
func (d *Document) SelfAttr(name string) (string, bool) {
	return d.sel.Attr(name)
}

// Each implements Page.
func (d *Document) Each(selector string, fn func(Page)) {
	d.sel.Find(selector).Each(func(_ int, s *goquery.Selection) {
		fn(&Document{base: d.base, sel: s})
	})
}

// Resolve implements Page.
func (d *Document) Resolve(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	return d.base.ResolveReference(u).String(), true
}

// Classify decides whether p is a catalogue listing or a product detail page.
func Classify(p Page) Type {
	switch {
	case p.Exists(".product_main"):
		return TypeDetail
	case p.Exists("article.product_pod"):
		return TypeListing
	default:
		return TypeUnknown
	}
}
