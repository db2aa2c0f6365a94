// Package pagetest provides canned catalogue pages for tests.
package pagetest

import (
	_ "embed"
	"testing"

	"github.com/JakeFAU/catalog-scraper/internal/page"
)

// Base URLs the fixtures were captured from.
const (
	ListingURL = "https://books.toscrape.com/"
	ProductURL = "https://books.toscrape.com/catalogue/a-light-in-the-attic_1000/index.html"
)

// ListingHTML is a catalogue listing page with two products, a category
// sidebar and a next-page link.
//
//go:embed testdata/listing.html
var ListingHTML string

// ProductHTML is the detail page of the first listed product.
//
//go:embed testdata/product.html
var ProductHTML string

// Listing parses ListingHTML.
func Listing(t testing.TB) *page.Document {
	t.Helper()
	return MustParse(t, ListingURL, ListingHTML)
}

// Product parses ProductHTML.
func Product(t testing.TB) *page.Document {
	t.Helper()
	return MustParse(t, ProductURL, ProductHTML)
}

// MustParse parses html or fails the test.
func MustParse(t testing.TB, rawURL, html string) *page.Document {
	t.Helper()
	doc, err := page.FromString(rawURL, html)
	if err != nil {
		t.Fatalf("parse fixture %s: %v", rawURL, err)
	}
	return doc
}
