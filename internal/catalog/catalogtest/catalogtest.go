// Package catalogtest builds valid records for tests.
package catalogtest

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/JakeFAU/catalog-scraper/internal/catalog"
)

// ScrapeDate is the scrape time stamped on generated products.
var ScrapeDate = time.Date(2025, 11, 6, 9, 30, 0, 0, time.UTC)

// Product returns the n-th synthetic product. Distinct n produce distinct
// titles, prices and URLs.
func Product(n int) catalog.Product {
	excl := decimal.New(int64(1000+n), -2)
	tax := decimal.RequireFromString("0.20")
	category := "Poetry"
	desc := fmt.Sprintf("Description %d.\nSecond line with \"quotes\" & <b>markup</b>.", n)
	return catalog.Product{
		Title:           fmt.Sprintf("Book %d", n),
		Price:           excl.Add(tax),
		Description:     &desc,
		UPC:             fmt.Sprintf("upc%012d", n),
		ProductType:     "Books",
		PriceExclTax:    excl,
		PriceInclTax:    excl.Add(tax),
		Tax:             tax,
		Availability:    n,
		NumberOfReviews: 0,
		Category:        &category,
		StarRating:      n%5 + 1,
		ImageURL:        fmt.Sprintf("https://books.toscrape.com/media/cache/%d.jpg", n),
		URL:             fmt.Sprintf("https://books.toscrape.com/catalogue/book-%d/index.html", n),
		ScrapeDate:      ScrapeDate,
	}
}

// Category returns a valid category record.
func Category(name string) catalog.Category {
	return catalog.Category{
		Name: name,
		URL:  "https://books.toscrape.com/catalogue/category/books/" + name + "/index.html",
	}
}

// AssertProductEqual compares products field by field, using exact decimal
// comparison for amounts and instant comparison for the scrape date.
func AssertProductEqual(t assert.TestingT, want, got catalog.Product) bool {
	ok := true
	check := func(cond bool, field string) {
		if !cond {
			ok = assert.Fail(t, "product field differs", "%s: want %+v, got %+v", field, want, got)
		}
	}
	check(want.Title == got.Title, catalog.FieldTitle)
	check(want.Price.Equal(got.Price), catalog.FieldPrice)
	check(assert.ObjectsAreEqual(want.Description, got.Description), catalog.FieldDescription)
	check(assert.ObjectsAreEqual(want.ISBN, got.ISBN), catalog.FieldISBN)
	check(want.UPC == got.UPC, catalog.FieldUPC)
	check(want.ProductType == got.ProductType, catalog.FieldProductType)
	check(want.PriceExclTax.Equal(got.PriceExclTax), catalog.FieldPriceExclTax)
	check(want.PriceInclTax.Equal(got.PriceInclTax), catalog.FieldPriceInclTax)
	check(want.Tax.Equal(got.Tax), catalog.FieldTax)
	check(want.Availability == got.Availability, catalog.FieldAvailability)
	check(want.NumberOfReviews == got.NumberOfReviews, catalog.FieldNumberOfReviews)
	check(assert.ObjectsAreEqual(want.Category, got.Category), catalog.FieldCategory)
	check(want.StarRating == got.StarRating, catalog.FieldStarRating)
	check(want.ImageURL == got.ImageURL, catalog.FieldImageURL)
	check(want.URL == got.URL, catalog.FieldURL)
	check(want.ScrapeDate.Equal(got.ScrapeDate), catalog.FieldScrapeDate)
	return ok
}
