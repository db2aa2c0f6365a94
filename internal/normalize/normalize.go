// Package normalize converts raw page text into typed drafts. It never
// rejects a record: text that cannot be converted becomes an absent field and
// the validator decides whether that matters.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-scraper/internal/catalog"
)

var (
	nonCurrency = regexp.MustCompile(`[^0-9.]`)
	firstDigits = regexp.MustCompile(`\d+`)
	hasDigit    = regexp.MustCompile(`\d`)
)

// naiveTimestamp is accepted for scrape dates written without a zone; they are read as UTC.
const naiveTimestamp = "2006-01-02T15:04:05.999999999"

// Normalizer converts raw records into drafts.
type Normalizer struct {
	logger *zap.Logger
}

// New creates a Normalizer. A nil logger discards conversion gaps.
func New(logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{logger: logger}
}

// Normalize dispatches on the raw record's kind. Unknown kinds yield nil.
func (n *Normalizer) Normalize(raw catalog.RawRecord) catalog.Draft {
	switch raw.Kind() {
	case catalog.KindProduct:
		return n.Product(raw)
	case catalog.KindCategory:
		return n.Category(raw)
	default:
		n.logger.Warn("unknown raw record kind", zap.String("kind", raw.Kind().String()))
		return nil
	}
}

// Product converts a raw product record.
func (n *Normalizer) Product(raw catalog.RawRecord) *catalog.ProductDraft {
	c := converter{raw: raw, logger: n.logger}
	return &catalog.ProductDraft{
		Title:           c.text(catalog.FieldTitle),
		Price:           c.currency(catalog.FieldPrice),
		Description:     c.text(catalog.FieldDescription),
		ISBN:            c.text(catalog.FieldISBN),
		UPC:             c.text(catalog.FieldUPC),
		ProductType:     c.text(catalog.FieldProductType),
		PriceExclTax:    c.currency(catalog.FieldPriceExclTax),
		PriceInclTax:    c.currency(catalog.FieldPriceInclTax),
		Tax:             c.currency(catalog.FieldTax),
		Availability:    c.count(catalog.FieldAvailability),
		NumberOfReviews: c.count(catalog.FieldNumberOfReviews),
		Category:        c.text(catalog.FieldCategory),
		StarRating:      c.integer(catalog.FieldStarRating),
		ImageURL:        c.text(catalog.FieldImageURL),
		URL:             c.text(catalog.FieldURL),
		ScrapeDate:      c.timestamp(catalog.FieldScrapeDate),
	}
}

// Category converts a raw category record.
func (n *Normalizer) Category(raw catalog.RawRecord) *catalog.CategoryDraft {
	c := converter{raw: raw, logger: n.logger}
	return &catalog.CategoryDraft{
		Name: c.text(catalog.FieldName),
		URL:  c.text(catalog.FieldURL),
	}
}

// Currency strips everything but digits and decimal points and parses the
// remainder as a fixed-point amount. Text without digits reports false.
func Currency(s string) (decimal.Decimal, bool) {
	if !hasDigit.MatchString(s) {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(nonCurrency.ReplaceAllString(s, ""))
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// Count returns the first run of digits anywhere in s.
func Count(s string) (int, bool) {
	digits := firstDigits.FindString(s)
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Timestamp parses an RFC 3339 timestamp, or a zone-less one read as UTC.
func Timestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.ParseInLocation(naiveTimestamp, s, time.UTC); err == nil {
		return t, true
	}
	return time.Time{}, false
}

type converter struct {
	raw    catalog.RawRecord
	logger *zap.Logger
}

func (c converter) gap(field, value string) {
	c.logger.Debug("normalization gap",
		zap.String("kind", c.raw.Kind().String()),
		zap.String("field", field),
		zap.String("raw", value),
	)
}

func (c converter) text(field string) *string {
	v, ok := c.raw.Get(field)
	if !ok {
		return nil
	}
	v = strings.TrimSpace(v)
	return &v
}

func (c converter) currency(field string) *decimal.Decimal {
	v, ok := c.raw.Get(field)
	if !ok {
		return nil
	}
	d, ok := Currency(v)
	if !ok {
		c.gap(field, v)
		return nil
	}
	return &d
}

func (c converter) count(field string) *int {
	v, ok := c.raw.Get(field)
	if !ok {
		return nil
	}
	n, ok := Count(v)
	if !ok {
		c.gap(field, v)
		return nil
	}
	return &n
}

func (c converter) integer(field string) *int {
	v, ok := c.raw.Get(field)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		c.gap(field, v)
		return nil
	}
	return &n
}

func (c converter) timestamp(field string) *time.Time {
	v, ok := c.raw.Get(field)
	if !ok {
		return nil
	}
	t, ok := Timestamp(v)
	if !ok {
		c.gap(field, v)
		return nil
	}
	return &t
}
