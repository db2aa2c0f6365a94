// Package validate enforces the business rules every persisted record must
// satisfy. All rules are evaluated so a rejection lists every violation.
package validate

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/JakeFAU/catalog-scraper/internal/catalog"
	"github.com/JakeFAU/catalog-scraper/internal/clock"
)

// Rejection reasons.
const (
	ReasonMissing       = "missing required field"
	ReasonEmpty         = "must not be empty"
	ReasonNegative      = "must be >= 0"
	ReasonRatingRange   = "star_rating must be between 1 and 5"
	ReasonPriceMismatch = "price_incl_tax must equal price_excl_tax + tax"
	ReasonISBNDigits    = "ISBN must contain only digits"
	ReasonISBNLength    = "ISBN must be 10 or 13 digits"
	ReasonURL           = "must be an absolute http or https URL"
	ReasonFutureScrape  = "scrape_date cannot be in the future"
	ReasonUnknownKind   = "unsupported record kind"
	ReasonNilDraft      = "record is nil"
)

// priceTolerance bounds |price_incl_tax - (price_excl_tax + tax)|, inclusive.
const priceTolerance = "0.01"

// Violation is one broken rule. Cross-field rules name every field involved.
type Violation struct {
	Fields []string `json:"fields"`
	Reason string   `json:"reason"`
}

func (v Violation) String() string {
	return strings.Join(v.Fields, ",") + ": " + v.Reason
}

// Rejection is returned for a draft that breaks at least one rule.
type Rejection struct {
	Kind       catalog.Kind
	Violations []Violation
}

// Error implements error.
func (r *Rejection) Error() string {
	parts := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("%s rejected: %s", r.Kind, strings.Join(parts, "; "))
}

// Fields lists every field named by a violation, in order, without duplicates.
func (r *Rejection) Fields() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, v := range r.Violations {
		for _, f := range v.Fields {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			out = append(out, f)
		}
	}
	return out
}

// Has reports whether some violation names field with the given reason.
func (r *Rejection) Has(field, reason string) bool {
	for _, v := range r.Violations {
		if v.Reason != reason {
			continue
		}
		for _, f := range v.Fields {
			if f == field {
				return true
			}
		}
	}
	return false
}

// Validator checks drafts against the clock it was built with.
type Validator struct {
	clock     clock.Clock
	tolerance decimal.Decimal
}

// New creates a Validator. Temporal rules read clk at validation time.
func New(clk clock.Clock) *Validator {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Validator{
		clock:     clk,
		tolerance: decimal.RequireFromString(priceTolerance),
	}
}

// Validate returns the immutable record for a valid draft, or a *Rejection.
func (v *Validator) Validate(d catalog.Draft) (catalog.Record, error) {
	switch d := d.(type) {
	case *catalog.ProductDraft:
		if d == nil {
			return nil, nilRejection(catalog.KindProduct)
		}
		return v.product(d)
	case *catalog.CategoryDraft:
		if d == nil {
			return nil, nilRejection(catalog.KindCategory)
		}
		return v.category(d)
	case nil:
		return nil, nilRejection("")
	default:
		return nil, &Rejection{
			Kind:       d.Kind(),
			Violations: []Violation{{Reason: ReasonUnknownKind}},
		}
	}
}

func nilRejection(kind catalog.Kind) *Rejection {
	return &Rejection{Kind: kind, Violations: []Violation{{Reason: ReasonNilDraft}}}
}

type checker struct {
	violations []Violation
}

func (c *checker) fail(reason string, fields ...string) {
	c.violations = append(c.violations, Violation{Fields: fields, Reason: reason})
}

func (c *checker) rejection(kind catalog.Kind) error {
	if len(c.violations) == 0 {
		return nil
	}
	return &Rejection{Kind: kind, Violations: c.violations}
}

func requireText(c *checker, field string, v *string) {
	switch {
	case v == nil:
		c.fail(ReasonMissing, field)
	case *v == "":
		c.fail(ReasonEmpty, field)
	}
}

func requireAmount(c *checker, field string, v *decimal.Decimal) {
	switch {
	case v == nil:
		c.fail(ReasonMissing, field)
	case v.IsNegative():
		c.fail(ReasonNegative, field)
	}
}

func requireCount(c *checker, field string, v *int) {
	switch {
	case v == nil:
		c.fail(ReasonMissing, field)
	case *v < 0:
		c.fail(ReasonNegative, field)
	}
}

func requireURL(c *checker, field string, v *string) {
	if v == nil {
		c.fail(ReasonMissing, field)
		return
	}
	if !absoluteHTTP(*v) {
		c.fail(ReasonURL, field)
	}
}

func absoluteHTTP(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func (v *Validator) product(d *catalog.ProductDraft) (catalog.Record, error) {
	var c checker

	// presence and range
	requireText(&c, catalog.FieldTitle, d.Title)
	requireText(&c, catalog.FieldUPC, d.UPC)
	if d.ProductType == nil {
		c.fail(ReasonMissing, catalog.FieldProductType)
	}
	requireAmount(&c, catalog.FieldPrice, d.Price)
	requireAmount(&c, catalog.FieldPriceExclTax, d.PriceExclTax)
	requireAmount(&c, catalog.FieldPriceInclTax, d.PriceInclTax)
	requireAmount(&c, catalog.FieldTax, d.Tax)
	requireCount(&c, catalog.FieldAvailability, d.Availability)
	requireCount(&c, catalog.FieldNumberOfReviews, d.NumberOfReviews)
	switch {
	case d.StarRating == nil:
		c.fail(ReasonMissing, catalog.FieldStarRating)
	case *d.StarRating < 1 || *d.StarRating > 5:
		c.fail(ReasonRatingRange, catalog.FieldStarRating)
	}

	// cross-field
	if d.PriceExclTax != nil && d.PriceInclTax != nil && d.Tax != nil {
		diff := d.PriceInclTax.Sub(d.PriceExclTax.Add(*d.Tax)).Abs()
		if diff.GreaterThan(v.tolerance) {
			c.fail(ReasonPriceMismatch, catalog.FieldPriceInclTax, catalog.FieldPriceExclTax, catalog.FieldTax)
		}
	}

	var isbn *string
	if d.ISBN != nil {
		stripped := stripISBN(*d.ISBN)
		switch {
		case !allDigits(stripped):
			c.fail(ReasonISBNDigits, catalog.FieldISBN)
		case len(stripped) != 10 && len(stripped) != 13:
			c.fail(ReasonISBNLength, catalog.FieldISBN)
		}
		isbn = &stripped
	}

	requireURL(&c, catalog.FieldImageURL, d.ImageURL)
	requireURL(&c, catalog.FieldURL, d.URL)

	now := v.clock.Now()
	switch {
	case d.ScrapeDate == nil:
		c.fail(ReasonMissing, catalog.FieldScrapeDate)
	case d.ScrapeDate.After(now):
		c.fail(ReasonFutureScrape, catalog.FieldScrapeDate)
	}

	if err := c.rejection(catalog.KindProduct); err != nil {
		return nil, err
	}

	return catalog.Product{
		Title:           *d.Title,
		Price:           *d.Price,
		Description:     copyString(d.Description),
		ISBN:            isbn,
		UPC:             *d.UPC,
		ProductType:     *d.ProductType,
		PriceExclTax:    *d.PriceExclTax,
		PriceInclTax:    *d.PriceInclTax,
		Tax:             *d.Tax,
		Availability:    *d.Availability,
		NumberOfReviews: *d.NumberOfReviews,
		Category:        copyString(d.Category),
		StarRating:      *d.StarRating,
		ImageURL:        *d.ImageURL,
		URL:             *d.URL,
		ScrapeDate:      d.ScrapeDate.UTC(),
	}, nil
}

func (v *Validator) category(d *catalog.CategoryDraft) (catalog.Record, error) {
	var c checker
	requireText(&c, catalog.FieldName, d.Name)
	requireURL(&c, catalog.FieldURL, d.URL)
	if err := c.rejection(catalog.KindCategory); err != nil {
		return nil, err
	}
	return catalog.Category{Name: *d.Name, URL: *d.URL}, nil
}

func stripISBN(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' {
			return -1
		}
		return r
	}, s)
}

// allDigits reports whether s has no non-digit characters. An empty string
// passes and is caught by the length rule.
func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
