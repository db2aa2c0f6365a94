package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductDraft is the normalized form of a product page. Every field is
// optional here; the validator decides which absences are violations.
type ProductDraft struct {
	Title           *string
	Price           *decimal.Decimal
	Description     *string
	ISBN            *string
	UPC             *string
	ProductType     *string
	PriceExclTax    *decimal.Decimal
	PriceInclTax    *decimal.Decimal
	Tax             *decimal.Decimal
	Availability    *int
	NumberOfReviews *int
	Category        *string
	StarRating      *int
	ImageURL        *string
	URL             *string
	ScrapeDate      *time.Time
}

// Kind implements Draft.
func (*ProductDraft) Kind() Kind {
	return KindProduct
}

// Product is a validated book product. Monetary amounts are fixed-point
// decimals and serialize as JSON strings so no precision is lost.
type Product struct {
	Title           string          `json:"title"`
	Price           decimal.Decimal `json:"price"`
	Description     *string         `json:"description"`
	ISBN            *string         `json:"isbn"`
	UPC             string          `json:"upc"`
	ProductType     string          `json:"product_type"`
	PriceExclTax    decimal.Decimal `json:"price_excl_tax"`
	PriceInclTax    decimal.Decimal `json:"price_incl_tax"`
	Tax             decimal.Decimal `json:"tax"`
	Availability    int             `json:"availability"`
	NumberOfReviews int             `json:"number_of_reviews"`
	Category        *string         `json:"category"`
	StarRating      int             `json:"star_rating"`
	ImageURL        string          `json:"image_url"`
	URL             string          `json:"url"`
	ScrapeDate      time.Time       `json:"scrape_date"`
}

// Kind implements Record.
func (Product) Kind() Kind {
	return KindProduct
}
