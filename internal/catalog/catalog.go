// Package catalog defines the record kinds produced by the scraper: raw field
// maps as extracted from pages, typed drafts produced by normalization, and the
// immutable validated records handed to the sinks.
package catalog

// Kind tags a record with its schema. The value is persisted verbatim as the
// item type of every stored row.
type Kind string

// Supported record kinds.
const (
	KindProduct  Kind = "ProductItem"
	KindCategory Kind = "CategoryItem"
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	return string(k)
}

// Product field names shared by the extractor, normalizer, validator and payloads.
const (
	FieldTitle           = "title"
	FieldPrice           = "price"
	FieldDescription     = "description"
	FieldISBN            = "isbn"
	FieldUPC             = "upc"
	FieldProductType     = "product_type"
	FieldPriceExclTax    = "price_excl_tax"
	FieldPriceInclTax    = "price_incl_tax"
	FieldTax             = "tax"
	FieldAvailability    = "availability"
	FieldNumberOfReviews = "number_of_reviews"
	FieldCategory        = "category"
	FieldStarRating      = "star_rating"
	FieldImageURL        = "image_url"
	FieldURL             = "url"
	FieldScrapeDate      = "scrape_date"
)

// Category field names.
const (
	FieldName = "name"
)

// Record is a validated, immutable record ready for persistence.
type Record interface {
	Kind() Kind
}

// Draft is a typed but not yet validated record. Absent fields are nil.
type Draft interface {
	Kind() Kind
}

// RawRecord maps field names to the raw text found on a page. A field that the
// extractor could not resolve is absent from the map; a present field may
// still hold an empty string.
type RawRecord struct {
	kind   Kind
	fields map[string]string
}

// NewRawRecord returns an empty raw record of the given kind.
func NewRawRecord(kind Kind) RawRecord {
	return RawRecord{kind: kind, fields: make(map[string]string)}
}

// Kind reports which schema the raw record is destined for.
func (r RawRecord) Kind() Kind {
	return r.kind
}

// Set stores a raw value for the field.
func (r RawRecord) Set(field, value string) {
	r.fields[field] = value
}

// Get returns the raw value and whether the field was present.
func (r RawRecord) Get(field string) (string, bool) {
	v, ok := r.fields[field]
	return v, ok
}

// Has reports whether the field is present.
func (r RawRecord) Has(field string) bool {
	_, ok := r.fields[field]
	return ok
}

// Len returns the number of present fields.
func (r RawRecord) Len() int {
	return len(r.fields)
}

// Fields returns a copy of the present fields.
func (r RawRecord) Fields() map[string]string {
	out := make(map[string]string, len(r.fields))
	for k, v := range r.fields {
		out[k] = v
	}
	return out
}
