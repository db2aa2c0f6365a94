// Package extract turns catalogue pages into raw records by applying fixed
// selector rules. Anything a selector cannot find is left absent.
package extract

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-scraper/internal/catalog"
	"github.com/JakeFAU/catalog-scraper/internal/clock"
	"github.com/JakeFAU/catalog-scraper/internal/page"
)

// Selectors for the catalogue markup.
const (
	selProductPod     = "article.product_pod"
	selPodTitle       = "h3 a"
	selPodPrice       = ".price_color"
	selPodImage       = ".image_container img"
	selPodRating      = ".star-rating"
	selNextPage       = "li.next a"
	selSideCategories = ".side_categories ul li ul li a"

	selMainTitle    = ".product_main h1"
	selMainPrice    = ".product_main .price_color"
	selMainStock    = ".product_main .availability"
	selMainRating   = ".product_main .star-rating"
	selDescription  = "#product_description + p"
	selInfoRows     = "table tr"
	selBreadcrumb   = ".breadcrumb li:not(:first-child) a"
	selGalleryImage = "#product_gallery img"
)

// tableFields maps product information table labels to field names.
// Labels missing from this table are ignored.
var tableFields = map[string]string{
	"UPC":               catalog.FieldUPC,
	"Product Type":      catalog.FieldProductType,
	"Price (excl. tax)": catalog.FieldPriceExclTax,
	"Price (incl. tax)": catalog.FieldPriceInclTax,
	"Tax":               catalog.FieldTax,
	"Availability":      catalog.FieldAvailability,
	"Number of reviews": catalog.FieldNumberOfReviews,
}

// Listing is everything a catalogue listing page yields.
type Listing struct {
	// Products are partial records keyed by their detail link in FieldURL.
	Products   []catalog.RawRecord
	Categories []catalog.RawRecord
	Next       string
}

// Links returns the follow-up references for the crawl engine.
func (l Listing) Links() page.Links {
	links := page.Links{Next: l.Next}
	for _, p := range l.Products {
		if u, ok := p.Get(catalog.FieldURL); ok {
			links.Details = append(links.Details, u)
		}
	}
	return links
}

// Extractor applies the selector rules. It is stateless apart from its clock.
type Extractor struct {
	clock  clock.Clock
	logger *zap.Logger
}

// New returns an Extractor stamping detail records with clk.
func New(clk clock.Clock, logger *zap.Logger) *Extractor {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{clock: clk, logger: logger}
}

// Listing extracts product summaries, sidebar categories and the next-page
// reference from a listing page.
func (e *Extractor) Listing(p page.Page) Listing {
	var out Listing

	p.Each(selProductPod, func(pod page.Page) {
		raw := catalog.NewRawRecord(catalog.KindProduct)
		if title, ok := pod.Attr(selPodTitle, "title"); ok {
			raw.Set(catalog.FieldTitle, title)
		} else if title, ok := pod.Text(selPodTitle); ok {
			raw.Set(catalog.FieldTitle, title)
		}
		if price, ok := pod.Text(selPodPrice); ok {
			raw.Set(catalog.FieldPrice, price)
		}
		if href, ok := pod.Attr(selPodTitle, "href"); ok {
			if abs, ok := pod.Resolve(href); ok {
				raw.Set(catalog.FieldURL, abs)
			}
		}
		if src, ok := pod.Attr(selPodImage, "src"); ok {
			if abs, ok := pod.Resolve(src); ok {
				raw.Set(catalog.FieldImageURL, abs)
			}
		}
		if class, ok := pod.Attr(selPodRating, "class"); ok {
			if rating, ok := RatingFromClass(class); ok {
				raw.Set(catalog.FieldStarRating, rating)
			}
		}
		out.Products = append(out.Products, raw)
	})

	p.Each(selSideCategories, func(link page.Page) {
		raw := catalog.NewRawRecord(catalog.KindCategory)
		raw.Set(catalog.FieldName, link.SelfText())
		if href, ok := link.SelfAttr("href"); ok {
			if abs, ok := link.Resolve(href); ok {
				raw.Set(catalog.FieldURL, abs)
			}
		}
		out.Categories = append(out.Categories, raw)
	})

	if href, ok := p.Attr(selNextPage, "href"); ok {
		if abs, ok := p.Resolve(href); ok {
			out.Next = abs
		}
	}

	e.logger.Debug("extracted listing",
		zap.String("url", p.URL()),
		zap.Int("products", len(out.Products)),
		zap.Int("categories", len(out.Categories)),
		zap.Bool("has_next", out.Next != ""),
	)
	return out
}

// Detail extracts a full product record from a detail page. seed is the
// partial record from the listing that linked here; its price and image are
// used when the detail page lacks them. Pass an empty RawRecord when there is
// no seed.
func (e *Extractor) Detail(p page.Page, seed catalog.RawRecord) catalog.RawRecord {
	raw := catalog.NewRawRecord(catalog.KindProduct)

	if title, ok := p.Text(selMainTitle); ok {
		raw.Set(catalog.FieldTitle, title)
	}
	if price, ok := p.Text(selMainPrice); ok {
		raw.Set(catalog.FieldPrice, price)
	} else if price, ok := seed.Get(catalog.FieldPrice); ok {
		raw.Set(catalog.FieldPrice, price)
	}
	if desc, ok := p.Text(selDescription); ok {
		raw.Set(catalog.FieldDescription, desc)
	}

	p.Each(selInfoRows, func(row page.Page) {
		label, ok := row.Text("th")
		if !ok {
			return
		}
		field, known := tableFields[strings.TrimSpace(label)]
		if !known {
			return
		}
		if value, ok := row.Text("td"); ok {
			raw.Set(field, value)
		}
	})
	if !raw.Has(catalog.FieldAvailability) {
		if stock, ok := p.Text(selMainStock); ok {
			raw.Set(catalog.FieldAvailability, stock)
		}
	}

	if crumbs := p.Texts(selBreadcrumb); len(crumbs) > 0 {
		raw.Set(catalog.FieldCategory, crumbs[len(crumbs)-1])
	}

	class, ok := p.Attr(selMainRating, "class")
	if !ok {
		class, ok = p.Attr(selPodRating, "class")
	}
	if ok {
		if rating, ok := RatingFromClass(class); ok {
			raw.Set(catalog.FieldStarRating, rating)
		}
	}

	if src, ok := p.Attr(selGalleryImage, "src"); ok {
		if abs, ok := p.Resolve(src); ok {
			raw.Set(catalog.FieldImageURL, abs)
		}
	}
	if !raw.Has(catalog.FieldImageURL) {
		if img, ok := seed.Get(catalog.FieldImageURL); ok {
			raw.Set(catalog.FieldImageURL, img)
		}
	}

	raw.Set(catalog.FieldURL, p.URL())
	raw.Set(catalog.FieldScrapeDate, e.clock.Now().UTC().Format(time.RFC3339Nano))

	e.logger.Debug("extracted detail", zap.String("url", p.URL()), zap.Int("fields", raw.Len()))
	return raw
}
