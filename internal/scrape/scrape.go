// Package scrape runs pages through extraction, normalization and validation
// and hands the results to the pipeline coordinator.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-scraper/internal/catalog"
	"github.com/JakeFAU/catalog-scraper/internal/clock"
	"github.com/JakeFAU/catalog-scraper/internal/extract"
	"github.com/JakeFAU/catalog-scraper/internal/metrics"
	"github.com/JakeFAU/catalog-scraper/internal/normalize"
	"github.com/JakeFAU/catalog-scraper/internal/page"
	"github.com/JakeFAU/catalog-scraper/internal/pipeline"
	"github.com/JakeFAU/catalog-scraper/internal/validate"
)

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// Engine feeds pages to a handler until it runs out or ctx ends.
type Engine interface {
	Run(ctx context.Context, h page.Handler) error
}

// Summary describes one finished run.
type Summary struct {
	RunID        string                     `json:"run_id"`
	StartedAt    time.Time                  `json:"started_at"`
	FinishedAt   time.Time                  `json:"finished_at"`
	Pages        int                        `json:"pages"`
	Accepted     int                        `json:"accepted"`
	Rejected     int                        `json:"rejected"`
	Rejections   []pipeline.RejectionReport `json:"rejections"`
	SinkFailed   int                        `json:"sink_failed"`
	SinkFailures map[string]int             `json:"sink_failures"`
}

// Processor implements page.Handler. Listing pages yield category records and
// seed the detail pages they link to; detail pages yield product records.
type Processor struct {
	extractor   *extract.Extractor
	normalizer  *normalize.Normalizer
	validator   *validate.Validator
	coordinator *pipeline.Coordinator
	clock       clock.Clock
	ids         IDGenerator
	logger      *zap.Logger

	mu         sync.Mutex
	seeds      map[string]catalog.RawRecord
	categories map[string]struct{}
	pages      int
}

var _ page.Handler = (*Processor)(nil)

// New constructs a Processor.
func New(
	extractor *extract.Extractor,
	normalizer *normalize.Normalizer,
	validator *validate.Validator,
	coordinator *pipeline.Coordinator,
	clk clock.Clock,
	ids IDGenerator,
	logger *zap.Logger,
) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Processor{
		extractor:   extractor,
		normalizer:  normalizer,
		validator:   validator,
		coordinator: coordinator,
		clock:       clk,
		ids:         ids,
		logger:      logger,
		seeds:       make(map[string]catalog.RawRecord),
		categories:  make(map[string]struct{}),
	}
}

// HandlePage processes one page and returns the links the engine should follow.
// Only coordinator misuse is returned as an error; bad records are reported
// through the coordinator and processing continues.
func (p *Processor) HandlePage(ctx context.Context, pg page.Page) (page.Links, error) {
	kind := page.Classify(pg)
	metrics.ObservePage(string(kind))
	p.mu.Lock()
	p.pages++
	p.mu.Unlock()

	switch kind {
	case page.TypeListing:
		listing := p.extractor.Listing(pg)
		for _, raw := range p.newCategories(listing.Categories) {
			if err := p.Process(ctx, pg.URL(), raw); err != nil {
				return page.Links{}, err
			}
		}
		p.mu.Lock()
		for _, raw := range listing.Products {
			if u, ok := raw.Get(catalog.FieldURL); ok {
				p.seeds[u] = raw
			}
		}
		p.mu.Unlock()
		return listing.Links(), nil
	case page.TypeDetail:
		p.mu.Lock()
		seed, ok := p.seeds[pg.URL()]
		delete(p.seeds, pg.URL())
		p.mu.Unlock()
		if !ok {
			seed = catalog.NewRawRecord(catalog.KindProduct)
		}
		return page.Links{}, p.Process(ctx, pg.URL(), p.extractor.Detail(pg, seed))
	default:
		p.logger.Debug("skipping unrecognised page", zap.String("url", pg.URL()))
		return page.Links{}, nil
	}
}

// newCategories drops sidebar entries already handled in this run. The
// sidebar repeats on every listing page; entries without a URL are kept so
// the validator can reject them.
func (p *Processor) newCategories(raws []catalog.RawRecord) []catalog.RawRecord {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]catalog.RawRecord, 0, len(raws))
	for _, raw := range raws {
		u, ok := raw.Get(catalog.FieldURL)
		if ok {
			if _, seen := p.categories[u]; seen {
				continue
			}
			p.categories[u] = struct{}{}
		}
		out = append(out, raw)
	}
	return out
}

// Process normalizes and validates one raw record, then writes or rejects it.
func (p *Processor) Process(ctx context.Context, source string, raw catalog.RawRecord) error {
	draft := p.normalizer.Normalize(raw)
	if draft == nil {
		return nil
	}
	rec, err := p.validator.Validate(draft)
	if err != nil {
		var rej *validate.Rejection
		if !errors.As(err, &rej) {
			return fmt.Errorf("validate %s: %w", source, err)
		}
		return p.coordinator.Reject(source, rej)
	}
	if _, err := p.coordinator.Write(ctx, rec); err != nil {
		return fmt.Errorf("write %s: %w", source, err)
	}
	return nil
}

// Run opens the coordinator, lets engine drive the processor, and always
// closes the coordinator before returning, including when ctx is cancelled.
// The summary is filled in even when an error is returned.
func (p *Processor) Run(ctx context.Context, engine Engine) (Summary, error) {
	summary := Summary{StartedAt: p.clock.Now()}
	if p.ids != nil {
		id, err := p.ids.NewID()
		if err != nil {
			return summary, fmt.Errorf("generate run id: %w", err)
		}
		summary.RunID = id
	}
	logger := p.logger.With(zap.String("run_id", summary.RunID))

	if err := p.coordinator.Open(ctx); err != nil {
		summary.FinishedAt = p.clock.Now()
		return summary, fmt.Errorf("open pipeline: %w", err)
	}
	logger.Info("run started")

	runErr := engine.Run(ctx, p)
	if runErr != nil {
		logger.Warn("crawl ended with error", zap.Error(runErr))
	}
	closeErr := p.coordinator.Close()

	stats := p.coordinator.Stats()
	p.mu.Lock()
	summary.Pages = p.pages
	p.mu.Unlock()
	summary.FinishedAt = p.clock.Now()
	summary.Accepted = stats.Accepted
	summary.Rejected = stats.Rejected
	summary.Rejections = stats.Rejections
	summary.SinkFailed = stats.SinkFailed
	summary.SinkFailures = stats.SinkFailures

	logger.Info("run finished",
		zap.Int("pages", summary.Pages),
		zap.Int("accepted", summary.Accepted),
		zap.Int("rejected", summary.Rejected),
		zap.Int("sink_failed", summary.SinkFailed),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	)

	var errs []error
	if runErr != nil {
		errs = append(errs, fmt.Errorf("crawl: %w", runErr))
	}
	if closeErr != nil {
		errs = append(errs, fmt.Errorf("close pipeline: %w", closeErr))
	}
	return summary, errors.Join(errs...)
}
