// Package crawl drives page handlers: a colly-backed engine for live sites
// and a file source for saved pages.
package crawl

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-scraper/internal/metrics"
	"github.com/JakeFAU/catalog-scraper/internal/page"
)

const defaultTimeout = 15 * time.Second

// Config controls politeness and scope of a live crawl.
type Config struct {
	StartURLs      []string      `mapstructure:"start_urls"`
	AllowedDomains []string      `mapstructure:"allowed_domains"`
	UserAgent      string        `mapstructure:"user_agent"`
	Parallelism    int           `mapstructure:"parallelism"`
	Delay          time.Duration `mapstructure:"delay"`
	RespectRobots  bool          `mapstructure:"respect_robots"`
	MaxPages       int           `mapstructure:"max_pages"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// Engine fetches pages with colly and follows the links handlers return.
type Engine struct {
	cfg       Config
	logger    *zap.Logger
	transport http.RoundTripper
}

// New builds an Engine.
func New(cfg Config, logger *zap.Logger) (*Engine, error) {
	if len(cfg.StartURLs) == 0 {
		return nil, fmt.Errorf("at least one start url is required")
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:       cfg,
		logger:    logger,
		transport: newRobotsTransport(logger.Named("robots")),
	}, nil
}

// Run crawls from the start URLs until no links remain, MaxPages is reached,
// ctx ends, or the handler fails. Requests already in flight finish before
// Run returns.
func (e *Engine) Run(ctx context.Context, h page.Handler) error {
	c := colly.NewCollector(colly.Async(true))
	if e.cfg.UserAgent != "" {
		c.UserAgent = e.cfg.UserAgent
	}
	if len(e.cfg.AllowedDomains) > 0 {
		c.AllowedDomains = e.cfg.AllowedDomains
	}
	c.IgnoreRobotsTxt = !e.cfg.RespectRobots
	c.SetRequestTimeout(e.cfg.Timeout)
	c.WithTransport(e.transport)
	if err := c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: e.cfg.Parallelism,
		Delay:       e.cfg.Delay,
	}); err != nil {
		return fmt.Errorf("set collector limits: %w", err)
	}

	var (
		requested atomic.Int64
		stopped   atomic.Bool
		errOnce   sync.Once
		handleErr error
	)
	fail := func(err error) {
		errOnce.Do(func() { handleErr = err })
		stopped.Store(true)
	}

	c.OnRequest(func(r *colly.Request) {
		if stopped.Load() || ctx.Err() != nil {
			r.Abort()
			return
		}
		if e.cfg.MaxPages > 0 && requested.Add(1) > int64(e.cfg.MaxPages) {
			r.Abort()
			return
		}
		e.logger.Debug("fetching", zap.String("url", r.URL.String()))
	})

	c.OnResponse(func(r *colly.Response) {
		url := r.Request.URL.String()
		metrics.ObserveFetch(url, r.StatusCode, len(r.Body))
		if stopped.Load() || ctx.Err() != nil {
			return
		}
		if ct := r.Headers.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
			e.logger.Debug("skipping non-html response", zap.String("url", url), zap.String("content_type", ct))
			return
		}
		doc, err := page.FromReader(url, bytes.NewReader(r.Body))
		if err != nil {
			e.logger.Warn("unparseable page", zap.String("url", url), zap.Error(err))
			return
		}
		links, err := h.HandlePage(ctx, doc)
		if err != nil {
			fail(fmt.Errorf("handle %s: %w", url, err))
			return
		}
		for _, link := range links.All() {
			if err := r.Request.Visit(link); err != nil {
				e.logger.Debug("link not followed", zap.String("url", link), zap.Error(err))
			}
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		url := r.Request.URL.String()
		metrics.ObserveFetch(url, r.StatusCode, len(r.Body))
		e.logger.Warn("fetch failed",
			zap.String("url", url),
			zap.Int("status_code", r.StatusCode),
			zap.Error(err),
		)
	})

	for _, u := range e.cfg.StartURLs {
		if err := c.Visit(u); err != nil {
			e.logger.Warn("failed to visit start url", zap.String("url", u), zap.Error(err))
		}
	}
	c.Wait()

	if handleErr != nil {
		return handleErr
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("crawl interrupted: %w", err)
	}
	return nil
}
