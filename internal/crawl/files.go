package crawl

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-scraper/internal/metrics"
	"github.com/JakeFAU/catalog-scraper/internal/page"
)

// FileSource replays saved pages from a directory tree. Each file is served
// as if fetched from BaseURL joined with its relative path. Start files are
// handled first; links returned by the handler are followed when they resolve
// to another file in the tree; remaining files are then handled in lexical
// order.
type FileSource struct {
	Dir     string
	BaseURL string
	Start   []string
	Logger  *zap.Logger
}

// Run implements scrape.Engine.
func (s FileSource) Run(ctx context.Context, h page.Handler) error {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	base, err := url.Parse(s.BaseURL)
	if err != nil || !base.IsAbs() {
		return fmt.Errorf("file source base url %q must be absolute", s.BaseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	files, err := s.htmlFiles()
	if err != nil {
		return err
	}
	byURL := make(map[string]string, len(files))
	urls := make([]string, 0, len(files))
	for _, rel := range files {
		u := base.ResolveReference(&url.URL{Path: rel}).String()
		byURL[u] = rel
		urls = append(urls, u)
	}

	done := make(map[string]bool, len(files))
	var visit func(u string) error
	visit = func(u string) error {
		if done[u] {
			return nil
		}
		done[u] = true
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("file source interrupted: %w", err)
		}
		rel := byURL[u]
		data, err := os.ReadFile(filepath.Join(s.Dir, filepath.FromSlash(rel)))
		if err != nil {
			return fmt.Errorf("read %s: %w", rel, err)
		}
		metrics.ObserveFetch(u, 200, len(data))
		doc, err := page.FromString(u, string(data))
		if err != nil {
			logger.Warn("unparseable page", zap.String("file", rel), zap.Error(err))
			return nil
		}
		links, err := h.HandlePage(ctx, doc)
		if err != nil {
			return fmt.Errorf("handle %s: %w", rel, err)
		}
		for _, link := range links.All() {
			if _, ok := byURL[link]; !ok {
				logger.Debug("link has no saved page", zap.String("url", link))
				continue
			}
			if err := visit(link); err != nil {
				return err
			}
		}
		return nil
	}

	order := make([]string, 0, len(s.Start)+len(urls))
	for _, rel := range s.Start {
		u := base.ResolveReference(&url.URL{Path: filepath.ToSlash(rel)}).String()
		if _, ok := byURL[u]; !ok {
			return fmt.Errorf("start page %s not found in %s", rel, s.Dir)
		}
		order = append(order, u)
	}
	order = append(order, urls...)

	for _, u := range order {
		if err := visit(u); err != nil {
			return err
		}
	}
	return nil
}

func (s FileSource) htmlFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(s.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".html") {
			return nil
		}
		rel, err := filepath.Rel(s.Dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list saved pages: %w", err)
	}
	sort.Strings(files)
	return files, nil
}
