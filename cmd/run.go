package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-scraper/internal/clock"
	"github.com/JakeFAU/catalog-scraper/internal/config"
	"github.com/JakeFAU/catalog-scraper/internal/extract"
	"github.com/JakeFAU/catalog-scraper/internal/id/uuid"
	"github.com/JakeFAU/catalog-scraper/internal/normalize"
	"github.com/JakeFAU/catalog-scraper/internal/pipeline"
	"github.com/JakeFAU/catalog-scraper/internal/scrape"
	"github.com/JakeFAU/catalog-scraper/internal/server"
	"github.com/JakeFAU/catalog-scraper/internal/sink"
	"github.com/JakeFAU/catalog-scraper/internal/sink/jsonl"
	"github.com/JakeFAU/catalog-scraper/internal/sink/postgres"
	"github.com/JakeFAU/catalog-scraper/internal/sink/sqlite"
	"github.com/JakeFAU/catalog-scraper/internal/validate"
)

// run wires one pipeline around engine, drives it to completion and prints
// the run summary to the command's stdout.
func (a *app) run(cmd *cobra.Command, engine scrape.Engine) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.NewSystem()
	sinks, err := buildSinks(a.cfg.Sinks, clk)
	if err != nil {
		return err
	}

	coordinator := pipeline.New(a.logger.Named("pipeline"), sinks...)
	processor := scrape.New(
		extract.New(clk, a.logger.Named("extract")),
		normalize.New(a.logger.Named("normalize")),
		validate.New(clk),
		coordinator,
		clk,
		uuid.New(),
		a.logger.Named("scrape"),
	)

	if addr := a.cfg.Metrics.Addr; addr != "" {
		stopServer := a.startOpsServer(ctx, addr, coordinator)
		defer stopServer()
	}

	summary, runErr := processor.Run(ctx, engine)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("write summary: %w", err))
	}
	return runErr
}

func (a *app) startOpsServer(ctx context.Context, addr string, coordinator *pipeline.Coordinator) func() {
	ctx, cancel := context.WithCancel(ctx)
	srv := server.New(func() any { return coordinator.Stats() }, a.logger.Named("server"))
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.ListenAndServe(ctx, addr); err != nil {
			a.logger.Error("ops server failed", zap.Error(err))
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// buildSinks creates the enabled sinks in a fixed order: line log, SQLite,
// Postgres.
func buildSinks(cfg config.SinksConfig, clk clock.Clock) ([]sink.Sink, error) {
	var sinks []sink.Sink
	if cfg.JSONL.Enabled {
		w, err := jsonl.New(cfg.JSONL.Config)
		if err != nil {
			return nil, fmt.Errorf("init jsonl sink: %w", err)
		}
		sinks = append(sinks, w)
	}
	if cfg.SQLite.Enabled {
		w, err := sqlite.New(cfg.SQLite.Config, clk)
		if err != nil {
			return nil, fmt.Errorf("init sqlite sink: %w", err)
		}
		sinks = append(sinks, w)
	}
	if cfg.Postgres.Enabled {
		w, err := postgres.New(cfg.Postgres.Config, clk)
		if err != nil {
			return nil, fmt.Errorf("init postgres sink: %w", err)
		}
		sinks = append(sinks, w)
	}
	if len(sinks) == 0 {
		return nil, fmt.Errorf("no sinks enabled")
	}
	return sinks, nil
}
