package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/compintel/internal/research"
	"github.com/sells-group/compintel/internal/schema"
	"github.com/sells-group/compintel/internal/store"
	"github.com/sells-group/compintel/pkg/anthropic"
)

// initStore opens the run ledger. Migrations run inside Open.
func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
}

// initResearcher wires the Anthropic client, schema, and run ledger into
// a Researcher. A ledger that fails to open degrades to no ledger: the
// pipeline itself never depends on it.
func initResearcher(ctx context.Context) (*research.Researcher, *schema.Schema, store.Store) {
	s := schema.Load(cfg.Research.SchemaPath)

	ledger, err := initStore(ctx)
	if err != nil {
		zap.L().Warn("run ledger unavailable, continuing without it", zap.Error(err))
		ledger = nil
	}

	r := research.New(anthropic.NewClient(cfg.Anthropic.Key), s, ledger, research.Options{
		Model:            cfg.Anthropic.Model,
		MaxTokens:        cfg.Anthropic.MaxTokens,
		WebSearchMaxUses: cfg.Anthropic.WebSearchMaxUses,
		MaxAttempts:      cfg.Research.MaxAttempts,
		Concurrency:      cfg.Research.Concurrency,
		OutputDir:        cfg.Research.OutputDir,
		CompanyContext:   cfg.Research.CompanyContext,
	})
	return r, s, ledger
}
