package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/predictops/tipsync/internal/docstore"
	"github.com/predictops/tipsync/internal/pipeline"
	"github.com/predictops/tipsync/internal/predstore"
	"github.com/predictops/tipsync/pkg/anthropic"
	"github.com/predictops/tipsync/pkg/kicktipp"
)

// env bundles the stores and pipeline a command runs against.
type env struct {
	Pipeline *pipeline.Pipeline
	Docs     docstore.Store
	Preds    predstore.Store
}

func (e *env) Close() {
	_ = e.Preds.Close()
	_ = e.Docs.Close()
}

func initDocStore(ctx context.Context) (docstore.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "tipsync.db"
		}
		return docstore.NewSQLite(dsn)
	case "postgres":
		return docstore.NewPostgres(ctx, cfg.Store.DatabaseURL, &docstore.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initPredStore(ctx context.Context) (predstore.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "tipsync.db"
		}
		return predstore.NewSQLite(dsn)
	case "postgres":
		return predstore.NewPostgres(ctx, cfg.Store.DatabaseURL, &docstore.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initPipeline opens both stores, runs migrations, and wires the platform
// client and predictor into a pipeline.
func initPipeline(ctx context.Context) (*env, error) {
	docs, err := initDocStore(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "init document store")
	}
	if err := docs.Migrate(ctx); err != nil {
		_ = docs.Close()
		return nil, eris.Wrap(err, "migrate document store")
	}

	preds, err := initPredStore(ctx)
	if err != nil {
		_ = docs.Close()
		return nil, eris.Wrap(err, "init prediction store")
	}
	if err := preds.Migrate(ctx); err != nil {
		_ = preds.Close()
		_ = docs.Close()
		return nil, eris.Wrap(err, "migrate prediction store")
	}

	platform := kicktipp.NewClient(cfg.Kicktipp.LoginToken,
		kicktipp.WithBaseURL(cfg.Kicktipp.BaseURL),
		kicktipp.WithRateLimit(cfg.Kicktipp.RatePerSec))

	predictor := anthropic.NewPredictor(
		anthropic.NewClient(cfg.Anthropic.Key),
		cfg.Anthropic.Model,
		cfg.Anthropic.MaxTokens)

	return &env{
		Pipeline: pipeline.New(cfg, docs, preds, platform, predictor),
		Docs:     docs,
		Preds:    preds,
	}, nil
}
