package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/submission-intake/internal/cache"
	"github.com/sells-group/submission-intake/internal/gateway"
	"github.com/sells-group/submission-intake/internal/pipeline"
	"github.com/sells-group/submission-intake/internal/preprocess"
	"github.com/sells-group/submission-intake/internal/provenance"
	"github.com/sells-group/submission-intake/internal/store"
	"github.com/sells-group/submission-intake/pkg/anthropic"
)

// pipelineEnv holds the initialized store and pipeline for the serve and
// extract commands.
type pipelineEnv struct {
	Store    store.Store // nil when persistence is disabled
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline builds the full extraction pipeline from config. Callers
// should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	pre := preprocess.New(preprocess.Options{
		PdfToTextPath: cfg.Preprocess.PdfToTextPath,
		PreviewChars:  cfg.Preprocess.PreviewChars,
		CellBudget:    cfg.Preprocess.CellBudget,
	})

	hasCredential := cfg.Anthropic.Key != ""
	if !hasCredential {
		zap.L().Warn("INTAKE_ANTHROPIC_KEY not set, extractions will be skipped")
	}
	gw := gateway.New(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic)

	p := pipeline.New(
		pre,
		cache.New(),
		gw,
		provenance.New(),
		st,
		cfg.Anthropic.Model,
		hasCredential,
	)
	return &pipelineEnv{Store: st, Pipeline: p}, nil
}

// initStore opens the audit store named by config, or returns nil for
// driver "none".
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "", "none":
		return nil, nil
	case "sqlite":
		st, err := store.NewSQLite(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "migrate store")
		}
		return st, nil
	case "postgres":
		st, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "migrate store")
		}
		return st, nil
	default:
		return nil, eris.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}
}
