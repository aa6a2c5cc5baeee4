// Package pipeline orchestrates the three operational cycles: capturing
// evidence documents from the platform, generating predictions from stored
// evidence, and verifying stored predictions against what the platform
// actually holds.
package pipeline

import (
	"context"

	"github.com/predictops/tipsync/internal/config"
	"github.com/predictops/tipsync/internal/docstore"
	"github.com/predictops/tipsync/internal/history"
	"github.com/predictops/tipsync/internal/model"
	"github.com/predictops/tipsync/internal/predstore"
	"github.com/predictops/tipsync/internal/reconcile"
	"github.com/predictops/tipsync/internal/staleness"
	"github.com/predictops/tipsync/pkg/kicktipp"
)

// Predictor produces a prediction value for an entity from evidence
// documents. A nil value with a nil error means the model declined to
// answer usably; only transport failures return an error.
type Predictor interface {
	Predict(ctx context.Context, entity model.Entity, evidence []model.Document) (model.PredictionValue, error)
}

// Pipeline wires the stores, the platform client, and the predictor into
// the capture, predict, and verify cycles.
type Pipeline struct {
	cfg       *config.Config
	docs      docstore.Store
	preds     predstore.Store
	platform  kicktipp.Client
	predictor Predictor
	merge     history.Engine
	verifier  *reconcile.Engine
	excluded  staleness.ExcludeSet
}

// New creates a Pipeline with all dependencies.
func New(
	cfg *config.Config,
	docs docstore.Store,
	preds predstore.Store,
	platform kicktipp.Client,
	predictor Predictor,
) *Pipeline {
	ev := staleness.New(docs)
	return &Pipeline{
		cfg:       cfg,
		docs:      docs,
		preds:     preds,
		platform:  platform,
		predictor: predictor,
		verifier:  reconcile.New(ev, cfg.Predict.MaxConcurrentEntities),
		excluded:  staleness.NewExcludeSet(cfg.Predict.ExcludedDocs),
	}
}
