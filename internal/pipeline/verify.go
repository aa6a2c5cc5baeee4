package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/predictops/tipsync/internal/model"
)

// Verify compares the platform's submitted values against the locally
// stored latest predictions for the manifest's entities and classifies
// every one of them. The report's Init flag is set when no entity has a
// local prediction at all, which callers treat as "run a full predict
// cycle first" rather than a pass/fail outcome.
func (p *Pipeline) Verify(ctx context.Context, m *Manifest) (*model.Report, error) {
	log := zap.L().With(zap.String("scope", m.Scope))
	log.Info("verify: starting")

	submitted, err := p.platform.GetSubmittedValues(ctx, m.Scope)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: fetch submitted values")
	}

	local, err := p.preds.Latest(ctx, p.cfg.Anthropic.Model, m.Scope)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load local predictions")
	}

	report := p.verifier.Reconcile(ctx, m.Entities(), submitted, local, m.Scope, p.excluded)

	log.Info("verify: finished",
		zap.Bool("discrepancies", report.HasDiscrepancies),
		zap.Bool("init", report.Init),
		zap.Int("entities", len(report.Results)))
	return report, nil
}
