package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/predictops/tipsync/internal/model"
	"github.com/predictops/tipsync/internal/repredict"
)

// PredictOptions selects the write path for a predict cycle. Repredict and
// Override are mutually exclusive.
type PredictOptions struct {
	// Repredict appends a new record under the next reprediction index
	// instead of skipping entities that already have one.
	Repredict bool
	// Override replaces the latest record's value in place.
	Override bool
}

// PredictResult summarizes one predict cycle.
type PredictResult struct {
	Predicted int // records written
	Skipped   int // already predicted, at the reprediction limit, or nothing to override
	Declined  int // the model gave no usable answer
	Failed    int // transport or store failure
}

type predictOutcome int

const (
	outcomePredicted predictOutcome = iota
	outcomeSkipped
	outcomeDeclined
	outcomeFailed
)

// Predict generates predictions for the manifest's entities from the stored
// evidence documents. Entities run concurrently up to the configured limit;
// one entity's failure never aborts the rest.
func (p *Pipeline) Predict(ctx context.Context, m *Manifest, opts PredictOptions, now time.Time) (*PredictResult, error) {
	if err := repredict.ValidateMode(opts.Repredict, opts.Override); err != nil {
		return nil, err
	}

	log := zap.L().With(zap.String("scope", m.Scope), zap.String("model", p.cfg.Anthropic.Model))
	entities := m.Entities()
	log.Info("predict: starting", zap.Int("entities", len(entities)),
		zap.Bool("repredict", opts.Repredict), zap.Bool("override", opts.Override))

	evidence, refs, err := p.loadEvidence(ctx, m)
	if err != nil {
		return nil, err
	}

	limit := p.cfg.Predict.MaxConcurrentEntities
	if limit <= 0 {
		limit = 1
	}
	outcomes := make([]predictOutcome, len(entities))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, entity := range entities {
		g.Go(func() error {
			outcomes[i] = p.predictOne(gctx, log, m.Scope, entity, evidence, refs, opts, now)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: predict canceled")
	}

	result := &PredictResult{}
	for _, o := range outcomes {
		switch o {
		case outcomePredicted:
			result.Predicted++
		case outcomeSkipped:
			result.Skipped++
		case outcomeDeclined:
			result.Declined++
		case outcomeFailed:
			result.Failed++
		}
	}

	log.Info("predict: finished",
		zap.Int("predicted", result.Predicted),
		zap.Int("skipped", result.Skipped),
		zap.Int("declined", result.Declined),
		zap.Int("failed", result.Failed))
	return result, nil
}

// loadEvidence reads the latest version of every configured evidence
// document. Documents with no stored version are skipped with a warning;
// the references returned are what gets recorded on each written prediction.
func (p *Pipeline) loadEvidence(ctx context.Context, m *Manifest) ([]model.Document, []model.DocumentRef, error) {
	labels := make(map[string]string, len(m.Documents))
	for _, d := range m.Documents {
		labels[d.Name] = d.Label
	}

	var docs []model.Document
	var refs []model.DocumentRef
	for _, name := range p.cfg.Predict.EvidenceDocs {
		doc, err := p.docs.GetLatest(ctx, name, m.Scope)
		if eris.Is(err, model.ErrNotFound) {
			zap.L().Warn("predict: evidence document not captured yet",
				zap.String("document", name), zap.String("scope", m.Scope))
			continue
		}
		if err != nil {
			return nil, nil, eris.Wrapf(err, "pipeline: load evidence %s", name)
		}
		docs = append(docs, *doc)
		refs = append(refs, model.DocumentRef{Name: name, Label: labels[name]})
	}
	return docs, refs, nil
}

func (p *Pipeline) predictOne(ctx context.Context, log *zap.Logger, scope string,
	entity model.Entity, evidence []model.Document, refs []model.DocumentRef,
	opts PredictOptions, now time.Time) predictOutcome {

	key := entity.Key()
	existing, err := p.preds.GetLatest(ctx, key, p.cfg.Anthropic.Model, scope)
	if err != nil && !eris.Is(err, model.ErrNotFound) {
		log.Warn("predict: load existing failed", zap.String("entity", key), zap.Error(err))
		return outcomeFailed
	}
	if err != nil {
		existing = nil
	}

	index := model.NoReprediction
	switch {
	case opts.Override:
		if existing == nil {
			log.Warn("predict: nothing to override", zap.String("entity", key))
			return outcomeSkipped
		}
	case opts.Repredict && existing != nil:
		action := repredict.NextAction(existing.RepredictionIndex, p.cfg.Predict.MaxRepredictionsPtr())
		if action.Kind == repredict.SkipAtLimit {
			log.Info("predict: reprediction limit reached", zap.String("entity", key),
				zap.Int("current", action.Current), zap.Int("max", action.Max))
			return outcomeSkipped
		}
		index = action.Index
	case existing != nil:
		// already predicted and neither flag set
		return outcomeSkipped
	}

	value, err := p.predictor.Predict(ctx, entity, evidence)
	if err != nil {
		log.Warn("predict: model call failed", zap.String("entity", key), zap.Error(err))
		return outcomeFailed
	}
	if value == nil {
		log.Warn("predict: no usable answer", zap.String("entity", key))
		return outcomeDeclined
	}

	if opts.Override {
		if err := p.preds.Override(ctx, key, p.cfg.Anthropic.Model, scope, value, now); err != nil {
			log.Warn("predict: override failed", zap.String("entity", key), zap.Error(err))
			return outcomeFailed
		}
		log.Info("predict: overrode latest record", zap.String("entity", key),
			zap.String("value", value.String()))
		return outcomePredicted
	}

	rec := &model.PredictionRecord{
		EntityKey:         key,
		Model:             p.cfg.Anthropic.Model,
		Scope:             scope,
		Value:             value,
		Documents:         refs,
		RepredictionIndex: index,
		CreatedAt:         now,
	}
	if _, err := p.preds.Save(ctx, rec); err != nil {
		log.Warn("predict: save failed", zap.String("entity", key), zap.Error(err))
		return outcomeFailed
	}
	log.Info("predict: saved record", zap.String("entity", key),
		zap.Int("index", index), zap.String("value", value.String()))
	return outcomePredicted
}
