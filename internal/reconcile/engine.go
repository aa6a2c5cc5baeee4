// Package reconcile compares externally submitted values against stored
// predictions and folds in evidence staleness to classify every entity.
package reconcile

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/predictops/tipsync/internal/model"
	"github.com/predictops/tipsync/internal/staleness"
)

// Engine produces reconciliation reports. It performs no writes; the report
// is its only effect.
type Engine struct {
	staleness     *staleness.Evaluator
	maxConcurrent int
}

// New creates an Engine. maxConcurrent bounds the per-entity fan-out; zero
// or negative means sequential.
func New(ev *staleness.Evaluator, maxConcurrent int) *Engine {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Engine{staleness: ev, maxConcurrent: maxConcurrent}
}

// Reconcile classifies every enumerated entity. entities is the external
// enumeration for this cycle; submitted holds the value currently on the
// platform per entity key (absent key = nothing submitted); local holds the
// stored predictions. One entity's failure is isolated as ClassError and
// never aborts the rest.
func (e *Engine) Reconcile(ctx context.Context, entities []model.Entity,
	submitted map[string]model.PredictionValue,
	local map[string]*model.PredictionRecord,
	scope string, excluded staleness.ExcludeSet) *model.Report {

	results := make([]model.EntityResult, len(entities))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxConcurrent)
	for i, entity := range entities {
		g.Go(func() error {
			results[i] = e.classify(gctx, entity,
				submitted[entity.Key()], local[entity.Key()], scope, excluded)
			return nil
		})
	}
	_ = g.Wait()

	report := &model.Report{
		Scope:   scope,
		Results: results,
		Counts:  make(map[model.Classification]int),
	}
	hasAnyLocal := false
	for i, entity := range entities {
		report.Counts[results[i].Classification]++
		if results[i].Classification != model.ClassInSync {
			report.HasDiscrepancies = true
		}
		if local[entity.Key()] != nil {
			hasAnyLocal = true
		}
	}
	// Nothing predicted yet: signal "trigger full generation" instead of
	// the ordinary pass/fail, regardless of external state.
	report.Init = !hasAnyLocal

	return report
}

func (e *Engine) classify(ctx context.Context, entity model.Entity,
	external model.PredictionValue, localRec *model.PredictionRecord,
	scope string, excluded staleness.ExcludeSet) (result model.EntityResult) {

	key := entity.Key()
	result = model.EntityResult{EntityKey: key}

	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("reconcile: panic evaluating entity",
				zap.String("entity", key), zap.Any("panic", r))
			result.Classification = model.ClassError
			result.Detail = fmt.Sprintf("panic: %v", r)
		}
	}()

	hasExternal := external != nil
	hasLocal := localRec != nil

	switch {
	case !hasExternal && !hasLocal:
		result.Classification = model.ClassInSync
		return result

	case hasExternal && !hasLocal:
		result.Classification = model.ClassMissingLocally
		result.Detail = fmt.Sprintf("platform has %s, no stored prediction", external)
		return result

	case !hasExternal && hasLocal:
		result.Classification = model.ClassMissingExternally
		result.Detail = fmt.Sprintf("stored %s, nothing submitted", localRec.Value)
		return result
	}

	// Shape validation first: a structurally invalid local prediction is
	// Mismatched no matter how it compares.
	if err := entity.Validate(localRec.Value); err != nil {
		result.Classification = model.ClassMismatched
		result.Detail = err.Error()
		return result
	}

	if !localRec.Value.Equal(external) {
		result.Classification = model.ClassMismatched
		result.Detail = fmt.Sprintf("local %s vs external %s", localRec.Value, external)
		return result
	}

	// Values match, but a value match does not excuse stale evidence.
	outdated, err := e.staleness.IsOutdated(ctx, localRec, scope, excluded)
	if err != nil {
		zap.L().Warn("reconcile: staleness evaluation failed",
			zap.String("entity", key), zap.Error(err))
		result.Classification = model.ClassError
		result.Detail = err.Error()
		return result
	}
	if outdated {
		result.Classification = model.ClassOutdated
		result.Detail = "evidence superseded since prediction"
		return result
	}

	result.Classification = model.ClassInSync
	return result
}
