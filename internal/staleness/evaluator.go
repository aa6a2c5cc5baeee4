// Package staleness decides whether a stored prediction is outdated
// relative to the evidence documents it was built from.
package staleness

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/predictops/tipsync/internal/docstore"
	"github.com/predictops/tipsync/internal/model"
)

// ExcludeSet holds document names deliberately exempted from triggering
// staleness (a cost-control override).
type ExcludeSet map[string]struct{}

// NewExcludeSet builds an ExcludeSet from a list of canonical names.
func NewExcludeSet(names []string) ExcludeSet {
	set := make(ExcludeSet, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

// Contains reports whether name is excluded.
func (s ExcludeSet) Contains(name string) bool {
	_, ok := s[name]
	return ok
}

// Evaluator is a pure function of current store state at call time; it
// performs no caching.
type Evaluator struct {
	store docstore.Store
}

// New creates an Evaluator over the given document store.
func New(store docstore.Store) *Evaluator {
	return &Evaluator{store: store}
}

// IsOutdated reports whether any non-excluded referenced document has a
// latest version strictly newer than the prediction. Evaluation
// short-circuits on the first such document. A reference that resolves to
// no stored document is logged and skipped: absence of evidence is not
// evidence of staleness.
func (e *Evaluator) IsOutdated(ctx context.Context, rec *model.PredictionRecord, scope string, excluded ExcludeSet) (bool, error) {
	for _, ref := range rec.Documents {
		name := ref.Canonical()
		if excluded.Contains(name) {
			continue
		}

		doc, err := e.store.GetLatest(ctx, name, scope)
		if err != nil {
			if eris.Is(err, model.ErrNotFound) {
				zap.L().Warn("staleness: referenced document not in store",
					zap.String("document", name),
					zap.String("scope", scope),
					zap.String("entity", rec.EntityKey),
				)
				continue
			}
			return false, err
		}

		if doc.CreatedAt.After(rec.CreatedAt) {
			zap.L().Debug("staleness: newer evidence found",
				zap.String("document", name),
				zap.String("entity", rec.EntityKey),
				zap.Int("version", doc.Version),
			)
			return true, nil
		}
	}
	return false, nil
}
