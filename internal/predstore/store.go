// Package predstore persists prediction records. A reprediction is a new
// row with a higher index; the override path replaces the latest row's
// value in place without touching indices.
package predstore

import (
	"context"
	"time"

	"github.com/predictops/tipsync/internal/model"
)

// Store is the persistence interface for prediction records.
type Store interface {
	// Save inserts rec as a new row and returns it with its assigned ID.
	// A row with the same (scope, entity, model, reprediction index)
	// already present surfaces model.ErrConflict.
	Save(ctx context.Context, rec *model.PredictionRecord) (*model.PredictionRecord, error)

	// GetLatest returns the record with the highest reprediction index
	// for the triple, or model.ErrNotFound.
	GetLatest(ctx context.Context, entityKey, modelName, scope string) (*model.PredictionRecord, error)

	// GetByIndex returns exactly the requested reprediction index, or
	// model.ErrNotFound. Prior repredictions stay readable forever.
	GetByIndex(ctx context.Context, entityKey, modelName, scope string, index int) (*model.PredictionRecord, error)

	// Latest returns entityKey -> newest record for every entity with at
	// least one prediction under the model in the scope.
	Latest(ctx context.Context, modelName, scope string) (map[string]*model.PredictionRecord, error)

	// Override replaces the latest record's value and timestamp in place.
	// It never changes the reprediction index.
	Override(ctx context.Context, entityKey, modelName, scope string, value model.PredictionValue, now time.Time) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
