package predstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictops/tipsync/internal/model"
)

const (
	testScope = "pool-a"
	testModel = "claude-sonnet-4-5-20250929"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testRecord(entityKey string, index int, createdAt time.Time) *model.PredictionRecord {
	return &model.PredictionRecord{
		EntityKey: entityKey,
		Model:     testModel,
		Scope:     testScope,
		Value:     model.Score{Home: 2, Away: 1},
		Documents: []model.DocumentRef{
			{Name: "standings", Label: "standings (Tabelle)"},
			{Name: "news"},
		},
		RepredictionIndex: index,
		CreatedAt:         createdAt,
	}
}

func predStoreTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t0 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("SaveAndGetLatest", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		saved, err := s.Save(ctx, testRecord("m1", model.NoReprediction, t0))
		require.NoError(t, err)
		assert.NotEmpty(t, saved.ID)

		got, err := s.GetLatest(ctx, "m1", testModel, testScope)
		require.NoError(t, err)
		assert.Equal(t, model.NoReprediction, got.RepredictionIndex)
		assert.True(t, model.Score{Home: 2, Away: 1}.Equal(got.Value))
		require.Len(t, got.Documents, 2)
		assert.Equal(t, "standings", got.Documents[0].Name)
		assert.Equal(t, "standings (Tabelle)", got.Documents[0].Label)
	})

	t.Run("RepredictionIsANewRow", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Save(ctx, testRecord("m1", model.NoReprediction, t0))
		require.NoError(t, err)

		repred := testRecord("m1", 0, t0.Add(time.Hour))
		repred.Value = model.Score{Home: 1, Away: 1}
		_, err = s.Save(ctx, repred)
		require.NoError(t, err)

		latest, err := s.GetLatest(ctx, "m1", testModel, testScope)
		require.NoError(t, err)
		assert.Equal(t, 0, latest.RepredictionIndex)
		assert.True(t, model.Score{Home: 1, Away: 1}.Equal(latest.Value))

		// The base prediction stays readable by index.
		base, err := s.GetByIndex(ctx, "m1", testModel, testScope, model.NoReprediction)
		require.NoError(t, err)
		assert.True(t, model.Score{Home: 2, Away: 1}.Equal(base.Value))
	})

	t.Run("DuplicateIndexConflicts", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Save(ctx, testRecord("m1", 0, t0))
		require.NoError(t, err)

		_, err = s.Save(ctx, testRecord("m1", 0, t0.Add(time.Minute)))
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrConflict))
	})

	t.Run("GetLatestNotFound", func(t *testing.T) {
		s := newStore(t)

		_, err := s.GetLatest(context.Background(), "nope", testModel, testScope)
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrNotFound))
	})

	t.Run("GetByIndexNeverClamps", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Save(ctx, testRecord("m1", model.NoReprediction, t0))
		require.NoError(t, err)

		_, err = s.GetByIndex(ctx, "m1", testModel, testScope, 4)
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrNotFound))
	})

	t.Run("LatestPerEntity", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Save(ctx, testRecord("m1", model.NoReprediction, t0))
		require.NoError(t, err)
		_, err = s.Save(ctx, testRecord("m1", 0, t0.Add(time.Hour)))
		require.NoError(t, err)

		q1 := testRecord("q1", model.NoReprediction, t0)
		q1.Value = model.Selection{Options: []string{"a", "b"}}
		_, err = s.Save(ctx, q1)
		require.NoError(t, err)

		latest, err := s.Latest(ctx, testModel, testScope)
		require.NoError(t, err)
		require.Len(t, latest, 2)
		assert.Equal(t, 0, latest["m1"].RepredictionIndex)
		assert.True(t, model.Selection{Options: []string{"b", "a"}}.Equal(latest["q1"].Value))
	})

	t.Run("LatestEmptyScope", func(t *testing.T) {
		s := newStore(t)

		latest, err := s.Latest(context.Background(), testModel, "empty-scope")
		require.NoError(t, err)
		assert.Empty(t, latest)
	})

	t.Run("OverrideReplacesInPlace", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Save(ctx, testRecord("m1", model.NoReprediction, t0))
		require.NoError(t, err)

		now := t0.Add(2 * time.Hour)
		err = s.Override(ctx, "m1", testModel, testScope, model.Score{Home: 0, Away: 0}, now)
		require.NoError(t, err)

		got, err := s.GetLatest(ctx, "m1", testModel, testScope)
		require.NoError(t, err)
		assert.Equal(t, model.NoReprediction, got.RepredictionIndex, "override never advances the index")
		assert.True(t, model.Score{Home: 0, Away: 0}.Equal(got.Value))
		assert.True(t, got.CreatedAt.Equal(now))
	})

	t.Run("OverrideMissingPrediction", func(t *testing.T) {
		s := newStore(t)

		err := s.Override(context.Background(), "nope", testModel, testScope, model.Score{}, t0)
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrNotFound))
	})
}

func TestSQLiteStore(t *testing.T) {
	predStoreTestSuite(t, newTestSQLite)
}
