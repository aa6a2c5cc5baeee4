package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictops/tipsync/internal/config"
	"github.com/predictops/tipsync/internal/docstore"
	"github.com/predictops/tipsync/internal/model"
	"github.com/predictops/tipsync/internal/pipeline"
	"github.com/predictops/tipsync/internal/predstore"
)

type stubPlatform struct {
	submitted map[string]model.PredictionValue
}

func (s *stubPlatform) GetSubmittedValues(_ context.Context, _ string) (map[string]model.PredictionValue, error) {
	return s.submitted, nil
}

func (s *stubPlatform) FetchPage(_ context.Context, _, _ string) (string, error) {
	return "", nil
}

type stubPredictor struct{}

func (stubPredictor) Predict(_ context.Context, _ model.Entity, _ []model.Document) (model.PredictionValue, error) {
	return nil, nil
}

func newTestEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	docs, err := docstore.NewSQLite(filepath.Join(dir, "docs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = docs.Close() })
	require.NoError(t, docs.Migrate(context.Background()))

	preds, err := predstore.NewSQLite(filepath.Join(dir, "preds.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = preds.Close() })
	require.NoError(t, preds.Migrate(context.Background()))

	c := &config.Config{
		Anthropic: config.AnthropicConfig{Model: "claude-sonnet-4-5-20250929"},
		Predict:   config.PredictConfig{MaxConcurrentEntities: 2, MaxRepredictions: -1},
	}
	platform := &stubPlatform{submitted: map[string]model.PredictionValue{}}
	return &env{
		Pipeline: pipeline.New(c, docs, preds, platform, stubPredictor{}),
		Docs:     docs,
		Preds:    preds,
	}
}

func testServeManifest() *pipeline.Manifest {
	return &pipeline.Manifest{
		Scope:   "pool-a",
		Matches: []pipeline.ManifestMatch{{ID: "m1", Home: "A", Away: "B"}},
	}
}

func TestServeHealth(t *testing.T) {
	mux := serveMux(newTestEnv(t), testServeManifest())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServeReport(t *testing.T) {
	mux := serveMux(newTestEnv(t), testServeManifest())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/report", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var report model.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "pool-a", report.Scope)
	assert.True(t, report.Init, "empty stores report init")
}

func TestServeDocuments(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.Docs.Put(context.Background(), "standings", "pool-a", "table", time.Now().UTC())
	require.NoError(t, err)
	mux := serveMux(e, testServeManifest())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "standings")

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents/standings", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var doc model.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "table", doc.Content)
	assert.Equal(t, 0, doc.Version)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
