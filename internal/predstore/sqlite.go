package predstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/predictops/tipsync/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "predstore: sqlite open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "predstore: sqlite exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS predictions (
	id                 TEXT PRIMARY KEY,
	scope              TEXT NOT NULL,
	entity_key         TEXT NOT NULL,
	model              TEXT NOT NULL,
	reprediction_index INTEGER NOT NULL,
	value              TEXT NOT NULL,
	documents          TEXT NOT NULL,
	created_at         DATETIME NOT NULL,
	UNIQUE (scope, entity_key, model, reprediction_index)
);

CREATE INDEX IF NOT EXISTS idx_predictions_scope_model ON predictions(scope, model);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "predstore: sqlite migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, rec *model.PredictionRecord) (*model.PredictionRecord, error) {
	valueJSON, docsJSON, err := encodeRecord(rec)
	if err != nil {
		return nil, err
	}

	saved := *rec
	saved.ID = uuid.New().String()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO predictions (id, scope, entity_key, model, reprediction_index, value, documents, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		saved.ID, saved.Scope, saved.EntityKey, saved.Model, saved.RepredictionIndex,
		valueJSON, docsJSON, saved.CreatedAt.UTC(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil, eris.Wrapf(model.ErrConflict, "predstore: %s/%s index %d already written",
				saved.Scope, saved.EntityKey, saved.RepredictionIndex)
		}
		return nil, model.WrapUnavailable(err, "predstore: sqlite insert prediction")
	}
	return &saved, nil
}

func (s *SQLiteStore) GetLatest(ctx context.Context, entityKey, modelName, scope string) (*model.PredictionRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, scope, entity_key, model, reprediction_index, value, documents, created_at
		 FROM predictions WHERE scope = ? AND entity_key = ? AND model = ?
		 ORDER BY reprediction_index DESC LIMIT 1`,
		scope, entityKey, modelName,
	)
	return scanPrediction(row, entityKey, scope)
}

func (s *SQLiteStore) GetByIndex(ctx context.Context, entityKey, modelName, scope string, index int) (*model.PredictionRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, scope, entity_key, model, reprediction_index, value, documents, created_at
		 FROM predictions WHERE scope = ? AND entity_key = ? AND model = ? AND reprediction_index = ?`,
		scope, entityKey, modelName, index,
	)
	return scanPrediction(row, entityKey, scope)
}

func (s *SQLiteStore) Latest(ctx context.Context, modelName, scope string) (map[string]*model.PredictionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, scope, entity_key, model, reprediction_index, value, documents, created_at
		 FROM predictions WHERE scope = ? AND model = ?
		 ORDER BY entity_key, reprediction_index`,
		scope, modelName,
	)
	if err != nil {
		return nil, model.WrapUnavailable(err, "predstore: sqlite list predictions")
	}
	defer rows.Close()

	out := make(map[string]*model.PredictionRecord)
	for rows.Next() {
		rec, err := scanPrediction(rows, "", scope)
		if err != nil {
			return nil, err
		}
		// Rows arrive index-ascending, so the last one per entity wins.
		out[rec.EntityKey] = rec
	}
	return out, eris.Wrap(rows.Err(), "predstore: sqlite list predictions iterate")
}

func (s *SQLiteStore) Override(ctx context.Context, entityKey, modelName, scope string, value model.PredictionValue, now time.Time) error {
	valueJSON, err := model.EncodeValue(value)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE predictions SET value = ?, created_at = ?
		 WHERE scope = ? AND entity_key = ? AND model = ?
		   AND reprediction_index = (
			SELECT MAX(reprediction_index) FROM predictions
			WHERE scope = ? AND entity_key = ? AND model = ?)`,
		valueJSON, now.UTC(),
		scope, entityKey, modelName,
		scope, entityKey, modelName,
	)
	if err != nil {
		return model.WrapUnavailable(err, "predstore: sqlite override")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "predstore: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(model.ErrNotFound, "predstore: prediction %s/%s", scope, entityKey)
	}
	return nil
}

// helpers

func encodeRecord(rec *model.PredictionRecord) (valueJSON, docsJSON string, err error) {
	valueJSON, err = model.EncodeValue(rec.Value)
	if err != nil {
		return "", "", err
	}
	docs, err := json.Marshal(rec.Documents)
	if err != nil {
		return "", "", eris.Wrap(err, "predstore: marshal documents")
	}
	return valueJSON, string(docs), nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanPrediction(row scannable, entityKey, scope string) (*model.PredictionRecord, error) {
	var rec model.PredictionRecord
	var valueJSON, docsJSON string

	err := row.Scan(&rec.ID, &rec.Scope, &rec.EntityKey, &rec.Model,
		&rec.RepredictionIndex, &valueJSON, &docsJSON, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(model.ErrNotFound, "predstore: prediction %s/%s", scope, entityKey)
	}
	if err != nil {
		return nil, model.WrapUnavailable(err, "predstore: scan prediction")
	}

	rec.Value, err = model.DecodeValue(valueJSON)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(docsJSON), &rec.Documents); err != nil {
		return nil, eris.Wrap(err, "predstore: unmarshal documents")
	}
	return &rec, nil
}
