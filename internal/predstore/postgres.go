package predstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/predictops/tipsync/internal/docstore"
	"github.com/predictops/tipsync/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool docstore.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *docstore.PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "predstore: postgres parse config")
	}
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			pgxCfg.MaxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			pgxCfg.MinConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "predstore: postgres create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, model.WrapUnavailable(err, "predstore: postgres ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS predictions (
	id                 TEXT PRIMARY KEY,
	scope              TEXT NOT NULL,
	entity_key         TEXT NOT NULL,
	model              TEXT NOT NULL,
	reprediction_index INTEGER NOT NULL,
	value              JSONB NOT NULL,
	documents          JSONB NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL,
	UNIQUE (scope, entity_key, model, reprediction_index)
);

CREATE INDEX IF NOT EXISTS idx_predictions_scope_model ON predictions(scope, model);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "predstore: postgres migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, rec *model.PredictionRecord) (*model.PredictionRecord, error) {
	valueJSON, docsJSON, err := encodeRecord(rec)
	if err != nil {
		return nil, err
	}

	saved := *rec
	saved.ID = uuid.New().String()

	_, err = s.pool.Exec(ctx,
		`INSERT INTO predictions (id, scope, entity_key, model, reprediction_index, value, documents, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		saved.ID, saved.Scope, saved.EntityKey, saved.Model, saved.RepredictionIndex,
		valueJSON, docsJSON, saved.CreatedAt.UTC(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if eris.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, eris.Wrapf(model.ErrConflict, "predstore: %s/%s index %d already written",
				saved.Scope, saved.EntityKey, saved.RepredictionIndex)
		}
		return nil, model.WrapUnavailable(err, "predstore: postgres insert prediction")
	}
	return &saved, nil
}

func (s *PostgresStore) GetLatest(ctx context.Context, entityKey, modelName, scope string) (*model.PredictionRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, scope, entity_key, model, reprediction_index, value, documents, created_at
		 FROM predictions WHERE scope = $1 AND entity_key = $2 AND model = $3
		 ORDER BY reprediction_index DESC LIMIT 1`,
		scope, entityKey, modelName,
	)
	return scanPgPrediction(row, entityKey, scope)
}

func (s *PostgresStore) GetByIndex(ctx context.Context, entityKey, modelName, scope string, index int) (*model.PredictionRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, scope, entity_key, model, reprediction_index, value, documents, created_at
		 FROM predictions WHERE scope = $1 AND entity_key = $2 AND model = $3 AND reprediction_index = $4`,
		scope, entityKey, modelName, index,
	)
	return scanPgPrediction(row, entityKey, scope)
}

func (s *PostgresStore) Latest(ctx context.Context, modelName, scope string) (map[string]*model.PredictionRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT ON (entity_key)
			id, scope, entity_key, model, reprediction_index, value, documents, created_at
		 FROM predictions WHERE scope = $1 AND model = $2
		 ORDER BY entity_key, reprediction_index DESC`,
		scope, modelName,
	)
	if err != nil {
		return nil, model.WrapUnavailable(err, "predstore: postgres list predictions")
	}
	defer rows.Close()

	out := make(map[string]*model.PredictionRecord)
	for rows.Next() {
		rec, err := scanPgPrediction(rows, "", scope)
		if err != nil {
			return nil, err
		}
		out[rec.EntityKey] = rec
	}
	return out, eris.Wrap(rows.Err(), "predstore: postgres list predictions iterate")
}

func (s *PostgresStore) Override(ctx context.Context, entityKey, modelName, scope string, value model.PredictionValue, now time.Time) error {
	valueJSON, err := model.EncodeValue(value)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE predictions SET value = $1, created_at = $2
		 WHERE scope = $3 AND entity_key = $4 AND model = $5
		   AND reprediction_index = (
			SELECT MAX(reprediction_index) FROM predictions
			WHERE scope = $3 AND entity_key = $4 AND model = $5)`,
		valueJSON, now.UTC(), scope, entityKey, modelName,
	)
	if err != nil {
		return model.WrapUnavailable(err, "predstore: postgres override")
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(model.ErrNotFound, "predstore: prediction %s/%s", scope, entityKey)
	}
	return nil
}

func scanPgPrediction(row interface{ Scan(dest ...any) error }, entityKey, scope string) (*model.PredictionRecord, error) {
	var rec model.PredictionRecord
	var valueJSON, docsJSON string

	err := row.Scan(&rec.ID, &rec.Scope, &rec.EntityKey, &rec.Model,
		&rec.RepredictionIndex, &valueJSON, &docsJSON, &rec.CreatedAt)
	if err == pgx.ErrNoRows {
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
