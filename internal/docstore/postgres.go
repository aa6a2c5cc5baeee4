package docstore

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/predictops/tipsync/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "docstore: postgres parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "docstore: postgres create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, model.WrapUnavailable(err, "docstore: postgres ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS documents (
	scope      TEXT NOT NULL,
	name       TEXT NOT NULL,
	version    INTEGER NOT NULL,
	content    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (scope, name, version)
);

CREATE INDEX IF NOT EXISTS idx_documents_scope_name ON documents(scope, name);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "docstore: postgres migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Put(ctx context.Context, name, scope, content string, now time.Time) (int, error) {
	latest, err := s.GetLatest(ctx, name, scope)
	next := 0
	if err == nil {
		if latest.Content == content {
			return latest.Version, nil
		}
		next = latest.Version + 1
	} else if !eris.Is(err, model.ErrNotFound) {
		return 0, err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO documents (scope, name, version, content, created_at) VALUES ($1, $2, $3, $4, $5)`,
		scope, name, next, content, now.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, eris.Wrapf(model.ErrConflict, "docstore: concurrent write on %s/%s version %d", scope, name, next)
		}
		return 0, model.WrapUnavailable(err, "docstore: postgres insert document")
	}
	return next, nil
}

func (s *PostgresStore) GetLatest(ctx context.Context, name, scope string) (*model.Document, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT scope, name, version, content, created_at FROM documents
		 WHERE scope = $1 AND name = $2 ORDER BY version DESC LIMIT 1`,
		scope, name,
	)
	return scanPgDocument(row, name, scope)
}

func (s *PostgresStore) GetVersion(ctx context.Context, name, scope string, version int) (*model.Document, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT scope, name, version, content, created_at FROM documents
		 WHERE scope = $1 AND name = $2 AND version = $3`,
		scope, name, version,
	)
	return scanPgDocument(row, name, scope)
}

func (s *PostgresStore) ListNames(ctx context.Context, scope string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT name FROM documents WHERE scope = $1 ORDER BY name`,
		scope,
	)
	if err != nil {
		return nil, model.WrapUnavailable(err, "docstore: postgres list names")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "docstore: postgres scan name")
		}
		names = append(names, name)
	}
	return names, eris.Wrap(rows.Err(), "docstore: postgres list names iterate")
}

func scanPgDocument(row pgx.Row, name, scope string) (*model.Document, error) {
	var d model.Document
	err := row.Scan(&d.Scope, &d.Name, &d.Version, &d.Content, &d.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, eris.Wrapf(model.ErrNotFound, "docstore: document %s/%s", scope, name)
	}
	if err != nil {
		return nil, model.WrapUnavailable(err, "docstore: scan document")
	}
	return &d, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return eris.As(err, &pgErr) && pgErr.Code == "23505"
}
