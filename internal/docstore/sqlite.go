package docstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

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
		return nil, eris.Wrap(err, "docstore: sqlite open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "docstore: sqlite exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS documents (
	scope      TEXT NOT NULL,
	name       TEXT NOT NULL,
	version    INTEGER NOT NULL,
	content    TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	PRIMARY KEY (scope, name, version)
);

CREATE INDEX IF NOT EXISTS idx_documents_scope_name ON documents(scope, name);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "docstore: sqlite migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Put(ctx context.Context, name, scope, content string, now time.Time) (int, error) {
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

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (scope, name, version, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		scope, name, next, content, now.UTC(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return 0, eris.Wrapf(model.ErrConflict, "docstore: concurrent write on %s/%s version %d", scope, name, next)
		}
		return 0, model.WrapUnavailable(err, "docstore: sqlite insert document")
	}
	return next, nil
}

func (s *SQLiteStore) GetLatest(ctx context.Context, name, scope string) (*model.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT scope, name, version, content, created_at FROM documents
		 WHERE scope = ? AND name = ? ORDER BY version DESC LIMIT 1`,
		scope, name,
	)
	return scanDocument(row, name, scope)
}

func (s *SQLiteStore) GetVersion(ctx context.Context, name, scope string, version int) (*model.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT scope, name, version, content, created_at FROM documents
		 WHERE scope = ? AND name = ? AND version = ?`,
		scope, name, version,
	)
	return scanDocument(row, name, scope)
}

func (s *SQLiteStore) ListNames(ctx context.Context, scope string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT name FROM documents WHERE scope = ? ORDER BY name`,
		scope,
	)
	if err != nil {
		return nil, model.WrapUnavailable(err, "docstore: sqlite list names")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "docstore: sqlite scan name")
		}
		names = append(names, name)
	}
	return names, eris.Wrap(rows.Err(), "docstore: sqlite list names iterate")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanDocument(row scannable, name, scope string) (*model.Document, error) {
	var d model.Document
	err := row.Scan(&d.Scope, &d.Name, &d.Version, &d.Content, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(model.ErrNotFound, "docstore: document %s/%s", scope, name)
	}
	if err != nil {
		return nil, model.WrapUnavailable(err, "docstore: scan document")
	}
	return &d, nil
}
