// Package docstore provides append-only, idempotent versioning of named
// evidence documents within a scope.
package docstore

import (
	"context"
	"time"

	"github.com/predictops/tipsync/internal/model"
)

// Store persists versioned evidence documents. Versions for a (name, scope)
// pair are contiguous starting at 0 and immutable once written. Put is
// read-then-append, so concurrent writers to the same pair must serialize;
// the backends guard the append with the expected next version and report
// model.ErrConflict when another writer got there first.
type Store interface {
	// Put writes content as a new latest version stamped with now.
	// Byte-identical content performs no write and returns the existing
	// latest version number. The first write for a pair is version 0.
	Put(ctx context.Context, name, scope, content string, now time.Time) (int, error)

	// GetLatest returns the highest version written for the pair, or
	// model.ErrNotFound if the document does not exist.
	GetLatest(ctx context.Context, name, scope string) (*model.Document, error)

	// GetVersion returns exactly the requested version, or
	// model.ErrNotFound if that version was never written. It never
	// clamps to the nearest existing version.
	GetVersion(ctx context.Context, name, scope string, version int) (*model.Document, error)

	// ListNames returns the names with at least one version in the scope.
	ListNames(ctx context.Context, scope string) ([]string, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
