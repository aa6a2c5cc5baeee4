package model

import (
	"errors"

	"github.com/rotisserie/eris"
)

// Sentinel errors for the four failure classes the pipeline distinguishes.
// Callers branch with errors.Is; wrapping with eris keeps the chain intact.
var (
	// ErrNotFound marks a requested document, version or prediction that
	// was never written. Expected absence, not a fault.
	ErrNotFound = eris.New("not found")

	// ErrConflict marks a concurrent write detected on the same key.
	ErrConflict = eris.New("conflict")

	// ErrInvalid marks malformed tabular input or an invalid prediction
	// shape.
	ErrInvalid = eris.New("invalid")

	// ErrUnavailable marks an underlying store or network failure.
	ErrUnavailable = eris.New("unavailable")
)

// WrapUnavailable ties a store/network fault to ErrUnavailable so callers
// can distinguish it from expected absence.
func WrapUnavailable(err error, msg string) error {
	if err == nil {
		return nil
	}
	return eris.Wrap(errors.Join(ErrUnavailable, err), msg)
}
