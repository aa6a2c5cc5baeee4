package model

import (
	"strings"
	"time"
)

// Document is one immutable version of a named evidence document within a
// scope. Versions for a (name, scope) pair form a contiguous sequence
// starting at 0; the latest version is the highest one written.
type Document struct {
	Name      string    `json:"name"`
	Scope     string    `json:"scope"`
	Version   int       `json:"version"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// DocumentRef records one evidence document a prediction was built from.
// Name is the canonical store name; Label is the decorated display form
// shown to the model (e.g. "standings (Tabelle)"). Records written before
// the name/label split carry only Label.
type DocumentRef struct {
	Name  string `json:"name"`
	Label string `json:"label,omitempty"`
}

// Canonical returns the store name for the reference. When only a decorated
// label is present, one trailing parenthesized suffix is stripped. A genuine
// document name ending in " (...)" would be mis-normalized here, which is
// why new records always carry Name explicitly.
func (r DocumentRef) Canonical() string {
	if r.Name != "" {
		return r.Name
	}
	label := strings.TrimSpace(r.Label)
	if strings.HasSuffix(label, ")") {
		if i := strings.LastIndex(label, " ("); i > 0 {
			return label[:i]
		}
	}
	return label
}
