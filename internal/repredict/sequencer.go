// Package repredict manages the bounded, strictly increasing regeneration
// counter kept per entity.
package repredict

import (
	"github.com/rotisserie/eris"

	"github.com/predictops/tipsync/internal/model"
)

// ActionKind enumerates what the caller should do next.
type ActionKind string

const (
	// CreateFirst: no reprediction exists yet, create index 0.
	CreateFirst ActionKind = "create_first"
	// CreateReprediction: create the next index.
	CreateReprediction ActionKind = "create_reprediction"
	// SkipAtLimit: the configured maximum is reached, do nothing.
	SkipAtLimit ActionKind = "skip_at_limit"
)

// Action is the sequencer's decision. Index is set for the create kinds;
// Current and Max are set for SkipAtLimit.
type Action struct {
	Kind    ActionKind
	Index   int
	Current int
	Max     int
}

// NextAction decides the next reprediction step for an entity. current is
// the stored index (model.NoReprediction when none exists); max is the
// configured ceiling, nil meaning unlimited. Indices start at 0, strictly
// increase, and are never reused; a skipped attempt does not advance the
// stored index. Pure: same inputs, same action.
func NextAction(current int, max *int) Action {
	if current == model.NoReprediction {
		return Action{Kind: CreateFirst, Index: 0}
	}
	next := current + 1
	if max == nil || next <= *max {
		return Action{Kind: CreateReprediction, Index: next}
	}
	return Action{Kind: SkipAtLimit, Current: current, Max: *max}
}

// ValidateMode rejects combining reprediction with the in-place override
// write path. The two are mutually exclusive per request.
func ValidateMode(repredict, override bool) error {
	if repredict && override {
		return eris.Wrap(model.ErrInvalid, "repredict: reprediction and override are mutually exclusive")
	}
	return nil
}
