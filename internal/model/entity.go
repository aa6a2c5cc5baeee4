package model

import "github.com/rotisserie/eris"

// Entity is something a prediction can be submitted for: a match or a bonus
// question. The two variants share structural comparison and shape
// validation so callers dispatch once instead of type-switching ad hoc.
type Entity interface {
	Key() string
	// Validate checks that v is a well-formed value for this entity.
	// A nil result does not imply the value is correct, only that its
	// shape is legal.
	Validate(v PredictionValue) error
}

// MatchEntity is a single game with a score-pair prediction.
type MatchEntity struct {
	ID   string
	Home string
	Away string
}

func (m MatchEntity) Key() string { return m.ID }

func (m MatchEntity) Validate(v PredictionValue) error {
	s, ok := v.(Score)
	if !ok {
		return eris.Wrapf(ErrInvalid, "match %s: value is not a score", m.ID)
	}
	if s.Home < 0 || s.Away < 0 {
		return eris.Wrapf(ErrInvalid, "match %s: negative score %s", m.ID, s)
	}
	return nil
}

// BonusQuestion is a multi-select question with a declared option set and
// selection bounds.
type BonusQuestion struct {
	ID            string
	Prompt        string
	Options       []string
	MinSelections int
	MaxSelections int
}

func (q BonusQuestion) Key() string { return q.ID }

// Validate enforces the bonus-question shape rules: every selected
// identifier must be a declared option, the selection count must lie within
// the declared bounds, and there must be no duplicate selections.
func (q BonusQuestion) Validate(v PredictionValue) error {
	sel, ok := v.(Selection)
	if !ok {
		return eris.Wrapf(ErrInvalid, "question %s: value is not a selection", q.ID)
	}

	valid := optionSet(q.Options)
	seen := make(stringSet, len(sel.Options))
	for _, opt := range sel.Options {
		if _, ok := valid[opt]; !ok {
			return eris.Wrapf(ErrInvalid, "question %s: unknown option %q", q.ID, opt)
		}
		if _, dup := seen[opt]; dup {
			return eris.Wrapf(ErrInvalid, "question %s: duplicate option %q", q.ID, opt)
		}
		seen[opt] = struct{}{}
	}

	n := len(sel.Options)
	if n < q.MinSelections {
		return eris.Wrapf(ErrInvalid, "question %s: %d selections, minimum %d", q.ID, n, q.MinSelections)
	}
	if q.MaxSelections > 0 && n > q.MaxSelections {
		return eris.Wrapf(ErrInvalid, "question %s: %d selections, maximum %d", q.ID, n, q.MaxSelections)
	}
	return nil
}
