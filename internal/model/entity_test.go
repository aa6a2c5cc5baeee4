package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchEntityValidate(t *testing.T) {
	m := MatchEntity{ID: "m1", Home: "FC Altona", Away: "SV Nord"}

	require.NoError(t, m.Validate(Score{Home: 2, Away: 1}))

	err := m.Validate(Selection{Options: []string{"a"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))

	err = m.Validate(Score{Home: -1, Away: 0})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
}

func TestBonusQuestionValidate(t *testing.T) {
	q := BonusQuestion{
		ID:            "q1",
		Prompt:        "Which teams reach the final?",
		Options:       []string{"a", "b", "c", "d"},
		MinSelections: 1,
		MaxSelections: 2,
	}

	tests := []struct {
		name    string
		value   PredictionValue
		wantErr bool
	}{
		{"valid single", Selection{Options: []string{"a"}}, false},
		{"valid pair", Selection{Options: []string{"b", "d"}}, false},
		{"unknown option", Selection{Options: []string{"zz"}}, true},
		{"duplicate option", Selection{Options: []string{"a", "a"}}, true},
		{"too few", Selection{Options: nil}, true},
		{"too many", Selection{Options: []string{"a", "b", "c"}}, true},
		{"wrong shape", Score{Home: 1, Away: 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := q.Validate(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalid))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestBonusQuestionValidate_NoUpperBound(t *testing.T) {
	q := BonusQuestion{ID: "q2", Options: []string{"a", "b", "c"}, MinSelections: 1}
	require.NoError(t, q.Validate(Selection{Options: []string{"a", "b", "c"}}))
}

func TestDocumentRefCanonical(t *testing.T) {
	tests := []struct {
		name string
		ref  DocumentRef
		want string
	}{
		{"explicit name wins", DocumentRef{Name: "standings", Label: "standings (Tabelle)"}, "standings"},
		{"label suffix stripped", DocumentRef{Label: "standings (Tabelle)"}, "standings"},
		{"plain label", DocumentRef{Label: "news"}, "news"},
		{"no suffix to strip", DocumentRef{Label: "rules)"}, "rules)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ref.Canonical())
		})
	}
}
