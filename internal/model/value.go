package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// PredictionValue is the value submitted or stored for one entity: either a
// score pair for a match or a set of selected option identifiers for a
// bonus question.
type PredictionValue interface {
	// Equal reports structural equality; selections compare as sets.
	Equal(other PredictionValue) bool
	String() string
}

// Score is a predicted match result.
type Score struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

func (s Score) Equal(other PredictionValue) bool {
	o, ok := other.(Score)
	return ok && s == o
}

func (s Score) String() string {
	return fmt.Sprintf("%d:%d", s.Home, s.Away)
}

// Selection is a set of chosen option identifiers for a bonus question.
type Selection struct {
	Options []string `json:"options"`
}

// Equal compares order-insensitively and ignores duplicates.
func (s Selection) Equal(other PredictionValue) bool {
	o, ok := other.(Selection)
	if !ok {
		return false
	}
	return optionSet(s.Options).equal(optionSet(o.Options))
}

func (s Selection) String() string {
	sorted := append([]string(nil), s.Options...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}

type stringSet map[string]struct{}

func optionSet(opts []string) stringSet {
	set := make(stringSet, len(opts))
	for _, o := range opts {
		set[o] = struct{}{}
	}
	return set
}

func (a stringSet) equal(b stringSet) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// valueEnvelope is the tagged wire form of a PredictionValue.
type valueEnvelope struct {
	Type    string   `json:"type"`
	Home    int      `json:"home,omitempty"`
	Away    int      `json:"away,omitempty"`
	Options []string `json:"options,omitempty"`
}

// EncodeValue serializes a PredictionValue for storage.
func EncodeValue(v PredictionValue) (string, error) {
	var env valueEnvelope
	switch val := v.(type) {
	case Score:
		env = valueEnvelope{Type: "score", Home: val.Home, Away: val.Away}
	case Selection:
		env = valueEnvelope{Type: "selection", Options: val.Options}
	default:
		return "", eris.Errorf("model: encode value: unknown type %T", v)
	}
	data, err := json.Marshal(env)
	if err != nil {
		return "", eris.Wrap(err, "model: encode value")
	}
	return string(data), nil
}

// DecodeValue deserializes a stored PredictionValue.
func DecodeValue(data string) (PredictionValue, error) {
	var env valueEnvelope
	if err := json.Unmarshal([]byte(data), &env); err != nil {
		return nil, eris.Wrap(err, "model: decode value")
	}
	switch env.Type {
	case "score":
		return Score{Home: env.Home, Away: env.Away}, nil
	case "selection":
		return Selection{Options: env.Options}, nil
	default:
		return nil, eris.Errorf("model: decode value: unknown type %q", env.Type)
	}
}
