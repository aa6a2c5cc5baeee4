package model

import "time"

// NoReprediction is the RepredictionIndex of a base prediction: no
// deliberate regeneration has happened yet. Repredictions are numbered from
// zero.
const NoReprediction = -1

// PredictionRecord is one stored prediction for an entity. A reprediction
// is a new, additional record with a higher index, never a mutation of the
// prior one; prior repredictions remain readable by index.
type PredictionRecord struct {
	ID                string          `json:"id"`
	EntityKey         string          `json:"entity_key"`
	Model             string          `json:"model"`
	Scope             string          `json:"scope"`
	Value             PredictionValue `json:"-"`
	Documents         []DocumentRef   `json:"documents"`
	RepredictionIndex int             `json:"reprediction_index"`
	CreatedAt         time.Time       `json:"created_at"`
}
