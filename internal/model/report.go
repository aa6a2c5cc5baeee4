package model

// Classification is the per-entity outcome of a verification run.
type Classification string

// Classification constants.
const (
	ClassInSync            Classification = "IN_SYNC"
	ClassMismatched        Classification = "MISMATCHED"
	ClassMissingLocally    Classification = "MISSING_LOCALLY"
	ClassMissingExternally Classification = "MISSING_EXTERNALLY"
	ClassOutdated          Classification = "OUTDATED"
	ClassError             Classification = "ERROR"
)

// EntityResult is one entity's classification with optional detail for the
// presentation layer.
type EntityResult struct {
	EntityKey      string         `json:"entity_key"`
	Classification Classification `json:"classification"`
	Detail         string         `json:"detail,omitempty"`
}

// Report aggregates one verification run. Init signals that no entity has
// any local prediction at all, regardless of external state; callers route
// it to bulk generation instead of pass/fail reporting. Never persisted.
type Report struct {
	Scope            string                 `json:"scope"`
	Results          []EntityResult         `json:"results"`
	Counts           map[Classification]int `json:"counts"`
	HasDiscrepancies bool                   `json:"has_discrepancies"`
	Init             bool                   `json:"init"`
}

// Count returns the number of entities with the given classification.
func (r *Report) Count(c Classification) int {
	return r.Counts[c]
}
