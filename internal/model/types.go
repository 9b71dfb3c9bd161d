package model

import "time"

// Decision is the recorded outcome kind of a permission evaluation.
type Decision string

const (
	Allow Decision = "allow"
	Deny  Decision = "deny"
)

// Identity is a subject's trust vector: sparse per-dimension scores in [0,1]
// plus a single aggregate score. Identities are replaced wholesale on each
// new trust report: consumers must never mutate one in place, and must not
// cache one beyond the loader's TTL.
type Identity struct {
	SubjectID      string             `json:"subject_id"`
	Scores         map[string]float64 `json:"scores"`
	AggregateScore float64            `json:"aggregate_score"`
	ObservedAt     time.Time          `json:"observed_at"`
}

// Score returns the identity's score for a dimension. Missing dimensions
// are 0: no evidence means no trust, not neutral trust.
func (id *Identity) Score(dim string) float64 {
	if id == nil || id.Scores == nil {
		return 0
	}
	return id.Scores[dim]
}

// Requirement declares the minimum trust an action demands: per-dimension
// minimums (sparse; unnamed dimensions are unconstrained) and a minimum
// aggregate score. One immutable Requirement exists per action name.
type Requirement struct {
	Action         string             `json:"action" yaml:"action"`
	RequiredScores map[string]float64 `json:"required_scores" yaml:"required_scores"`
	MinAggregate   float64            `json:"min_aggregate" yaml:"min_aggregate"`
	Description    string             `json:"description,omitempty" yaml:"description,omitempty"`
	Irreversible   bool               `json:"irreversible,omitempty" yaml:"irreversible,omitempty"`
}

// FailedDimension explains one dimension that fell short of a requirement,
// with the actual-vs-required values every DENY must carry.
type FailedDimension struct {
	Name     string  `json:"name"`
	Actual   float64 `json:"actual"`
	Required float64 `json:"required"`
}

// Permission is the immutable result of a single permission evaluation.
// FailedDimensions is always populated, independent of which threshold
// caused a denial, so a DENY is reproducible without the registry source.
type Permission struct {
	Allowed          bool              `json:"allowed"`
	OverlapRatio     float64           `json:"overlap_ratio"`
	AggregateScore   float64           `json:"aggregate_score"`
	OverlapThreshold float64           `json:"overlap_threshold"`
	MinAggregate     float64           `json:"min_aggregate"`
	FailedDimensions []FailedDimension `json:"failed_dimensions"`
	DecidedAt        time.Time         `json:"decided_at"`
}

// Decision maps the boolean outcome onto the ledger decision kind.
func (p Permission) Decision() Decision {
	if p.Allowed {
		return Allow
	}
	return Deny
}
