package audit

import "github.com/wiber/intentguard/internal/model"

// TimestampFormat is the layout used in ledger record timestamps.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// Fail-open reasons recorded in the gap ledger.
const (
	ReasonUnregisteredAction = "unregistered_action"
	ReasonUnknownCaller      = "unknown_caller"
)

// Record is one line in the hash-chained decision ledger, one per
// evaluated decision, allow and deny alike. All fields are structs and
// scalars (no map[string]any) to guarantee deterministic json.Marshal
// field order for reproducible hashing.
type Record struct {
	Timestamp        string                  `json:"ts"`
	SessionID        string                  `json:"session_id"`
	SubjectID        string                  `json:"subject_id"`
	Caller           string                  `json:"caller"`
	Action           string                  `json:"action"`
	Decision         string                  `json:"decision"`
	OverlapRatio     float64                 `json:"overlap_ratio"`
	AggregateScore   float64                 `json:"aggregate_score"`
	OverlapThreshold float64                 `json:"overlap_threshold"`
	MinAggregate     float64                 `json:"min_aggregate"`
	FailedDimensions []model.FailedDimension `json:"failed_dimensions,omitempty"`
	PrevHash         string                  `json:"prev_hash"`
}

// GapRecord is one line in the fail-open ledger: an action that proceeded
// only because no requirement (or no known caller) covered it. Kept in a
// separate file so deliberate allows and registry gaps are never conflated.
type GapRecord struct {
	Timestamp string `json:"ts"`
	SessionID string `json:"session_id"`
	Caller    string `json:"caller"`
	Action    string `json:"action"`
	Reason    string `json:"reason"`
	PrevHash  string `json:"prev_hash"`
}
