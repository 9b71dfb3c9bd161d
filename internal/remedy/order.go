// Package remedy builds recalibration orders: structured work items telling
// an external grader (or a human) what a drifting subject must improve
// before a denied action class can pass again.
package remedy

import (
	"time"

	"github.com/wiber/intentguard/internal/model"
)

// Version is the current order schema version.
const Version = "1"

// DefaultTTL bounds how long an order stays actionable before it must be
// regenerated against a fresh identity.
const DefaultTTL = 7 * 24 * time.Hour

// Order is the recalibration artifact produced when a subject crosses the
// drift threshold. TargetScores name the per-dimension levels that would
// clear the denied requirement; UnitReduction is the trust-debt reduction
// needed for the aggregate gate.
type Order struct {
	OrderVersion       string                  `json:"order_version"`
	ID                 string                  `json:"id"`
	CreatedAt          time.Time               `json:"created_at"`
	Expires            time.Time               `json:"expires"`
	Subject            string                  `json:"subject"`
	SessionID          string                  `json:"session_id,omitempty"`
	Action             string                  `json:"action"`
	ConsecutiveDenials int                     `json:"consecutive_denials"`
	FailedDimensions   []model.FailedDimension `json:"failed_dimensions,omitempty"`
	TargetScores       map[string]float64      `json:"target_scores,omitempty"`
	UnitReduction      float64                 `json:"unit_reduction"`
}

// Denial describes the drift that triggered recalibration.
type Denial struct {
	Action             string
	SessionID          string
	ConsecutiveDenials int
	FailedDimensions   []model.FailedDimension
}
