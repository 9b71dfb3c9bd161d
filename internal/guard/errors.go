package guard

import (
	"fmt"
	"strings"

	"github.com/wiber/intentguard/internal/model"
)

// DeniedError is returned when the permission predicate blocks an action.
// It carries the full evaluation so callers can explain the denial without
// re-reading the ledger.
type DeniedError struct {
	Action           string
	Caller           string
	OverlapRatio     float64
	OverlapThreshold float64
	AggregateScore   float64
	MinAggregate     float64
	FailedDimensions []model.FailedDimension
}

func (e *DeniedError) Error() string {
	if len(e.FailedDimensions) == 0 {
		return fmt.Sprintf("action denied (%s): %s", e.Action, e.reason())
	}
	parts := make([]string, 0, len(e.FailedDimensions))
	for _, fd := range e.FailedDimensions {
		parts = append(parts, fmt.Sprintf("%s %.2f<%.2f", fd.Name, fd.Actual, fd.Required))
	}
	return fmt.Sprintf("action denied (%s): %s; short on %s", e.Action, e.reason(), strings.Join(parts, ", "))
}

// reason names the gate that failed. Overlap is checked first because it
// is the primary predicate; the aggregate gate only matters once overlap
// clears.
func (e *DeniedError) reason() string {
	if e.OverlapRatio < e.OverlapThreshold {
		return fmt.Sprintf("overlap %.2f below threshold %.2f", e.OverlapRatio, e.OverlapThreshold)
	}
	return fmt.Sprintf("aggregate %.2f below minimum %.2f", e.AggregateScore, e.MinAggregate)
}

func newDeniedError(action, caller string, p model.Permission) *DeniedError {
	return &DeniedError{
		Action:           action,
		Caller:           caller,
		OverlapRatio:     p.OverlapRatio,
		OverlapThreshold: p.OverlapThreshold,
		AggregateScore:   p.AggregateScore,
		MinAggregate:     p.MinAggregate,
		FailedDimensions: p.FailedDimensions,
	}
}
