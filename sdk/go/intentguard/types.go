package intentguard

import (
	"fmt"
	"strings"
	"time"

	"github.com/wiber/intentguard/internal/guard"
	"github.com/wiber/intentguard/internal/model"
)

// Decision is the recorded outcome kind of a permission evaluation.
type Decision string

const (
	Allow Decision = Decision(model.Allow)
	Deny  Decision = Decision(model.Deny)
)

// Call describes one intended tool invocation.
type Call struct {
	Action string         // registered action name: "write_file", "execute_command"
	Caller string         // attributed caller; empty falls back to the wrap caller
	Params map[string]any // tool arguments, passed through to the wrapped function
}

// FailedDimension explains one dimension that fell short of a requirement.
type FailedDimension struct {
	Name     string  `json:"name"`
	Actual   float64 `json:"actual"`
	Required float64 `json:"required"`
}

// Result is a permission evaluation outcome. Exempt and unregistered
// actions carry no evaluation numbers: they run outside governance.
type Result struct {
	Action           string            `json:"action"`
	Decision         Decision          `json:"decision"`
	Exempt           bool              `json:"exempt"`
	Registered       bool              `json:"registered"`
	OverlapRatio     float64           `json:"overlap_ratio"`
	OverlapThreshold float64           `json:"overlap_threshold"`
	AggregateScore   float64           `json:"aggregate_score"`
	MinAggregate     float64           `json:"min_aggregate"`
	FailedDimensions []FailedDimension `json:"failed_dimensions,omitempty"`
}

// Allowed reports whether the action may run.
func (r Result) Allowed() bool { return r.Decision == Allow }

// Governed reports whether the outcome came from an actual evaluation
// rather than an exemption or registry gap.
func (r Result) Governed() bool { return r.Registered && !r.Exempt }

// DriftEvent reports that consecutive denials reached the drift threshold.
type DriftEvent struct {
	Subject            string
	SessionID          string
	ConsecutiveDenials int
	TotalDenials       int
	LastAction         string
	FailedDimensions   []FailedDimension
	At                 time.Time
}

// Authority is the spending authority derived from current trust.
type Authority struct {
	Score      float64 `json:"score"`
	DailyLimit float64 `json:"daily_limit"`
	Level      string  `json:"level"`
}

// BlockedError is returned when the permission predicate denies a wrapped
// call. It carries the full evaluation so the caller can explain the denial
// without re-reading the ledger.
type BlockedError struct {
	Call             Call
	OverlapRatio     float64
	OverlapThreshold float64
	AggregateScore   float64
	MinAggregate     float64
	FailedDimensions []FailedDimension
}

func (e *BlockedError) Error() string {
	msg := fmt.Sprintf("intentguard blocked (%s): %s", e.Call.Action, e.reason())
	if len(e.FailedDimensions) == 0 {
		return msg
	}
	parts := make([]string, 0, len(e.FailedDimensions))
	for _, fd := range e.FailedDimensions {
		parts = append(parts, fmt.Sprintf("%s %.2f<%.2f", fd.Name, fd.Actual, fd.Required))
	}
	return msg + "; short on " + strings.Join(parts, ", ")
}

func (e *BlockedError) reason() string {
	if e.OverlapRatio < e.OverlapThreshold {
		return fmt.Sprintf("overlap %.2f below threshold %.2f", e.OverlapRatio, e.OverlapThreshold)
	}
	return fmt.Sprintf("aggregate %.2f below minimum %.2f", e.AggregateScore, e.MinAggregate)
}

// toResult maps an internal check verdict to an SDK Result. Exempt and
// unregistered actions run ungoverned, so they map to Allow.
func toResult(cr guard.CheckResult) Result {
	r := Result{Action: cr.Action, Exempt: cr.Exempt, Registered: cr.Registered}
	if cr.Exempt || !cr.Registered {
		r.Decision = Allow
		return r
	}
	p := cr.Permission
	r.Decision = Decision(p.Decision())
	r.OverlapRatio = p.OverlapRatio
	r.OverlapThreshold = p.OverlapThreshold
	r.AggregateScore = p.AggregateScore
	r.MinAggregate = p.MinAggregate
	r.FailedDimensions = toFailedDimensions(p.FailedDimensions)
	return r
}

func toFailedDimensions(fds []model.FailedDimension) []FailedDimension {
	if len(fds) == 0 {
		return nil
	}
	out := make([]FailedDimension, len(fds))
	for i, fd := range fds {
		out[i] = FailedDimension{Name: fd.Name, Actual: fd.Actual, Required: fd.Required}
	}
	return out
}

func blockedFromDenied(call Call, d *guard.DeniedError) *BlockedError {
	return &BlockedError{
		Call:             call,
		OverlapRatio:     d.OverlapRatio,
		OverlapThreshold: d.OverlapThreshold,
		AggregateScore:   d.AggregateScore,
		MinAggregate:     d.MinAggregate,
		FailedDimensions: toFailedDimensions(d.FailedDimensions),
	}
}
