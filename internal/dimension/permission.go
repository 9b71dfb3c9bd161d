package dimension

import (
	"sort"
	"time"

	"github.com/wiber/intentguard/internal/model"
)

// DefaultTheta is the overlap threshold applied when a requirement does not
// carry its own: at least 80% of required dimensions must be met.
const DefaultTheta = 0.8

// CheckPermission evaluates an identity against an action requirement.
// The decision is allowed only when both gates pass: the dimensional
// overlap reaches theta AND the identity's aggregate score reaches the
// requirement's minimum. It is total; nil inputs degrade to the empty
// identity or the unconstrained requirement rather than erroring.
func CheckPermission(id *model.Identity, req *model.Requirement, theta float64) model.Permission {
	var scores map[string]float64
	var aggregate float64
	if id != nil {
		scores = id.Scores
		aggregate = id.AggregateScore
	}
	var required map[string]float64
	var minAggregate float64
	if req != nil {
		required = req.RequiredScores
		minAggregate = req.MinAggregate
	}

	overlap := Overlap(scores, required)

	failed := make([]model.FailedDimension, 0, len(required))
	for name, min := range required {
		if actual := scores[name]; actual < min {
			failed = append(failed, model.FailedDimension{
				Name:     name,
				Actual:   actual,
				Required: min,
			})
		}
	}
	sort.Slice(failed, func(i, j int) bool { return failed[i].Name < failed[j].Name })

	return model.Permission{
		Allowed:          overlap >= theta && aggregate >= minAggregate,
		OverlapRatio:     overlap,
		AggregateScore:   aggregate,
		OverlapThreshold: theta,
		MinAggregate:     minAggregate,
		FailedDimensions: failed,
		DecidedAt:        time.Now().UTC(),
	}
}
