package trustdebt

import "math"

// DenialsToNearZero solves the decay equation for the denial count that
// drags raw down to floor: the smallest n with raw·(1-k)^n <= floor.
// Returns 0 when raw is already at or below floor, and -1 when the floor is
// unreachable (k <= 0, or floor <= 0 since the decay never hits zero).
func DenialsToNearZero(raw, k, floor float64) int {
	if raw <= floor {
		return 0
	}
	if k >= 1 {
		return 1
	}
	if k <= 0 || floor <= 0 {
		return -1
	}
	n := math.Log(floor/raw) / math.Log(1-k)
	return int(math.Ceil(n))
}

// GradeForecast describes the debt reduction needed to reach the next
// better grade band.
type GradeForecast struct {
	TargetGrade   string  `json:"target_grade"`
	UnitsToReduce float64 `json:"units_to_reduce"`
	AggregateGain float64 `json:"aggregate_gain"`
}

// UnitsToNextGrade returns how many debt units must be shed to reach the
// next better grade boundary, and the raw aggregate gain that reduction
// buys (Δunits/maxUnits). ok is false when already in the best band.
func UnitsToNextGrade(units, maxUnits float64) (GradeForecast, bool) {
	if maxUnits <= 0 {
		maxUnits = DefaultMaxUnits
	}
	if units < 0 {
		units = 0
	}
	current := GradeForUnits(units)
	if current == bands[0].grade {
		return GradeForecast{}, false
	}
	for i := 1; i < len(bands); i++ {
		if bands[i].grade != current {
			continue
		}
		// Units past the end of the curve still forecast against their
		// band's lower boundary.
		delta := units - bands[i].loUnits
		return GradeForecast{
			TargetGrade:   bands[i-1].grade,
			UnitsToReduce: delta,
			AggregateGain: delta / maxUnits,
		}, true
	}
	return GradeForecast{}, false
}
