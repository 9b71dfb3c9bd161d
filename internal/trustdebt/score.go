package trustdebt

import "math"

const (
	// DefaultMaxUnits is the debt level at which raw trust reaches zero.
	DefaultMaxUnits = 50000.0

	// DefaultDecayRate is the per-denial multiplicative erosion factor k:
	// each consecutive denial multiplies trust by (1-k).
	DefaultDecayRate = 0.003

	// NeutralScore is assigned to dimensions no report category touches.
	NeutralScore = 0.5
)

// band is one segment of the units-to-score curve. Scores interpolate
// linearly from hi at lo-units down to lo-score at hi-units, so the curve
// is continuous across bands.
type band struct {
	grade    string
	loUnits  float64
	hiUnits  float64
	hiScore  float64
	loScore  float64
}

var bands = []band{
	{"A", 0, 3000, 1.0, 0.9},
	{"B", 3000, 10000, 0.9, 0.7},
	{"C", 10000, 30000, 0.7, 0.4},
	{"D", 30000, 50000, 0.4, 0.0},
}

// RawScore maps debt units linearly onto [0,1]: zero debt is full trust,
// maxUnits or more is none. Non-positive maxUnits falls back to the default.
func RawScore(units, maxUnits float64) float64 {
	if maxUnits <= 0 {
		maxUnits = DefaultMaxUnits
	}
	score := 1 - units/maxUnits
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// DriftDecay erodes a raw score by a denial streak: raw × (1-k)^denials.
// Zero denials returns raw exactly; negative counts are treated as zero;
// k outside (0,1) means no decay or total decay respectively.
func DriftDecay(raw float64, denials int, k float64) float64 {
	if denials <= 0 || k <= 0 {
		return raw
	}
	if k >= 1 {
		return 0
	}
	return raw * math.Pow(1-k, float64(denials))
}

// BandScore maps debt units onto [0,1] through the piecewise-linear grade
// curve: fine-grained inside each letter grade's unit sub-range instead of
// a flat per-letter constant. Units beyond the last band score 0.
func BandScore(units float64) float64 {
	if units < 0 {
		units = 0
	}
	for _, b := range bands {
		if units < b.hiUnits {
			frac := (units - b.loUnits) / (b.hiUnits - b.loUnits)
			return b.hiScore - frac*(b.hiScore-b.loScore)
		}
	}
	return 0
}

// UnitsForScore inverts the band curve: the debt units at which BandScore
// equals s. The curve is strictly decreasing on [0, 50000], so the inverse
// is unique; out-of-range scores clamp to the curve's endpoints.
func UnitsForScore(s float64) float64 {
	if s >= 1 {
		return 0
	}
	if s <= 0 {
		return bands[len(bands)-1].hiUnits
	}
	for _, b := range bands {
		if s <= b.hiScore && s > b.loScore {
			frac := (b.hiScore - s) / (b.hiScore - b.loScore)
			return b.loUnits + frac*(b.hiUnits-b.loUnits)
		}
	}
	return bands[len(bands)-1].hiUnits
}

// GradeForUnits returns the letter grade of a unit count. Anything at or
// beyond the last band boundary is still a D.
func GradeForUnits(units float64) string {
	if units < 0 {
		units = 0
	}
	for _, b := range bands {
		if units < b.hiUnits {
			return b.grade
		}
	}
	return "D"
}
