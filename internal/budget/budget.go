// Package budget maps aggregate trust onto daily spending authority: a
// continuous quadratic limit curve, ordinal authority levels, and budget
// status classification. Everything is pure computation; the actual
// spend-blocking gate belongs to the caller.
package budget

import "math"

// Default limit curve endpoints in dollars. The floor is never zero so
// operability is never fully revoked.
const (
	DefaultFloor   = 1.0
	DefaultCeiling = 100.0
)

// Level is an ordinal authority band over the aggregate score.
type Level string

const (
	LevelRestricted Level = "restricted"
	LevelStandard   Level = "standard"
	LevelTrusted    Level = "trusted"
	LevelAutonomous Level = "autonomous"
)

// levelThresholds are the lower bounds of each level, ascending.
var levelThresholds = []struct {
	min   float64
	level Level
}{
	{0.0, LevelRestricted},
	{0.4, LevelStandard},
	{0.7, LevelTrusted},
	{0.9, LevelAutonomous},
}

// Mapper computes spending limits from trust scores for one configured
// floor/ceiling pair.
type Mapper struct {
	Floor   float64
	Ceiling float64
}

// NewMapper returns a mapper with the given curve endpoints. Nonsensical
// endpoints (ceiling not above floor, non-positive floor) fall back to the
// defaults.
func NewMapper(floor, ceiling float64) Mapper {
	if floor <= 0 || ceiling <= floor {
		return Mapper{Floor: DefaultFloor, Ceiling: DefaultCeiling}
	}
	return Mapper{Floor: floor, Ceiling: ceiling}
}

// clampScore forces a score into [0,1]. NaN maps to 0 so a corrupt score
// earns the floor, never the ceiling.
func clampScore(score float64) float64 {
	if math.IsNaN(score) || score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// DailyLimit maps a trust score onto a daily dollar limit:
// floor + (ceiling-floor)·score². Quadratic, so authority grows slowly at
// low trust and steeply near full trust. Inputs clamp to [0,1].
func (m Mapper) DailyLimit(score float64) float64 {
	s := clampScore(score)
	return m.Floor + (m.Ceiling-m.Floor)*s*s
}

// LevelFor returns the authority level of a score.
func LevelFor(score float64) Level {
	s := clampScore(score)
	level := levelThresholds[0].level
	for _, t := range levelThresholds {
		if s >= t.min {
			level = t.level
		}
	}
	return level
}

// MarginToNext returns the next level up and the score increase needed to
// reach it. ok is false when already autonomous.
func MarginToNext(score float64) (next Level, margin float64, ok bool) {
	s := clampScore(score)
	for _, t := range levelThresholds {
		if s < t.min {
			return t.level, t.min - s, true
		}
	}
	return "", 0, false
}

// Authority is the full computed spending authority for a score. It is
// derived on demand and never persisted.
type Authority struct {
	Score        float64 `json:"score"`
	DailyLimit   float64 `json:"daily_limit"`
	Level        Level   `json:"level"`
	NextLevel    Level   `json:"next_level,omitempty"`
	MarginToNext float64 `json:"margin_to_next,omitempty"`
}

// Authority computes the limit, level, and margin for a score.
func (m Mapper) Authority(score float64) Authority {
	s := clampScore(score)
	a := Authority{
		Score:      s,
		DailyLimit: m.DailyLimit(s),
		Level:      LevelFor(s),
	}
	if next, margin, ok := MarginToNext(s); ok {
		a.NextLevel = next
		a.MarginToNext = margin
	}
	return a
}

// Status classifies consumption against a limit.
type Status string

const (
	StatusOK       Status = "ok"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
	StatusExceeded Status = "exceeded"
)

// Usage is the classified state of a day's spend.
type Usage struct {
	Spent     float64 `json:"spent"`
	Limit     float64 `json:"limit"`
	Remaining float64 `json:"remaining"`
	Ratio     float64 `json:"ratio"`
	Status    Status  `json:"status"`
}

// Classify reports budget status for spent against limit: ok below 70%,
// warning from 70%, critical from 90%, exceeded above 100%. Remaining is
// floored at zero. A non-positive limit is exceeded by any positive spend.
func Classify(spent, limit float64) Usage {
	u := Usage{Spent: spent, Limit: limit}
	if limit <= 0 {
		if spent > 0 {
			u.Status = StatusExceeded
			u.Ratio = math.Inf(1)
		} else {
			u.Status = StatusOK
		}
		return u
	}
	u.Ratio = spent / limit
	if remaining := limit - spent; remaining > 0 {
		u.Remaining = remaining
	}
	switch {
	case u.Ratio > 1.0:
		u.Status = StatusExceeded
	case u.Ratio >= 0.9:
		u.Status = StatusCritical
	case u.Ratio >= 0.7:
		u.Status = StatusWarning
	default:
		u.Status = StatusOK
	}
	return u
}

// ScoreGainForLimit answers "how much more trust buys limit target": the
// minimum score increase for DailyLimit(score+gain) >= target. ok is false
// when the current score already meets the target. Targets above the
// ceiling clamp to it.
func (m Mapper) ScoreGainForLimit(score, target float64) (gain float64, ok bool) {
	s := clampScore(score)
	if target > m.Ceiling {
		target = m.Ceiling
	}
	if m.DailyLimit(s) >= target {
		return 0, false
	}
	needed := math.Sqrt((target - m.Floor) / (m.Ceiling - m.Floor))
	return needed - s, true
}
