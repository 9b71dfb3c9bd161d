package stability

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/google/uuid"
)

// Default assessment parameters.
const (
	DefaultWindow = 30
	DefaultBand   = 0.05
)

// Trend parameters: mean of the last trendSpan measurements against the
// previous trendSpan, with a dead zone below which movement reads as steady.
const (
	trendSpan     = 7
	trendDeadZone = 0.005
)

// Trend directions.
const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendSteady    = "steady"
)

// Assessment is the verdict over the trailing measurement window.
type Assessment struct {
	Stable    bool    `json:"stable"`
	Window    int     `json:"window"`
	Band      float64 `json:"band"`
	Mean      float64 `json:"mean"`
	StableRun int     `json:"stable_run"`
	Samples   int     `json:"samples"`
}

// Trend summarizes the recent direction of the aggregate score.
type Trend struct {
	Direction string  `json:"direction"`
	Delta     float64 `json:"delta"`
	Strength  float64 `json:"strength"`
	Samples   int     `json:"samples"`
}

// Config holds monitor parameters and side-effect callbacks. OnArtifact
// returns a reference (a path, a URL) to whatever it produced.
type Config struct {
	Window     int
	Band       float64
	OnArtifact func(Milestone) (string, error)
	OnNotify   func(Milestone) error
}

// Monitor evaluates stability over a store of measurements and fires
// milestone side effects exactly once per qualifying window.
type Monitor struct {
	store      *Store
	window     int
	band       float64
	onArtifact func(Milestone) (string, error)
	onNotify   func(Milestone) error
}

// NewMonitor wraps a store with assessment parameters. Zero config values
// fall back to package defaults.
func NewMonitor(store *Store, cfg Config) *Monitor {
	if cfg.Window < 2 {
		cfg.Window = DefaultWindow
	}
	if cfg.Band <= 0 {
		cfg.Band = DefaultBand
	}
	return &Monitor{
		store:      store,
		window:     cfg.Window,
		band:       cfg.Band,
		onArtifact: cfg.OnArtifact,
		onNotify:   cfg.OnNotify,
	}
}

// Record appends a measurement, evaluates the trailing window, and fires
// the milestone side effects when the window first qualifies. Callback
// failures never surface as errors; they are recorded on the milestone row.
func (mon *Monitor) Record(m Measurement) (Assessment, error) {
	if m.ObservedAt.IsZero() {
		m.ObservedAt = time.Now().UTC()
	}
	if _, err := mon.store.AppendMeasurement(m); err != nil {
		return Assessment{}, err
	}

	recent, err := mon.store.Recent(mon.fetchDepth())
	if err != nil {
		return Assessment{}, err
	}
	assess := assessWindow(recent, mon.window, mon.band)
	if assess.Stable {
		if err := mon.milestone(recent[len(recent)-mon.window:], assess); err != nil {
			return assess, err
		}
	}
	return assess, nil
}

// Assess evaluates the trailing window without writing anything.
func (mon *Monitor) Assess() (Assessment, error) {
	recent, err := mon.store.Recent(mon.fetchDepth())
	if err != nil {
		return Assessment{}, err
	}
	return assessWindow(recent, mon.window, mon.band), nil
}

// Trend compares the mean of the last seven measurements against the
// previous seven. With fewer than fourteen samples the direction is steady.
func (mon *Monitor) Trend() (Trend, error) {
	recent, err := mon.store.Recent(2 * trendSpan)
	if err != nil {
		return Trend{}, err
	}
	return trendOf(recent, mon.band), nil
}

// Milestones lists every recorded milestone, oldest first.
func (mon *Monitor) Milestones() ([]Milestone, error) {
	return mon.store.Milestones()
}

// fetchDepth reaches past the window so StableRun can report runs longer
// than one window.
func (mon *Monitor) fetchDepth() int {
	depth := mon.window * 4
	if depth < 60 {
		depth = 60
	}
	return depth
}

// milestone persists a milestone for the qualifying window unless one
// already fired within it, then runs both callbacks in their own recover
// boundaries and records the outcomes. The recency guard compares
// measurement ids, so it holds regardless of clock resolution.
func (mon *Monitor) milestone(window []Measurement, assess Assessment) error {
	last, err := mon.store.LatestMilestone()
	if err != nil {
		return err
	}
	if last != nil && last.MeasurementID >= window[0].ID {
		return nil
	}

	first, latest := window[0], window[len(window)-1]
	ms := Milestone{
		ID:             uuid.NewString(),
		MeasurementID:  latest.ID,
		AchievedAt:     time.Now().UTC(),
		AggregateScore: assess.Mean,
		StableDays:     latest.ObservedAt.Sub(first.ObservedAt).Hours() / 24,
	}
	if err := mon.store.InsertMilestone(ms); err != nil {
		return err
	}

	var artifactRef string
	artifactGenerated := false
	if mon.onArtifact != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					fmt.Fprintf(os.Stderr, "stability: artifact callback panicked: %v\n", r)
				}
			}()
			ref, err := mon.onArtifact(ms)
			if err != nil {
				fmt.Fprintf(os.Stderr, "stability: artifact callback failed: %v\n", err)
				return
			}
			artifactGenerated, artifactRef = true, ref
		}()
	}

	notificationSent := false
	if mon.onNotify != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					fmt.Fprintf(os.Stderr, "stability: notify callback panicked: %v\n", r)
				}
			}()
			if err := mon.onNotify(ms); err != nil {
				fmt.Fprintf(os.Stderr, "stability: notify callback failed: %v\n", err)
				return
			}
			notificationSent = true
		}()
	}

	return mon.store.SetMilestoneOutcome(ms.ID, artifactGenerated, artifactRef, notificationSent)
}

// assessWindow computes the trailing-window verdict over chronologically
// ordered measurements. Stable is only defined once a full window exists.
func assessWindow(ms []Measurement, window int, band float64) Assessment {
	a := Assessment{Window: window, Band: band, Samples: len(ms), StableRun: stableRun(ms, band)}
	if len(ms) < window {
		return a
	}
	tail := ms[len(ms)-window:]
	mean := meanScore(tail)
	a.Mean = mean
	a.Stable = allWithin(tail, mean, band)
	return a
}

// stableRun finds the longest suffix whose measurements all lie within
// ±band of that suffix's own mean.
func stableRun(ms []Measurement, band float64) int {
	for k := len(ms); k >= 1; k-- {
		tail := ms[len(ms)-k:]
		if allWithin(tail, meanScore(tail), band) {
			return k
		}
	}
	return 0
}

func trendOf(ms []Measurement, band float64) Trend {
	t := Trend{Direction: TrendSteady, Samples: len(ms)}
	if len(ms) < 2*trendSpan {
		return t
	}
	last := meanScore(ms[len(ms)-trendSpan:])
	prev := meanScore(ms[len(ms)-2*trendSpan : len(ms)-trendSpan])
	t.Delta = last - prev
	if math.Abs(t.Delta) <= trendDeadZone {
		return t
	}
	if t.Delta > 0 {
		t.Direction = TrendImproving
	} else {
		t.Direction = TrendDeclining
	}
	t.Strength = math.Min(math.Abs(t.Delta)/band, 1)
	return t
}

func meanScore(ms []Measurement) float64 {
	if len(ms) == 0 {
		return 0
	}
	sum := 0.0
	for _, m := range ms {
		sum += m.AggregateScore
	}
	return sum / float64(len(ms))
}

func allWithin(ms []Measurement, mean, band float64) bool {
	for _, m := range ms {
		if math.Abs(m.AggregateScore-mean) > band {
			return false
		}
	}
	return true
}
