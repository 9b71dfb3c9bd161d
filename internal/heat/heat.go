// Package heat maintains the usage-heat side channel: per-cell task and
// denial counters with a coarse temperature tier, persisted to a small JSON
// state file. Heat is visualization only. It is updated strictly after a
// decision and never feeds back into one.
package heat

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Tier is a cell's coarse activity temperature.
type Tier string

const (
	TierDormant Tier = "dormant"
	TierActive  Tier = "active"
	TierHot     Tier = "hot"
)

// Promotion and demotion counter thresholds. Counters reset on every tier
// change, so tiers move one step at a time.
const (
	PromoteAfterTasks  = 3
	DemoteAfterDenials = 5
)

// Cell is one tracked action/caller bucket.
type Cell struct {
	TaskCount   int  `json:"task_count"`
	DenialCount int  `json:"denial_count"`
	Tier        Tier `json:"tier"`
}

// State is the on-disk document.
type State struct {
	UpdatedAt time.Time       `json:"updated_at"`
	Cells     map[string]Cell `json:"cells"`
}

// Tracker owns one heat state file. All updates are read-modify-write under
// the tracker's mutex; the tracker is the single writer for its file.
type Tracker struct {
	path  string
	mu    sync.Mutex
	state State
}

// NewTracker loads (or initializes) the heat state at path. Heat is not
// precious: a missing or malformed file just starts empty.
func NewTracker(path string) *Tracker {
	t := &Tracker{path: path, state: State{Cells: make(map[string]Cell)}}
	data, err := os.ReadFile(path)
	if err != nil {
		return t
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil || s.Cells == nil {
		return t
	}
	t.state = s
	return t
}

// Path returns the state file location.
func (t *Tracker) Path() string { return t.path }

// RecordAllow counts a completed task for the cell and promotes it one tier
// once enough tasks accumulate.
func (t *Tracker) RecordAllow(cell string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	c := t.state.Cells[cell]
	if c.Tier == "" {
		c.Tier = TierDormant
	}
	c.TaskCount++
	if c.TaskCount >= PromoteAfterTasks && c.Tier != TierHot {
		c.Tier = promote(c.Tier)
		c.TaskCount = 0
		c.DenialCount = 0
	}
	t.state.Cells[cell] = c
	return t.persist()
}

// RecordDeny counts a denial for the cell and demotes it one tier once
// enough denials accumulate.
func (t *Tracker) RecordDeny(cell string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	c := t.state.Cells[cell]
	if c.Tier == "" {
		c.Tier = TierDormant
	}
	c.DenialCount++
	if c.DenialCount >= DemoteAfterDenials && c.Tier != TierDormant {
		c.Tier = demote(c.Tier)
		c.TaskCount = 0
		c.DenialCount = 0
	}
	t.state.Cells[cell] = c
	return t.persist()
}

// Cells returns a snapshot copy of the current cells.
func (t *Tracker) Cells() map[string]Cell {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]Cell, len(t.state.Cells))
	for k, v := range t.state.Cells {
		out[k] = v
	}
	return out
}

func promote(tier Tier) Tier {
	switch tier {
	case TierDormant:
		return TierActive
	default:
		return TierHot
	}
}

func demote(tier Tier) Tier {
	switch tier {
	case TierHot:
		return TierActive
	default:
		return TierDormant
	}
}

// persist writes the state atomically (tmp + rename) to prevent partial
// reads by visualizers. Callers hold t.mu.
func (t *Tracker) persist() error {
	t.state.UpdatedAt = time.Now().UTC()

	if err := os.MkdirAll(filepath.Dir(t.path), 0750); err != nil {
		return fmt.Errorf("heat: create state dir: %w", err)
	}
	data, err := json.MarshalIndent(t.state, "", "  ")
	if err != nil {
		return fmt.Errorf("heat: marshal state: %w", err)
	}
	tmpPath := t.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("heat: write temp: %w", err)
	}
	if err := os.Rename(tmpPath, t.path); err != nil {
		return fmt.Errorf("heat: rename: %w", err)
	}
	return nil
}
