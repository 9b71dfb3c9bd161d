// Package trustdebt turns periodic trust-debt reports into trust scores:
// raw and denial-decayed aggregates, per-dimension extraction through the
// category taxonomy, and pure forecasting helpers.
//
// Everything here is side-effect-free; reading the report file is the only
// I/O and it lives in LoadReport.
package trustdebt

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Category is one coarse external category in a trust-debt report.
type Category struct {
	Units float64 `json:"units"`
	Grade string  `json:"grade"`
}

// Report is the periodic trust-debt document produced by an external
// grader. Total units drive the aggregate score; categories drive the
// per-dimension extraction.
type Report struct {
	GeneratedAt time.Time           `json:"generated_at"`
	TotalUnits  float64             `json:"total_units"`
	Grade       string              `json:"grade"`
	Categories  map[string]Category `json:"categories"`
}

// LoadReport reads and validates a trust-debt report. Callers treat any
// error as "no usable report" and fall back to the default identity.
func LoadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trust report: %w", err)
	}
	var rep Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("failed to parse trust report %s: %w", path, err)
	}
	if err := rep.Validate(); err != nil {
		return nil, fmt.Errorf("trust report %s: %w", path, err)
	}
	return &rep, nil
}

// Validate rejects reports that cannot be scored.
func (r *Report) Validate() error {
	if r.TotalUnits < 0 {
		return fmt.Errorf("negative total_units %v", r.TotalUnits)
	}
	for name, cat := range r.Categories {
		if cat.Units < 0 {
			return fmt.Errorf("category %q: negative units %v", name, cat.Units)
		}
	}
	return nil
}
