// Package reportdiff compares two trust-debt reports: category movement,
// derived per-dimension score deltas, and the aggregate shift. It answers
// "what changed since the last grading" for the diff subcommand and the
// watch daemon's change summaries.
package reportdiff

import (
	"sort"
	"time"

	"github.com/wiber/intentguard/internal/dimension"
	"github.com/wiber/intentguard/internal/trustdebt"
)

// CategoryChange describes one category's movement between two reports.
type CategoryChange struct {
	Type     string  `json:"type"` // "added", "removed", "changed"
	Category string  `json:"category"`
	OldUnits float64 `json:"old_units,omitempty"`
	NewUnits float64 `json:"new_units,omitempty"`
	OldGrade string  `json:"old_grade,omitempty"`
	NewGrade string  `json:"new_grade,omitempty"`
	Comment  string  `json:"comment,omitempty"`
}

// DimensionChange is a derived per-dimension score delta.
type DimensionChange struct {
	Dimension string  `json:"dimension"`
	Old       float64 `json:"old"`
	New       float64 `json:"new"`
	Delta     float64 `json:"delta"`
}

// DiffResult holds the comparison of two trust reports.
type DiffResult struct {
	OldGeneratedAt time.Time         `json:"old_generated_at"`
	NewGeneratedAt time.Time         `json:"new_generated_at"`
	OldUnits       float64           `json:"old_units"`
	NewUnits       float64           `json:"new_units"`
	UnitsDelta     float64           `json:"units_delta"`
	OldGrade       string            `json:"old_grade"`
	NewGrade       string            `json:"new_grade"`
	OldAggregate   float64           `json:"old_aggregate"`
	NewAggregate   float64           `json:"new_aggregate"`
	AggregateDelta float64           `json:"aggregate_delta"`
	Categories     []CategoryChange  `json:"categories,omitempty"`
	Dimensions     []DimensionChange `json:"dimensions,omitempty"`
	HasChanges     bool              `json:"has_changes"`
}

// Diff compares two trust reports and returns the differences.
func Diff(old, new *trustdebt.Report) *DiffResult {
	r := &DiffResult{
		OldGeneratedAt: old.GeneratedAt,
		NewGeneratedAt: new.GeneratedAt,
		OldUnits:       old.TotalUnits,
		NewUnits:       new.TotalUnits,
		UnitsDelta:     new.TotalUnits - old.TotalUnits,
		OldGrade:       gradeOf(old),
		NewGrade:       gradeOf(new),
		OldAggregate:   trustdebt.BandScore(old.TotalUnits),
		NewAggregate:   trustdebt.BandScore(new.TotalUnits),
	}
	r.AggregateDelta = r.NewAggregate - r.OldAggregate

	diffCategories(r, old, new)
	diffDimensions(r, old, new)

	r.HasChanges = r.UnitsDelta != 0 || r.OldGrade != r.NewGrade ||
		len(r.Categories) > 0 || len(r.Dimensions) > 0
	return r
}

func gradeOf(rep *trustdebt.Report) string {
	if rep.Grade != "" {
		return rep.Grade
	}
	return trustdebt.GradeForUnits(rep.TotalUnits)
}

func categoryGrade(cat trustdebt.Category) string {
	if cat.Grade != "" {
		return cat.Grade
	}
	return trustdebt.GradeForUnits(cat.Units)
}

func unitsComment(oldUnits, newUnits float64) string {
	if newUnits < oldUnits {
		return "improved"
	}
	return "regressed"
}

func diffCategories(r *DiffResult, old, new *trustdebt.Report) {
	names := map[string]bool{}
	for name := range old.Categories {
		names[name] = true
	}
	for name := range new.Categories {
		names[name] = true
	}
	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	for _, name := range sorted {
		oldCat, inOld := old.Categories[name]
		newCat, inNew := new.Categories[name]
		switch {
		case inOld && inNew:
			if oldCat.Units == newCat.Units && categoryGrade(oldCat) == categoryGrade(newCat) {
				continue
			}
			r.Categories = append(r.Categories, CategoryChange{
				Type:     "changed",
				Category: name,
				OldUnits: oldCat.Units,
				NewUnits: newCat.Units,
				OldGrade: categoryGrade(oldCat),
				NewGrade: categoryGrade(newCat),
				Comment:  unitsComment(oldCat.Units, newCat.Units),
			})
		case inNew:
			r.Categories = append(r.Categories, CategoryChange{
				Type:     "added",
				Category: name,
				NewUnits: newCat.Units,
				NewGrade: categoryGrade(newCat),
			})
		default:
			r.Categories = append(r.Categories, CategoryChange{
				Type:     "removed",
				Category: name,
				OldUnits: oldCat.Units,
				OldGrade: categoryGrade(oldCat),
			})
		}
	}
}

func diffDimensions(r *DiffResult, old, new *trustdebt.Report) {
	oldScores := trustdebt.DimensionScores(old)
	newScores := trustdebt.DimensionScores(new)
	for _, dim := range dimension.Names() {
		o, n := oldScores[dim], newScores[dim]
		if o == n {
			continue
		}
		r.Dimensions = append(r.Dimensions, DimensionChange{
			Dimension: dim,
			Old:       o,
			New:       n,
			Delta:     n - o,
		})
	}
}
