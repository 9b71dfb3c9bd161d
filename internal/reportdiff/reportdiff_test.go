package reportdiff

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/wiber/intentguard/internal/trustdebt"
)

func report(day int, total float64, cats map[string]float64) *trustdebt.Report {
	rep := &trustdebt.Report{
		GeneratedAt: time.Date(2026, 3, day, 12, 0, 0, 0, time.UTC),
		TotalUnits:  total,
		Categories:  map[string]trustdebt.Category{},
	}
	for name, units := range cats {
		rep.Categories[name] = trustdebt.Category{Units: units}
	}
	return rep
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestIdenticalReportsNoChanges(t *testing.T) {
	a := report(1, 20000, map[string]float64{"security_governance": 10000})
	b := report(1, 20000, map[string]float64{"security_governance": 10000})

	r := Diff(a, b)
	if r.HasChanges {
		t.Errorf("expected no changes, got %d category + %d dimension changes",
			len(r.Categories), len(r.Dimensions))
	}
}

func TestUnitsAndGradeDelta(t *testing.T) {
	a := report(1, 20000, nil)
	b := report(8, 9000, nil)

	r := Diff(a, b)
	if !r.HasChanges {
		t.Fatal("expected changes")
	}
	if r.UnitsDelta != -11000 {
		t.Errorf("expected units delta -11000, got %v", r.UnitsDelta)
	}
	if r.OldGrade != "C" || r.NewGrade != "B" {
		t.Errorf("expected grade C→B, got %s→%s", r.OldGrade, r.NewGrade)
	}
	wantDelta := trustdebt.BandScore(9000) - trustdebt.BandScore(20000)
	if !approx(r.AggregateDelta, wantDelta) {
		t.Errorf("expected aggregate delta %v, got %v", wantDelta, r.AggregateDelta)
	}
}

func TestReportedGradePreferred(t *testing.T) {
	a := report(1, 20000, nil)
	a.Grade = "B" // grader's call wins over the computed letter
	b := report(8, 20000, nil)

	r := Diff(a, b)
	if r.OldGrade != "B" {
		t.Errorf("expected reported grade B, got %s", r.OldGrade)
	}
	if r.NewGrade != "C" {
		t.Errorf("expected computed grade C, got %s", r.NewGrade)
	}
}

func TestCategoryMovementClassified(t *testing.T) {
	a := report(1, 20000, map[string]float64{
		"security_governance": 10000,
		"runtime_health":      5000,
		"engineering_quality": 3000,
	})
	b := report(8, 9000, map[string]float64{
		"security_governance":  2500,
		"runtime_health":       5000,
		"interface_experience": 1000,
	})

	r := Diff(a, b)
	if !r.HasChanges {
		t.Fatal("expected changes")
	}
	if len(r.Categories) != 3 {
		t.Fatalf("expected 3 category changes, got %d: %+v", len(r.Categories), r.Categories)
	}

	// Sorted by name: engineering_quality, interface_experience, security_governance.
	removed := r.Categories[0]
	if removed.Type != "removed" || removed.Category != "engineering_quality" {
		t.Errorf("expected engineering_quality removed, got %+v", removed)
	}
	if removed.OldUnits != 3000 || removed.OldGrade != "B" {
		t.Errorf("expected removed 3000 units grade B, got %+v", removed)
	}

	added := r.Categories[1]
	if added.Type != "added" || added.Category != "interface_experience" {
		t.Errorf("expected interface_experience added, got %+v", added)
	}
	if added.NewUnits != 1000 || added.NewGrade != "A" {
		t.Errorf("expected added 1000 units grade A, got %+v", added)
	}

	changed := r.Categories[2]
	if changed.Type != "changed" || changed.Category != "security_governance" {
		t.Errorf("expected security_governance changed, got %+v", changed)
	}
	if changed.OldUnits != 10000 || changed.NewUnits != 2500 {
		t.Errorf("expected 10000→2500 units, got %v→%v", changed.OldUnits, changed.NewUnits)
	}
	if changed.OldGrade != "C" || changed.NewGrade != "A" {
		t.Errorf("expected C→A, got %s→%s", changed.OldGrade, changed.NewGrade)
	}
	if changed.Comment != "improved" {
		t.Errorf("expected 'improved', got %q", changed.Comment)
	}
}

func TestUnchangedCategorySkipped(t *testing.T) {
	a := report(1, 8000, map[string]float64{"runtime_health": 5000, "security_governance": 3000})
	b := report(8, 8000, map[string]float64{"runtime_health": 5000, "security_governance": 2000})

	r := Diff(a, b)
	for _, c := range r.Categories {
		if c.Category == "runtime_health" {
			t.Errorf("unchanged category listed: %+v", c)
		}
	}
}

func TestDimensionDeltasDerived(t *testing.T) {
	a := report(1, 20000, map[string]float64{
		"security_governance": 10000,
		"runtime_health":      5000,
		"engineering_quality": 3000,
	})
	b := report(8, 9000, map[string]float64{
		"security_governance":  2500,
		"runtime_health":       5000,
		"interface_experience": 1000,
	})

	r := Diff(a, b)

	// security_governance moved (3 dims), engineering_quality dropped to
	// neutral (4 dims), interface_experience appeared (3 dims). The
	// runtime_health dims and everything defaulted on both sides stay out.
	if len(r.Dimensions) != 10 {
		t.Fatalf("expected 10 dimension changes, got %d: %+v", len(r.Dimensions), r.Dimensions)
	}

	byName := map[string]DimensionChange{}
	for _, d := range r.Dimensions {
		byName[d.Dimension] = d
	}
	if _, ok := byName["reliability"]; ok {
		t.Error("reliability did not move but is listed")
	}

	sec, ok := byName["security"]
	if !ok {
		t.Fatal("security change not found")
	}
	wantSec := trustdebt.BandScore(2500) - trustdebt.BandScore(10000)
	if !approx(sec.Delta, wantSec) {
		t.Errorf("expected security delta %v, got %v", wantSec, sec.Delta)
	}

	testDim, ok := byName["testing"]
	if !ok {
		t.Fatal("testing change not found")
	}
	wantTesting := trustdebt.NeutralScore - trustdebt.BandScore(3000)
	if !approx(testDim.Delta, wantTesting) {
		t.Errorf("expected testing delta %v, got %v", wantTesting, testDim.Delta)
	}

	usability, ok := byName["usability"]
	if !ok {
		t.Fatal("usability change not found")
	}
	wantUsability := trustdebt.BandScore(1000) - trustdebt.NeutralScore
	if !approx(usability.Delta, wantUsability) {
		t.Errorf("expected usability delta %v, got %v", wantUsability, usability.Delta)
	}
}

func TestFormatTextListsSections(t *testing.T) {
	a := report(1, 20000, map[string]float64{
		"security_governance": 10000,
		"engineering_quality": 3000,
	})
	b := report(8, 9000, map[string]float64{
		"security_governance":  2500,
		"interface_experience": 1000,
	})

	out := FormatText(Diff(a, b))
	for _, want := range []string{
		"Trust report diff: 2026-03-01 12:00 → 2026-03-08 12:00",
		"total_units:",
		"grade:",
		"Categories:",
		"~ security_governance:",
		"+ interface_experience:",
		"- engineering_quality:",
		"(improved)",
		"Dimensions:",
		"security:",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatTextNoChanges(t *testing.T) {
	a := report(1, 5000, map[string]float64{"runtime_health": 5000})
	b := report(1, 5000, map[string]float64{"runtime_health": 5000})

	out := FormatText(Diff(a, b))
	if !strings.Contains(out, "No changes detected.") {
		t.Errorf("expected no-changes notice, got:\n%s", out)
	}
}

func TestFormatJSON(t *testing.T) {
	a := report(1, 20000, nil)
	b := report(8, 9000, nil)

	out, err := FormatJSON(Diff(a, b))
	if err != nil {
		t.Fatalf("FormatJSON: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["has_changes"] != true {
		t.Errorf("expected has_changes true, got %v", decoded["has_changes"])
	}
}
