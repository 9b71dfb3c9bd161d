package trustdebt

import (
	"sort"

	"github.com/wiber/intentguard/internal/dimension"
)

// TaxonomyVersion identifies the category-to-dimension table below. Bump it
// whenever the mapping changes so stored measurements stay interpretable.
const TaxonomyVersion = "1"

// taxonomy maps each coarse report category onto the internal dimensions it
// evidences. The table is the single source of truth for extraction: no
// string matching against category names anywhere else.
var taxonomy = map[string][]string{
	"security_governance":    {"security", "integrity", "confidentiality"},
	"runtime_health":         {"reliability", "availability", "error_handling", "monitoring"},
	"engineering_quality":    {"testing", "code_quality", "maintainability", "documentation"},
	"performance_efficiency": {"performance", "efficiency", "scalability"},
	"interface_experience":   {"usability", "communication", "compatibility"},
}

// defaultOnly lists dimensions no category evidences; they always carry
// NeutralScore. Kept explicit so the coverage test can prove the table
// reaches every dimension on purpose.
var defaultOnly = []string{"portability", "reusability", "flexibility"}

// Categories returns the known report category names, sorted.
func Categories() []string {
	out := make([]string, 0, len(taxonomy))
	for name := range taxonomy {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// DimensionsFor returns the dimensions a category evidences, or nil for an
// unknown category.
func DimensionsFor(category string) []string {
	dims, ok := taxonomy[category]
	if !ok {
		return nil
	}
	out := make([]string, len(dims))
	copy(out, dims)
	return out
}

// DefaultOnlyDimensions returns the dimensions that never receive report
// evidence.
func DefaultOnlyDimensions() []string {
	out := make([]string, len(defaultOnly))
	copy(out, defaultOnly)
	return out
}

// DimensionScores extracts per-dimension trust from a report: each
// dimension scores the mean of the band-curve scores of every report
// category that evidences it. Dimensions untouched by any present category
// stay at NeutralScore so unmapped requirements are not spuriously denied.
// Unknown categories in the report are ignored.
func DimensionScores(rep *Report) map[string]float64 {
	scores := make(map[string]float64, dimension.Count)
	for _, name := range dimension.Names() {
		scores[name] = NeutralScore
	}
	if rep == nil {
		return scores
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	for catName, cat := range rep.Categories {
		dims, ok := taxonomy[catName]
		if !ok {
			continue
		}
		score := BandScore(cat.Units)
		for _, dim := range dims {
			sums[dim] += score
			counts[dim]++
		}
	}
	for dim, n := range counts {
		scores[dim] = sums[dim] / float64(n)
	}
	return scores
}
