package reportdiff

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// FormatText renders the diff result as human-readable text.
func FormatText(r *DiffResult) string {
	header := fmt.Sprintf("Trust report diff: %s → %s\n",
		formatStamp(r.OldGeneratedAt), formatStamp(r.NewGeneratedAt))
	if !r.HasChanges {
		return header + "\nNo changes detected.\n"
	}

	var b strings.Builder
	b.WriteString(header)

	b.WriteString("\n")
	if r.UnitsDelta != 0 {
		fmt.Fprintf(&b, "  %-24s %s → %s  (%s)\n", "total_units:",
			formatUnits(r.OldUnits), formatUnits(r.NewUnits),
			unitsComment(r.OldUnits, r.NewUnits))
	}
	if r.OldGrade != r.NewGrade {
		fmt.Fprintf(&b, "  %-24s %s → %s\n", "grade:", r.OldGrade, r.NewGrade)
	}
	if r.AggregateDelta != 0 {
		fmt.Fprintf(&b, "  %-24s %.3f → %.3f  (%+.3f)\n", "aggregate:",
			r.OldAggregate, r.NewAggregate, r.AggregateDelta)
	}

	if len(r.Categories) > 0 {
		b.WriteString("\n  Categories:\n")
		for _, c := range r.Categories {
			switch c.Type {
			case "added":
				fmt.Fprintf(&b, "    + %-22s %s units (%s)\n",
					c.Category+":", formatUnits(c.NewUnits), c.NewGrade)
			case "removed":
				fmt.Fprintf(&b, "    - %-22s was %s units (%s)\n",
					c.Category+":", formatUnits(c.OldUnits), c.OldGrade)
			case "changed":
				fmt.Fprintf(&b, "    ~ %-22s %s → %s units, %s → %s  (%s)\n",
					c.Category+":", formatUnits(c.OldUnits), formatUnits(c.NewUnits),
					c.OldGrade, c.NewGrade, c.Comment)
			}
		}
	}

	if len(r.Dimensions) > 0 {
		b.WriteString("\n  Dimensions:\n")
		for _, d := range r.Dimensions {
			fmt.Fprintf(&b, "    %-20s %.3f → %.3f  (%+.3f)\n",
				d.Dimension+":", d.Old, d.New, d.Delta)
		}
	}

	return b.String()
}

// FormatJSON renders the diff result as JSON.
func FormatJSON(r *DiffResult) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal diff result: %w", err)
	}
	return string(data), nil
}

func formatStamp(t time.Time) string {
	if t.IsZero() {
		return "(undated)"
	}
	return t.Format("2006-01-02 15:04")
}

func formatUnits(u float64) string {
	return fmt.Sprintf("%g", u)
}
