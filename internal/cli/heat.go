package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/wiber/intentguard/internal/heat"
)

func init() {
	rootCmd.AddCommand(heatCmd)
}

var heatCmd = &cobra.Command{
	Use:   "heat",
	Short: "Show the activity heat map",
	Long: "Lists every tracked caller/action cell with its tier. Cells heat up\n" +
		"through completed tasks and cool down through denials; hot cells are\n" +
		"where the subject's autonomy is actually exercised.",
	RunE: runHeat,
}

// tierRank orders tiers hottest first for display.
var tierRank = map[heat.Tier]int{
	heat.TierHot:     0,
	heat.TierActive:  1,
	heat.TierDormant: 2,
}

func runHeat(cmd *cobra.Command, args []string) error {
	cfg, err := loadEngineConfig()
	if err != nil {
		return err
	}

	cells := heat.NewTracker(cfg.HeatPath).Cells()
	if len(cells) == 0 {
		fmt.Println("No activity tracked yet.")
		return nil
	}

	names := make([]string, 0, len(cells))
	for name := range cells {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := cells[names[i]], cells[names[j]]
		if tierRank[a.Tier] != tierRank[b.Tier] {
			return tierRank[a.Tier] < tierRank[b.Tier]
		}
		if a.TaskCount != b.TaskCount {
			return a.TaskCount > b.TaskCount
		}
		return names[i] < names[j]
	})

	fmt.Printf("%-40s %-8s %-7s %s\n", "CELL", "TIER", "TASKS", "DENIALS")
	for _, name := range names {
		c := cells[name]
		fmt.Printf("%-40s %-8s %-7d %d\n", name, c.Tier, c.TaskCount, c.DenialCount)
	}
	return nil
}
