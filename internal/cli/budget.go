package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/wiber/intentguard/internal/budget"
	"github.com/wiber/intentguard/internal/identity"
)

var budgetSpent float64

func init() {
	rootCmd.AddCommand(budgetCmd)
	budgetCmd.AddCommand(budgetStatusCmd)
	budgetStatusCmd.Flags().Float64Var(&budgetSpent, "spent", 0, "Dollars already spent today, classified against the limit")
}

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Trust-derived spending authority",
	Long:  "Maps the subject's aggregate trust score onto a daily spending limit\nand an ordinal authority level.",
}

var budgetStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the subject's spending authority",
	RunE:  runBudgetStatus,
}

func runBudgetStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadEngineConfig()
	if err != nil {
		return err
	}

	id := identity.NewLoader(cfg.ReportPath, 0).Load(flagSubject)
	mapper := budget.NewMapper(cfg.Budget.Floor, cfg.Budget.Ceiling)
	auth := mapper.Authority(id.AggregateScore)

	fmt.Printf("Subject:      %s\n", flagSubject)
	fmt.Printf("Aggregate:    %.3f\n", auth.Score)
	fmt.Printf("Daily limit:  $%s\n", humanize.CommafWithDigits(auth.DailyLimit, 2))
	fmt.Printf("Level:        %s\n", auth.Level)
	if auth.NextLevel != "" {
		fmt.Printf("Next level:   %s (+%.3f aggregate)\n", auth.NextLevel, auth.MarginToNext)
	}

	if cmd.Flags().Changed("spent") {
		usage := budget.Classify(budgetSpent, auth.DailyLimit)
		fmt.Println()
		fmt.Printf("Spent:        $%s of $%s (%.0f%%)\n",
			humanize.CommafWithDigits(usage.Spent, 2),
			humanize.CommafWithDigits(usage.Limit, 2), usage.Ratio*100)
		fmt.Printf("Remaining:    $%s\n", humanize.CommafWithDigits(usage.Remaining, 2))
		fmt.Printf("Status:       %s\n", usage.Status)
	}
	return nil
}
