package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wiber/intentguard/internal/reportdiff"
	"github.com/wiber/intentguard/internal/trustdebt"
)

var diffFormat string

func init() {
	rootCmd.AddCommand(diffCmd)
	diffCmd.Flags().StringVarP(&diffFormat, "format", "f", "text", "Output format (text|json)")
}

var diffCmd = &cobra.Command{
	Use:   "diff <old-report> <new-report>",
	Short: "Compare two trust-debt reports",
	Long:  "Loads two trust reports and shows what moved between gradings: total\nunits, grade, derived aggregate, category movement, and dimension deltas.",
	Args:  cobra.ExactArgs(2),
	RunE:  runDiff,
}

func runDiff(cmd *cobra.Command, args []string) error {
	oldRep, err := trustdebt.LoadReport(args[0])
	if err != nil {
		return fmt.Errorf("load old report: %w", err)
	}

	newRep, err := trustdebt.LoadReport(args[1])
	if err != nil {
		return fmt.Errorf("load new report: %w", err)
	}

	result := reportdiff.Diff(oldRep, newRep)

	switch diffFormat {
	case "json":
		out, err := reportdiff.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Println(out)
	default:
		fmt.Print(reportdiff.FormatText(result))
	}

	return nil
}
