package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/wiber/intentguard/internal/scenario"
)

var (
	verifyScenario string
	verifyRegistry string
	verifyFormat   string
)

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().StringVar(&verifyScenario, "scenario", "", "Glob pattern for scenario YAML files (required)")
	verifyCmd.Flags().StringVar(&verifyRegistry, "registry", "", "Path to requirements YAML (default: built-in registry)")
	verifyCmd.Flags().StringVarP(&verifyFormat, "format", "f", "text", "Output format (text|json)")
	verifyCmd.MarkFlagRequired("scenario")
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run permission assertions from scenario files",
	Long: "Loads scenario YAML files matching a glob pattern, evaluates each case\n" +
		"through the permission predicate, and reports pass/fail. Nothing is\n" +
		"written to any ledger.\n\n" +
		"Exit code 0 if all cases pass, 1 if any fail.\n" +
		"Use in CI to gate requirement changes on expected decisions.",
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	matches, err := filepath.Glob(verifyScenario)
	if err != nil {
		return fmt.Errorf("invalid glob pattern: %w", err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("no scenario files match pattern: %s", verifyScenario)
	}

	var results []*scenario.RunResult
	for _, path := range matches {
		r, err := scenario.LoadAndRun(path, verifyRegistry)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		results = append(results, r)
	}

	switch verifyFormat {
	case "json":
		out, err := scenario.FormatJSON(results)
		if err != nil {
			return err
		}
		fmt.Println(out)
	default:
		fmt.Print(scenario.FormatText(results))
	}

	for _, r := range results {
		if r.Failed > 0 {
			os.Exit(1)
		}
	}

	return nil
}
