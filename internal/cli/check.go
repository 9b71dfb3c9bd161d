package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wiber/intentguard/internal/guard"
	"github.com/wiber/intentguard/internal/requirement"
)

var checkFormat string

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "text", "Output format (text|json)")
}

var checkCmd = &cobra.Command{
	Use:   "check <action>",
	Short: "Dry-run the permission predicate for one action",
	Long: "Evaluates whether the subject's current trust identity would clear the\n" +
		"action's requirement. Nothing is recorded: no ledger entry, no denial\n" +
		"counters, no heat. Exit code 1 means the action would be denied.",
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadEngineConfig()
	if err != nil {
		return err
	}

	// A dry run must leave no trace: side-effect paths stay empty.
	gcfg := guardConfig(cfg)
	gcfg.LedgerPath = ""
	gcfg.GapLedgerPath = ""
	gcfg.HeatPath = ""

	g, err := guard.New(gcfg)
	if err != nil {
		return err
	}

	res := g.Check(args[0])

	if checkFormat == "json" {
		out, _ := json.MarshalIndent(res, "", "  ")
		fmt.Println(string(out))
		if res.Registered && !res.Permission.Allowed {
			os.Exit(1)
		}
		return nil
	}

	switch {
	case res.Exempt:
		fmt.Printf("EXEMPT  %s bypasses evaluation\n", res.Action)
	case !res.Registered:
		fmt.Printf("FAIL-OPEN  %s is not registered; the engine would let it through\n", res.Action)
	case res.Permission.Allowed:
		fmt.Printf("ALLOW  %s (overlap %.2f >= %.2f, aggregate %.2f >= %.2f)\n",
			res.Action, res.Permission.OverlapRatio, res.Permission.OverlapThreshold,
			res.Permission.AggregateScore, res.Permission.MinAggregate)
	default:
		fmt.Printf("DENY  %s (overlap %.2f, threshold %.2f, aggregate %.2f, minimum %.2f)\n",
			res.Action, res.Permission.OverlapRatio, res.Permission.OverlapThreshold,
			res.Permission.AggregateScore, res.Permission.MinAggregate)
		for _, fd := range res.Permission.FailedDimensions {
			fmt.Printf("  short: %-20s %.2f < %.2f\n", fd.Name, fd.Actual, fd.Required)
		}
		if req, ok := g.Registry().Get(res.Action); ok {
			fmt.Printf("  risk: %s\n", requirement.RiskLabel(req.MinAggregate))
		}
		os.Exit(1)
	}
	return nil
}
