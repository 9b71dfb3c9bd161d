package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wiber/intentguard/internal/guard"
)

var execDryRun bool

func init() {
	rootCmd.AddCommand(execCmd)
	execCmd.Flags().BoolVar(&execDryRun, "dry-run", false, "Evaluate the predicate without executing")
}

var execCmd = &cobra.Command{
	Use:   "exec [flags] -- <command> [args...]",
	Short: "Run a command under the execute_command requirement",
	Long: "Evaluates the execute_command requirement against the subject's trust\n" +
		"identity before starting the subprocess. Denied commands never start.\n" +
		"Exit code 77 indicates a trust denial; anything else is the command's\n" +
		"own exit code.",
	Args: cobra.MinimumNArgs(1),
	RunE: runExec,
}

func runExec(cmd *cobra.Command, args []string) error {
	cfg, err := loadEngineConfig()
	if err != nil {
		return err
	}

	gcfg := guardConfig(cfg)
	gcfg.OnDrift = remedyOnDrift(cfg)

	if execDryRun {
		gcfg.LedgerPath = ""
		gcfg.GapLedgerPath = ""
		gcfg.HeatPath = ""
		gcfg.OnDrift = nil
	}

	g, err := guard.New(gcfg)
	if err != nil {
		return fmt.Errorf("failed to create guard: %w", err)
	}
	defer g.Close()

	if execDryRun {
		res := g.Check(guard.ExecActionName)
		out, _ := json.MarshalIndent(res, "", "  ")
		fmt.Println(string(out))
		if res.Registered && !res.Permission.Allowed {
			os.Exit(77)
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	result, err := g.ExecCommand(ctx, args[0], args[1:], os.Stdin)
	if err != nil {
		var denied *guard.DeniedError
		if errors.As(err, &denied) {
			resp := map[string]any{
				"denied":            true,
				"action":            denied.Action,
				"overlap_ratio":     denied.OverlapRatio,
				"overlap_threshold": denied.OverlapThreshold,
				"aggregate_score":   denied.AggregateScore,
				"min_aggregate":     denied.MinAggregate,
			}
			if len(denied.FailedDimensions) > 0 {
				resp["failed_dimensions"] = denied.FailedDimensions
			}
			out, _ := json.MarshalIndent(resp, "", "  ")
			fmt.Fprintln(os.Stderr, string(out))
			fmt.Fprintf(os.Stderr, "\nTo see what would clear it, run: intentguard identity compare %s\n", denied.Action)
			os.Exit(77)
		}
		return err
	}

	fmt.Print(result.Stdout)
	if result.Stderr != "" {
		fmt.Fprint(os.Stderr, result.Stderr)
	}

	if result.ExitCode != 0 {
		os.Exit(result.ExitCode)
	}
	return nil
}
