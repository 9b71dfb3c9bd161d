package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wiber/intentguard/internal/config"
	"github.com/wiber/intentguard/internal/guard"
	"github.com/wiber/intentguard/internal/identity"
	"github.com/wiber/intentguard/internal/remedy"
	"github.com/wiber/intentguard/internal/requirement"
)

var (
	flagConfig  string
	flagSubject string
)

var rootCmd = &cobra.Command{
	Use:   "intentguard",
	Short: "Trust-vector permission engine for AI agents",
	Long: "Decides per action whether an agent has earned enough trust, using\n" +
		"per-dimension scores derived from graded trust-debt reports. Denials\n" +
		"erode trust; every decision lands in a hash-chained ledger.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config YAML (default: ~/.intentguard/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagSubject, "subject", "agent", "Subject whose trust identity is evaluated")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadEngineConfig reads the engine configuration named by --config,
// falling back to defaults when no file exists.
func loadEngineConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// guardConfig assembles guard construction parameters for --subject from
// the engine config.
func guardConfig(cfg *config.Config) guard.Config {
	return guard.Config{
		Subject:        flagSubject,
		ReportPath:     cfg.ReportPath,
		RegistryPath:   cfg.RegistryPath,
		LedgerPath:     cfg.LedgerPath,
		GapLedgerPath:  cfg.GapLedgerPath,
		HeatPath:       cfg.HeatPath,
		Theta:          cfg.Theta,
		DriftThreshold: cfg.DriftThreshold,
		CacheTTL:       cfg.CacheTTL(),
		ExemptActions:  cfg.ExemptActions,
		KnownCallers:   cfg.KnownCallers,
		Alerts:         cfg.Alerts,
	}
}

// remedyOnDrift builds the drift-correction callback: crossing the denial
// threshold drops a recalibration order into the outbox. Registry and
// identity load inside the callback since drift is rare and the guard may
// outlive both files' contents.
func remedyOnDrift(cfg *config.Config) func(guard.DriftEvent) {
	if cfg.OutboxDir == "" {
		return nil
	}
	return func(ev guard.DriftEvent) {
		reg, err := requirement.Load(cfg.RegistryPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "remedy: %v\n", err)
			return
		}
		req, ok := reg.Get(ev.LastAction)
		if !ok {
			return
		}
		id := identity.NewLoader(cfg.ReportPath, cfg.CacheTTL()).Load(ev.Subject)
		ord, err := remedy.Generate(remedy.GeneratorConfig{Subject: ev.Subject}, remedy.Denial{
			Action:             ev.LastAction,
			SessionID:          ev.SessionID,
			ConsecutiveDenials: ev.ConsecutiveDenials,
			FailedDimensions:   ev.FailedDimensions,
		}, id, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "remedy: %v\n", err)
			return
		}
		path, err := remedy.WriteOutbox(cfg.OutboxDir, ord)
		if err != nil {
			fmt.Fprintf(os.Stderr, "remedy: %v\n", err)
			return
		}
		fmt.Fprintf(os.Stderr, "remedy: recalibration order written to %s\n", path)
	}
}
