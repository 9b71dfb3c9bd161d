package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/wiber/intentguard/internal/config"
	"github.com/wiber/intentguard/internal/stability"
	"github.com/wiber/intentguard/internal/trustdebt"
)

var (
	stabilityHistoryN int
	recordScore       float64
	recordUnits       float64
)

func init() {
	rootCmd.AddCommand(stabilityCmd)
	stabilityCmd.AddCommand(stabilityStatusCmd)
	stabilityCmd.AddCommand(stabilityHistoryCmd)
	stabilityCmd.AddCommand(stabilityMilestonesCmd)
	stabilityCmd.AddCommand(stabilityRecordCmd)

	stabilityHistoryCmd.Flags().IntVarP(&stabilityHistoryN, "lines", "n", 20, "Number of recent measurements to show")
	stabilityRecordCmd.Flags().Float64Var(&recordScore, "score", 0, "Aggregate score to record")
	stabilityRecordCmd.Flags().Float64Var(&recordUnits, "units", -1, "Debt units behind the score (derived from the score when omitted)")
	stabilityRecordCmd.MarkFlagRequired("score")
}

var stabilityCmd = &cobra.Command{
	Use:   "stability",
	Short: "Aggregate trust stability over time",
	Long:  "Commands for the measurement history: windowed stability assessment,\nrecent trend, achieved milestones, and manual measurements.",
}

var stabilityStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Assess the trailing measurement window",
	RunE:  runStabilityStatus,
}

var stabilityHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent measurements",
	RunE:  runStabilityHistory,
}

var stabilityMilestonesCmd = &cobra.Command{
	Use:   "milestones",
	Short: "List achieved stability milestones",
	RunE:  runStabilityMilestones,
}

var stabilityRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a manual measurement",
	Long:  "Appends a measurement outside the normal report cycle, marked as manual.\nThe stability window is re-assessed afterwards.",
	RunE:  runStabilityRecord,
}

// openMonitor opens the measurement store and wraps it with the configured
// window parameters. No side-effect callbacks: milestone artifacts belong
// to the watch daemon.
func openMonitor(cfg *config.Config) (*stability.Store, *stability.Monitor, error) {
	store, err := stability.OpenStore(cfg.StabilityDB)
	if err != nil {
		return nil, nil, err
	}
	mon := stability.NewMonitor(store, stability.Config{
		Window: cfg.Stability.Window,
		Band:   cfg.Stability.Band,
	})
	return store, mon, nil
}

func runStabilityStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadEngineConfig()
	if err != nil {
		return err
	}
	store, mon, err := openMonitor(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	assess, err := mon.Assess()
	if err != nil {
		return err
	}
	trend, err := mon.Trend()
	if err != nil {
		return err
	}

	state := "not yet stable"
	if assess.Stable {
		state = "STABLE"
	}
	fmt.Printf("State:       %s\n", state)
	fmt.Printf("Window:      %d measurements within +/-%.3f of the mean\n", assess.Window, assess.Band)
	fmt.Printf("Mean:        %.3f\n", assess.Mean)
	fmt.Printf("Stable run:  %d\n", assess.StableRun)
	fmt.Printf("Samples:     %d\n", assess.Samples)
	fmt.Printf("Trend:       %s (%+.3f over %d samples)\n", trend.Direction, trend.Delta, trend.Samples)
	return nil
}

func runStabilityHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadEngineConfig()
	if err != nil {
		return err
	}
	store, _, err := openMonitor(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ms, err := store.Recent(stabilityHistoryN)
	if err != nil {
		return err
	}
	if len(ms) == 0 {
		fmt.Println("No measurements yet. Record some:  intentguard watch --once")
		return nil
	}

	fmt.Printf("%-20s %-10s %-6s %-12s %s\n", "OBSERVED", "AGGREGATE", "GRADE", "UNITS", "SOURCE")
	for _, m := range ms {
		fmt.Printf("%-20s %-10.3f %-6s %-12s %s\n",
			m.ObservedAt.Format("2006-01-02 15:04:05"), m.AggregateScore, m.Grade,
			humanize.Commaf(m.DebtUnits), m.Source)
	}
	return nil
}

func runStabilityMilestones(cmd *cobra.Command, args []string) error {
	cfg, err := loadEngineConfig()
	if err != nil {
		return err
	}
	store, mon, err := openMonitor(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ms, err := mon.Milestones()
	if err != nil {
		return err
	}
	if len(ms) == 0 {
		fmt.Println("No milestones achieved yet.")
		return nil
	}

	for _, m := range ms {
		fmt.Printf("%s  %s\n", m.ID, m.AchievedAt.Format("2006-01-02 15:04:05"))
		fmt.Printf("  aggregate %.3f held for %.1f days\n", m.AggregateScore, m.StableDays)
		if m.ArtifactGenerated {
			fmt.Printf("  artifact: %s\n", m.ArtifactRef)
		}
		if m.NotificationSent {
			fmt.Println("  notified")
		}
	}
	return nil
}

func runStabilityRecord(cmd *cobra.Command, args []string) error {
	if recordScore < 0 || recordScore > 1 {
		return fmt.Errorf("score %v outside [0,1]", recordScore)
	}
	cfg, err := loadEngineConfig()
	if err != nil {
		return err
	}
	store, mon, err := openMonitor(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	units := recordUnits
	if units < 0 {
		units = trustdebt.UnitsForScore(recordScore)
	}
	assess, err := mon.Record(stability.Measurement{
		ObservedAt:     time.Now().UTC(),
		AggregateScore: recordScore,
		Grade:          trustdebt.GradeForUnits(units),
		DebtUnits:      units,
		Source:         stability.SourceManual,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Recorded manual measurement: aggregate %.3f, %s units\n",
		recordScore, humanize.Commaf(units))
	if assess.Stable {
		fmt.Printf("Window is stable: mean %.3f over %d measurements\n", assess.Mean, assess.Window)
	} else {
		fmt.Printf("Stable run: %d of %d\n", assess.StableRun, assess.Window)
	}
	return nil
}
