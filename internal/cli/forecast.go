package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/wiber/intentguard/internal/budget"
	"github.com/wiber/intentguard/internal/identity"
	"github.com/wiber/intentguard/internal/trustdebt"
)

// nearZeroFloor is where the decay forecast declares trust effectively gone.
const nearZeroFloor = 0.05

var forecastTargetLimit float64

func init() {
	rootCmd.AddCommand(forecastCmd)
	forecastCmd.Flags().Float64Var(&forecastTargetLimit, "target-limit", 0, "Also forecast the trust gain needed for this daily dollar limit")
}

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Project trust trajectories",
	Long: "Answers three questions about the subject's trust: how far away the next\n" +
		"grade is, how many consecutive denials until trust is effectively gone,\n" +
		"and optionally what trust gain a target spending limit needs.",
	RunE: runForecast,
}

func runForecast(cmd *cobra.Command, args []string) error {
	cfg, err := loadEngineConfig()
	if err != nil {
		return err
	}

	id := identity.NewLoader(cfg.ReportPath, 0).Load(flagSubject)

	// Prefer the report's own units and grade; derive them from the
	// aggregate when no report is readable.
	units := trustdebt.UnitsForScore(id.AggregateScore)
	grade := trustdebt.GradeForUnits(units)
	if rep, rerr := trustdebt.LoadReport(cfg.ReportPath); rerr == nil {
		units = rep.TotalUnits
		grade = rep.Grade
		if grade == "" {
			grade = trustdebt.GradeForUnits(units)
		}
	}

	fmt.Printf("Forecast for %s (aggregate %.3f, grade %s, %s units)\n\n",
		flagSubject, id.AggregateScore, grade, humanize.Commaf(units))

	if fc, ok := trustdebt.UnitsToNextGrade(units, cfg.MaxUnits); ok {
		fmt.Printf("Grade:   reaching %s requires shedding %s units (+%.3f aggregate)\n",
			fc.TargetGrade, humanize.Commaf(fc.UnitsToReduce), fc.AggregateGain)
	} else {
		fmt.Println("Grade:   already in the best band")
	}

	switch n := trustdebt.DenialsToNearZero(id.AggregateScore, cfg.DecayK, nearZeroFloor); n {
	case 0:
		fmt.Printf("Decay:   trust is already at or below the %.2f floor\n", nearZeroFloor)
	case -1:
		fmt.Println("Decay:   denials do not erode trust (decay_k is 0)")
	default:
		fmt.Printf("Decay:   %d consecutive denials would drag trust below %.2f\n", n, nearZeroFloor)
	}

	if cmd.Flags().Changed("target-limit") {
		mapper := budget.NewMapper(cfg.Budget.Floor, cfg.Budget.Ceiling)
		if gain, ok := mapper.ScoreGainForLimit(id.AggregateScore, forecastTargetLimit); ok {
			fmt.Printf("Budget:  a $%s daily limit needs +%.3f aggregate\n",
				humanize.CommafWithDigits(forecastTargetLimit, 2), gain)
		} else {
			fmt.Printf("Budget:  current trust already buys a $%s daily limit\n",
				humanize.CommafWithDigits(forecastTargetLimit, 2))
		}
	}
	return nil
}
