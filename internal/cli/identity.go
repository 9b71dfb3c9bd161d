package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/wiber/intentguard/internal/dimension"
	"github.com/wiber/intentguard/internal/identity"
	"github.com/wiber/intentguard/internal/requirement"
	"github.com/wiber/intentguard/internal/trustdebt"
)

var identityFormat string

func init() {
	rootCmd.AddCommand(identityCmd)
	identityCmd.AddCommand(identityShowCmd)
	identityCmd.AddCommand(identityCompareCmd)
	identityShowCmd.Flags().StringVarP(&identityFormat, "format", "f", "text", "Output format (text|json)")
}

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Inspect the subject's trust identity",
	Long:  "Commands for viewing the trust vector derived from the latest report\nand measuring it against action requirements.",
}

var identityShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current trust vector",
	RunE:  runIdentityShow,
}

var identityCompareCmd = &cobra.Command{
	Use:   "compare <action>",
	Short: "Measure the trust vector against an action's requirement",
	Long: "Shows how the subject's identity lines up with what the action demands:\n" +
		"overlap, aggregate, cosine similarity, and every required dimension with\n" +
		"its shortfall. Exit code 1 means the action would be denied.",
	Args: cobra.ExactArgs(1),
	RunE: runIdentityCompare,
}

func runIdentityShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadEngineConfig()
	if err != nil {
		return err
	}

	id := identity.NewLoader(cfg.ReportPath, 0).Load(flagSubject)

	if identityFormat == "json" {
		out, _ := json.MarshalIndent(id, "", "  ")
		fmt.Println(string(out))
		return nil
	}

	units := trustdebt.UnitsForScore(id.AggregateScore)
	fmt.Printf("Subject:    %s\n", id.SubjectID)
	fmt.Printf("Aggregate:  %.3f (grade %s, ~%s units)\n",
		id.AggregateScore, trustdebt.GradeForUnits(units), humanize.Commaf(units))
	fmt.Printf("Observed:   %s (%s)\n",
		id.ObservedAt.Format("2006-01-02 15:04:05"), humanize.Time(id.ObservedAt))
	if _, rerr := trustdebt.LoadReport(cfg.ReportPath); rerr != nil {
		fmt.Println("Report:     missing or unreadable; default identity in effect")
	} else {
		fmt.Printf("Report:     %s\n", cfg.ReportPath)
	}
	fmt.Println()

	fmt.Println("Dimensions:")
	for _, dim := range dimension.Names() {
		score, ok := id.Scores[dim]
		if !ok {
			continue
		}
		fmt.Printf("  %-20s %.3f\n", dim, score)
	}
	return nil
}

func runIdentityCompare(cmd *cobra.Command, args []string) error {
	cfg, err := loadEngineConfig()
	if err != nil {
		return err
	}
	reg, err := requirement.Load(cfg.RegistryPath)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	req, ok := reg.Get(args[0])
	if !ok {
		return fmt.Errorf("action %q is not registered", args[0])
	}

	id := identity.NewLoader(cfg.ReportPath, 0).Load(flagSubject)
	perm := dimension.CheckPermission(id, &req, cfg.Theta)
	cos := dimension.CosineSimilarity(
		dimension.ToVector(id.Scores), dimension.ToVector(req.RequiredScores))

	verdict := "DENY"
	if perm.Allowed {
		verdict = "ALLOW"
	}
	fmt.Printf("%s  %s for %s\n\n", verdict, args[0], flagSubject)
	fmt.Printf("  overlap:    %.3f (threshold %.2f)\n", perm.OverlapRatio, perm.OverlapThreshold)
	fmt.Printf("  aggregate:  %.3f (minimum %.2f)\n", perm.AggregateScore, perm.MinAggregate)
	fmt.Printf("  cosine:     %.3f\n", cos)
	fmt.Printf("  risk:       %s\n", requirement.RiskLabel(req.MinAggregate))

	dims := make([]string, 0, len(req.RequiredScores))
	for dim := range req.RequiredScores {
		dims = append(dims, dim)
	}
	sort.Strings(dims)

	if len(dims) > 0 {
		fmt.Println()
		fmt.Println("  Required dimensions:")
		for _, dim := range dims {
			actual, required := id.Score(dim), req.RequiredScores[dim]
			note := "ok"
			if actual < required {
				note = fmt.Sprintf("short %.3f", required-actual)
			}
			fmt.Printf("    %-20s %.3f / %.3f  %s\n", dim, actual, required, note)
		}
	}

	if !perm.Allowed {
		os.Exit(1)
	}
	return nil
}
