package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/wiber/intentguard/internal/model"
	"github.com/wiber/intentguard/internal/requirement"
)

var (
	registryDimension    string
	registryMinAggregate float64
)

func init() {
	rootCmd.AddCommand(registryCmd)
	registryCmd.AddCommand(registryListCmd)
	registryCmd.AddCommand(registryShowCmd)
	registryListCmd.Flags().StringVar(&registryDimension, "dimension", "", "Only actions constraining this dimension")
	registryListCmd.Flags().Float64Var(&registryMinAggregate, "min-aggregate", 0, "Only actions requiring at least this aggregate")
}

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect the action requirement registry",
	Long:  "Commands for listing registered actions and the trust each one demands.\nThe built-in registry applies when no registry file is configured.",
}

var registryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered actions",
	RunE:  runRegistryList,
}

var registryShowCmd = &cobra.Command{
	Use:   "show <action>",
	Short: "Show one action's full requirement",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegistryShow,
}

func runRegistryList(cmd *cobra.Command, args []string) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}

	var reqs []model.Requirement
	switch {
	case registryDimension != "":
		reqs = reg.FilterByDimension(registryDimension)
	case registryMinAggregate > 0:
		reqs = reg.FilterByMinAggregate(registryMinAggregate)
	default:
		reqs = reg.All()
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].Action < reqs[j].Action })

	if len(reqs) == 0 {
		fmt.Println("No actions match.")
		return nil
	}

	fmt.Printf("%-28s %-12s %-10s %s\n", "ACTION", "AGGREGATE", "RISK", "DIMENSIONS")
	for _, req := range reqs {
		action := req.Action
		if req.Irreversible {
			action += " *"
		}
		fmt.Printf("%-28s %-12.2f %-10s %d\n",
			action, req.MinAggregate, requirement.RiskLabel(req.MinAggregate), len(req.RequiredScores))
	}
	fmt.Println()
	fmt.Println("* irreversible")
	return nil
}

func runRegistryShow(cmd *cobra.Command, args []string) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}
	req, ok := reg.Get(args[0])
	if !ok {
		return fmt.Errorf("action %q is not registered", args[0])
	}
	out, _ := json.MarshalIndent(req, "", "  ")
	fmt.Println(string(out))
	return nil
}

// loadRegistry loads the configured requirement registry, falling back to
// the built-in set when no file is configured.
func loadRegistry() (*requirement.Registry, error) {
	cfg, err := loadEngineConfig()
	if err != nil {
		return nil, err
	}
	reg, err := requirement.Load(cfg.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}
	return reg, nil
}
