package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wiber/intentguard/internal/requirement"
)

func init() {
	rootCmd.AddCommand(lintCmd)
}

var lintCmd = &cobra.Command{
	Use:   "lint [requirements.yaml]",
	Short: "Validate a requirements file",
	Long: "Parses a requirements YAML file and checks every entry: a named action,\n" +
		"known dimensions, ranges, and the irreversible-action constraints. All\n" +
		"problems are reported, not just the first. Without an argument the\n" +
		"configured registry file is linted.\n\n" +
		"Exit code 0 when clean, 1 when any entry is invalid.",
	Args: cobra.MaximumNArgs(1),
	RunE: runLint,
}

func runLint(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) == 1 {
		path = args[0]
	} else {
		cfg, err := loadEngineConfig()
		if err != nil {
			return err
		}
		path = cfg.RegistryPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read requirements file: %w", err)
	}
	var f requirement.File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	if len(f.Requirements) == 0 {
		fmt.Printf("%s: no requirements declared\n", path)
		return nil
	}

	builtin := requirement.New()
	seen := make(map[string]bool, len(f.Requirements))
	problems := 0
	for i, req := range f.Requirements {
		label := req.Action
		if label == "" {
			label = fmt.Sprintf("entry %d", i+1)
		}
		if err := requirement.Validate(req); err != nil {
			problems++
			fmt.Printf("ERROR  %-28s %v\n", label, err)
			continue
		}
		if seen[req.Action] {
			problems++
			fmt.Printf("ERROR  %-28s declared twice; the last entry wins\n", label)
			continue
		}
		seen[req.Action] = true
		if builtin.Has(req.Action) {
			fmt.Printf("note   %-28s overrides a built-in requirement\n", label)
		}
	}

	fmt.Println()
	if problems > 0 {
		fmt.Printf("%d of %d requirements invalid.\n", problems, len(f.Requirements))
		os.Exit(1)
	}
	fmt.Printf("%d requirements OK.\n", len(f.Requirements))
	return nil
}
