package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/wiber/intentguard/internal/config"
	"github.com/wiber/intentguard/internal/systemd"
)

var (
	initInstallSystemd bool
	initForce          bool
)

func init() {
	initCmd.Flags().BoolVar(&initInstallSystemd, "install-systemd", false, "Install the intentguard-watch.service user unit")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing config files")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Bootstrap the engine configuration",
	Long: `Creates ~/.intentguard with a commented config, a starter requirements
overlay, and the directories the engine writes into.

With --install-systemd: installs an intentguard-watch.service user unit
so the report observer runs continuously via:
  systemctl --user enable --now intentguard-watch`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := config.Dir()
	var created []string

	configPath := filepath.Join(dir, "config.yaml")
	if wrote, err := writeIfMissing(configPath, config.DefaultConfigYAML()); err != nil {
		return err
	} else if wrote {
		created = append(created, configPath)
	}

	requirementsPath := filepath.Join(dir, "requirements.yaml")
	if wrote, err := writeIfMissing(requirementsPath, defaultRequirementsYAML()); err != nil {
		return err
	} else if wrote {
		created = append(created, requirementsPath)
	}

	// Create the directories every configured path lives in, honoring a
	// config.yaml that may already point elsewhere.
	cfg, err := loadEngineConfig()
	if err != nil {
		return err
	}
	if err := config.EnsureDirs(cfg); err != nil {
		return err
	}

	if initInstallSystemd {
		if runtime.GOOS != "linux" {
			return fmt.Errorf("--install-systemd is only supported on Linux")
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		unitDir := filepath.Join(home, ".config", "systemd", "user")
		if err := os.MkdirAll(unitDir, 0o755); err != nil {
			return fmt.Errorf("create unit directory: %w", err)
		}
		unitPath := filepath.Join(unitDir, "intentguard-watch.service")
		if err := os.WriteFile(unitPath, []byte(systemd.WatchTemplate()), 0o644); err != nil {
			return fmt.Errorf("write systemd unit: %w", err)
		}
		created = append(created, unitPath)

		if err := exec.Command("systemctl", "--user", "daemon-reload").Run(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: systemctl --user daemon-reload failed: %v\n", err)
		}
	}

	fmt.Println("intentguard init complete.")
	fmt.Println()
	if len(created) > 0 {
		fmt.Println("Created:")
		for _, path := range created {
			fmt.Printf("  %s\n", path)
		}
		fmt.Println()
	} else {
		fmt.Println("All files already exist (use --force to overwrite).")
		fmt.Println()
	}

	fmt.Println("Verify:")
	fmt.Println("  intentguard doctor")
	fmt.Println()
	fmt.Println("Drop a trust report and inspect the identity it produces:")
	fmt.Printf("  cp <report> %s\n", filepath.Join(dir, "trust-report.json"))
	fmt.Println("  intentguard identity show")
	fmt.Println()
	fmt.Println("Run a command under enforcement:")
	fmt.Println("  intentguard exec -- <command>")

	if initInstallSystemd {
		fmt.Println()
		fmt.Println("Enable the report observer:")
		fmt.Println("  systemctl --user enable --now intentguard-watch")
	}

	return nil
}

// writeIfMissing writes content to path if it doesn't exist or --force is set.
// Returns true if the file was written.
func writeIfMissing(path, content string) (bool, error) {
	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

// defaultRequirementsYAML is the starter overlay written by init. The list
// is empty on purpose; the built-in registry applies until entries are added.
func defaultRequirementsYAML() string {
	return `# intentguard action requirements
# Generated by: intentguard init
#
# Entries overlay the built-in registry; an entry with the same action name
# replaces the built-in one. Validate with: intentguard lint
#
# Example:
#   - action: deploy_production
#     description: Push a build to production
#     irreversible: true
#     min_aggregate: 0.85
#     required_scores:
#       security: 0.9
#       reliability: 0.85
#       testing: 0.8

version: 1
requirements: []
`
}
