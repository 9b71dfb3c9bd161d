package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/wiber/intentguard/internal/audit"
	"github.com/wiber/intentguard/internal/config"
	"github.com/wiber/intentguard/internal/requirement"
	"github.com/wiber/intentguard/internal/trustdebt"
)

func init() {
	rootCmd.AddCommand(doctorCmd)
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check engine readiness and diagnose configuration issues",
	RunE:  runDoctor,
}

type checkResult struct {
	label  string
	ok     bool
	detail string
	fix    string
}

func runDoctor(cmd *cobra.Command, args []string) error {
	var checks []checkResult

	// 1. Binary location and version.
	execPath, _ := os.Executable()
	if execPath != "" {
		checks = append(checks, checkResult{
			label:  "intentguard binary",
			ok:     true,
			detail: fmt.Sprintf("%s (v%s)", execPath, version),
		})
	} else {
		checks = append(checks, checkResult{
			label:  "intentguard binary",
			ok:     false,
			detail: "cannot determine executable path",
		})
	}

	// 2. Config directory.
	dir := config.Dir()
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		checks = append(checks, checkResult{label: "config directory", ok: true, detail: dir})
	} else {
		checks = append(checks, checkResult{
			label:  "config directory",
			ok:     false,
			detail: "missing",
			fix:    "intentguard init",
		})
	}

	// 3. config.yaml. A missing file is workable (defaults apply) but a
	// broken one is not; the remaining checks fall back to defaults then.
	cfg, cfgErr := loadEngineConfig()
	if cfgErr != nil {
		checks = append(checks, checkResult{
			label:  "config.yaml",
			ok:     false,
			detail: cfgErr.Error(),
			fix:    "intentguard init --force",
		})
		cfg = config.DefaultConfig()
	} else {
		configPath := flagConfig
		if configPath == "" {
			configPath = filepath.Join(dir, "config.yaml")
		}
		if _, err := os.Stat(configPath); err == nil {
			checks = append(checks, checkResult{label: "config.yaml", ok: true, detail: configPath})
		} else {
			checks = append(checks, checkResult{
				label:  "config.yaml",
				ok:     false,
				detail: "missing (defaults in effect)",
				fix:    "intentguard init",
			})
		}
	}

	// 4. Trust report.
	if _, err := os.Stat(cfg.ReportPath); os.IsNotExist(err) {
		checks = append(checks, checkResult{
			label:  "trust report",
			ok:     false,
			detail: "missing (default identity in effect)",
			fix:    "drop a grader report at " + cfg.ReportPath,
		})
	} else if rep, err := trustdebt.LoadReport(cfg.ReportPath); err != nil {
		checks = append(checks, checkResult{label: "trust report", ok: false, detail: err.Error()})
	} else {
		grade := rep.Grade
		if grade == "" {
			grade = trustdebt.GradeForUnits(rep.TotalUnits)
		}
		detail := fmt.Sprintf("grade %s, %s units", grade, humanize.Commaf(rep.TotalUnits))
		if !rep.GeneratedAt.IsZero() {
			detail += ", generated " + humanize.Time(rep.GeneratedAt)
		}
		checks = append(checks, checkResult{label: "trust report", ok: true, detail: detail})
	}

	// 5. Requirement registry.
	if reg, err := requirement.Load(cfg.RegistryPath); err != nil {
		checks = append(checks, checkResult{
			label:  "requirements",
			ok:     false,
			detail: err.Error(),
			fix:    "intentguard lint " + cfg.RegistryPath,
		})
	} else {
		checks = append(checks, checkResult{
			label:  "requirements",
			ok:     true,
			detail: fmt.Sprintf("%d actions registered", len(reg.List())),
		})
	}

	// 6. Ledger chains.
	for _, ledger := range []struct{ label, path string }{
		{"decision ledger", cfg.LedgerPath},
		{"gap ledger", cfg.GapLedgerPath},
	} {
		if _, err := os.Stat(ledger.path); os.IsNotExist(err) {
			checks = append(checks, checkResult{label: ledger.label, ok: true, detail: "no records yet"})
			continue
		}
		res := audit.Verify(ledger.path)
		if res.Valid {
			checks = append(checks, checkResult{
				label:  ledger.label,
				ok:     true,
				detail: fmt.Sprintf("chain intact (%d records)", res.Lines),
			})
		} else {
			checks = append(checks, checkResult{label: ledger.label, ok: false, detail: res.Error})
		}
	}

	// 7. Stability history.
	if _, err := os.Stat(cfg.StabilityDB); err == nil {
		checks = append(checks, checkResult{label: "stability history", ok: true, detail: cfg.StabilityDB})
	} else {
		checks = append(checks, checkResult{
			label:  "stability history",
			ok:     true,
			detail: "no measurements yet (intentguard watch records them)",
		})
	}

	// 8. Watch unit (Linux only).
	if runtime.GOOS == "linux" {
		if home, err := os.UserHomeDir(); err == nil {
			unitPath := filepath.Join(home, ".config", "systemd", "user", "intentguard-watch.service")
			if _, err := os.Stat(unitPath); err == nil {
				checks = append(checks, checkResult{label: "watch unit", ok: true, detail: "installed"})
			} else {
				checks = append(checks, checkResult{
					label:  "watch unit",
					ok:     false,
					detail: "not installed",
					fix:    "intentguard init --install-systemd",
				})
			}
		}
	}

	// Print results.
	hasFailures := false
	for _, c := range checks {
		mark := "\u2713" // ✓
		if !c.ok {
			mark = "\u2717" // ✗
			hasFailures = true
		}
		line := fmt.Sprintf("%s %-20s %s", mark, c.label+":", c.detail)
		if !c.ok && c.fix != "" {
			line += fmt.Sprintf("  ->  %s", c.fix)
		}
		fmt.Println(line)
	}

	if hasFailures {
		fmt.Println()
		fmt.Println("Some checks failed. Run the suggested commands to fix.")
		return fmt.Errorf("doctor found issues")
	}

	fmt.Println()
	fmt.Println("All checks passed.")
	return nil
}
