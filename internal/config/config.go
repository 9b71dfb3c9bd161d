// Package config holds the engine configuration: file locations under
// ~/.intentguard, evaluation constants, and alert destinations. Loading is
// defaults-then-overlay, so a config file only needs the fields it changes.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wiber/intentguard/internal/alert"
)

// dirPerm is the permission for engine-managed directories.
const dirPerm = 0750

// BudgetConfig holds the spending curve endpoints in dollars.
type BudgetConfig struct {
	Floor   float64 `yaml:"floor"`
	Ceiling float64 `yaml:"ceiling"`
}

// StabilityConfig holds the stability window parameters.
type StabilityConfig struct {
	Window int     `yaml:"window"`
	Band   float64 `yaml:"band"`
}

// Config holds all configurable engine parameters.
type Config struct {
	ReportPath      string          `yaml:"report_path"`
	RegistryPath    string          `yaml:"registry_path"`
	LedgerPath      string          `yaml:"ledger_path"`
	GapLedgerPath   string          `yaml:"gap_ledger_path"`
	HeatPath        string          `yaml:"heat_path"`
	StabilityDB     string          `yaml:"stability_db"`
	OutboxDir       string          `yaml:"outbox_dir"`
	Theta           float64         `yaml:"theta"`
	DriftThreshold  int             `yaml:"drift_threshold"`
	DecayK          float64         `yaml:"decay_k"`
	MaxUnits        float64         `yaml:"max_units"`
	CacheTTLSeconds int             `yaml:"cache_ttl_seconds"`
	Budget          BudgetConfig    `yaml:"budget"`
	Stability       StabilityConfig `yaml:"stability"`
	ExemptActions   []string        `yaml:"exempt_actions"`
	KnownCallers    []string        `yaml:"known_callers"`
	Alerts          []alert.Config  `yaml:"alerts"`
}

// Dir returns the engine's home directory, ~/.intentguard, falling back to
// the working directory when the home dir cannot be determined.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".intentguard"
	}
	return filepath.Join(home, ".intentguard")
}

// DefaultConfig returns the built-in configuration rooted at Dir(). A
// repo-local .intentguard/trust-report.json in the working directory wins
// over the home-directory report: graded repos travel with their grades.
func DefaultConfig() *Config {
	dir := Dir()
	return &Config{
		ReportPath:      defaultReportPath(dir),
		RegistryPath:    filepath.Join(dir, "requirements.yaml"),
		LedgerPath:      filepath.Join(dir, "decisions.jsonl"),
		GapLedgerPath:   filepath.Join(dir, "fail-open.jsonl"),
		HeatPath:        filepath.Join(dir, "heat.json"),
		StabilityDB:     filepath.Join(dir, "stability.db"),
		OutboxDir:       filepath.Join(dir, "outbox"),
		Theta:           0.8,
		DriftThreshold:  3,
		DecayK:          0.003,
		MaxUnits:        50000,
		CacheTTLSeconds: 300,
		Budget:          BudgetConfig{Floor: 1, Ceiling: 100},
		Stability:       StabilityConfig{Window: 30, Band: 0.05},
	}
}

// defaultReportPath prefers a repo-local report in the working directory
// over the one under dir.
func defaultReportPath(dir string) string {
	local := filepath.Join(".intentguard", "trust-report.json")
	if info, err := os.Stat(local); err == nil && !info.IsDir() {
		return local
	}
	return filepath.Join(dir, "trust-report.json")
}

// CacheTTL returns the identity cache TTL as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Load loads engine configuration from a YAML file.
// Empty path falls back to ~/.intentguard/config.yaml.
// Missing file returns defaults. Invalid YAML returns an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = filepath.Join(Dir(), "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// Start with defaults, YAML overwrites only specified fields
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Theta <= 0 || c.Theta > 1 {
		return fmt.Errorf("theta %v outside (0,1]", c.Theta)
	}
	if c.DriftThreshold < 1 {
		return fmt.Errorf("drift_threshold %d must be at least 1", c.DriftThreshold)
	}
	if c.DecayK < 0 || c.DecayK >= 1 {
		return fmt.Errorf("decay_k %v outside [0,1)", c.DecayK)
	}
	if c.MaxUnits <= 0 {
		return fmt.Errorf("max_units %v must be positive", c.MaxUnits)
	}
	if c.Stability.Window < 2 {
		return fmt.Errorf("stability window %d must be at least 2", c.Stability.Window)
	}
	if c.Stability.Band <= 0 {
		return fmt.Errorf("stability band %v must be positive", c.Stability.Band)
	}
	if c.Budget.Floor <= 0 || c.Budget.Ceiling <= c.Budget.Floor {
		return fmt.Errorf("budget floor/ceiling %v/%v invalid", c.Budget.Floor, c.Budget.Ceiling)
	}
	return nil
}

// EnsureDirs creates the directories every configured path lives in.
// Idempotent.
func EnsureDirs(c *Config) error {
	dirs := []string{
		filepath.Dir(c.LedgerPath),
		filepath.Dir(c.GapLedgerPath),
		filepath.Dir(c.HeatPath),
		filepath.Dir(c.StabilityDB),
		c.OutboxDir,
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DefaultConfigYAML returns a commented YAML string for the init command.
func DefaultConfigYAML() string {
	return `# intentguard engine configuration
# Generated by: intentguard init
#
# All paths default to ~/.intentguard/. Only set the fields you change;
# everything else keeps its default.

# Trust-debt report produced by the external grader, re-read each cycle.
# A repo-local .intentguard/trust-report.json wins over this path.
#report_path: ~/.intentguard/trust-report.json

# Action requirement overlay (built-in registry always applies).
#registry_path: ~/.intentguard/requirements.yaml

# Overlap threshold: fraction of required dimensions an identity must meet.
theta: 0.8

# Consecutive denials before the drift-correction callback fires.
drift_threshold: 3

# Per-denial trust erosion factor: score multiplies by (1-k) per denial.
decay_k: 0.003

# Debt units at which raw trust reaches zero.
max_units: 50000

# Identity cache lifetime.
cache_ttl_seconds: 300

# Spending curve endpoints (dollars/day).
budget:
  floor: 1
  ceiling: 100

# Stability window: measurements in a row within +/-band of the window mean.
stability:
  window: 30
  band: 0.05

# Actions that bypass evaluation entirely.
#exempt_actions:
#  - read_logs

# Callers the guard can attribute. Empty means any named caller is known;
# listing callers makes everyone else fail open into the gap ledger.
#known_callers:
#  - agent
#  - orchestrator

# Webhook alert destinations.
# events: deny | drift_threshold | milestone | fail_open
#alerts:
#  - url: https://hooks.slack.com/services/T000/B000/XXXX
#    format: slack
#    events: [deny, drift_threshold]
`
}
