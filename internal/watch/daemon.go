// Package watch runs the observation cycle: it follows the trust report
// file and, on every change, drops the cached identity, re-reads the
// report, records a stability measurement, and tells snapshot holders to
// refresh. One daemon per state directory; a PID lock keeps seconds out.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/wiber/intentguard/internal/alert"
	"github.com/wiber/intentguard/internal/audit"
	"github.com/wiber/intentguard/internal/identity"
	"github.com/wiber/intentguard/internal/stability"
	"github.com/wiber/intentguard/internal/trustdebt"
)

// Config wires the daemon to the report and its side effects.
type Config struct {
	// ReportPath is the trust report to follow. Required.
	ReportPath string
	// Subject is whose identity each cycle reloads. Required.
	Subject string
	// StateDir holds the PID lock. Required for Run, unused by Cycle.
	StateDir string
	// StabilityDB is the SQLite measurement history. Required.
	StabilityDB string

	// ArtifactDir receives milestone artifacts. Empty disables them.
	ArtifactDir string
	// Alerts are webhook destinations for milestone events.
	Alerts []alert.Config

	// Window and Band override the stability assessment parameters.
	// Zero values use the stability package defaults.
	Window int
	Band   float64

	// OnCycle runs after every cycle, even one whose measurement failed
	// to record, so snapshot holders can still pick up the new identity.
	OnCycle func(CycleResult)

	// PollMode forces stat polling instead of fsnotify.
	PollMode bool
	// PollInterval is the polling cadence. Zero uses the default.
	PollInterval time.Duration
}

// CycleResult summarizes one observation cycle.
type CycleResult struct {
	At         time.Time            `json:"at"`
	Subject    string               `json:"subject"`
	Aggregate  float64              `json:"aggregate_score"`
	Grade      string               `json:"grade"`
	DebtUnits  float64              `json:"debt_units"`
	Assessment stability.Assessment `json:"assessment"`
}

// Daemon follows the report file and records observations.
type Daemon struct {
	cfg     Config
	loader  *identity.Loader
	store   *stability.Store
	monitor *stability.Monitor
	alerts  *alert.Dispatcher
}

// New creates a daemon with validated configuration and opens the
// measurement store. Callers own Close.
func New(cfg Config) (*Daemon, error) {
	if cfg.ReportPath == "" || cfg.Subject == "" || cfg.StabilityDB == "" {
		return nil, fmt.Errorf("report path, subject, and stability db are required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	store, err := stability.OpenStore(cfg.StabilityDB)
	if err != nil {
		return nil, err
	}

	d := &Daemon{
		cfg:    cfg,
		loader: identity.NewLoader(cfg.ReportPath, identity.DefaultTTL),
		store:  store,
		alerts: alert.NewDispatcher(cfg.Alerts),
	}

	mcfg := stability.Config{Window: cfg.Window, Band: cfg.Band}
	if cfg.ArtifactDir != "" {
		mcfg.OnArtifact = d.writeArtifact
	}
	if d.alerts != nil {
		mcfg.OnNotify = d.notifyMilestone
	}
	d.monitor = stability.NewMonitor(store, mcfg)
	return d, nil
}

// Close releases the measurement store.
func (d *Daemon) Close() error { return d.store.Close() }

// Run acquires the PID lock, observes any report already on disk, and then
// follows the report until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if d.cfg.StateDir == "" {
		return fmt.Errorf("state directory is required")
	}
	if err := os.MkdirAll(d.cfg.StateDir, 0o750); err != nil {
		return fmt.Errorf("ensure state dir: %w", err)
	}
	// The report's directory must exist before fsnotify can watch it, even
	// when the first report has not landed yet.
	if err := os.MkdirAll(filepath.Dir(d.cfg.ReportPath), 0o750); err != nil {
		return fmt.Errorf("ensure report dir: %w", err)
	}

	pidPath := filepath.Join(d.cfg.StateDir, "watch.pid")
	if err := acquirePIDLock(pidPath); err != nil {
		return fmt.Errorf("acquire PID lock: %w", err)
	}
	defer func() { _ = os.Remove(pidPath) }()

	// A report already on disk is the first observation.
	if _, err := os.Stat(d.cfg.ReportPath); err == nil {
		d.handleChange()
	}

	if d.cfg.PollMode {
		pw := NewPollWatcher(d.cfg.ReportPath, d.handleChange, d.cfg.PollInterval)
		return pw.Run(ctx)
	}
	w := NewReportWatcher(d.cfg.ReportPath, d.handleChange)
	return w.Run(ctx)
}

// Cycle drops the cached identity, re-reads the report, and records one
// stability measurement. It is the unit of work the watchers trigger, and
// what a cron invocation runs once. No PID lock is taken.
func (d *Daemon) Cycle() (CycleResult, error) {
	d.loader.Invalidate()
	id := d.loader.Load(d.cfg.Subject)

	// Units and grade come from the report when it is readable. When it is
	// not, the loader already fell back to the default identity; derive
	// both from its aggregate so the measurement row stays coherent.
	units := trustdebt.UnitsForScore(id.AggregateScore)
	grade := trustdebt.GradeForUnits(units)
	if rep, err := trustdebt.LoadReport(d.cfg.ReportPath); err == nil {
		units = rep.TotalUnits
		grade = rep.Grade
		if grade == "" {
			grade = trustdebt.GradeForUnits(units)
		}
	}

	res := CycleResult{
		At:        id.ObservedAt,
		Subject:   d.cfg.Subject,
		Aggregate: id.AggregateScore,
		Grade:     grade,
		DebtUnits: units,
	}

	assess, err := d.monitor.Record(stability.Measurement{
		ObservedAt:     id.ObservedAt,
		AggregateScore: id.AggregateScore,
		Grade:          grade,
		DebtUnits:      units,
		Source:         stability.SourceReport,
	})
	if err != nil {
		return res, fmt.Errorf("record measurement: %w", err)
	}
	res.Assessment = assess
	return res, nil
}

// handleChange runs one cycle and reports it. Recording failures are
// logged, not fatal; the daemon keeps following the report.
func (d *Daemon) handleChange() {
	res, err := d.Cycle()
	if err != nil {
		fmt.Fprintf(os.Stderr, "watch: cycle failed: %v\n", err)
	} else {
		fmt.Fprintf(os.Stderr, "watch: observed %s aggregate %.3f grade %s (stable run %d)\n",
			res.Subject, res.Aggregate, res.Grade, res.Assessment.StableRun)
	}
	if d.cfg.OnCycle != nil {
		d.cfg.OnCycle(res)
	}
}

// writeArtifact drops the milestone as pretty-printed JSON into the
// artifact directory and returns the written path.
func (d *Daemon) writeArtifact(ms stability.Milestone) (string, error) {
	if err := os.MkdirAll(d.cfg.ArtifactDir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create artifact dir: %w", err)
	}
	data, err := json.MarshalIndent(ms, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal milestone: %w", err)
	}
	path := filepath.Join(d.cfg.ArtifactDir, "milestone-"+ms.ID+".json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write milestone artifact: %w", err)
	}
	return path, nil
}

// notifyMilestone fans the milestone out to the configured webhooks.
// Dispatch is asynchronous with its own retries, so reaching it counts as
// sent.
func (d *Daemon) notifyMilestone(ms stability.Milestone) error {
	d.alerts.Dispatch(alert.Event{
		Timestamp:      ms.AchievedAt.Format(audit.TimestampFormat),
		Event:          alert.EventMilestone,
		Subject:        d.cfg.Subject,
		AggregateScore: ms.AggregateScore,
		Detail:         fmt.Sprintf("aggregate stable at %.3f for %.1f days", ms.AggregateScore, ms.StableDays),
	})
	return nil
}

// acquirePIDLock writes the current PID to the file and checks for stale
// locks from crashed daemons.
func acquirePIDLock(path string) error {
	if data, err := os.ReadFile(path); err == nil {
		pid, err := strconv.Atoi(string(data))
		if err == nil {
			if process, err := os.FindProcess(pid); err == nil {
				if err := process.Signal(syscall.Signal(0)); err == nil {
					return fmt.Errorf("another watch daemon is running (PID %d)", pid)
				}
			}
		}
		// Stale PID file, remove it.
		_ = os.Remove(path)
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o600)
}
