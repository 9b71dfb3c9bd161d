package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wiber/intentguard/internal/config"
	"github.com/wiber/intentguard/internal/watch"
)

var (
	watchOnce     bool
	watchPoll     bool
	watchInterval time.Duration
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "Run one observation cycle and exit")
	watchCmd.Flags().BoolVar(&watchPoll, "poll", false, "Poll for report changes instead of using inotify")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Poll interval (implies --poll)")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Observe the trust report and record measurements",
	Long: "Watches the trust report for changes and records a stability measurement\n" +
		"for each new grading. Milestone windows produce a JSON artifact and, if\n" +
		"alerts are configured, a webhook notification. A PID file keeps it to\n" +
		"one daemon per state directory.",
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadEngineConfig()
	if err != nil {
		return err
	}
	if err := config.EnsureDirs(cfg); err != nil {
		return err
	}

	// State follows the stability DB so a custom --config keeps everything
	// in one place.
	stateDir := filepath.Dir(cfg.StabilityDB)

	d, err := watch.New(watch.Config{
		ReportPath:   cfg.ReportPath,
		Subject:      flagSubject,
		StateDir:     stateDir,
		StabilityDB:  cfg.StabilityDB,
		ArtifactDir:  filepath.Join(stateDir, "milestones"),
		Alerts:       cfg.Alerts,
		Window:       cfg.Stability.Window,
		Band:         cfg.Stability.Band,
		PollMode:     watchPoll || watchInterval > 0,
		PollInterval: watchInterval,
	})
	if err != nil {
		return err
	}
	defer d.Close()

	if watchOnce {
		res, err := d.Cycle()
		if err != nil {
			return err
		}
		out, _ := json.MarshalIndent(res, "", "  ")
		fmt.Println(string(out))
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nStopping watch daemon...")
		cancel()
	}()

	fmt.Fprintf(os.Stderr, "intentguard watch: observing %s for %s\n", cfg.ReportPath, flagSubject)
	return d.Run(ctx)
}
