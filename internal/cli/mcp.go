package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	igmcp "github.com/wiber/intentguard/internal/mcp"
	"github.com/wiber/intentguard/internal/watch"
)

var mcpWatch bool

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().BoolVar(&mcpWatch, "watch", false, "Reinstall the check snapshot when the trust report changes")
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP permission server for host integration",
	Long: "Runs intentguard as an MCP (Model Context Protocol) server over stdio.\n" +
		"Exposes the engine as tools: check, guard, identity, reload, budget.",
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadEngineConfig()
	if err != nil {
		return err
	}

	gcfg := guardConfig(cfg)
	gcfg.OnDrift = remedyOnDrift(cfg)

	srv, err := igmcp.New(igmcp.Config{
		Guard:         gcfg,
		BudgetFloor:   cfg.Budget.Floor,
		BudgetCeiling: cfg.Budget.Ceiling,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down MCP server...")
		cancel()
	}()

	if mcpWatch {
		// The watcher needs the report's directory to exist before it can
		// subscribe to it.
		if err := os.MkdirAll(filepath.Dir(cfg.ReportPath), 0750); err != nil {
			return err
		}
		w := watch.NewReportWatcher(cfg.ReportPath, srv.RefreshHook)
		go func() {
			if err := w.Run(ctx); err != nil && ctx.Err() == nil {
				fmt.Fprintf(os.Stderr, "mcp: report watcher stopped: %v\n", err)
			}
		}()
	}

	fmt.Fprintf(os.Stderr, "intentguard MCP server running on stdio (subject %s)\n", flagSubject)
	fmt.Fprintln(os.Stderr)

	return srv.Run(ctx)
}
