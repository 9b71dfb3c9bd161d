// Package mcp exposes the permission engine to MCP hosts over stdio. The
// host asks before every tool call; the engine answers from the subject's
// trust identity and records what it decided. Check answers come from a
// hook snapshot taken at startup and reinstalled on reload, so a host sees
// a consistent identity between reloads.
package mcp

import (
	"context"
	"fmt"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wiber/intentguard/internal/budget"
	"github.com/wiber/intentguard/internal/guard"
)

// Config holds MCP server construction parameters. Guard carries the
// enforcement wiring; the budget endpoints shape the spending tool.
type Config struct {
	Guard         guard.Config
	BudgetFloor   float64
	BudgetCeiling float64
}

// Server wraps the MCP SDK server around one guard instance.
type Server struct {
	mcpServer  *mcpsdk.Server
	guard      *guard.Guard
	mapper     budget.Mapper
	reportPath string

	mu   sync.Mutex
	hook guard.HookFunc
}

// New creates an MCP server with its guard, hook snapshot, and tools.
func New(cfg Config) (*Server, error) {
	g, err := guard.New(cfg.Guard)
	if err != nil {
		return nil, fmt.Errorf("mcp: %w", err)
	}

	s := &Server{
		guard:      g,
		mapper:     budget.NewMapper(cfg.BudgetFloor, cfg.BudgetCeiling),
		reportPath: cfg.Guard.ReportPath,
		hook:       g.Hook(),
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "intentguard",
			Version: "0.1.0",
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Close releases the guard's ledgers.
func (s *Server) Close() error {
	return s.guard.Close()
}

// RefreshHook reinstalls the check snapshot from the current identity. The
// reload tool calls it after re-reading the report; the watch daemon calls
// it when the report file changes under a running server.
func (s *Server) RefreshHook() {
	s.mu.Lock()
	s.hook = s.guard.Hook()
	s.mu.Unlock()
}

func (s *Server) snapshot() guard.HookFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hook
}

// registerTools adds all intentguard tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "intentguard_check",
		Description: "Check whether an action would be allowed for the current trust identity without executing or recording anything (dry-run).",
	}, s.handleCheck)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "intentguard_guard",
		Description: "Evaluate and record a permission decision for an action before executing it. Allowed actions return the params unchanged; denied actions return an error with the dimensions that fell short.",
	}, s.handleGuard)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "intentguard_identity",
		Description: "Return the subject's current trust identity: per-dimension scores, aggregate score, and the age of the trust report behind them.",
	}, s.handleIdentity)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "intentguard_reload",
		Description: "Re-read the trust report, rebuild the identity, and reinstall the check snapshot. Resets the consecutive-denial counter.",
	}, s.handleReload)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "intentguard_budget",
		Description: "Map the current aggregate trust score onto daily spending authority, and optionally classify an amount already spent against the limit.",
	}, s.handleBudget)
}
