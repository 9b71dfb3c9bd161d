package intentguard

import (
	"fmt"

	"github.com/wiber/intentguard/internal/budget"
	"github.com/wiber/intentguard/internal/config"
	"github.com/wiber/intentguard/internal/guard"
)

// Client embeds the enforcement interceptor for in-process tool wrapping.
// Thread-safe for concurrent calls.
type Client struct {
	cfg    clientConfig
	guard  *guard.Guard
	mapper budget.Mapper
}

// New creates a Client. Engine configuration loads from the config file
// first; options override individual fields on top of it.
func New(opts ...Option) (*Client, error) {
	cfg := clientConfig{subject: "agent", recording: true}
	for _, o := range opts {
		o(&cfg)
	}

	engine, err := config.Load(cfg.configPath)
	if err != nil {
		return nil, fmt.Errorf("intentguard: %w", err)
	}
	if cfg.reportPath != "" {
		engine.ReportPath = cfg.reportPath
	}
	if cfg.registryPath != "" {
		engine.RegistryPath = cfg.registryPath
	}
	if cfg.theta > 0 {
		engine.Theta = cfg.theta
	}
	if !cfg.recording {
		engine.LedgerPath = ""
		engine.GapLedgerPath = ""
		engine.HeatPath = ""
	}

	g, err := guard.New(guard.Config{
		Subject:        cfg.subject,
		ReportPath:     engine.ReportPath,
		RegistryPath:   engine.RegistryPath,
		LedgerPath:     engine.LedgerPath,
		GapLedgerPath:  engine.GapLedgerPath,
		HeatPath:       engine.HeatPath,
		Theta:          engine.Theta,
		DriftThreshold: engine.DriftThreshold,
		CacheTTL:       engine.CacheTTL(),
		ExemptActions:  engine.ExemptActions,
		KnownCallers:   engine.KnownCallers,
		Alerts:         engine.Alerts,
		OnDrift:        driftAdapter(cfg.onDrift),
	})
	if err != nil {
		return nil, fmt.Errorf("intentguard: %w", err)
	}

	return &Client{
		cfg:    cfg,
		guard:  g,
		mapper: budget.NewMapper(engine.Budget.Floor, engine.Budget.Ceiling),
	}, nil
}

// Check evaluates the permission predicate for an action without executing
// anything or recording anywhere.
func (c *Client) Check(action string) Result {
	return toResult(c.guard.Check(action))
}

// Authority computes the subject's current spending authority from its
// aggregate trust score.
func (c *Client) Authority() Authority {
	id := c.guard.Identity()
	a := c.mapper.Authority(id.AggregateScore)
	return Authority{Score: a.Score, DailyLimit: a.DailyLimit, Level: string(a.Level)}
}

// SessionID returns the identifier stamped on every ledger record this
// client writes.
func (c *Client) SessionID() string { return c.guard.SessionID() }

// Counters reports the session denial counters.
func (c *Client) Counters() (consecutive, total int) { return c.guard.Counters() }

// ReloadIdentity drops the cached identity and re-reads the trust report.
// Call it after the report regenerates mid-session.
func (c *Client) ReloadIdentity() { c.guard.ReloadIdentity() }

// Close releases the ledgers. The client must not be used afterwards.
func (c *Client) Close() error { return c.guard.Close() }

// driftAdapter converts the SDK drift handler to the internal callback
// signature. A nil handler stays nil so the interceptor skips the dispatch.
func driftAdapter(fn func(DriftEvent)) func(guard.DriftEvent) {
	if fn == nil {
		return nil
	}
	return func(ev guard.DriftEvent) {
		fn(DriftEvent{
			Subject:            ev.Subject,
			SessionID:          ev.SessionID,
			ConsecutiveDenials: ev.ConsecutiveDenials,
			TotalDenials:       ev.TotalDenials,
			LastAction:         ev.LastAction,
			FailedDimensions:   toFailedDimensions(ev.FailedDimensions),
			At:                 ev.At,
		})
	}
}
