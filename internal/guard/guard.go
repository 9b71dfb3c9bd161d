// Package guard is the enforcement interceptor: it stands between an agent
// and its side effects, evaluates the permission predicate per action, and
// runs the guarded function only on ALLOW. Every decision lands in the
// hash-chained ledger; actions the registry cannot judge fail open into a
// separate gap ledger. Recording failures never change a decision.
package guard

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wiber/intentguard/internal/alert"
	"github.com/wiber/intentguard/internal/audit"
	"github.com/wiber/intentguard/internal/dimension"
	"github.com/wiber/intentguard/internal/heat"
	"github.com/wiber/intentguard/internal/identity"
	"github.com/wiber/intentguard/internal/model"
	"github.com/wiber/intentguard/internal/requirement"
)

// DefaultDriftThreshold is how many consecutive denials trip the
// drift-correction callback.
const DefaultDriftThreshold = 3

// ActionFunc is the guarded work. It runs only when the permission
// predicate allows the action, or when the action falls outside
// governance entirely.
type ActionFunc func(ctx context.Context) error

// ActionRequest describes one intended action presented to the guard.
type ActionRequest struct {
	Action string
	Caller string
	Params map[string]any
}

// DenialEvent is passed to the OnDenial callback after every denied action.
type DenialEvent struct {
	Subject            string
	Caller             string
	Action             string
	Permission         model.Permission
	ConsecutiveDenials int
	TotalDenials       int
}

// DriftEvent is passed to the OnDrift callback when consecutive denials
// reach the drift threshold.
type DriftEvent struct {
	Subject            string
	SessionID          string
	ConsecutiveDenials int
	TotalDenials       int
	LastAction         string
	FailedDimensions   []model.FailedDimension
	At                 time.Time
}

// Config holds guard construction parameters. Zero values fall back to
// package defaults; an empty path disables the corresponding side effect.
type Config struct {
	Subject        string
	ReportPath     string
	RegistryPath   string
	LedgerPath     string
	GapLedgerPath  string
	HeatPath       string
	Theta          float64
	DriftThreshold int
	CacheTTL       time.Duration
	ExemptActions  []string
	KnownCallers   []string
	Alerts         []alert.Config
	OnDenial       func(DenialEvent)
	OnDrift        func(DriftEvent)
}

// Guard intercepts actions for one subject over one session. Denial
// counters are per instance and die with it; the ledgers are the durable
// record.
type Guard struct {
	cfg       Config
	sessionID string
	registry  *requirement.Registry
	loader    *identity.Loader
	ledger    *audit.Ledger
	gapLedger *audit.Ledger
	heat      *heat.Tracker
	alerts    *alert.Dispatcher
	exempt    map[string]bool
	known     map[string]bool

	mu                 sync.Mutex
	consecutiveDenials int
	totalDenials       int
}

// New builds a Guard for cfg.Subject. The requirement registry is loaded
// once at construction; identity is re-read through a TTL cache on every
// decision.
func New(cfg Config) (*Guard, error) {
	if cfg.Subject == "" {
		return nil, fmt.Errorf("guard: subject must not be empty")
	}
	if cfg.Theta <= 0 || cfg.Theta > 1 {
		cfg.Theta = dimension.DefaultTheta
	}
	if cfg.DriftThreshold < 1 {
		cfg.DriftThreshold = DefaultDriftThreshold
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = identity.DefaultTTL
	}

	registry, err := requirement.Load(cfg.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("guard: %w", err)
	}

	g := &Guard{
		cfg:       cfg,
		sessionID: uuid.NewString(),
		registry:  registry,
		loader:    identity.NewLoader(cfg.ReportPath, cfg.CacheTTL),
		alerts:    alert.NewDispatcher(cfg.Alerts),
		exempt:    make(map[string]bool, len(cfg.ExemptActions)),
		known:     make(map[string]bool, len(cfg.KnownCallers)),
	}
	for _, a := range cfg.ExemptActions {
		g.exempt[a] = true
	}
	for _, c := range cfg.KnownCallers {
		g.known[c] = true
	}

	if cfg.LedgerPath != "" {
		if g.ledger, err = audit.Open(cfg.LedgerPath); err != nil {
			return nil, fmt.Errorf("guard: %w", err)
		}
	}
	if cfg.GapLedgerPath != "" {
		if g.gapLedger, err = audit.Open(cfg.GapLedgerPath); err != nil {
			g.ledger.Close()
			return nil, fmt.Errorf("guard: %w", err)
		}
	}
	if cfg.HeatPath != "" {
		g.heat = heat.NewTracker(cfg.HeatPath)
	}
	return g, nil
}

// SessionID returns the identifier stamped on every record this guard writes.
func (g *Guard) SessionID() string { return g.sessionID }

// Subject returns the identity this guard evaluates.
func (g *Guard) Subject() string { return g.cfg.Subject }

// Registry exposes the loaded requirement registry for read-only use.
func (g *Guard) Registry() *requirement.Registry { return g.registry }

// Identity returns the subject's current trust vector through the TTL cache.
func (g *Guard) Identity() *model.Identity { return g.loader.Load(g.cfg.Subject) }

// Counters reports the session denial counters.
func (g *Guard) Counters() (consecutive, total int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.consecutiveDenials, g.totalDenials
}

// Execute evaluates the permission predicate for req and, on ALLOW, runs fn.
// A denial returns *DeniedError and never runs fn. Actions outside
// governance run fn without a decision: exemptions are traced to stderr,
// unknown callers and unregistered actions land in the gap ledger.
func (g *Guard) Execute(ctx context.Context, req ActionRequest, fn ActionFunc) error {
	if g.exempt[req.Action] {
		fmt.Fprintf(os.Stderr, "guard: exempt action %s bypassed for %s\n", req.Action, g.cfg.Subject)
		return run(ctx, fn)
	}
	if !g.knownCaller(req.Caller) {
		g.recordGap(req.Caller, req.Action, audit.ReasonUnknownCaller)
		return run(ctx, fn)
	}
	reqmt, ok := g.registry.Get(req.Action)
	if !ok {
		g.recordGap(req.Caller, req.Action, audit.ReasonUnregisteredAction)
		return run(ctx, fn)
	}

	id := g.loader.Load(g.cfg.Subject)
	perm := dimension.CheckPermission(id, &reqmt, g.cfg.Theta)
	g.record(req.Caller, req.Action, perm)

	if perm.Allowed {
		g.mu.Lock()
		g.consecutiveDenials = 0
		g.mu.Unlock()
		g.recordHeat(req.Caller, req.Action, true)
		return run(ctx, fn)
	}

	g.mu.Lock()
	g.consecutiveDenials++
	g.totalDenials++
	consecutive, total := g.consecutiveDenials, g.totalDenials
	g.mu.Unlock()

	g.recordHeat(req.Caller, req.Action, false)
	g.notifyDenial(DenialEvent{
		Subject:            g.cfg.Subject,
		Caller:             req.Caller,
		Action:             req.Action,
		Permission:         perm,
		ConsecutiveDenials: consecutive,
		TotalDenials:       total,
	})

	if consecutive >= g.cfg.DriftThreshold {
		g.fireDrift(DriftEvent{
			Subject:            g.cfg.Subject,
			SessionID:          g.sessionID,
			ConsecutiveDenials: consecutive,
			TotalDenials:       total,
			LastAction:         req.Action,
			FailedDimensions:   perm.FailedDimensions,
			At:                 time.Now().UTC(),
		})
	}

	return newDeniedError(req.Action, req.Caller, perm)
}

// CheckResult is a dry-run verdict: no ledger writes, no counters, no heat.
type CheckResult struct {
	Action     string
	Exempt     bool
	Registered bool
	Permission model.Permission
}

// Check evaluates the predicate for an action without executing anything
// or recording anywhere.
func (g *Guard) Check(action string) CheckResult {
	res := CheckResult{Action: action}
	if g.exempt[action] {
		res.Exempt = true
		return res
	}
	reqmt, ok := g.registry.Get(action)
	if !ok {
		return res
	}
	res.Registered = true
	id := g.loader.Load(g.cfg.Subject)
	res.Permission = dimension.CheckPermission(id, &reqmt, g.cfg.Theta)
	return res
}

// ReloadIdentity drops the cached identity, re-reads the trust report, and
// resets the consecutive-denial counter. A fresh report is a fresh start.
func (g *Guard) ReloadIdentity() *model.Identity {
	g.loader.Invalidate()
	id := g.loader.Load(g.cfg.Subject)
	g.mu.Lock()
	g.consecutiveDenials = 0
	g.mu.Unlock()
	return id
}

// Close releases both ledgers. The guard must not be used afterwards.
func (g *Guard) Close() error {
	err := g.ledger.Close()
	if gerr := g.gapLedger.Close(); err == nil {
		err = gerr
	}
	return err
}

// KnownCaller reports whether the guard can attribute a caller at all.
// Unknown callers fail open rather than being judged.
func (g *Guard) KnownCaller(caller string) bool { return g.knownCaller(caller) }

// knownCaller reports whether a caller can be judged at all. The subject
// itself is always known; an empty caller never is. A configured caller
// list restricts everyone else.
func (g *Guard) knownCaller(caller string) bool {
	if caller == "" {
		return false
	}
	if caller == g.cfg.Subject {
		return true
	}
	if len(g.known) == 0 {
		return true
	}
	return g.known[caller]
}

func (g *Guard) record(caller, action string, p model.Permission) {
	g.ledger.AppendSafe(audit.Record{
		SessionID:        g.sessionID,
		SubjectID:        g.cfg.Subject,
		Caller:           caller,
		Action:           action,
		Decision:         string(p.Decision()),
		OverlapRatio:     p.OverlapRatio,
		AggregateScore:   p.AggregateScore,
		OverlapThreshold: p.OverlapThreshold,
		MinAggregate:     p.MinAggregate,
		FailedDimensions: p.FailedDimensions,
	})
}

func (g *Guard) recordGap(caller, action, reason string) {
	fmt.Fprintf(os.Stderr, "guard: fail-open %s for action %s\n", reason, action)
	g.gapLedger.AppendGapSafe(audit.GapRecord{
		SessionID: g.sessionID,
		Caller:    caller,
		Action:    action,
		Reason:    reason,
	})
	g.alerts.Dispatch(alert.Event{
		Timestamp: time.Now().UTC().Format(audit.TimestampFormat),
		Event:     alert.EventFailOpen,
		SessionID: g.sessionID,
		Subject:   g.cfg.Subject,
		Caller:    caller,
		Action:    action,
		Detail:    reason,
	})
}

func (g *Guard) recordHeat(caller, action string, allowed bool) {
	if g.heat == nil {
		return
	}
	cell := caller + "/" + action
	var err error
	if allowed {
		err = g.heat.RecordAllow(cell)
	} else {
		err = g.heat.RecordDeny(cell)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "heat: %v\n", err)
	}
}

// notifyDenial dispatches the deny alert and invokes the denial callback
// inside its own recover boundary so a broken callback cannot take down
// the interceptor.
func (g *Guard) notifyDenial(ev DenialEvent) {
	g.alerts.Dispatch(alert.Event{
		Timestamp:      time.Now().UTC().Format(audit.TimestampFormat),
		Event:          alert.EventDeny,
		SessionID:      g.sessionID,
		Subject:        ev.Subject,
		Caller:         ev.Caller,
		Action:         ev.Action,
		AggregateScore: ev.Permission.AggregateScore,
		OverlapRatio:   ev.Permission.OverlapRatio,
		Detail:         fmt.Sprintf("denial %d in a row", ev.ConsecutiveDenials),
	})
	if g.cfg.OnDenial == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "guard: denial callback panicked: %v\n", r)
		}
	}()
	g.cfg.OnDenial(ev)
}

// fireDrift invokes the drift-correction callback. The consecutive counter
// resets whether the callback succeeds, panics, or does not exist: the
// threshold crossing was observed and must not re-fire on the next denial.
func (g *Guard) fireDrift(ev DriftEvent) {
	g.alerts.Dispatch(alert.Event{
		Timestamp: ev.At.Format(audit.TimestampFormat),
		Event:     alert.EventDrift,
		SessionID: g.sessionID,
		Subject:   ev.Subject,
		Action:    ev.LastAction,
		Detail:    fmt.Sprintf("%d consecutive denials", ev.ConsecutiveDenials),
	})
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "guard: drift callback panicked: %v\n", r)
		}
		g.mu.Lock()
		g.consecutiveDenials = 0
		g.mu.Unlock()
	}()
	if g.cfg.OnDrift != nil {
		g.cfg.OnDrift(ev)
	}
}

func run(ctx context.Context, fn ActionFunc) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}
