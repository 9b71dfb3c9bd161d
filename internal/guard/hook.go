package guard

import (
	"github.com/wiber/intentguard/internal/audit"
	"github.com/wiber/intentguard/internal/dimension"
)

// HookResult is the verdict a host-installed pre-action hook returns:
// proceed with the given params, or refuse with a reason.
type HookResult struct {
	Allowed bool           `json:"allowed"`
	Params  map[string]any `json:"params,omitempty"`
	Reason  string         `json:"reason,omitempty"`
}

// HookFunc is a before-action predicate suitable for installation in an
// agent host's tool pipeline.
type HookFunc func(action string, params map[string]any) HookResult

// Hook returns a predicate bound to the identity at call time. The closure
// never re-reads the trust report: regenerate and reinstall it after
// ReloadIdentity or any report change, or it keeps deciding on stale
// scores. Hooks write no ledger records; recorded decisions go through
// Execute.
func (g *Guard) Hook() HookFunc {
	id := g.loader.Load(g.cfg.Subject)
	theta := g.cfg.Theta
	return func(action string, params map[string]any) HookResult {
		if g.exempt[action] {
			return HookResult{Allowed: true, Params: params}
		}
		reqmt, ok := g.registry.Get(action)
		if !ok {
			return HookResult{Allowed: true, Params: params, Reason: audit.ReasonUnregisteredAction}
		}
		perm := dimension.CheckPermission(id, &reqmt, theta)
		if perm.Allowed {
			return HookResult{Allowed: true, Params: params}
		}
		return HookResult{Allowed: false, Reason: newDeniedError(action, "", perm).Error()}
	}
}
