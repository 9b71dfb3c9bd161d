// Package requirement holds the action requirement registry: the per-action
// trust demands (required dimension scores + minimum aggregate) that the
// permission predicate evaluates identities against.
package requirement

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/wiber/intentguard/internal/dimension"
	"github.com/wiber/intentguard/internal/model"
)

// File is the on-disk registry document: the built-in registry and any user
// overlay both use this shape.
type File struct {
	Version      int                 `yaml:"version"`
	Requirements []model.Requirement `yaml:"requirements"`
}

// Registry maps action names to their requirements. Reads are concurrent;
// registration is rare (startup, reload, tests).
type Registry struct {
	mu      sync.RWMutex
	actions map[string]model.Requirement
}

// New returns a registry preloaded with the built-in requirements.
func New() *Registry {
	r := &Registry{actions: make(map[string]model.Requirement)}
	var f File
	if err := yaml.Unmarshal(builtinYAML, &f); err != nil {
		// The built-in registry is embedded at compile time; failing to
		// parse it is a build defect, not a runtime condition.
		panic(fmt.Sprintf("requirement: built-in registry corrupt: %v", err))
	}
	for _, req := range f.Requirements {
		if err := r.Register(req); err != nil {
			panic(fmt.Sprintf("requirement: built-in %q invalid: %v", req.Action, err))
		}
	}
	return r
}

// Load returns the built-in registry overlaid with the requirements file at
// path, if it exists. A missing file is not an error; user entries replace
// built-ins with the same action name.
func Load(path string) (*Registry, error) {
	r := New()
	if path == "" {
		return r, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("failed to read requirements file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse requirements file %s: %w", path, err)
	}
	for _, req := range f.Requirements {
		if err := r.Register(req); err != nil {
			return nil, fmt.Errorf("requirements file %s: %w", path, err)
		}
	}
	return r, nil
}

// Register validates and stores a requirement, replacing any existing entry
// for the same action.
func (r *Registry) Register(req model.Requirement) error {
	if err := Validate(req); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[req.Action] = req
	return nil
}

// Get returns the requirement for an action. The second return is false when
// the action is unregistered; the caller decides the fail-open path.
func (r *Registry) Get(action string) (model.Requirement, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.actions[action]
	return req, ok
}

// Has reports whether an action is registered.
func (r *Registry) Has(action string) bool {
	_, ok := r.Get(action)
	return ok
}

// List returns all registered action names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.actions))
	for action := range r.actions {
		out = append(out, action)
	}
	sort.Strings(out)
	return out
}

// All returns every requirement, sorted by action name.
func (r *Registry) All() []model.Requirement {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Requirement, 0, len(r.actions))
	for _, req := range r.actions {
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Action < out[j].Action })
	return out
}

// FilterByMinAggregate returns requirements whose minimum aggregate is at
// least min, sorted by action name.
func (r *Registry) FilterByMinAggregate(min float64) []model.Requirement {
	var out []model.Requirement
	for _, req := range r.All() {
		if req.MinAggregate >= min {
			out = append(out, req)
		}
	}
	return out
}

// FilterByDimension returns requirements that constrain the named dimension,
// sorted by action name.
func (r *Registry) FilterByDimension(dim string) []model.Requirement {
	var out []model.Requirement
	for _, req := range r.All() {
		if _, ok := req.RequiredScores[dim]; ok {
			out = append(out, req)
		}
	}
	return out
}

// Validate checks that a requirement is well-formed: a named action, known
// dimensions, scores and aggregate inside [0,1], and, for irreversible
// actions, a floor of caution (min aggregate >= 0.5 plus at least one of
// the security-family dimensions).
func Validate(req model.Requirement) error {
	if req.Action == "" {
		return fmt.Errorf("requirement has no action name")
	}
	if req.MinAggregate < 0 || req.MinAggregate > 1 {
		return fmt.Errorf("action %q: min_aggregate %v outside [0,1]", req.Action, req.MinAggregate)
	}
	for dim, score := range req.RequiredScores {
		if !dimension.Valid(dim) {
			return fmt.Errorf("action %q: unknown dimension %q", req.Action, dim)
		}
		if score < 0 || score > 1 {
			return fmt.Errorf("action %q: dimension %q score %v outside [0,1]", req.Action, dim, score)
		}
	}
	if req.Irreversible {
		if req.MinAggregate < 0.5 {
			return fmt.Errorf("action %q: irreversible actions need min_aggregate >= 0.5, got %v", req.Action, req.MinAggregate)
		}
		if !hasSecurityFamily(req.RequiredScores) {
			return fmt.Errorf("action %q: irreversible actions must require security, integrity, or confidentiality", req.Action)
		}
	}
	return nil
}

func hasSecurityFamily(scores map[string]float64) bool {
	for _, dim := range []string{"security", "integrity", "confidentiality"} {
		if _, ok := scores[dim]; ok {
			return true
		}
	}
	return false
}

// RiskLabel buckets a requirement's minimum aggregate into a human label.
func RiskLabel(minAggregate float64) string {
	switch {
	case minAggregate < 0.4:
		return "low"
	case minAggregate < 0.7:
		return "medium"
	case minAggregate < 0.9:
		return "high"
	default:
		return "critical"
	}
}
