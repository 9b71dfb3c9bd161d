package scenario

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wiber/intentguard/internal/dimension"
	"github.com/wiber/intentguard/internal/identity"
	"github.com/wiber/intentguard/internal/model"
	"github.com/wiber/intentguard/internal/requirement"
)

// OutcomeFailOpen is the asserted outcome for cases the engine declines to
// decide: unregistered actions and unknown callers.
const OutcomeFailOpen = "fail_open"

// Run evaluates all cases in a scenario against the given registry. Cases
// are independent: each sees the same identity snapshot, and nothing is
// written to any ledger.
func Run(s *Scenario, reg *requirement.Registry) *RunResult {
	theta := s.Theta
	if theta <= 0 {
		theta = dimension.DefaultTheta
	}
	id := scenarioIdentity(s.Identity)
	known := make(map[string]bool, len(s.KnownCallers))
	for _, caller := range s.KnownCallers {
		known[caller] = true
	}

	result := &RunResult{
		Name:  s.Name,
		Total: len(s.Cases),
	}

	for i, c := range s.Cases {
		cr := CaseResult{
			Index:    i + 1,
			Action:   c.Action,
			Caller:   c.Caller,
			Expected: strings.ToLower(strings.TrimSpace(c.Expect)),
		}
		cr.Actual, cr.Reason = evaluate(c, reg, id, theta, known)

		if cr.Actual == cr.Expected {
			cr.Passed = true
			result.Passed++
		} else {
			result.Failed++
		}

		result.Cases = append(result.Cases, cr)
	}

	return result
}

// evaluate mirrors the guard's decision path without its side effects:
// unknown caller and unregistered action fail open, everything else goes
// through the permission predicate.
func evaluate(c Case, reg *requirement.Registry, id *model.Identity, theta float64, known map[string]bool) (string, string) {
	if len(known) > 0 && c.Caller != "" && !known[c.Caller] {
		return OutcomeFailOpen, fmt.Sprintf("caller %q not in known_callers; engine fails open", c.Caller)
	}

	req, ok := reg.Get(c.Action)
	if !ok {
		return OutcomeFailOpen, fmt.Sprintf("action %q not registered; engine fails open", c.Action)
	}

	perm := dimension.CheckPermission(id, &req, theta)
	if perm.Allowed {
		return string(model.Allow), fmt.Sprintf("overlap %.2f, aggregate %.2f", perm.OverlapRatio, perm.AggregateScore)
	}
	return string(model.Deny), denyReason(perm)
}

func denyReason(p model.Permission) string {
	if p.OverlapRatio < p.OverlapThreshold {
		parts := make([]string, 0, len(p.FailedDimensions))
		for _, fd := range p.FailedDimensions {
			parts = append(parts, fmt.Sprintf("%s %.2f<%.2f", fd.Name, fd.Actual, fd.Required))
		}
		return fmt.Sprintf("overlap %.2f below %.2f: %s",
			p.OverlapRatio, p.OverlapThreshold, strings.Join(parts, ", "))
	}
	return fmt.Sprintf("aggregate %.2f below minimum %.2f", p.AggregateScore, p.MinAggregate)
}

// scenarioIdentity builds the identity a scenario runs under. An omitted
// identity block means the default identity; explicit scores pass through
// as written, so unknown dimensions simply never satisfy a requirement.
func scenarioIdentity(o *Identity) *model.Identity {
	if o == nil {
		return identity.DefaultIdentity("scenario")
	}
	scores := make(map[string]float64, len(o.Scores))
	for dim, v := range o.Scores {
		scores[dim] = v
	}
	return &model.Identity{
		SubjectID:      "scenario",
		Scores:         scores,
		AggregateScore: o.Aggregate,
		ObservedAt:     time.Now().UTC(),
	}
}

// LoadAndRun loads a scenario YAML file and runs it against the registry at
// registryPath (empty means the built-in registry).
func LoadAndRun(path, registryPath string) (*RunResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}

	reg, err := requirement.Load(registryPath)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}

	result := Run(&s, reg)
	result.File = path

	return result, nil
}
