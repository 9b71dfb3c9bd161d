// Package scenario runs YAML decision-assertion files against the real
// requirement registry and permission predicate. Scenario files pin the
// decisions a deployment counts on, so a registry or threshold edit that
// flips one fails CI before it reaches an agent.
package scenario

// Identity overrides the trust vector under test. When a scenario omits
// it, cases run against the default identity.
type Identity struct {
	Aggregate float64            `yaml:"aggregate"`
	Scores    map[string]float64 `yaml:"scores"`
}

// Case is one decision assertion within a scenario.
type Case struct {
	Action string `yaml:"action"`
	Caller string `yaml:"caller,omitempty"`
	Expect string `yaml:"expect"`
}

// Scenario is a named collection of decision assertions. Theta overrides
// the overlap threshold; KnownCallers, when set, makes callers outside the
// list fail open exactly as the guard treats them.
type Scenario struct {
	Name         string    `yaml:"name"`
	Theta        float64   `yaml:"theta,omitempty"`
	Identity     *Identity `yaml:"identity,omitempty"`
	KnownCallers []string  `yaml:"known_callers,omitempty"`
	Cases        []Case    `yaml:"cases"`
}

// CaseResult is the outcome of evaluating one assertion.
type CaseResult struct {
	Index    int    `json:"index"`
	Passed   bool   `json:"passed"`
	Action   string `json:"action"`
	Caller   string `json:"caller,omitempty"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Reason   string `json:"reason"`
}

// RunResult is the outcome of running all cases in one scenario file.
type RunResult struct {
	File   string       `json:"file"`
	Name   string       `json:"name"`
	Total  int          `json:"total"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
	Cases  []CaseResult `json:"cases"`
}
