package scenario

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wiber/intentguard/internal/requirement"
)

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAllCasesPass(t *testing.T) {
	reg := requirement.New()

	s := &Scenario{
		Name: "basic allow",
		Cases: []Case{
			// Default identity (0.6 everywhere) clears the low-risk entry.
			{Action: "read_logs", Expect: "allow"},
		},
	}

	result := Run(s, reg)
	if result.Failed != 0 {
		t.Errorf("expected 0 failures, got %d: %+v", result.Failed, result.Cases)
	}
	if result.Passed != 1 {
		t.Errorf("expected 1 passed, got %d", result.Passed)
	}
}

func TestFailedAssertionDetected(t *testing.T) {
	reg := requirement.New()

	s := &Scenario{
		Name: "wrong expectation",
		Cases: []Case{
			// read_logs allows under the default identity, but we expect deny.
			{Action: "read_logs", Expect: "deny"},
		},
	}

	result := Run(s, reg)
	if result.Failed != 1 {
		t.Errorf("expected 1 failure, got %d", result.Failed)
	}
	if result.Passed != 0 {
		t.Errorf("expected 0 passed, got %d", result.Passed)
	}
}

func TestDefaultIdentityDeniedHighRisk(t *testing.T) {
	reg := requirement.New()

	s := &Scenario{
		Name: "default identity ceiling",
		Cases: []Case{
			{Action: "modify_database", Expect: "deny"},
			{Action: "delete_data", Expect: "deny"},
		},
	}

	result := Run(s, reg)
	if result.Failed != 0 {
		t.Errorf("expected 0 failures, got %d: %+v", result.Failed, result.Cases)
	}
}

func TestIdentityOverride(t *testing.T) {
	reg := requirement.New()

	s := &Scenario{
		Name: "trusted identity",
		Identity: &Identity{
			Aggregate: 0.9,
			Scores: map[string]float64{
				"security":     0.9,
				"testing":      0.9,
				"code_quality": 0.9,
			},
		},
		Cases: []Case{
			{Action: "modify_database", Expect: "allow"},
		},
	}

	result := Run(s, reg)
	if result.Failed != 0 {
		t.Errorf("expected 0 failures, got %d: %+v", result.Failed, result.Cases)
	}
}

func TestThetaOverride(t *testing.T) {
	reg := requirement.New()
	id := &Identity{
		Aggregate: 0.9,
		Scores: map[string]float64{
			"security":     0.9,
			"testing":      0.1,
			"code_quality": 0.9,
		},
	}

	// Two of three required dimensions met: overlap 0.67 sits between the
	// default threshold and the relaxed one.
	strict := Run(&Scenario{
		Name:     "default theta",
		Identity: id,
		Cases:    []Case{{Action: "modify_database", Expect: "deny"}},
	}, reg)
	if strict.Failed != 0 {
		t.Errorf("default theta: expected deny to pass, got %+v", strict.Cases)
	}

	relaxed := Run(&Scenario{
		Name:     "relaxed theta",
		Theta:    0.6,
		Identity: id,
		Cases:    []Case{{Action: "modify_database", Expect: "allow"}},
	}, reg)
	if relaxed.Failed != 0 {
		t.Errorf("relaxed theta: expected allow to pass, got %+v", relaxed.Cases)
	}
}

func TestUnregisteredActionFailsOpen(t *testing.T) {
	reg := requirement.New()

	s := &Scenario{
		Name: "fail open",
		Cases: []Case{
			{Action: "launch_rocket", Expect: "fail_open"},
		},
	}

	result := Run(s, reg)
	if result.Failed != 0 {
		t.Fatalf("expected 0 failures, got %d: %+v", result.Failed, result.Cases)
	}
	if !strings.Contains(result.Cases[0].Reason, "not registered") {
		t.Errorf("expected reason to mention registration, got %q", result.Cases[0].Reason)
	}
}

func TestUnknownCallerFailsOpen(t *testing.T) {
	reg := requirement.New()

	s := &Scenario{
		Name:         "caller gate",
		KnownCallers: []string{"reviewer-bot"},
		Cases: []Case{
			{Action: "read_logs", Caller: "stranger", Expect: "fail_open"},
			{Action: "read_logs", Caller: "reviewer-bot", Expect: "allow"},
			// An empty caller is the subject itself, which is always known.
			{Action: "read_logs", Expect: "allow"},
		},
	}

	result := Run(s, reg)
	if result.Failed != 0 {
		t.Errorf("expected 0 failures, got %d: %+v", result.Failed, result.Cases)
	}
}

func TestLoadAndRunFromFile(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "test.yaml", `
name: "log access"
cases:
  - action: read_logs
    expect: allow
`)

	result, err := LoadAndRun(filepath.Join(dir, "test.yaml"), "")
	if err != nil {
		t.Fatal(err)
	}
	if result.Failed != 0 {
		t.Errorf("expected 0 failures, got %d", result.Failed)
	}
	if result.File != filepath.Join(dir, "test.yaml") {
		t.Errorf("expected file path set, got %q", result.File)
	}
}

func TestLoadAndRunRegistryOverlay(t *testing.T) {
	dir := t.TempDir()
	regPath := writeScenario(t, dir, "requirements.yaml", `
version: 1
requirements:
  - action: summon_demon
    required_scores:
      security: 0.99
    min_aggregate: 0.99
`)
	scnPath := writeScenario(t, dir, "scenario.yaml", `
name: "overlay entry"
cases:
  - action: summon_demon
    expect: deny
`)

	result, err := LoadAndRun(scnPath, regPath)
	if err != nil {
		t.Fatal(err)
	}
	if result.Failed != 0 {
		t.Errorf("expected overlay action to deny, got %+v", result.Cases)
	}
}

func TestInvalidScenarioYAML(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "bad.yaml", ":::not yaml\x00")

	_, err := LoadAndRun(filepath.Join(dir, "bad.yaml"), "")
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestEmptyCasesList(t *testing.T) {
	reg := requirement.New()

	s := &Scenario{
		Name:  "empty",
		Cases: []Case{},
	}

	result := Run(s, reg)
	if result.Total != 0 {
		t.Errorf("expected 0 total, got %d", result.Total)
	}
	if result.Failed != 0 {
		t.Errorf("expected 0 failed, got %d", result.Failed)
	}
}

func TestCaseResultFieldsPopulated(t *testing.T) {
	reg := requirement.New()

	s := &Scenario{
		Name: "fields check",
		Cases: []Case{
			{Action: "read_logs", Caller: "ops", Expect: "ALLOW"},
		},
	}

	result := Run(s, reg)
	if len(result.Cases) != 1 {
		t.Fatalf("expected 1 case, got %d", len(result.Cases))
	}
	c := result.Cases[0]
	if c.Index != 1 {
		t.Errorf("index: got %d", c.Index)
	}
	if c.Action != "read_logs" {
		t.Errorf("action: got %s", c.Action)
	}
	if c.Caller != "ops" {
		t.Errorf("caller: got %s", c.Caller)
	}
	if c.Expected != "allow" {
		t.Errorf("expected normalized to lower case, got %s", c.Expected)
	}
	if c.Actual != "allow" {
		t.Errorf("actual: got %s", c.Actual)
	}
	if !c.Passed {
		t.Error("expected passed=true")
	}
	if c.Reason == "" {
		t.Error("reason should not be empty")
	}
}

func TestFormatTextReportsFailures(t *testing.T) {
	reg := requirement.New()

	good := Run(&Scenario{
		Name:  "good",
		Cases: []Case{{Action: "read_logs", Expect: "allow"}},
	}, reg)
	bad := Run(&Scenario{
		Name:  "bad",
		Cases: []Case{{Action: "read_logs", Expect: "deny"}},
	}, reg)

	out := FormatText([]*RunResult{good, bad})
	for _, want := range []string{
		"Checking 2 scenario files...",
		"PASS  good (1/1)",
		"FAIL  bad (0/1)",
		"expected deny, got allow",
		"1 of 2 cases passed. 1 of 2 scenarios failed.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestMultipleScenariosViaGlob(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "a.yaml", `
name: "scenario A"
cases:
  - action: read_logs
    expect: allow
`)
	writeScenario(t, dir, "b.yaml", `
name: "scenario B"
cases:
  - action: modify_database
    expect: deny
`)

	matches, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}

	var results []*RunResult
	for _, m := range matches {
		r, err := LoadAndRun(m, "")
		if err != nil {
			t.Fatal(err)
		}
		results = append(results, r)
	}

	totalPassed := 0
	for _, r := range results {
		totalPassed += r.Passed
	}
	if totalPassed != 2 {
		t.Errorf("expected 2 total passed across scenarios, got %d", totalPassed)
	}
}
