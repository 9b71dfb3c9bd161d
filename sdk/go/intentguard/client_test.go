package intentguard

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wiber/intentguard/internal/trustdebt"
)

// Category units that push every scored dimension near 1.0.
var highTrustCategories = map[string]float64{
	"security_governance": 100,
	"runtime_health":      100,
	"engineering_quality": 100,
}

// Category units far below every built-in requirement.
var lowTrustCategories = map[string]float64{
	"security_governance": 40000,
	"runtime_health":      40000,
	"engineering_quality": 40000,
}

// newClientHome isolates HOME and drops a trust report under it so the
// default engine paths all land in the temp directory.
func newClientHome(t *testing.T, totalUnits float64, categoryUnits map[string]float64) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeReport(t, filepath.Join(home, ".intentguard", "trust-report.json"), totalUnits, categoryUnits)
	return home
}

func writeReport(t *testing.T, path string, total float64, categoryUnits map[string]float64) {
	t.Helper()
	rep := trustdebt.Report{
		GeneratedAt: time.Now().UTC(),
		TotalUnits:  total,
		Grade:       trustdebt.GradeForUnits(total),
		Categories:  make(map[string]trustdebt.Category, len(categoryUnits)),
	}
	for name, units := range categoryUnits {
		rep.Categories[name] = trustdebt.Category{Units: units, Grade: trustdebt.GradeForUnits(units)}
	}
	data, err := json.Marshal(&rep)
	if err != nil {
		t.Fatalf("failed to marshal report: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		t.Fatalf("failed to create report dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("failed to write report: %v", err)
	}
}

// writeEngineConfig drops a config.yaml under the current temp HOME.
// Call after newClientHome and before mustNew.
func writeEngineConfig(t *testing.T, yaml string) {
	t.Helper()
	dir := filepath.Join(os.Getenv("HOME"), ".intentguard")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
}

func mustNew(t *testing.T, opts ...Option) *Client {
	t.Helper()
	c, err := New(opts...)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// newTestClient builds a high-trust client against a temp home.
func newTestClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	newClientHome(t, 200, highTrustCategories)
	return mustNew(t, opts...)
}

// newLowTrustClient builds a client whose trust fails every demanding
// built-in requirement.
func newLowTrustClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	newClientHome(t, 45000, lowTrustCategories)
	return mustNew(t, opts...)
}

func requireBlocked(t *testing.T, err error) *BlockedError {
	t.Helper()
	if err == nil {
		t.Fatal("expected call to be blocked, got nil error")
	}
	var blocked *BlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("expected *BlockedError, got %T: %v", err, err)
	}
	return blocked
}

func TestNewDefault(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := New()
	if err != nil {
		t.Fatalf("New() with defaults should succeed: %v", err)
	}
	defer c.Close()
	if c.SessionID() == "" {
		t.Error("expected a session ID")
	}
}

func TestNewBadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("theta: 7\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := New(WithConfigFile(path)); err == nil {
		t.Fatal("expected error for theta outside (0,1]")
	}
}

func TestCheckAllow(t *testing.T) {
	c := newTestClient(t)
	res := c.Check("read_logs")
	if !res.Allowed() {
		t.Errorf("expected allow for read_logs, got %s", res.Decision)
	}
	if !res.Governed() {
		t.Error("read_logs is registered; the check should be governed")
	}
}

func TestCheckDenied(t *testing.T) {
	c := newLowTrustClient(t)
	res := c.Check("modify_database")
	if res.Allowed() {
		t.Fatal("expected deny for modify_database under low trust")
	}
	if len(res.FailedDimensions) == 0 {
		t.Error("expected failed dimensions on a denial")
	}
}

func TestCheckUnregistered(t *testing.T) {
	c := newLowTrustClient(t)
	res := c.Check("browse_web")
	if res.Registered {
		t.Fatal("browse_web should not be registered")
	}
	if !res.Allowed() {
		t.Error("unregistered actions run ungoverned and count as allowed")
	}
	if res.Governed() {
		t.Error("a registry gap is not a governed outcome")
	}
}

func TestCheckExempt(t *testing.T) {
	newClientHome(t, 45000, lowTrustCategories)
	writeEngineConfig(t, "exempt_actions:\n  - read_logs\n")
	c := mustNew(t)

	res := c.Check("read_logs")
	if !res.Exempt {
		t.Fatal("expected read_logs to be exempt")
	}
	if !res.Allowed() {
		t.Error("exempt actions bypass evaluation and count as allowed")
	}
}

func TestCheckDoesNotRecord(t *testing.T) {
	home := newClientHome(t, 45000, lowTrustCategories)
	c := mustNew(t)

	c.Check("modify_database")

	ledger := filepath.Join(home, ".intentguard", "decisions.jsonl")
	if info, err := os.Stat(ledger); err == nil && info.Size() > 0 {
		t.Error("Check must not write to the decision ledger")
	}
}

func TestAuthority(t *testing.T) {
	c := newTestClient(t)
	a := c.Authority()
	if a.Level != "autonomous" {
		t.Errorf("expected autonomous level near full trust, got %s", a.Level)
	}
	if a.DailyLimit < 90 {
		t.Errorf("expected daily limit near the ceiling, got %.2f", a.DailyLimit)
	}

	low := newLowTrustClient(t)
	la := low.Authority()
	if la.Level != "restricted" {
		t.Errorf("expected restricted level at low trust, got %s", la.Level)
	}
	if la.DailyLimit >= a.DailyLimit {
		t.Error("low trust must not outspend high trust")
	}
}

func TestReloadIdentity(t *testing.T) {
	home := newClientHome(t, 45000, lowTrustCategories)
	c := mustNew(t)

	if res := c.Check("modify_database"); res.Allowed() {
		t.Fatal("expected deny before the report improves")
	}

	writeReport(t, filepath.Join(home, ".intentguard", "trust-report.json"), 200, highTrustCategories)
	c.ReloadIdentity()

	if res := c.Check("modify_database"); !res.Allowed() {
		t.Error("expected allow after reloading the improved report")
	}
}
