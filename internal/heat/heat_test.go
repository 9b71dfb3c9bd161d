package heat

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPromotion(t *testing.T) {
	tr := NewTracker(filepath.Join(t.TempDir(), "heat.json"))

	for i := 0; i < PromoteAfterTasks-1; i++ {
		if err := tr.RecordAllow("agent-a/deploy_service"); err != nil {
			t.Fatal(err)
		}
	}
	c := tr.Cells()["agent-a/deploy_service"]
	if c.Tier != TierDormant {
		t.Fatalf("tier = %q before threshold, want dormant", c.Tier)
	}

	if err := tr.RecordAllow("agent-a/deploy_service"); err != nil {
		t.Fatal(err)
	}
	c = tr.Cells()["agent-a/deploy_service"]
	if c.Tier != TierActive {
		t.Errorf("tier = %q after %d tasks, want active", c.Tier, PromoteAfterTasks)
	}
	if c.TaskCount != 0 || c.DenialCount != 0 {
		t.Errorf("counters not reset on promotion: %+v", c)
	}

	for i := 0; i < PromoteAfterTasks; i++ {
		tr.RecordAllow("agent-a/deploy_service")
	}
	if c := tr.Cells()["agent-a/deploy_service"]; c.Tier != TierHot {
		t.Errorf("tier = %q, want hot", c.Tier)
	}

	// Hot is the top; more allows accumulate but never overflow the tier.
	for i := 0; i < PromoteAfterTasks*2; i++ {
		tr.RecordAllow("agent-a/deploy_service")
	}
	if c := tr.Cells()["agent-a/deploy_service"]; c.Tier != TierHot {
		t.Errorf("tier = %q after extra allows, want hot", c.Tier)
	}
}

func TestDemotion(t *testing.T) {
	tr := NewTracker(filepath.Join(t.TempDir(), "heat.json"))

	// Drive the cell to hot first.
	for i := 0; i < PromoteAfterTasks*2; i++ {
		tr.RecordAllow("cell")
	}
	if c := tr.Cells()["cell"]; c.Tier != TierHot {
		t.Fatalf("setup: tier = %q", c.Tier)
	}

	for i := 0; i < DemoteAfterDenials; i++ {
		if err := tr.RecordDeny("cell"); err != nil {
			t.Fatal(err)
		}
	}
	c := tr.Cells()["cell"]
	if c.Tier != TierActive {
		t.Errorf("tier = %q after %d denials, want active", c.Tier, DemoteAfterDenials)
	}
	if c.DenialCount != 0 {
		t.Errorf("denial counter not reset: %+v", c)
	}

	// Dormant is the floor.
	for i := 0; i < DemoteAfterDenials*3; i++ {
		tr.RecordDeny("cell")
	}
	if c := tr.Cells()["cell"]; c.Tier != TierDormant {
		t.Errorf("tier = %q, want dormant floor", c.Tier)
	}
}

func TestPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heat.json")

	tr := NewTracker(path)
	for i := 0; i < PromoteAfterTasks; i++ {
		if err := tr.RecordAllow("cell"); err != nil {
			t.Fatal(err)
		}
	}

	reloaded := NewTracker(path)
	c, ok := reloaded.Cells()["cell"]
	if !ok {
		t.Fatal("cell lost across reload")
	}
	if c.Tier != TierActive {
		t.Errorf("reloaded tier = %q, want active", c.Tier)
	}

	// No temp file left behind.
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left after rename")
	}
}

func TestCorruptStateStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heat.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o600); err != nil {
		t.Fatal(err)
	}
	tr := NewTracker(path)
	if len(tr.Cells()) != 0 {
		t.Errorf("corrupt state should start empty, got %v", tr.Cells())
	}
	if err := tr.RecordAllow("cell"); err != nil {
		t.Fatalf("tracker unusable after corrupt load: %v", err)
	}
}

func TestCellsReturnsCopy(t *testing.T) {
	tr := NewTracker(filepath.Join(t.TempDir(), "heat.json"))
	tr.RecordAllow("cell")

	snapshot := tr.Cells()
	snapshot["cell"] = Cell{TaskCount: 99, Tier: TierHot}
	if c := tr.Cells()["cell"]; c.TaskCount == 99 || c.Tier == TierHot {
		t.Error("mutating the snapshot leaked into the tracker")
	}
}
