package requirement

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/wiber/intentguard/internal/model"
)

func TestBuiltinRegistry(t *testing.T) {
	r := New()

	deploy, ok := r.Get("deploy_service")
	if !ok {
		t.Fatal("deploy_service missing from built-in registry")
	}
	if deploy.RequiredScores["security"] != 0.7 || deploy.RequiredScores["reliability"] != 0.6 {
		t.Errorf("deploy_service scores = %v", deploy.RequiredScores)
	}
	if deploy.MinAggregate != 0.7 {
		t.Errorf("deploy_service min_aggregate = %v, want 0.7", deploy.MinAggregate)
	}

	db, ok := r.Get("modify_database")
	if !ok {
		t.Fatal("modify_database missing from built-in registry")
	}
	for dim, want := range map[string]float64{"security": 0.8, "testing": 0.7, "code_quality": 0.8} {
		if got := db.RequiredScores[dim]; got != want {
			t.Errorf("modify_database %s = %v, want %v", dim, got, want)
		}
	}
}

func TestBuiltinIrreversibleFloor(t *testing.T) {
	for _, req := range New().All() {
		if !req.Irreversible {
			continue
		}
		if req.MinAggregate < 0.5 {
			t.Errorf("%s: irreversible with min_aggregate %v", req.Action, req.MinAggregate)
		}
		if !hasSecurityFamily(req.RequiredScores) {
			t.Errorf("%s: irreversible without a security-family dimension", req.Action)
		}
	}
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name string
		req  model.Requirement
	}{
		{"empty action", model.Requirement{}},
		{"unknown dimension", model.Requirement{
			Action:         "x",
			RequiredScores: map[string]float64{"charisma": 0.5},
		}},
		{"score above one", model.Requirement{
			Action:         "x",
			RequiredScores: map[string]float64{"security": 1.5},
		}},
		{"negative score", model.Requirement{
			Action:         "x",
			RequiredScores: map[string]float64{"security": -0.1},
		}},
		{"aggregate out of range", model.Requirement{
			Action:       "x",
			MinAggregate: 1.2,
		}},
		{"irreversible without security family", model.Requirement{
			Action:         "x",
			Irreversible:   true,
			RequiredScores: map[string]float64{"testing": 0.9},
			MinAggregate:   0.9,
		}},
		{"irreversible below aggregate floor", model.Requirement{
			Action:         "x",
			Irreversible:   true,
			RequiredScores: map[string]float64{"security": 0.9},
			MinAggregate:   0.4,
		}},
	}
	r := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := r.Register(tt.req); err == nil {
				t.Errorf("Register accepted invalid requirement: %+v", tt.req)
			}
		})
	}
}

func TestGetAbsent(t *testing.T) {
	req, ok := New().Get("summon_kraken")
	if ok {
		t.Fatalf("unregistered action found: %+v", req)
	}
	if req.Action != "" {
		t.Errorf("absent lookup returned non-zero requirement: %+v", req)
	}
}

func TestListSorted(t *testing.T) {
	list := New().List()
	if len(list) == 0 {
		t.Fatal("empty registry")
	}
	for i := 1; i < len(list); i++ {
		if list[i-1] >= list[i] {
			t.Fatalf("List not sorted: %q before %q", list[i-1], list[i])
		}
	}
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "requirements.yaml")
	overlay := `version: 1
requirements:
  - action: deploy_service
    required_scores:
      security: 0.95
    min_aggregate: 0.9
  - action: launch_fireworks
    required_scores:
      security: 0.2
    min_aggregate: 0.1
`
	if err := os.WriteFile(path, []byte(overlay), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	deploy, _ := r.Get("deploy_service")
	if deploy.RequiredScores["security"] != 0.95 {
		t.Errorf("overlay did not replace deploy_service: %v", deploy.RequiredScores)
	}
	if _, ok := deploy.RequiredScores["reliability"]; ok {
		t.Error("overlay entry should replace, not merge, the built-in")
	}
	if !r.Has("launch_fireworks") {
		t.Error("overlay-only action missing")
	}
	if !r.Has("modify_database") {
		t.Error("untouched built-in missing after overlay")
	}
}

func TestLoadMissingFile(t *testing.T) {
	r, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing overlay should fall back to built-ins: %v", err)
	}
	if !r.Has("deploy_service") {
		t.Error("built-ins absent after missing-file load")
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"garbage.yaml": "{{{not yaml",
		"baddim.yaml": `requirements:
  - action: x
    required_scores:
      charisma: 0.5
`,
	} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Errorf("%s: Load accepted invalid file", name)
		}
	}
}

func TestFilters(t *testing.T) {
	r := New()
	for _, req := range r.FilterByMinAggregate(0.8) {
		if req.MinAggregate < 0.8 {
			t.Errorf("%s: min_aggregate %v below filter", req.Action, req.MinAggregate)
		}
	}
	byDim := r.FilterByDimension("testing")
	found := false
	for _, req := range byDim {
		if _, ok := req.RequiredScores["testing"]; !ok {
			t.Errorf("%s: returned without testing dimension", req.Action)
		}
		if req.Action == "modify_database" {
			found = true
		}
	}
	if !found {
		t.Error("FilterByDimension(testing) missed modify_database")
	}
}

func TestRiskLabel(t *testing.T) {
	tests := []struct {
		min  float64
		want string
	}{
		{0.0, "low"},
		{0.39, "low"},
		{0.4, "medium"},
		{0.69, "medium"},
		{0.7, "high"},
		{0.89, "high"},
		{0.9, "critical"},
		{1.0, "critical"},
	}
	for _, tt := range tests {
		if got := RiskLabel(tt.min); got != tt.want {
			t.Errorf("RiskLabel(%v) = %q, want %q", tt.min, got, tt.want)
		}
	}
}

func FuzzRegistryFile(f *testing.F) {
	f.Add(builtinYAML)
	f.Add([]byte(`requirements:
  - action: x
    min_aggregate: 0.5
`))
	f.Add([]byte{})
	f.Add([]byte(`{{{not yaml at all`))

	f.Fuzz(func(t *testing.T, data []byte) {
		// Must not panic on any input
		var file File
		if err := yaml.Unmarshal(data, &file); err != nil {
			return
		}
		for _, req := range file.Requirements {
			Validate(req)
		}
	})
}
