package systemd

import (
	"strings"
	"testing"
)

func TestWatchTemplate(t *testing.T) {
	tmpl := WatchTemplate()

	// Must be a valid systemd unit with required sections.
	for _, section := range []string{"[Unit]", "[Service]", "[Install]"} {
		if !strings.Contains(tmpl, section) {
			t.Errorf("template missing section %s", section)
		}
	}

	// Must run the watch daemon.
	if !strings.Contains(tmpl, "intentguard watch") {
		t.Error("template missing intentguard watch command")
	}

	// The daemon writes ~/.intentguard; the sandbox must leave it writable.
	if !strings.Contains(tmpl, "ReadWritePaths=%h/.intentguard") {
		t.Error("template missing ReadWritePaths for the state directory")
	}

	// Must have security hardening directives.
	for _, directive := range []string{"NoNewPrivileges=true", "PrivateTmp=true", "ProtectSystem=strict"} {
		if !strings.Contains(tmpl, directive) {
			t.Errorf("template missing security directive %s", directive)
		}
	}

	// Must have resource limits.
	for _, limit := range []string{"MemoryMax=128M", "TasksMax=16"} {
		if !strings.Contains(tmpl, limit) {
			t.Errorf("template missing resource limit %s", limit)
		}
	}

	// User unit, not a system one.
	if !strings.Contains(tmpl, "WantedBy=default.target") {
		t.Error("user unit must be wanted by default.target")
	}
}
