package cli

import (
	"testing"
	"time"
)

func TestParseTimeFlag(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"", time.Time{}, false},
		{"2026-03-01", time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), false},
		{"2026-03-01T14:30:00", time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC), false},
		{"2026-03-01T14:30:00Z", time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC), false},
		{"yesterday", time.Time{}, true},
	}

	for _, tt := range tests {
		got, err := parseTimeFlag(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseTimeFlag(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseTimeFlag(%q): unexpected error: %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseTimeFlag(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
