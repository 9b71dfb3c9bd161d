package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func tempLedger(t *testing.T) (*Ledger, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "decisions.jsonl")
	l, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l, path
}

func TestLedgerChain(t *testing.T) {
	l, path := tempLedger(t)
	for i := 0; i < 3; i++ {
		err := l.Append(Record{
			SubjectID: "agent-a",
			Caller:    "agent-a",
			Action:    "deploy_service",
			Decision:  "allow",
		})
		if err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	res := Verify(path)
	if !res.Valid {
		t.Fatalf("chain invalid: %+v", res)
	}
	if res.Lines != 3 {
		t.Errorf("lines = %d, want 3", res.Lines)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	var first Record
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatal(err)
	}
	if first.PrevHash != GenesisHash {
		t.Errorf("first prev_hash = %q, want genesis", first.PrevHash)
	}
	if first.Timestamp == "" {
		t.Error("timestamp not stamped")
	}
	if _, err := time.Parse(TimestampFormat, first.Timestamp); err != nil {
		t.Errorf("timestamp %q does not match layout: %v", first.Timestamp, err)
	}
}

func TestLedgerRecoversTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.jsonl")
	l, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Append(Record{Action: "read_logs", Decision: "allow"}); err != nil {
		t.Fatal(err)
	}
	l.Close()

	l2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer l2.Close()
	if err := l2.Append(Record{Action: "read_logs", Decision: "deny"}); err != nil {
		t.Fatal(err)
	}

	res := Verify(path)
	if !res.Valid || res.Lines != 2 {
		t.Errorf("chain after reopen: %+v", res)
	}
}

func TestVerifyDetectsTamper(t *testing.T) {
	l, path := tempLedger(t)
	for _, action := range []string{"read_logs", "deploy_service", "delete_data"} {
		if err := l.Append(Record{Action: action, Decision: "deny"}); err != nil {
			t.Fatal(err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	tampered := strings.Replace(string(data), "deploy_service", "deploy_payload", 1)
	if err := os.WriteFile(path, []byte(tampered), 0o600); err != nil {
		t.Fatal(err)
	}

	res := Verify(path)
	if res.Valid {
		t.Fatal("tampered chain verified as valid")
	}
	if res.ErrorLine != 3 {
		t.Errorf("error line = %d, want 3 (line after the edit)", res.ErrorLine)
	}
}

func TestAppendSafeSwallowsErrors(t *testing.T) {
	var l *Ledger
	l.AppendSafe(Record{Action: "x"}) // nil ledger must not panic
	l.AppendGapSafe(GapRecord{Action: "x"})
	if err := l.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}
}

func TestGapLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gaps.jsonl")
	l, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	recs := []GapRecord{
		{Caller: "agent-a", Action: "summon_kraken", Reason: ReasonUnregisteredAction},
		{Caller: "", Action: "deploy_service", Reason: ReasonUnknownCaller},
	}
	for _, rec := range recs {
		if err := l.AppendGap(rec); err != nil {
			t.Fatal(err)
		}
	}

	if res := Verify(path); !res.Valid || res.Lines != 2 {
		t.Errorf("gap chain: %+v", res)
	}

	got, err := QueryGaps(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("QueryGaps returned %d records", len(got))
	}
	if got[0].Reason != ReasonUnregisteredAction || got[1].Reason != ReasonUnknownCaller {
		t.Errorf("reasons = %q, %q", got[0].Reason, got[1].Reason)
	}
}

func writeQueryFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "decisions.jsonl")
	l, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := []Record{
		{Caller: "agent-a", SubjectID: "agent-a", Action: "deploy_service", Decision: "allow", OverlapRatio: 1.0, AggregateScore: 0.8},
		{Caller: "agent-a", SubjectID: "agent-a", Action: "modify_database", Decision: "deny", OverlapRatio: 0.0, AggregateScore: 0.8},
		{Caller: "agent-b", SubjectID: "agent-b", Action: "modify_database", Decision: "deny", OverlapRatio: 0.5, AggregateScore: 0.4},
		{Caller: "agent-b", SubjectID: "agent-b", Action: "delete_data", Decision: "deny", OverlapRatio: 0.0, AggregateScore: 0.4},
	}
	for i, rec := range rows {
		rec.Timestamp = base.Add(time.Duration(i) * time.Minute).Format(TimestampFormat)
		rec.SessionID = "sess-1"
		if err := l.Append(rec); err != nil {
			t.Fatal(err)
		}
	}
	return path
}

func TestQueryFilters(t *testing.T) {
	path := writeQueryFixture(t)

	all, err := Query(path, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Fatalf("unfiltered = %d records, want 4", len(all))
	}

	denied, _ := Query(path, Filter{Decision: "deny"})
	if len(denied) != 3 {
		t.Errorf("deny filter = %d, want 3", len(denied))
	}

	conj, _ := Query(path, Filter{Decision: "deny", Caller: "agent-b"})
	if len(conj) != 2 {
		t.Errorf("deny+caller filter = %d, want 2", len(conj))
	}

	// Half-open [From, To): the record at exactly To is excluded.
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ranged, _ := Query(path, Filter{From: base.Add(time.Minute), To: base.Add(3 * time.Minute)})
	if len(ranged) != 2 {
		t.Errorf("time range = %d records, want 2", len(ranged))
	}
	inclusive, _ := Query(path, Filter{From: base})
	if len(inclusive) != 4 {
		t.Errorf("From is inclusive, got %d records", len(inclusive))
	}
}

func TestQuerySkipsMalformedLines(t *testing.T) {
	path := writeQueryFixture(t)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("this is not json\n")
	f.Close()

	all, err := Query(path, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Errorf("got %d records, want 4 with garbage skipped", len(all))
	}
}

func TestSummarize(t *testing.T) {
	path := writeQueryFixture(t)
	all, err := Query(path, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	s := Summarize(all)
	if s.Total != 4 || s.Allowed != 1 || s.Denied != 3 {
		t.Errorf("counts = %+v", s)
	}
	if s.AllowRate != 0.25 {
		t.Errorf("allow rate = %v, want 0.25", s.AllowRate)
	}
	wantOverlap := (1.0 + 0.0 + 0.5 + 0.0) / 4
	if s.MeanOverlap != wantOverlap {
		t.Errorf("mean overlap = %v, want %v", s.MeanOverlap, wantOverlap)
	}
	if s.FirstTimestamp == "" || s.LastTimestamp == "" || s.FirstTimestamp >= s.LastTimestamp {
		t.Errorf("timestamps: first %q last %q", s.FirstTimestamp, s.LastTimestamp)
	}
	if empty := Summarize(nil); empty.Total != 0 || empty.AllowRate != 0 {
		t.Errorf("empty summary = %+v", empty)
	}
}

func TestTopDeniedFirstSeenTieBreak(t *testing.T) {
	records := []Record{
		{Action: "modify_database", Caller: "agent-a", Decision: "deny"},
		{Action: "delete_data", Caller: "agent-b", Decision: "deny"},
		{Action: "deploy_service", Caller: "agent-c", Decision: "allow"},
		{Action: "delete_data", Caller: "agent-a", Decision: "deny"},
		{Action: "modify_database", Caller: "agent-b", Decision: "deny"},
	}

	actions := TopDeniedActions(records, 5)
	if len(actions) != 2 {
		t.Fatalf("got %d actions, want 2 (allow rows excluded)", len(actions))
	}
	// Equal counts: modify_database was seen first.
	if actions[0].Key != "modify_database" || actions[1].Key != "delete_data" {
		t.Errorf("tie order = %q, %q", actions[0].Key, actions[1].Key)
	}
	if actions[0].Count != 2 || actions[1].Count != 2 {
		t.Errorf("counts = %d, %d", actions[0].Count, actions[1].Count)
	}

	callers := TopDeniedCallers(records, 1)
	if len(callers) != 1 || callers[0].Key != "agent-a" {
		t.Errorf("top caller = %+v, want agent-a first-seen", callers)
	}
}

func FuzzRecordLine(f *testing.F) {
	f.Add([]byte(`{"ts":"2026-03-01T12:00:00.000Z","action":"deploy_service","decision":"allow","prev_hash":"x"}`))
	f.Add([]byte(`{}`))
	f.Add([]byte(`not json`))

	f.Fuzz(func(t *testing.T, data []byte) {
		// Must not panic on any input
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			return
		}
		Summarize([]Record{rec})
	})
}
