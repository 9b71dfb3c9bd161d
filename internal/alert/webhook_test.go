package alert

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestDispatchMatchesEvents(t *testing.T) {
	var called atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher([]Config{
		{URL: srv.URL, Format: "generic", Events: []string{EventDeny}},
	})

	d.Dispatch(Event{Event: EventDeny, Action: "modify_database", Caller: "agent-a"})
	time.Sleep(200 * time.Millisecond)

	if called.Load() != 1 {
		t.Errorf("expected 1 call, got %d", called.Load())
	}
}

func TestDispatchSkipsNonMatching(t *testing.T) {
	var called atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher([]Config{
		{URL: srv.URL, Format: "generic", Events: []string{EventDeny}},
	})

	d.Dispatch(Event{Event: EventMilestone, Action: "deploy_service"})
	time.Sleep(200 * time.Millisecond)

	if called.Load() != 0 {
		t.Errorf("expected 0 calls for non-matching event, got %d", called.Load())
	}
}

func TestDispatchMultipleWebhooks(t *testing.T) {
	var called atomic.Int32
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called.Add(1)
		w.WriteHeader(http.StatusOK)
	})

	srv1 := httptest.NewServer(handler)
	defer srv1.Close()
	srv2 := httptest.NewServer(handler)
	defer srv2.Close()

	d := NewDispatcher([]Config{
		{URL: srv1.URL, Format: "generic", Events: []string{EventDeny}},
		{URL: srv2.URL, Format: "generic", Events: []string{EventDeny, EventDrift}},
	})

	d.Dispatch(Event{Event: EventDeny, Action: "delete_data"})
	time.Sleep(200 * time.Millisecond)

	if called.Load() != 2 {
		t.Errorf("expected 2 calls (both webhooks match), got %d", called.Load())
	}
}

func TestNilDispatcher(t *testing.T) {
	d := NewDispatcher(nil)
	if d != nil {
		t.Fatal("empty config should produce nil dispatcher")
	}
	d.Dispatch(Event{Event: EventDeny}) // must not panic
}

func TestSendRetriesOn5xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := Send(Config{URL: srv.URL, Format: "generic"}, Event{Event: EventDeny})
	if err != nil {
		t.Fatalf("Send should succeed on third attempt: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestSendStopsOn4xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	if err := Send(Config{URL: srv.URL}, Event{Event: EventDeny}); err == nil {
		t.Fatal("4xx should fail immediately")
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 attempt on 4xx, got %d", calls.Load())
	}
}

func TestSendSetsHeaders(t *testing.T) {
	var gotAuth, gotType string
	var gotBody Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := Config{
		URL:     srv.URL,
		Format:  "generic",
		Headers: map[string]string{"Authorization": "Bearer tok"},
	}
	if err := Send(cfg, Event{Event: EventFailOpen, Action: "summon_kraken"}); err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotType != "application/json" {
		t.Errorf("Content-Type = %q", gotType)
	}
	if gotBody.Action != "summon_kraken" {
		t.Errorf("body action = %q", gotBody.Action)
	}
}

func TestFormatSlack(t *testing.T) {
	body, err := FormatPayload("slack", Event{Event: EventDrift, Action: "deploy_service", Caller: "agent-a"})
	if err != nil {
		t.Fatal(err)
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("slack payload not JSON: %v", err)
	}
	if _, ok := payload["blocks"]; !ok {
		t.Error("slack payload missing blocks")
	}
}
