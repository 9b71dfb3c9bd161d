package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"
)

// Filter holds conjunctive criteria for ledger queries. Zero-valued fields
// do not constrain. The time range is half-open: [From, To).
type Filter struct {
	Decision string
	Action   string
	Caller   string
	Subject  string
	Session  string
	From     time.Time
	To       time.Time
}

func (f Filter) matches(rec Record) bool {
	if f.Decision != "" && rec.Decision != f.Decision {
		return false
	}
	if f.Action != "" && rec.Action != f.Action {
		return false
	}
	if f.Caller != "" && rec.Caller != f.Caller {
		return false
	}
	if f.Subject != "" && rec.SubjectID != f.Subject {
		return false
	}
	if f.Session != "" && rec.SessionID != f.Session {
		return false
	}
	if !f.From.IsZero() || !f.To.IsZero() {
		ts, err := time.Parse(TimestampFormat, rec.Timestamp)
		if err != nil {
			return false
		}
		if !f.From.IsZero() && ts.Before(f.From) {
			return false
		}
		if !f.To.IsZero() && !ts.Before(f.To) {
			return false
		}
	}
	return true
}

// Query reads the decision ledger and returns records matching the filter,
// in append order. Malformed lines are skipped.
func Query(path string, filter Filter) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	var out []Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue // skip malformed lines
		}
		if filter.matches(rec) {
			out = append(out, rec)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	return out, nil
}

// QueryGaps reads the fail-open ledger in append order.
func QueryGaps(path string) ([]GapRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gap ledger: %w", err)
	}
	defer f.Close()

	var out []GapRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec GapRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read gap ledger: %w", err)
	}
	return out, nil
}

// Stats summarizes a slice of decision records.
type Stats struct {
	Total          int     `json:"total"`
	Allowed        int     `json:"allowed"`
	Denied         int     `json:"denied"`
	AllowRate      float64 `json:"allow_rate"`
	MeanOverlap    float64 `json:"mean_overlap"`
	MeanAggregate  float64 `json:"mean_aggregate"`
	FirstTimestamp string  `json:"first_timestamp,omitempty"`
	LastTimestamp  string  `json:"last_timestamp,omitempty"`
}

// Summarize computes totals, allow rate, and mean overlap/aggregate over
// the given records.
func Summarize(records []Record) Stats {
	var s Stats
	var overlapSum, aggSum float64
	for _, rec := range records {
		s.Total++
		switch rec.Decision {
		case "allow":
			s.Allowed++
		case "deny":
			s.Denied++
		}
		overlapSum += rec.OverlapRatio
		aggSum += rec.AggregateScore
		if s.FirstTimestamp == "" {
			s.FirstTimestamp = rec.Timestamp
		}
		s.LastTimestamp = rec.Timestamp
	}
	if s.Total > 0 {
		s.AllowRate = float64(s.Allowed) / float64(s.Total)
		s.MeanOverlap = overlapSum / float64(s.Total)
		s.MeanAggregate = aggSum / float64(s.Total)
	}
	return s
}

// DenialCount pairs a key (action or caller) with its denial count.
type DenialCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// TopDeniedActions returns the n most-denied actions. Ties keep the order
// the actions were first seen in the ledger.
func TopDeniedActions(records []Record, n int) []DenialCount {
	return topDenied(records, n, func(rec Record) string { return rec.Action })
}

// TopDeniedCallers returns the n most-denied callers, first-seen tie order.
func TopDeniedCallers(records []Record, n int) []DenialCount {
	return topDenied(records, n, func(rec Record) string { return rec.Caller })
}

func topDenied(records []Record, n int, key func(Record) string) []DenialCount {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	order := 0
	for _, rec := range records {
		if rec.Decision != "deny" {
			continue
		}
		k := key(rec)
		if _, ok := counts[k]; !ok {
			firstSeen[k] = order
			order++
		}
		counts[k]++
	}

	out := make([]DenialCount, 0, len(counts))
	for k, c := range counts {
		out = append(out, DenialCount{Key: k, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return firstSeen[out[i].Key] < firstSeen[out[j].Key]
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
