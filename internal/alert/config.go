package alert

// Event names dispatchable to webhooks.
const (
	EventDeny      = "deny"
	EventDrift     = "drift_threshold"
	EventMilestone = "milestone"
	EventFailOpen  = "fail_open"
)

// Config defines a webhook alert destination.
type Config struct {
	URL     string            `yaml:"url"     json:"url"`
	Format  string            `yaml:"format"  json:"format"` // "generic", "slack", "pagerduty"
	Events  []string          `yaml:"events"  json:"events"` // ["deny", "drift_threshold", "milestone", "fail_open"]
	Headers map[string]string `yaml:"headers" json:"headers"`
}

// Event is the payload sent to webhook endpoints.
type Event struct {
	Timestamp      string  `json:"timestamp"`
	Event          string  `json:"event"`
	SessionID      string  `json:"session_id,omitempty"`
	Subject        string  `json:"subject,omitempty"`
	Caller         string  `json:"caller,omitempty"`
	Action         string  `json:"action,omitempty"`
	AggregateScore float64 `json:"aggregate_score,omitempty"`
	OverlapRatio   float64 `json:"overlap_ratio,omitempty"`
	Detail         string  `json:"detail,omitempty"`
}
