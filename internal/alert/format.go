package alert

import (
	"encoding/json"
	"fmt"
)

// FormatPayload builds the webhook body for the given format.
func FormatPayload(format string, event Event) ([]byte, error) {
	switch format {
	case "slack":
		return formatSlack(event)
	case "pagerduty":
		return formatPagerDuty(event)
	default:
		return formatGeneric(event)
	}
}

func formatGeneric(event Event) ([]byte, error) {
	return json.Marshal(event)
}

func formatSlack(event Event) ([]byte, error) {
	payload := map[string]any{
		"blocks": []any{
			map[string]any{
				"type": "header",
				"text": map[string]any{
					"type": "plain_text",
					"text": fmt.Sprintf("intentguard: %s", event.Event),
				},
			},
			map[string]any{
				"type": "section",
				"fields": []any{
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Action:* %s", event.Action)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Caller:* %s", event.Caller)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Aggregate:* %.3f", event.AggregateScore)},
					map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Detail:* %s", event.Detail)},
				},
			},
		},
	}
	return json.Marshal(payload)
}

func formatPagerDuty(event Event) ([]byte, error) {
	severity := "info"
	switch event.Event {
	case EventDrift:
		severity = "error"
	case EventDeny:
		severity = "warning"
	}

	payload := map[string]any{
		"event_action": "trigger",
		"payload": map[string]any{
			"summary":  fmt.Sprintf("intentguard %s: %s", event.Event, event.Action),
			"severity": severity,
			"source":   "intentguard",
			"custom_details": map[string]any{
				"action":          event.Action,
				"caller":          event.Caller,
				"subject":         event.Subject,
				"aggregate_score": event.AggregateScore,
				"overlap_ratio":   event.OverlapRatio,
				"detail":          event.Detail,
				"session_id":      event.SessionID,
			},
		},
	}
	return json.Marshal(payload)
}
