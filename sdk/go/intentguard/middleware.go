package intentguard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// CallerHeader names the request header the middleware reads to attribute
// a caller. Requests without it are attributed to the subject.
const CallerHeader = "X-Intentguard-Caller"

// Middleware returns an http.Handler that evaluates the named action's
// requirement on each request before passing to next. Blocked requests
// receive a 403 with a JSON body; the decision lands in the ledger either
// way.
func (c *Client) Middleware(action string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serve := c.Wrap(func(ctx context.Context, _ Call) (any, error) {
			next.ServeHTTP(w, r.WithContext(ctx))
			return nil, nil
		})

		_, err := serve(r.Context(), Call{
			Action: action,
			Caller: r.Header.Get(CallerHeader),
			Params: map[string]any{"method": r.Method, "path": r.URL.Path},
		})

		var blocked *BlockedError
		if errors.As(err, &blocked) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]any{
				"blocked":           true,
				"action":            blocked.Call.Action,
				"overlap_ratio":     blocked.OverlapRatio,
				"overlap_threshold": blocked.OverlapThreshold,
				"aggregate_score":   blocked.AggregateScore,
				"min_aggregate":     blocked.MinAggregate,
				"failed_dimensions": blocked.FailedDimensions,
			})
		}
	})
}
