package remedy

import (
	"fmt"
	"strings"

	"github.com/wiber/intentguard/internal/dimension"
)

// ValidationError collects all validation failures for an order.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("order validation failed: %s", strings.Join(e.Errors, "; "))
}

func (e *ValidationError) add(msg string) {
	e.Errors = append(e.Errors, msg)
}

// Validate checks an Order for completeness and correctness. Returns nil
// if valid, or a *ValidationError listing all problems.
func Validate(ord *Order) error {
	ve := &ValidationError{}

	if ord.OrderVersion == "" {
		ve.add("order_version is required")
	} else if ord.OrderVersion != Version {
		ve.add(fmt.Sprintf("order_version %q is not supported (expected %q)", ord.OrderVersion, Version))
	}

	if ord.ID == "" {
		ve.add("id is required")
	}
	if ord.Subject == "" {
		ve.add("subject is required")
	}
	if ord.Action == "" {
		ve.add("action is required")
	}
	if ord.CreatedAt.IsZero() {
		ve.add("created_at is required")
	}
	if !ord.Expires.After(ord.CreatedAt) {
		ve.add("expires must be after created_at")
	}

	for dim, target := range ord.TargetScores {
		if !dimension.Valid(dim) {
			ve.add(fmt.Sprintf("target_scores: unknown dimension %q", dim))
		}
		if target < 0 || target > 1 {
			ve.add(fmt.Sprintf("target_scores[%s]: %v outside [0,1]", dim, target))
		}
	}

	if ord.UnitReduction < 0 {
		ve.add(fmt.Sprintf("unit_reduction %v must not be negative", ord.UnitReduction))
	}
	if len(ord.TargetScores) == 0 && ord.UnitReduction == 0 {
		ve.add("order demands nothing: no target scores and no unit reduction")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}
