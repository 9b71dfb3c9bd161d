package remedy

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/wiber/intentguard/internal/model"
	"github.com/wiber/intentguard/internal/trustdebt"
)

// GeneratorConfig holds parameters for order generation.
type GeneratorConfig struct {
	Subject string
	TTL     time.Duration // default DefaultTTL
}

// Generate builds a recalibration order from a denial streak, the subject's
// current identity, and the requirement that kept denying. TargetScores
// come from the failed dimensions; UnitReduction from inverting the band
// curve between the current aggregate and the requirement's minimum.
func Generate(cfg GeneratorConfig, denial Denial, id *model.Identity, req model.Requirement) (*Order, error) {
	if cfg.Subject == "" {
		return nil, fmt.Errorf("subject is required")
	}
	if denial.Action == "" {
		return nil, fmt.Errorf("action is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	targets := make(map[string]float64, len(denial.FailedDimensions))
	for _, fd := range denial.FailedDimensions {
		targets[fd.Name] = fd.Required
	}

	var unitReduction float64
	if id != nil && id.AggregateScore < req.MinAggregate {
		current := trustdebt.UnitsForScore(id.AggregateScore)
		needed := trustdebt.UnitsForScore(req.MinAggregate)
		unitReduction = current - needed
	}

	if len(targets) == 0 && unitReduction <= 0 {
		return nil, fmt.Errorf("nothing to recalibrate for action %s", denial.Action)
	}

	orderID, err := generateID()
	if err != nil {
		return nil, fmt.Errorf("generate ID: %w", err)
	}

	now := time.Now().UTC()
	ord := &Order{
		OrderVersion:       Version,
		ID:                 orderID,
		CreatedAt:          now,
		Expires:            now.Add(ttl),
		Subject:            cfg.Subject,
		SessionID:          denial.SessionID,
		Action:             denial.Action,
		ConsecutiveDenials: denial.ConsecutiveDenials,
		FailedDimensions:   denial.FailedDimensions,
		TargetScores:       targets,
		UnitReduction:      unitReduction,
	}
	if err := Validate(ord); err != nil {
		return nil, fmt.Errorf("generated order is invalid: %w", err)
	}
	return ord, nil
}

// WriteOutbox drops the order as pretty-printed JSON into dir and returns
// the written path. Orders are named by their id so re-delivery is
// idempotent.
func WriteOutbox(dir string, ord *Order) (string, error) {
	if err := Validate(ord); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create outbox %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(ord, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal order: %w", err)
	}
	path := filepath.Join(dir, ord.ID+".json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write order: %w", err)
	}
	return path, nil
}

// generateID creates a random order ID like "ro-a1b2c3d4".
func generateID() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "ro-" + hex.EncodeToString(b), nil
}
