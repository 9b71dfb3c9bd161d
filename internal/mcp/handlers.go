package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wiber/intentguard/internal/audit"
	"github.com/wiber/intentguard/internal/budget"
	"github.com/wiber/intentguard/internal/guard"
	"github.com/wiber/intentguard/internal/model"
	"github.com/wiber/intentguard/internal/trustdebt"
)

// --- Input/Output types ---

// CheckInput defines parameters for the intentguard_check tool.
type CheckInput struct {
	Action string `json:"action" jsonschema:"action name to evaluate"`
	Caller string `json:"caller,omitempty" jsonschema:"calling principal, omit for the configured subject"`
}

// CheckOutput is the dry-run verdict. Allowed with a reason means the
// engine would fail open rather than judge the action.
type CheckOutput struct {
	Action  string `json:"action"`
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// GuardInput defines parameters for the intentguard_guard tool.
type GuardInput struct {
	Action string         `json:"action" jsonschema:"action name to evaluate"`
	Caller string         `json:"caller,omitempty" jsonschema:"calling principal, omit for the configured subject"`
	Params map[string]any `json:"params,omitempty" jsonschema:"tool parameters passed through on allow"`
}

// GuardOutput carries the recorded decision: params passthrough on allow,
// the denial reason and failed dimensions otherwise.
type GuardOutput struct {
	Allowed          bool                    `json:"allowed"`
	Params           map[string]any          `json:"params,omitempty"`
	Reason           string                  `json:"reason,omitempty"`
	FailedDimensions []model.FailedDimension `json:"failed_dimensions,omitempty"`
}

// IdentityInput is empty; the tool reports on the configured subject.
type IdentityInput struct{}

// IdentityOutput is the subject's current trust vector.
type IdentityOutput struct {
	Subject    string             `json:"subject"`
	SessionID  string             `json:"session_id"`
	Aggregate  float64            `json:"aggregate"`
	Scores     map[string]float64 `json:"scores"`
	ObservedAt string             `json:"observed_at"`
	ReportAge  string             `json:"report_age,omitempty"`
}

// ReloadInput is empty.
type ReloadInput struct{}

// ReloadOutput confirms the rebuilt identity.
type ReloadOutput struct {
	Subject    string  `json:"subject"`
	Aggregate  float64 `json:"aggregate"`
	ObservedAt string  `json:"observed_at"`
}

// BudgetInput defines parameters for the intentguard_budget tool.
type BudgetInput struct {
	Spent float64 `json:"spent,omitempty" jsonschema:"amount already spent today in dollars, omit for authority only"`
}

// BudgetOutput is the computed spending authority, plus the classified
// usage when a spent amount was given.
type BudgetOutput struct {
	Authority budget.Authority `json:"authority"`
	Usage     *budget.Usage    `json:"usage,omitempty"`
}

// --- Handlers ---

func (s *Server) handleCheck(ctx context.Context, req *mcpsdk.CallToolRequest, input CheckInput) (*mcpsdk.CallToolResult, CheckOutput, error) {
	if input.Action == "" {
		return nil, CheckOutput{}, fmt.Errorf("action is required")
	}

	out := CheckOutput{Action: input.Action}
	caller := input.Caller
	if caller == "" {
		caller = s.guard.Subject()
	}
	if !s.guard.KnownCaller(caller) {
		out.Allowed = true
		out.Reason = audit.ReasonUnknownCaller
		return nil, out, nil
	}

	res := s.snapshot()(input.Action, nil)
	out.Allowed = res.Allowed
	out.Reason = res.Reason
	return nil, out, nil
}

func (s *Server) handleGuard(ctx context.Context, req *mcpsdk.CallToolRequest, input GuardInput) (*mcpsdk.CallToolResult, GuardOutput, error) {
	if input.Action == "" {
		return nil, GuardOutput{}, fmt.Errorf("action is required")
	}

	caller := input.Caller
	if caller == "" {
		caller = s.guard.Subject()
	}

	err := s.guard.Execute(ctx, guard.ActionRequest{
		Action: input.Action,
		Caller: caller,
		Params: input.Params,
	}, nil)
	if err != nil {
		var denied *guard.DeniedError
		if errors.As(err, &denied) {
			out := GuardOutput{
				Reason:           denied.Error(),
				FailedDimensions: denied.FailedDimensions,
			}
			return &mcpsdk.CallToolResult{IsError: true}, out, nil
		}
		return nil, GuardOutput{}, err
	}

	return nil, GuardOutput{Allowed: true, Params: input.Params}, nil
}

func (s *Server) handleIdentity(ctx context.Context, req *mcpsdk.CallToolRequest, input IdentityInput) (*mcpsdk.CallToolResult, IdentityOutput, error) {
	id := s.guard.Identity()

	out := IdentityOutput{
		Subject:    id.SubjectID,
		SessionID:  s.guard.SessionID(),
		Aggregate:  id.AggregateScore,
		Scores:     id.Scores,
		ObservedAt: id.ObservedAt.Format(audit.TimestampFormat),
	}
	if rep, err := trustdebt.LoadReport(s.reportPath); err == nil && !rep.GeneratedAt.IsZero() {
		out.ReportAge = humanize.Time(rep.GeneratedAt)
	}
	return nil, out, nil
}

func (s *Server) handleReload(ctx context.Context, req *mcpsdk.CallToolRequest, input ReloadInput) (*mcpsdk.CallToolResult, ReloadOutput, error) {
	id := s.guard.ReloadIdentity()
	s.RefreshHook()

	return nil, ReloadOutput{
		Subject:    id.SubjectID,
		Aggregate:  id.AggregateScore,
		ObservedAt: id.ObservedAt.Format(audit.TimestampFormat),
	}, nil
}

func (s *Server) handleBudget(ctx context.Context, req *mcpsdk.CallToolRequest, input BudgetInput) (*mcpsdk.CallToolResult, BudgetOutput, error) {
	id := s.guard.Identity()
	auth := s.mapper.Authority(id.AggregateScore)

	out := BudgetOutput{Authority: auth}
	if input.Spent > 0 {
		usage := budget.Classify(input.Spent, auth.DailyLimit)
		out.Usage = &usage
	}
	return nil, out, nil
}
