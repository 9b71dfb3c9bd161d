// Package intentguard provides in-process permission enforcement for Go
// agent frameworks. It wraps tool functions, evaluates the subject's earned
// per-dimension trust against each action's declared requirement, and
// returns *BlockedError at boundaries the agent cannot argue with. Every
// decision appends to the same hash-chained ledger the CLI reads.
//
// Usage:
//
//	ig, err := intentguard.New(intentguard.WithSubject("agent"))
//	wrapped := ig.Wrap(myTool, intentguard.WrapWithCaller("researcher"))
//	result, err := wrapped(ctx, intentguard.Call{
//	    Action: "call_external_api",
//	    Params: map[string]any{"url": "https://api.example.com/v1"},
//	})
//
// The SDK links directly against internal packages for zero-subprocess
// overhead. External users import github.com/wiber/intentguard/sdk/go/intentguard.
package intentguard
