package intentguard

import (
	"context"
	"errors"

	"github.com/wiber/intentguard/internal/guard"
)

// ToolFunc is the function signature that Wrap guards. The caller provides
// a Call describing the intended invocation.
type ToolFunc func(ctx context.Context, call Call) (any, error)

// Wrap returns a ToolFunc that evaluates the permission predicate before
// calling fn. A denial returns *BlockedError without calling fn; the
// decision lands in the ledger either way. A Call with no caller of its
// own is attributed to the wrap caller.
func (c *Client) Wrap(fn ToolFunc, opts ...WrapOption) ToolFunc {
	wcfg := wrapConfig{caller: c.guard.Subject()}
	for _, o := range opts {
		o(&wcfg)
	}

	return func(ctx context.Context, call Call) (any, error) {
		caller := call.Caller
		if caller == "" {
			caller = wcfg.caller
		}

		var result any
		err := c.guard.Execute(ctx, guard.ActionRequest{
			Action: call.Action,
			Caller: caller,
			Params: call.Params,
		}, func(ctx context.Context) error {
			var ferr error
			result, ferr = fn(ctx, call)
			return ferr
		})

		var denied *guard.DeniedError
		if errors.As(err, &denied) {
			return nil, blockedFromDenied(call, denied)
		}
		return result, err
	}
}
