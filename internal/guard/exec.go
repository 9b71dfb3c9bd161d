package guard

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"syscall"
)

// ExecActionName is the registry action governing subprocess execution.
const ExecActionName = "execute_command"

// ExecResult captures subprocess execution outcome.
type ExecResult struct {
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exit_code"`
}

// ExecCommand runs name with args under the execute_command requirement.
// The subprocess starts only on ALLOW; a denial returns *DeniedError and a
// nil result. A nonzero exit is not an error here, it is reported in
// ExitCode so callers can distinguish "blocked" from "ran and failed".
func (g *Guard) ExecCommand(ctx context.Context, name string, args []string, stdin io.Reader) (*ExecResult, error) {
	var res *ExecResult
	err := g.Execute(ctx, ActionRequest{
		Action: ExecActionName,
		Caller: g.cfg.Subject,
		Params: map[string]any{"command": name},
	}, func(ctx context.Context) error {
		cmd := exec.CommandContext(ctx, name, args...)
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		if stdin != nil {
			cmd.Stdin = stdin
		}

		err := cmd.Run()
		exitCode := 0
		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
					exitCode = status.ExitStatus()
				}
			} else {
				return err
			}
		}

		res = &ExecResult{
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			ExitCode: exitCode,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
