package system

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds invocations whose context carries no deadline.
// External network tools occasionally wedge; nothing here may block forever.
const DefaultTimeout = 30 * time.Second

// ExecExecutor runs tools through os/exec. It implements ports.Executor.
type ExecExecutor struct{}

// New returns the process-wide executor.
func New() *ExecExecutor {
	return &ExecExecutor{}
}

// Run executes the tool and returns its combined output as a trimmed string.
// The process is killed when the context expires.
func (e *ExecExecutor) Run(ctx context.Context, name string, args ...string) (string, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	return strings.TrimSpace(string(out)), err
}
