package render

import (
	"bytes"
	"context"
	"os/exec"
	"time"
)

// Executor runs an external program in dir and returns its combined output.
type Executor interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

// CommandExecutor runs programs with os/exec. Stdin is the null device, so
// a TeX engine that hits an error aborts instead of prompting.
type CommandExecutor struct{}

// waitDelay bounds how long Run waits for output pipes after the context
// kills the process.
const waitDelay = 2 * time.Second

// Run executes name with args and returns stdout and stderr interleaved.
func (CommandExecutor) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.WaitDelay = waitDelay

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	return out.Bytes(), err
}
