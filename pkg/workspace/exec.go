package workspace

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ExecResult carries the outcome of a workspace command.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// CommandRunner is the command-execution contract the engine consumes.
type CommandRunner interface {
	Run(ctx context.Context, command string) (ExecResult, error)
}

// LocalRunner runs shell commands with the workspace root as working
// directory.
type LocalRunner struct {
	ws      *Workspace
	timeout time.Duration
}

var _ CommandRunner = (*LocalRunner)(nil)

func NewLocalRunner(ws *Workspace, timeout time.Duration) *LocalRunner {
	return &LocalRunner{ws: ws, timeout: timeout}
}

// Run executes command via the shell. A non-zero exit code is reported in
// ExecResult, not as an error; err is reserved for failures to run at all.
func (r *LocalRunner) Run(ctx context.Context, command string) (ExecResult, error) {
	if strings.TrimSpace(command) == "" {
		return ExecResult{}, fmt.Errorf("command cannot be empty")
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = r.ws.Root()

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := ExecResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		result.ExitCode = -1
		return result, fmt.Errorf("failed to run command: %w", err)
	}
	return result, nil
}
