package procrun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"lapse/internal/services"
)

// Result captures the observable outcome of a finished process.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Elapsed  time.Duration
}

// Runner executes external programs.
type Runner interface {
	Run(ctx context.Context, name string, args []string, timeout time.Duration) (Result, error)
}

// ExecRunner runs programs with os/exec.
type ExecRunner struct{}

// Run starts name with args and waits for it to exit. A non-zero exit status
// is reported through Result.ExitCode with a nil error; launch failures and
// timeouts are returned as errors. A zero timeout disables the deadline.
func (ExecRunner) Run(ctx context.Context, name string, args []string, timeout time.Duration) (Result, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Result{}, services.Wrap(services.ErrConfiguration, "procrun", "run", "empty command", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 2 * time.Second
	configureProcessGroup(cmd)

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1}, services.Wrap(services.ErrExternalTool, "procrun", "start", name, err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var waitErr error
	select {
	case waitErr = <-done:
	case <-runCtx.Done():
		killProcessGroup(cmd)
		<-done
		result := Result{ExitCode: -1, Stdout: stdout.String(), Stderr: stderr.String(), Elapsed: time.Since(started)}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return result, services.Wrap(services.ErrTimeout, "procrun", "wait", fmt.Sprintf("%s exceeded %s", name, timeout), runCtx.Err())
		}
		return result, services.Wrap(services.ErrExternalTool, "procrun", "wait", fmt.Sprintf("%s cancelled", name), runCtx.Err())
	}

	result := Result{
		ExitCode: 0,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Elapsed:  time.Since(started),
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		result.ExitCode = -1
		return result, services.Wrap(services.ErrExternalTool, "procrun", "wait", name, waitErr)
	}
	return result, nil
}
