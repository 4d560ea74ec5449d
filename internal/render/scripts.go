package render

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"lapse/internal/logging"
	"lapse/internal/procrun"
)

// runHookScript invokes a camera hook and converts launch failures, timeouts
// and non-zero exits into a render error of kind. The error is returned to
// the caller to record, never used to abort the pipeline.
func runHookScript(ctx context.Context, runner procrun.Runner, logger *slog.Logger, kind Kind, label, script string, args []string, timeout time.Duration) *Error {
	script = strings.TrimSpace(script)
	if script == "" {
		return nil
	}
	logger.Info(fmt.Sprintf("running %s script", label),
		logging.String(logging.FieldEventType, "hook_script_start"),
		logging.String("script", script),
		logging.Strings("args", args),
	)

	result, err := runner.Run(ctx, script, args, timeout)
	if err != nil {
		return newError(kind, fmt.Sprintf("An error occurred while executing the %s script", label), err)
	}

	stderr := strings.TrimSuffix(result.Stderr, "\r\n")
	stderr = strings.TrimSuffix(stderr, "\n")
	if stderr != "" {
		logger.Error(fmt.Sprintf("%s script wrote to stderr", label),
			logging.String(logging.FieldEventType, "hook_script_stderr"),
			logging.String("stderr", stderr),
			logging.String("stdout", strings.TrimSpace(result.Stdout)),
		)
	}
	if result.ExitCode == 0 {
		logger.Info(fmt.Sprintf("%s script finished", label),
			logging.String(logging.FieldEventType, "hook_script_complete"),
			logging.Duration("elapsed", result.Elapsed),
		)
		return nil
	}
	if stderr != "" {
		return newError(kind, fmt.Sprintf("The %s script failed with the following error message: %s", label, stderr), nil)
	}
	return newError(kind, fmt.Sprintf("The %s script returned %d, which indicates an error", label, result.ExitCode), nil)
}
