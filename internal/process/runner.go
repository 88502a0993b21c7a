// Package process runs external tools synchronously and captures their
// output for diagnostics.
package process

import (
	"bytes"
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/logfields"
)

// Command describes one external invocation.
type Command struct {
	Argv []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
}

func (c Command) String() string {
	return strings.Join(c.Argv, " ")
}

// Result holds the captured output of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Run executes cmd and waits for it. A non-zero exit status or a failure to
// start yields a process error carrying the captured stdout and stderr.
func Run(ctx context.Context, cmd Command) (*Result, error) {
	if len(cmd.Argv) == 0 {
		return nil, errors.InternalError("empty command").Build()
	}

	// #nosec G204 -- commands come from project configuration.
	c := exec.CommandContext(ctx, cmd.Argv[0], cmd.Argv[1:]...)
	c.Dir = cmd.Dir
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	start := time.Now()
	err := c.Run()
	res := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: c.ProcessState.ExitCode(),
		Duration: time.Since(start),
	}

	slog.Debug("External command finished",
		slog.String("command", cmd.String()),
		slog.Int("exit_code", res.ExitCode),
		logfields.DurationMS(float64(res.Duration.Milliseconds())))

	if err == nil {
		return res, nil
	}

	msg := fmt.Sprintf("%s exited with error", cmd.Argv[0])
	var exitErr *exec.ExitError
	if !stdErrors.As(err, &exitErr) {
		msg = fmt.Sprintf("failed to start %s", cmd.Argv[0])
	}
	return res, errors.WrapError(err, errors.CategoryProcess, msg).
		Fatal().
		WithContext("command", cmd.String()).
		WithContext("exit_code", res.ExitCode).
		WithContext(errors.ContextStdout, res.Stdout).
		WithContext(errors.ContextStderr, res.Stderr).
		Build()
}
