// Package runner abstracts subprocess execution so commands wrapping
// external tools (bw, wg-quick) can be tested with a fake.
package runner

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/dotkeep/dotkeep/pkg/errors"
	"github.com/dotkeep/dotkeep/pkg/logging"
)

// Result holds the outcome of a subprocess run
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Runner executes external commands
type Runner interface {
	// Run executes name with args and returns the captured output.
	// A non-zero exit status is returned as an ErrCommandFailed error
	// alongside the Result.
	Run(ctx context.Context, name string, args ...string) (Result, error)

	// RunInput is Run with data piped to the child's stdin
	RunInput(ctx context.Context, input string, name string, args ...string) (Result, error)

	// RunInteractive executes name with args attached to the terminal,
	// for child processes that prompt the user themselves.
	RunInteractive(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs commands via os/exec
type ExecRunner struct {
	// Env entries appended to the child environment, "KEY=value" form
	Env []string
}

// New returns a Runner backed by os/exec
func New() *ExecRunner {
	return &ExecRunner{}
}

// WithEnv returns a copy of the runner with extra environment entries
func (r *ExecRunner) WithEnv(env ...string) *ExecRunner {
	clone := *r
	clone.Env = append(append([]string{}, r.Env...), env...)
	return &clone
}

// Run implements Runner
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	return r.run(ctx, "", name, args...)
}

// RunInput implements Runner
func (r *ExecRunner) RunInput(ctx context.Context, input string, name string, args ...string) (Result, error) {
	return r.run(ctx, input, name, args...)
}

func (r *ExecRunner) run(ctx context.Context, input, name string, args ...string) (Result, error) {
	logger := logging.GetLogger("runner")
	logging.LogCommand(name, args)

	if _, err := exec.LookPath(name); err != nil {
		return Result{ExitCode: -1}, errors.Wrapf(err, errors.ErrCommandNotFound,
			"%s is not installed or not in PATH", name)
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), r.Env...)
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	} else {
		// Children that prompt (bw login) still reach the user even
		// though their output is captured
		cmd.Stdin = os.Stdin
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		res.ExitCode = -1
		var exitErr *exec.ExitError
		if ok := asExitError(err, &exitErr); ok {
			res.ExitCode = exitErr.ExitCode()
		}
		logger.Debug().
			Str("command", name).
			Int("exitCode", res.ExitCode).
			Dur("duration", res.Duration).
			Msg("command failed")
		return res, errors.Wrapf(err, errors.ErrCommandFailed,
			"%s exited with status %d", name, res.ExitCode)
	}

	logger.Debug().
		Str("command", name).
		Dur("duration", res.Duration).
		Msg("command completed")
	return res, nil
}

// RunInteractive implements Runner
func (r *ExecRunner) RunInteractive(ctx context.Context, name string, args ...string) error {
	logging.LogCommand(name, args)

	if _, err := exec.LookPath(name); err != nil {
		return errors.Wrapf(err, errors.ErrCommandNotFound,
			"%s is not installed or not in PATH", name)
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), r.Env...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, errors.ErrCommandFailed, "%s failed", name)
	}
	return nil
}

func asExitError(err error, target **exec.ExitError) bool {
	e, ok := err.(*exec.ExitError)
	if ok {
		*target = e
	}
	return ok
}
