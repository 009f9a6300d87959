package runner

import (
	"context"
	"strings"

	"github.com/dotkeep/dotkeep/pkg/errors"
)

// Call records one invocation seen by a FakeRunner
type Call struct {
	Name  string
	Args  []string
	Input string
}

// FakeRunner is a scriptable Runner for tests. Responses are keyed by the
// joined command line ("name arg1 arg2"); unmatched commands fail.
type FakeRunner struct {
	Responses map[string]Result
	Errors    map[string]error
	Calls     []Call
}

// NewFake returns an empty FakeRunner
func NewFake() *FakeRunner {
	return &FakeRunner{
		Responses: make(map[string]Result),
		Errors:    make(map[string]error),
	}
}

// Stub registers stdout for a command line
func (f *FakeRunner) Stub(cmdline, stdout string) {
	f.Responses[cmdline] = Result{Stdout: stdout}
}

// StubError registers a failure for a command line
func (f *FakeRunner) StubError(cmdline string, err error) {
	f.Errors[cmdline] = err
}

func (f *FakeRunner) lookup(name string, args []string, input string) (Result, error) {
	key := strings.TrimSpace(name + " " + strings.Join(args, " "))
	f.Calls = append(f.Calls, Call{Name: name, Args: args, Input: input})

	if err, ok := f.Errors[key]; ok {
		return Result{ExitCode: 1}, err
	}
	if res, ok := f.Responses[key]; ok {
		return res, nil
	}
	return Result{ExitCode: 1}, errors.Newf(errors.ErrCommandFailed, "unexpected command %q", key)
}

// Run implements Runner
func (f *FakeRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	return f.lookup(name, args, "")
}

// RunInput implements Runner
func (f *FakeRunner) RunInput(ctx context.Context, input string, name string, args ...string) (Result, error) {
	return f.lookup(name, args, input)
}

// RunInteractive implements Runner
func (f *FakeRunner) RunInteractive(ctx context.Context, name string, args ...string) error {
	_, err := f.lookup(name, args, "")
	return err
}
