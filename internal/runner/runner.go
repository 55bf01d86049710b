package runner

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/cruciblehq/triggerd/internal/registry"
)

var errNotFound = fmt.Errorf("executable file not found in child PATH: %w", exec.ErrNotFound)

// Outcome of a command that was started.
type Result struct {
	ExitCode int            // Exit code, or -1 if the process was killed by a signal.
	Signaled bool           // Whether the process was terminated by a signal.
	Signal   syscall.Signal // Terminating signal when Signaled is set.
	Stdout   []byte         // Captured standard output.
	Stderr   []byte         // Captured standard error.
	Duration time.Duration  // Wall-clock time from start to exit.
}

// Describes how the process ended, e.g. "exit code 1" or "signal SIGTERM".
func (r *Result) Disposition() string {
	if r.Signaled {
		return "signal " + signalName(r.Signal)
	}
	return fmt.Sprintf("exit code %d", r.ExitCode)
}

// Executes commands with a sanitized environment.
type Runner struct {
	inherit []string                    // Variables inherited from the daemon.
	lookup  func(string) (string, bool) // Source of inherited values.
}

// Creates a runner inheriting [InheritedEnv] from the process environment.
func New() *Runner {
	return &Runner{inherit: InheritedEnv, lookup: os.LookupEnv}
}

// Returns the environment a command would run with.
func (r *Runner) Environ(cmd registry.Command) []string {
	return buildEnv(r.inherit, r.lookup, cmd.Env())
}

// Runs cmd to completion.
//
// A non-zero exit or a terminating signal is reported in the [Result], not as
// an error. If the process cannot be started, a [*SpawnError] is returned.
// The call blocks until the process exits; nothing cancels it.
func (r *Runner) Run(cmd registry.Command) (*Result, error) {
	env := r.Environ(cmd)
	argv := cmd.Argv()

	path, err := lookPath(argv[0], env)
	if err != nil {
		return nil, &SpawnError{Name: argv[0], Err: err}
	}

	var stdout, stderr bytes.Buffer
	c := &exec.Cmd{
		Path:        path,
		Args:        argv,
		Env:         env,
		Stdout:      &stdout,
		Stderr:      &stderr,
		SysProcAttr: sysProcAttr(),
	}

	start := time.Now()
	if err := c.Start(); err != nil {
		return nil, &SpawnError{Name: argv[0], Err: err}
	}

	err = c.Wait()
	if c.ProcessState == nil {
		return nil, fmt.Errorf("%w: %w", ErrWait, err)
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		// Output copying failed but the process was reaped; its status
		// is still meaningful.
		stderr.WriteString(err.Error())
	}

	res := &Result{
		ExitCode: c.ProcessState.ExitCode(),
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}
	if ws, ok := c.ProcessState.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		res.Signaled = true
		res.Signal = ws.Signal()
	}
	return res, nil
}
