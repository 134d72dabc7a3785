// Package agent invokes the external implementation and reviewer processes.
package agent

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/creack/pty"
)

// Result holds the outcome of a single external process invocation.
type Result struct {
	ExitCode int
	Output   string // combined stdout+stderr as captured
	Duration time.Duration
	TimedOut bool // true if the process was killed due to timeout
}

// CommandFactory builds an *exec.Cmd for the given context, working
// directory, binary, and arguments. Tests inject a factory that invokes a
// helper process instead.
type CommandFactory func(ctx context.Context, workDir, name string, args ...string) *exec.Cmd

func defaultCommandFactory(ctx context.Context, workDir, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = workDir
	return cmd
}

// options holds optional configuration for Run.
type options struct {
	timeout        time.Duration
	commandFactory CommandFactory
	liveWriter     io.Writer
	usePTY         bool
}

// Option configures Run behaviour.
type Option func(*options)

// WithTimeout sets a per-invocation timeout. Zero (the default) means no
// timeout; unattended runs usually let the agent take as long as it takes.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithCommandFactory injects a custom command factory (used in tests).
func WithCommandFactory(f CommandFactory) Option {
	return func(o *options) { o.commandFactory = f }
}

// WithLiveWriter overrides the live output writer (default os.Stdout).
func WithLiveWriter(w io.Writer) Option {
	return func(o *options) { o.liveWriter = w }
}

// WithPTY runs the child under a pseudo-terminal so agent CLIs that detect a
// TTY keep their streamed, styled output. Output is still captured.
func WithPTY() Option {
	return func(o *options) { o.usePTY = true }
}

// Run invokes one external process, streaming its combined output to the
// live writer while capturing all of it into the returned Result.
//
// A nonzero child exit is NOT an error: the caller inspects the captured
// output for rate-limit or completion signals and decides what the exit
// means. Only a launch failure returns an error. This keeps one flaky agent
// invocation from aborting an hours-long unattended run.
func Run(ctx context.Context, workDir, name string, args []string, opts ...Option) (*Result, error) {
	cfg := options{
		commandFactory: defaultCommandFactory,
		liveWriter:     os.Stdout,
	}
	for _, o := range opts {
		o(&cfg)
	}

	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	cmd := cfg.commandFactory(ctx, workDir, name, args...)

	var buf bytes.Buffer
	sink := io.MultiWriter(&buf, cfg.liveWriter)

	start := time.Now()
	var runErr error
	if cfg.usePTY {
		runErr = runPTY(cmd, sink)
	} else {
		cmd.Stdout = sink
		cmd.Stderr = sink
		runErr = cmd.Run()
	}
	duration := time.Since(start)

	timedOut := ctx.Err() == context.DeadlineExceeded

	exitCode := 0
	if runErr != nil {
		exitErr, ok := runErr.(*exec.ExitError)
		switch {
		case ok:
			exitCode = exitErr.ExitCode()
		case timedOut:
			exitCode = -1
		default:
			return nil, fmt.Errorf("failed to run %s: %w", name, runErr)
		}
	}

	return &Result{
		ExitCode: exitCode,
		Output:   buf.String(),
		Duration: duration,
		TimedOut: timedOut,
	}, nil
}

// runPTY starts cmd under a pty and copies its merged output to sink.
func runPTY(cmd *exec.Cmd, sink io.Writer) error {
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return err
	}
	defer ptmx.Close()
	// The copy ends with EIO when the child closes its side; that is the
	// normal pty shutdown path, not a failure.
	_, _ = io.Copy(sink, ptmx)
	return cmd.Wait()
}
