package agent

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Test-helper process
// ---------------------------------------------------------------------------
//
// Tests use the "TestHelperProcess" pattern: re-exec the test binary with a
// sentinel env var so the child behaves as a fake agent. This lets us test
// the plumbing (exit codes, output capture, timeouts) without a real agent
// binary.

func TestHelperProcess(t *testing.T) {
	if os.Getenv("SL_TEST_HELPER") != "1" {
		return // not the helper invocation
	}
	switch os.Getenv("SL_TEST_MODE") {
	case "echo":
		args := os.Args[1:]
		for i, a := range args {
			if a == "--" {
				args = args[i+1:]
				break
			}
		}
		for i, a := range args {
			if i > 0 {
				fmt.Print(" ")
			}
			fmt.Print(a)
		}
	case "mixed":
		fmt.Print("to stdout;")
		fmt.Fprint(os.Stderr, "to stderr")
	case "exit":
		code, _ := strconv.Atoi(os.Getenv("SL_EXIT_CODE"))
		fmt.Print("failing output")
		os.Exit(code)
	case "slow":
		time.Sleep(30 * time.Second)
	default:
		fmt.Fprintln(os.Stderr, "unknown SL_TEST_MODE")
		os.Exit(2)
	}
	os.Exit(0)
}

// helperFactory returns a CommandFactory that re-invokes the current test
// binary as the helper process.
func helperFactory(mode string, envExtra ...string) CommandFactory {
	return func(ctx context.Context, workDir, name string, args ...string) *exec.Cmd {
		cs := append([]string{"-test.run=^TestHelperProcess$", "--"}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], cs...)
		cmd.Dir = workDir
		cmd.Env = append(os.Environ(),
			"SL_TEST_HELPER=1",
			"SL_TEST_MODE="+mode,
		)
		cmd.Env = append(cmd.Env, envExtra...)
		return cmd
	}
}

func TestRun_CapturesArgs(t *testing.T) {
	var live bytes.Buffer
	res, err := Run(context.Background(), t.TempDir(), "agent", []string{"one", "two"},
		WithCommandFactory(helperFactory("echo")),
		WithLiveWriter(&live),
	)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "one two", res.Output)
	assert.Equal(t, "one two", live.String(), "output streams live while being captured")
}

func TestRun_CombinesStdoutAndStderr(t *testing.T) {
	res, err := Run(context.Background(), t.TempDir(), "agent", nil,
		WithCommandFactory(helperFactory("mixed")),
		WithLiveWriter(&bytes.Buffer{}),
	)
	require.NoError(t, err)
	assert.Contains(t, res.Output, "to stdout")
	assert.Contains(t, res.Output, "to stderr")
}

func TestRun_NonzeroExitIsNotAnError(t *testing.T) {
	res, err := Run(context.Background(), t.TempDir(), "agent", nil,
		WithCommandFactory(helperFactory("exit", "SL_EXIT_CODE=3")),
		WithLiveWriter(&bytes.Buffer{}),
	)
	require.NoError(t, err, "nonzero child exit must not abort the run")
	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, res.Output, "failing output", "output is still captured on failure")
}

func TestRun_TimeoutKillsChild(t *testing.T) {
	start := time.Now()
	res, err := Run(context.Background(), t.TempDir(), "agent", nil,
		WithCommandFactory(helperFactory("slow")),
		WithLiveWriter(&bytes.Buffer{}),
		WithTimeout(200*time.Millisecond),
	)
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestForTool(t *testing.T) {
	tests := []struct {
		tool    string
		command string
	}{
		{"claude", "claude"},
		{"", "claude"},
		{"codex", "codex"},
		{"cursor", "agent"},
	}
	for _, tt := range tests {
		inv, err := ForTool(tt.tool, "")
		require.NoError(t, err)
		assert.Equal(t, tt.command, inv.Command())
	}

	_, err := ForTool("clippy", "")
	require.Error(t, err)
}

func TestInvoker_PromptIsLastArg(t *testing.T) {
	for _, tool := range []string{"claude", "codex", "cursor"} {
		inv, err := ForTool(tool, "test-model")
		require.NoError(t, err)
		args := inv.Args("do the thing")
		require.NotEmpty(t, args)
		assert.Equal(t, "do the thing", args[len(args)-1], tool)
		assert.Contains(t, args, "test-model", tool)
	}
}
