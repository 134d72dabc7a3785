package agent

import (
	"context"
	"fmt"
)

// Invoker abstracts one external CLI's invocation convention. Tool
// differences live here, not in the loop: the orchestrator only ever asks an
// Invoker to run a prompt.
type Invoker interface {
	// Name identifies the tool for logs.
	Name() string
	// Command returns the binary to execute.
	Command() string
	// Args returns the full argument list for a non-interactive run of the
	// given prompt.
	Args(prompt string) []string
}

// ClaudeInvoker runs the claude CLI in non-interactive print mode.
type ClaudeInvoker struct {
	Model string
}

func (c ClaudeInvoker) Name() string    { return "claude" }
func (c ClaudeInvoker) Command() string { return "claude" }

func (c ClaudeInvoker) Args(prompt string) []string {
	args := []string{"--print", "--dangerously-skip-permissions"}
	if c.Model != "" {
		args = append(args, "--model", c.Model)
	}
	return append(args, prompt)
}

// CodexInvoker runs the codex CLI in full-auto exec mode.
type CodexInvoker struct {
	Model string
}

func (c CodexInvoker) Name() string    { return "codex" }
func (c CodexInvoker) Command() string { return "codex" }

func (c CodexInvoker) Args(prompt string) []string {
	args := []string{"exec", "--full-auto", "--skip-git-repo-check"}
	if c.Model != "" {
		args = append(args, "--model", c.Model)
	}
	return append(args, prompt)
}

// CursorInvoker runs the cursor agent CLI with stream-json output.
type CursorInvoker struct {
	Model string
}

func (c CursorInvoker) Name() string    { return "cursor" }
func (c CursorInvoker) Command() string { return "agent" }

func (c CursorInvoker) Args(prompt string) []string {
	model := c.Model
	if model == "" {
		model = "composer-1"
	}
	return []string{"--model", model, "--print", "--force", "--output-format", "stream-json", prompt}
}

// ForTool returns the Invoker for a configured tool name.
func ForTool(tool, model string) (Invoker, error) {
	switch tool {
	case "claude", "":
		return ClaudeInvoker{Model: model}, nil
	case "codex":
		return CodexInvoker{Model: model}, nil
	case "cursor":
		return CursorInvoker{Model: model}, nil
	default:
		return nil, fmt.Errorf("unknown tool %q (expected claude, codex, or cursor)", tool)
	}
}

// Invoke runs the invoker's command for the prompt via Run.
func Invoke(ctx context.Context, workDir string, inv Invoker, prompt string, opts ...Option) (*Result, error) {
	return Run(ctx, workDir, inv.Command(), inv.Args(prompt), opts...)
}
