// Package gitops wraps the git invocations the orchestrator needs around
// staging, commits, and the review baseline.
package gitops

import (
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes a git subcommand in a directory and returns its stdout.
// Tests inject a fake; the default shells out.
type Runner func(dir string, args ...string) ([]byte, error)

func runReal(dir string, args ...string) ([]byte, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	return cmd.Output()
}

// Git performs source-control operations for one working tree. It never
// caches: the reviewer process may commit out-of-band, so every question is
// answered by re-asking git.
type Git struct {
	Dir string

	// Run executes git. Defaults to the real command.
	Run Runner
}

// New returns a Git for the working tree at dir.
func New(dir string) *Git {
	return &Git{Dir: dir}
}

func (g *Git) run(args ...string) ([]byte, error) {
	runner := g.Run
	if runner == nil {
		runner = runReal
	}
	return runner(g.Dir, args...)
}

// HeadCommit returns the current HEAD commit hash.
func (g *Git) HeadCommit() (string, error) {
	out, err := g.run("rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git rev-parse HEAD: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Branch returns the current branch name, or "" in detached HEAD state.
func (g *Git) Branch() (string, error) {
	out, err := g.run("rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git rev-parse --abbrev-ref HEAD: %w", err)
	}
	name := strings.TrimSpace(string(out))
	if name == "HEAD" {
		return "", nil
	}
	return name, nil
}

// HasStaged reports whether anything is in the staging area.
func (g *Git) HasStaged() (bool, error) {
	out, err := g.run("diff", "--cached", "--name-only")
	if err != nil {
		return false, fmt.Errorf("git diff --cached: %w", err)
	}
	return strings.TrimSpace(string(out)) != "", nil
}

// HasChanges reports whether the working tree or index differs from HEAD.
func (g *Git) HasChanges() (bool, error) {
	out, err := g.run("status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("git status: %w", err)
	}
	return strings.TrimSpace(string(out)) != "", nil
}

// StageAll stages every working-tree change.
func (g *Git) StageAll() error {
	if _, err := g.run("add", "-A"); err != nil {
		return fmt.Errorf("git add -A: %w", err)
	}
	return nil
}

// CommitStaged commits whatever is staged and returns the new HEAD hash.
func (g *Git) CommitStaged(message string) (string, error) {
	if _, err := g.run("commit", "-m", message); err != nil {
		return "", fmt.Errorf("git commit: %w", err)
	}
	return g.HeadCommit()
}
