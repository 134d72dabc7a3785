// Package loop implements the autonomous story work loop.
package loop

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"storyloop/internal/review"
	"storyloop/internal/story"
)

// Marker file names, all scoped to the working directory (not the run
// directory). They describe the story currently being worked and live only
// for the duration of one story iteration.
const (
	CurrentStoryFileName = ".storyloop-current"
	VerdictFileName      = ".storyloop-verdict.json"
	BaselineFileName     = ".storyloop-baseline"
	StopFileName         = ".storyloop-stop"
)

// Markers owns the ephemeral per-round state. All existence and readiness
// checks go through it; nothing else in the program tests for these files
// directly.
type Markers struct {
	Dir string
}

func (m *Markers) currentPath() string  { return filepath.Join(m.Dir, CurrentStoryFileName) }
func (m *Markers) baselinePath() string { return filepath.Join(m.Dir, BaselineFileName) }

// VerdictPath is where the reviewer writes its report.
func (m *Markers) VerdictPath() string { return filepath.Join(m.Dir, VerdictFileName) }

// WriteActiveStory records the id of the story currently being worked.
func (m *Markers) WriteActiveStory(id string) error {
	return story.WriteAtomic(m.currentPath(), []byte(id+"\n"))
}

// ActiveStory returns the recorded story id, or "" when no story is active.
func (m *Markers) ActiveStory() (string, error) {
	data, err := os.ReadFile(m.currentPath())
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// WriteBaseline records the last reviewed-and-approved commit. The next
// review scopes its diff against this commit.
func (m *Markers) WriteBaseline(commit string) error {
	return story.WriteAtomic(m.baselinePath(), []byte(commit+"\n"))
}

// Baseline returns the recorded baseline commit, or "" when none exists.
func (m *Markers) Baseline() (string, error) {
	data, err := os.ReadFile(m.baselinePath())
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// LoadVerdict reads the retained verdict report from a previous round.
// Returns nil with no error when no verdict file exists.
func (m *Markers) LoadVerdict() (*review.Report, error) {
	if _, err := os.Stat(m.VerdictPath()); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return review.LoadReport(m.VerdictPath())
}

// RemoveVerdict deletes the verdict file so a reviewer that produces
// nothing is distinguishable from a stale report.
func (m *Markers) RemoveVerdict() error {
	err := os.Remove(m.VerdictPath())
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Purge removes all per-story markers. Called at the start of each story
// iteration and when a story's rounds are exhausted.
func (m *Markers) Purge() error {
	for _, p := range []string{m.currentPath(), m.VerdictPath(), m.baselinePath()} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// ConsumeStop reports whether the user dropped a stop file, deleting it so
// the next invocation starts clean. Checked once per completed story
// iteration, never mid-round.
func (m *Markers) ConsumeStop() (bool, error) {
	p := filepath.Join(m.Dir, StopFileName)
	err := os.Remove(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
