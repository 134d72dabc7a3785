package story

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

const (
	// StateFileName is the run state file inside a run directory.
	StateFileName = "prd.json"
	// ProgressFileName is the append-only progress log.
	ProgressFileName = "progress.md"
	// ProgressArchiveFileName receives compacted progress entries.
	ProgressArchiveFileName = "progress-archive.md"

	lastBranchFileName = ".last-branch"
	archiveDirName     = "archive"
)

// ErrCorruptState is returned when the on-disk state file cannot be parsed.
// The previous file is always left in place; the orchestrator keeps operating
// on its last good copy.
var ErrCorruptState = errors.New("run state file is not valid JSON")

// Store reads and writes the persisted state of one run directory.
// All mutations re-read the file first so that out-of-band writes by the
// reviewer process are never clobbered.
type Store struct {
	dir string

	// Now is the clock used for dated entries. Overridden in tests.
	Now func() time.Time
}

// NewStore returns a Store rooted at a run directory.
func NewStore(dir string) *Store {
	return &Store{dir: dir, Now: time.Now}
}

// Dir returns the run directory.
func (s *Store) Dir() string { return s.dir }

// StatePath returns the path of the run state file.
func (s *Store) StatePath() string { return filepath.Join(s.dir, StateFileName) }

// ProgressPath returns the path of the progress log.
func (s *Store) ProgressPath() string { return filepath.Join(s.dir, ProgressFileName) }

// Load reads the run state. A file that exists but does not parse yields
// ErrCorruptState; the file itself is untouched.
func (s *Store) Load() (*Run, error) {
	var run Run
	if err := ReadJSON(s.StatePath(), &run); err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return &run, nil
}

// Save writes the run state atomically.
func (s *Store) Save(run *Run) error {
	return WriteJSON(s.StatePath(), run)
}

// RemainingCount re-reads the state file and counts unpassed stories.
// This is the sole source of truth for run completion.
func (s *Store) RemainingCount() (int, error) {
	run, err := s.Load()
	if err != nil {
		return 0, err
	}
	return run.RemainingCount(), nil
}

// MarkStoryPassed sets passes=true on the story, appends note to its notes,
// and appends a dated progress entry. It re-reads before writing, so it is
// safe to call when the reviewer already performed the equivalent mutation:
// an already-passed story only gets the progress entry skipped too.
func (s *Store) MarkStoryPassed(id, note string) error {
	run, err := s.Load()
	if err != nil {
		return err
	}
	st := run.FindStory(id)
	if st == nil {
		return fmt.Errorf("story %s not found in %s", id, s.StatePath())
	}
	if st.Passes {
		// Reviewer got there first. Nothing left to record.
		return nil
	}
	st.Passes = true
	if note != "" {
		if st.Notes != "" {
			st.Notes += "\n"
		}
		st.Notes += note
	}
	if err := s.Save(run); err != nil {
		return err
	}
	return s.AppendProgress(id, note)
}

// AppendProgress appends a dated entry for the story to the progress log.
func (s *Store) AppendProgress(id, text string) error {
	f, err := os.OpenFile(s.ProgressPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open progress log: %w", err)
	}
	defer f.Close()

	date := s.Now().Format("2006-01-02 15:04")
	if _, err := fmt.Fprintf(f, "\n## %s - %s\n\n%s\n", date, id, text); err != nil {
		return fmt.Errorf("append progress entry: %w", err)
	}
	return nil
}

// ArchiveIfSessionChanged compares the run's branch label against the last
// label recorded on disk. On a change, the current state and progress log are
// copied into a dated archive folder keyed by the old label and the progress
// log is reset. Must run before any other mutation in a process invocation.
func (s *Store) ArchiveIfSessionChanged() (archived bool, err error) {
	run, err := s.Load()
	if err != nil {
		return false, err
	}

	labelPath := filepath.Join(s.dir, lastBranchFileName)
	prev, readErr := os.ReadFile(labelPath)
	last := string(prev)
	if readErr != nil && !os.IsNotExist(readErr) {
		return false, fmt.Errorf("read last branch label: %w", readErr)
	}

	if last == run.BranchName || last == "" {
		// First invocation just records the label.
		return false, WriteAtomic(labelPath, []byte(run.BranchName))
	}

	dest := filepath.Join(s.dir, archiveDirName,
		fmt.Sprintf("%s-%s", s.Now().Format("2006-01-02"), sanitizeLabel(last)))
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return false, fmt.Errorf("mkdir archive: %w", err)
	}
	if err := copyFile(s.StatePath(), filepath.Join(dest, StateFileName)); err != nil {
		return false, err
	}
	if _, statErr := os.Stat(s.ProgressPath()); statErr == nil {
		if err := copyFile(s.ProgressPath(), filepath.Join(dest, ProgressFileName)); err != nil {
			return false, err
		}
		if err := os.Remove(s.ProgressPath()); err != nil {
			return false, fmt.Errorf("reset progress log: %w", err)
		}
	}
	return true, WriteAtomic(labelPath, []byte(run.BranchName))
}

func sanitizeLabel(label string) string {
	out := make([]rune, 0, len(label))
	for _, r := range label {
		if r == '/' || r == '\\' {
			r = '-'
		}
		out = append(out, r)
	}
	return string(out)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	return WriteAtomic(dst, data)
}
