package story

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRun() *Run {
	return &Run{
		Project:    "demo",
		BranchName: "feature/demo",
		Stories: []Story{
			{ID: "s-1", Title: "First", Priority: 2},
			{ID: "s-2", Title: "Second", Priority: 1},
			{ID: "s-3", Title: "Third", Priority: 3, Passes: true},
		},
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(t.TempDir())
	s.Now = func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) }
	require.NoError(t, s.Save(testRun()))
	return s
}

func TestStore_RemainingCount(t *testing.T) {
	s := newTestStore(t)

	n, err := s.RemainingCount()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRun_NextStory_PriorityOrder(t *testing.T) {
	run := testRun()

	next := run.NextStory()
	require.NotNil(t, next)
	assert.Equal(t, "s-2", next.ID, "lowest priority value goes first")
}

func TestRun_NextStory_AllPassed(t *testing.T) {
	run := testRun()
	for i := range run.Stories {
		run.Stories[i].Passes = true
	}
	assert.Nil(t, run.NextStory())
}

func TestStore_MarkStoryPassed(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.MarkStoryPassed("s-1", "implemented and reviewed"))

	run, err := s.Load()
	require.NoError(t, err)
	st := run.FindStory("s-1")
	require.NotNil(t, st)
	assert.True(t, st.Passes)
	assert.Contains(t, st.Notes, "implemented and reviewed")

	progress, err := os.ReadFile(s.ProgressPath())
	require.NoError(t, err)
	assert.Contains(t, string(progress), "2026-03-14")
	assert.Contains(t, string(progress), "s-1")
}

func TestStore_MarkStoryPassed_AlreadyMarked(t *testing.T) {
	s := newTestStore(t)

	// Simulate the reviewer marking the story out-of-band.
	run, err := s.Load()
	require.NoError(t, err)
	run.FindStory("s-1").Passes = true
	require.NoError(t, s.Save(run))

	require.NoError(t, s.MarkStoryPassed("s-1", "duplicate"))

	run, err = s.Load()
	require.NoError(t, err)
	assert.Empty(t, run.FindStory("s-1").Notes, "no duplicate note when already marked")
	_, statErr := os.Stat(s.ProgressPath())
	assert.True(t, os.IsNotExist(statErr), "no progress entry when already marked")
}

func TestStore_MarkStoryPassed_NeverUnmarks(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.MarkStoryPassed("s-1", "first"))
	require.NoError(t, s.MarkStoryPassed("s-1", "second"))

	run, err := s.Load()
	require.NoError(t, err)
	assert.True(t, run.FindStory("s-1").Passes)
}

func TestStore_Load_CorruptFileRejected(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.StatePath(), []byte("{not json"), 0o644))

	_, err := s.Load()
	require.ErrorIs(t, err, ErrCorruptState)

	// The corrupt file must be left in place, never overwritten.
	data, readErr := os.ReadFile(s.StatePath())
	require.NoError(t, readErr)
	assert.Equal(t, "{not json", string(data))
}

func TestStore_ArchiveIfSessionChanged(t *testing.T) {
	s := newTestStore(t)

	// First invocation records the label without archiving.
	archived, err := s.ArchiveIfSessionChanged()
	require.NoError(t, err)
	assert.False(t, archived)

	require.NoError(t, s.AppendProgress("s-1", "work happened"))

	// Branch label changes: old state + progress move to the archive.
	run, err := s.Load()
	require.NoError(t, err)
	run.BranchName = "feature/other"
	require.NoError(t, s.Save(run))

	archived, err = s.ArchiveIfSessionChanged()
	require.NoError(t, err)
	assert.True(t, archived)

	_, statErr := os.Stat(s.ProgressPath())
	assert.True(t, os.IsNotExist(statErr), "progress log reset after archive")

	dest := filepath.Join(s.Dir(), "archive", "2026-03-14-feature-demo")
	assert.FileExists(t, filepath.Join(dest, StateFileName))
	assert.FileExists(t, filepath.Join(dest, ProgressFileName))

	// A second call with the same label is a no-op.
	archived, err = s.ArchiveIfSessionChanged()
	require.NoError(t, err)
	assert.False(t, archived)
}

func TestWriteAtomic_ReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")

	require.NoError(t, WriteAtomic(path, []byte("one")))
	require.NoError(t, WriteAtomic(path, []byte("two")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	// No stray temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
