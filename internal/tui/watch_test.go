package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyloop/internal/story"
)

func testModel(t *testing.T) Model {
	t.Helper()
	runDir := t.TempDir()
	st := story.NewStore(runDir)
	require.NoError(t, st.Save(&story.Run{
		Project: "demo",
		Stories: []story.Story{
			{ID: "s-1", Title: "First", Passes: true},
			{ID: "s-2", Title: "Second"},
		},
	}))
	return NewModel(t.TempDir(), runDir)
}

func TestModel_SnapshotLoadsRun(t *testing.T) {
	m := testModel(t)

	msg := m.snapshot()
	snap, ok := msg.(snapshotMsg)
	require.True(t, ok)
	require.NoError(t, snap.err)
	require.NotNil(t, snap.run)
	assert.Len(t, snap.run.Stories, 2)
}

func TestModel_ViewShowsStoryStatus(t *testing.T) {
	m := testModel(t)
	updated, _ := m.Update(m.snapshot())
	m = updated.(Model)

	view := m.View()
	assert.Contains(t, view, "demo (1/2 passed)")
	assert.Contains(t, view, "✓ s-1 First")
	assert.Contains(t, view, "○ s-2 Second")
}

func TestModel_ActiveStoryHighlighted(t *testing.T) {
	m := testModel(t)
	require.NoError(t, m.markers.WriteActiveStory("s-2"))

	updated, _ := m.Update(m.snapshot())
	m = updated.(Model)

	assert.Contains(t, m.View(), "● s-2 Second")
}

func TestModel_QuitKeys(t *testing.T) {
	m := testModel(t)
	for _, key := range []string{"q", "ctrl+c"} {
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
		if key == "ctrl+c" {
			_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		}
		require.NotNil(t, cmd, key)
		assert.Equal(t, tea.Quit(), cmd(), key)
	}
}

func TestModel_ErrorWhenStateCorrupt(t *testing.T) {
	m := testModel(t)
	require.NoError(t, story.WriteAtomic(m.store.StatePath(), []byte("{broken")))

	msg := m.snapshot()
	snap := msg.(snapshotMsg)
	require.Error(t, snap.err)

	updated, _ := m.Update(msg)
	m = updated.(Model)
	assert.Contains(t, m.View(), "Error:")
}
