package runs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyloop/internal/story"
)

func TestCreate(t *testing.T) {
	ws := t.TempDir()

	dir, err := Create(ws, "feature/login", "feature/login")
	require.NoError(t, err)
	assert.Contains(t, dir, "feature-login", "run dir name is branch-normalized")

	run, err := story.NewStore(dir).Load()
	require.NoError(t, err)
	assert.Equal(t, "feature/login", run.Project)
	assert.Equal(t, "feature/login", run.BranchName)
	assert.Empty(t, run.Stories)

	// The scaffolded run is now resolvable as the single candidate.
	r := &Resolver{WorkspaceDir: ws}
	resolved, err := r.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, dir, resolved)
}

func TestCreate_ExistingRunRejected(t *testing.T) {
	ws := t.TempDir()
	_, err := Create(ws, "main", "main")
	require.NoError(t, err)

	_, err = Create(ws, "main", "main")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestCreate_EmptyNameRejected(t *testing.T) {
	_, err := Create(t.TempDir(), "", "main")
	require.Error(t, err)
}
