package runs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyloop/internal/story"
)

func makeRun(t *testing.T, workspace, name string) string {
	t.Helper()
	dir := filepath.Join(workspace, filepath.FromSlash(RunsDirName), name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	s := story.NewStore(dir)
	require.NoError(t, s.Save(&story.Run{Project: name, BranchName: name}))
	return dir
}

func TestResolve_ExplicitName(t *testing.T) {
	ws := t.TempDir()
	want := makeRun(t, ws, "login")
	makeRun(t, ws, "other")

	r := &Resolver{WorkspaceDir: ws, Branch: "main"}
	got, err := r.Resolve("login")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResolve_ExplicitNameMissing(t *testing.T) {
	r := &Resolver{WorkspaceDir: t.TempDir()}
	_, err := r.Resolve("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestResolve_BranchDerived(t *testing.T) {
	ws := t.TempDir()
	want := makeRun(t, ws, "feature-login")
	makeRun(t, ws, "other")

	r := &Resolver{WorkspaceDir: ws, Branch: "feature/login"}
	got, err := r.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResolve_BranchDirWithoutStateIsSkipped(t *testing.T) {
	ws := t.TempDir()
	// Directory exists but holds no valid state; the single other candidate wins.
	empty := filepath.Join(ws, filepath.FromSlash(RunsDirName), "feature-login")
	require.NoError(t, os.MkdirAll(empty, 0o755))
	want := makeRun(t, ws, "solo")

	r := &Resolver{WorkspaceDir: ws, Branch: "feature/login"}
	got, err := r.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResolve_SingleCandidateFallback(t *testing.T) {
	ws := t.TempDir()
	want := makeRun(t, ws, "solo")

	r := &Resolver{WorkspaceDir: ws, Branch: "unrelated"}
	got, err := r.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResolve_AmbiguousFailsWithCandidates(t *testing.T) {
	ws := t.TempDir()
	makeRun(t, ws, "alpha")
	makeRun(t, ws, "beta")

	r := &Resolver{WorkspaceDir: ws, Branch: "unrelated"}
	_, err := r.Resolve("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "alpha")
	assert.Contains(t, err.Error(), "beta")
}

func TestResolve_NoneFound(t *testing.T) {
	r := &Resolver{WorkspaceDir: t.TempDir()}
	_, err := r.Resolve("")
	require.Error(t, err)
}

func TestNormalizeBranch(t *testing.T) {
	assert.Equal(t, "feature-login", NormalizeBranch("feature/login"))
	assert.Equal(t, "a-b-c", NormalizeBranch(`a/b\c`))
	assert.Equal(t, "main", NormalizeBranch("main"))
}

func TestListAll_IncludesBrokenRuns(t *testing.T) {
	ws := t.TempDir()
	good := makeRun(t, ws, "good")
	broken := filepath.Join(ws, filepath.FromSlash(RunsDirName), "broken")
	require.NoError(t, os.MkdirAll(broken, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(broken, story.StateFileName), []byte("{not json"), 0o644))

	r := &Resolver{WorkspaceDir: ws}

	all, err := r.ListAll()
	require.NoError(t, err)
	assert.Equal(t, []string{broken, good}, all)

	valid, err := r.List()
	require.NoError(t, err)
	assert.Equal(t, []string{good}, valid)
}
