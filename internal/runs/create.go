package runs

import (
	"fmt"
	"os"
	"path/filepath"

	"storyloop/internal/story"
)

// Create scaffolds a new run directory under the workspace's runs root with
// an empty story queue, ready for a PRD author (human or agent) to fill in.
// It refuses to overwrite an existing run.
func Create(workspaceDir, name, branch string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("run name is required")
	}
	r := &Resolver{WorkspaceDir: workspaceDir}
	dir := filepath.Join(r.Root(), NormalizeBranch(name))
	if hasRunState(dir) {
		return "", fmt.Errorf("run %q already exists at %s", name, dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating run dir: %w", err)
	}

	st := story.NewStore(dir)
	if err := st.Save(&story.Run{
		Project:    name,
		BranchName: branch,
	}); err != nil {
		return "", err
	}
	return dir, nil
}
