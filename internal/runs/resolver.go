// Package runs locates the run directory that applies to an invocation.
package runs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"storyloop/internal/story"
)

// RunsDirName is the conventional runs root inside a workspace.
const RunsDirName = ".storyloop/runs"

// Resolver determines which run directory applies to the current invocation.
type Resolver struct {
	// WorkspaceDir is the workspace root containing RunsDirName.
	WorkspaceDir string

	// Branch is the detected source-control branch name, if any.
	Branch string
}

// Root returns the runs root directory for the workspace.
func (r *Resolver) Root() string {
	return filepath.Join(r.WorkspaceDir, filepath.FromSlash(RunsDirName))
}

// Resolve returns exactly one run directory, or an error naming every
// candidate. Resolution order: explicit name, branch-derived name (only if
// that directory already holds valid run state), single candidate fallback.
func (r *Resolver) Resolve(explicit string) (string, error) {
	if explicit != "" {
		dir := filepath.Join(r.Root(), explicit)
		if !hasRunState(dir) {
			return "", fmt.Errorf("run %q not found under %s", explicit, r.Root())
		}
		return dir, nil
	}

	if r.Branch != "" {
		dir := filepath.Join(r.Root(), NormalizeBranch(r.Branch))
		if hasRunState(dir) {
			return dir, nil
		}
	}

	candidates, err := r.List()
	if err != nil {
		return "", err
	}
	switch len(candidates) {
	case 1:
		return candidates[0], nil
	case 0:
		return "", fmt.Errorf("no runs found under %s (create one with 'storyloop runs create')", r.Root())
	default:
		names := make([]string, len(candidates))
		for i, c := range candidates {
			names[i] = filepath.Base(c)
		}
		return "", fmt.Errorf("ambiguous run: %d candidates under %s (%s); pass --run",
			len(candidates), r.Root(), strings.Join(names, ", "))
	}
}

// List returns every directory under the runs root that holds valid run
// state, sorted by name.
func (r *Resolver) List() ([]string, error) {
	all, err := r.ListAll()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, dir := range all {
		if hasRunState(dir) {
			out = append(out, dir)
		}
	}
	return out, nil
}

// ListAll returns every directory under the runs root, sorted by name,
// including ones whose state file is missing or unreadable. Listing
// surfaces broken runs; resolution never picks one.
func (r *Resolver) ListAll() ([]string, error) {
	entries, err := os.ReadDir(r.Root())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read runs dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, filepath.Join(r.Root(), e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// NormalizeBranch maps a branch name to a run directory name: path
// separators become dashes so "feature/login" lives at runs/feature-login.
func NormalizeBranch(branch string) string {
	return strings.NewReplacer("/", "-", "\\", "-").Replace(branch)
}

// hasRunState reports whether dir contains a parseable run state file.
func hasRunState(dir string) bool {
	var run story.Run
	return story.ReadJSON(filepath.Join(dir, story.StateFileName), &run) == nil
}
