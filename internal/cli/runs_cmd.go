package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"storyloop/internal/gitops"
	"storyloop/internal/runs"
	"storyloop/internal/story"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage run directories",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List runs in the workspace",
	RunE: func(cmd *cobra.Command, args []string) error {
		workDir, err := os.Getwd()
		if err != nil {
			return err
		}
		r := &runs.Resolver{WorkspaceDir: workDir}
		dirs, err := r.ListAll()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(dirs) == 0 {
			fmt.Fprintln(w, "No runs found.")
			return nil
		}
		fmt.Fprintf(w, "%-24s %-10s %s\n", "RUN", "REMAINING", "BRANCH")
		for _, dir := range dirs {
			run, err := story.NewStore(dir).Load()
			if err != nil {
				fmt.Fprintf(w, "%-24s (unreadable: %v)\n", filepath.Base(dir), err)
				continue
			}
			fmt.Fprintf(w, "%-24s %-10d %s\n", filepath.Base(dir), run.RemainingCount(), run.BranchName)
		}
		return nil
	},
}

var runsCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Scaffold a new run directory with an empty story queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		workDir, err := os.Getwd()
		if err != nil {
			return err
		}
		branch, _ := gitops.New(workDir).Branch()
		dir, err := runs.Create(workDir, args[0], branch)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", dir)
		return nil
	},
}

func init() {
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsCreateCmd)
}
