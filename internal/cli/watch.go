package cli

import (
	"os"

	"github.com/spf13/cobra"

	"storyloop/internal/gitops"
	"storyloop/internal/runs"
	"storyloop/internal/tui"
)

var watchRunName string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a run's story queue and progress log live",
	RunE: func(cmd *cobra.Command, args []string) error {
		workDir, err := os.Getwd()
		if err != nil {
			return err
		}
		branch, _ := gitops.New(workDir).Branch()
		resolver := &runs.Resolver{WorkspaceDir: workDir, Branch: branch}
		runDir, err := resolver.Resolve(watchRunName)
		if err != nil {
			return err
		}
		return tui.Watch(workDir, runDir)
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchRunName, "run", "", "explicit run name under .storyloop/runs/")
}
