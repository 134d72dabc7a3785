// Package cli wires the storyloop command tree.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var version = "dev"

// SetVersion records the build-time version string.
func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "storyloop",
	Short: "storyloop runs an autonomous implement, review, and commit loop",
	Long: `storyloop drives external coding agents through a queue of stories:
an implementation agent stages changes, a gatekeeper reviewer decides what
gets committed, and the loop keeps going until every story passes or a stop
condition triggers.

Run state lives under .storyloop/runs/<name>/ in the workspace.

Without a subcommand, storyloop behaves like "storyloop run".`,
	Args:         cobra.MaximumNArgs(1),
	RunE:         runLoop,
	SilenceUsage: true,
}

// Execute runs the CLI. Errors carrying an exit code are returned as
// *ExitError so main can map them to distinct process exit codes.
func Execute() error {
	return rootCmd.Execute()
}

// ExitError carries a specific process exit code out of a command.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("exit code %d", e.Code)
}

func init() {
	addRunFlags(rootCmd.Flags())
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}
