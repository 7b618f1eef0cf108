// internal/cli/root.go
//
// cobra command tree for the `console` binary.
//
// Context
// -------
// One root command carries the persistent `--root` flag (project root with
// conf/console.yaml).  Sub-commands:
//
//   - serve                       run the HTTP console.
//   - list                        print the filtered listing as a table.
//   - set-status <id> <STATUS>    change one report's status.
//   - archive <id>, unarchive <id>
//
// Every sub-command boots the same way (config, logger, Vault when
// referenced, audit journal when configured) through App.boot.
//
// Notes
// -----
//   - Oxford commas, two spaces after periods.
package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "console",
		Short:        "Scan-report listing and lifecycle console",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Serve the web console
  console serve

  # Archived reports added by alice
  console list --archived --author alice

  # Lifecycle operations
  console set-status 42 COMPLET
  console archive 42
`),
	}
	cmd.PersistentFlags().StringVar(&app.Root, "root", "", "Project root holding conf/console.yaml (default: discovered)")

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newListCmd(app))
	cmd.AddCommand(newSetStatusCmd(app))
	cmd.AddCommand(newArchiveCmd(app, true))
	cmd.AddCommand(newArchiveCmd(app, false))
	return cmd
}
