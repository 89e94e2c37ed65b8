// Package configcmder provides the config command for managing persistent
// conseil configuration stored in the .conseil/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent conseil configuration.

Configuration is stored as config.toml in the .conseil/ directory and
provides default values for command flags. CLI flags always take precedence
over config file values, and CONSEIL_* environment variables sit in between.

Keys use dotted notation matching the TOML section structure:
  backend.url, backend.locale,
  chat.model,
  board.advisors,
  history.sqlite_path,
  mockd.listen, mockd.scenario

Use subcommands to get, set, or list configuration values:
  conseil config set <key> <value>    Set a configuration value
  conseil config get <key>            Get a configuration value
  conseil config list                 List all configuration values

Examples:
  conseil config set backend.url https://api.conseil.app
  conseil config set board.advisors analyst,jurist,skeptic
  conseil config get chat.model
  conseil config list`

const configShortDesc string = "Manage persistent conseil configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
