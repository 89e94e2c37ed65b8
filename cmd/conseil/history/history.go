// Package historycmder provides the history command for browsing archived
// conversations.
package historycmder

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conseilapp/conseil/pkg/config"
	"github.com/conseilapp/conseil/pkg/history"
)

const historyLongDesc string = `Browse conversations archived by chat and board.

Conversations are stored in a local SQLite database (history.db in the
.conseil/ directory by default; override with history.sqlite_path).

Use subcommands to list or replay conversations:
  conseil history list           List recent conversations
  conseil history show <id>      Replay one conversation

Examples:
  conseil history list
  conseil history list --limit 5
  conseil history show 4fd8c0ab-...`

const historyShortDesc string = "Browse archived conversations"

func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: historyShortDesc,
		Long:  historyLongDesc,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newShowCmd())

	return cmd
}

// openStore resolves the configured database path and opens the archive.
func openStore(configDir string) (*history.Store, error) {
	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	cfg, err := cfger.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	path, err := history.ResolvePath(cfg.History.SQLitePath, configDir)
	if err != nil {
		return nil, err
	}

	store, err := history.Open(path, nil)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	return store, nil
}
