package historycmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conseilapp/conseil/pkg/cliui"
)

const listLongDesc string = `List recent archived conversations, newest first.

Examples:
  conseil history list
  conseil history list --limit 5`

const listShortDesc string = "List recent conversations"

func newListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runList(configDir, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of conversations to list")

	return cmd
}

func runList(configDir string, limit int) error {
	store, err := openStore(configDir)
	if err != nil {
		return err
	}
	defer store.Close()

	conversations, err := store.List(context.Background(), limit)
	if err != nil {
		return err
	}

	if len(conversations) == 0 {
		fmt.Printf("\n  %s No archived conversations yet.\n\n", cliui.DimStyle.Render("●"))
		return nil
	}

	fmt.Printf("\n  %s\n\n", cliui.HeaderStyle.Render("Conversations"))
	for _, c := range conversations {
		fmt.Printf("  %s  %s  %s  %s\n",
			cliui.DimStyle.Render(c.CreatedAt.Local().Format("2006-01-02 15:04")),
			cliui.KeyStyle.Render(fmt.Sprintf("%-5s", c.Kind)),
			cliui.ValueStyle.Render(c.Title),
			cliui.DimStyle.Render(c.ID),
		)
	}
	fmt.Println()

	return nil
}
