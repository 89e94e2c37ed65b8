package historycmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conseilapp/conseil/pkg/cliui"
	"github.com/conseilapp/conseil/pkg/history"
)

const showLongDesc string = `Replay one archived conversation.

Chat replies and board syntheses are rendered as markdown.

Examples:
  conseil history show 4fd8c0ab-...`

const showShortDesc string = "Replay one conversation"

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: showShortDesc,
		Long:  showLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runShow(configDir, args[0])
		},
	}

	return cmd
}

func runShow(configDir, id string) error {
	store, err := openStore(configDir)
	if err != nil {
		return err
	}
	defer store.Close()

	conversation, entries, err := store.Get(context.Background(), id)
	if err != nil {
		return err
	}

	fmt.Printf("\n  %s %s\n",
		cliui.KeyStyle.Render(conversation.Kind),
		cliui.DimStyle.Render(conversation.CreatedAt.Local().Format("2006-01-02 15:04")),
	)

	for _, e := range entries {
		fmt.Printf("\n%s\n", entryHeader(e))
		fmt.Println(renderBody(e.Content))
	}

	return nil
}

func entryHeader(e history.Entry) string {
	switch e.Role {
	case "user":
		return cliui.AdvisorHeader("", "Vous", "")
	case "assistant":
		return cliui.AdvisorHeader("", "Conseil", "")
	case "synthesis":
		return cliui.AdvisorHeader("", "Synthèse", "⚖️")
	default:
		return cliui.AdvisorHeader(e.Role, e.Name, e.Emoji)
	}
}

// renderBody renders markdown, falling back to the raw text when the
// renderer cannot be built (e.g. no terminal).
func renderBody(content string) string {
	rendered, err := cliui.RenderMarkdown(content)
	if err != nil {
		return content
	}
	return rendered
}
