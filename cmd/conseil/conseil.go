// Package conseilcmder assembles the conseil root command and its subcommands.
package conseilcmder

import (
	"fmt"

	"github.com/spf13/cobra"

	authcmder "github.com/conseilapp/conseil/cmd/conseil/auth"
	boardcmder "github.com/conseilapp/conseil/cmd/conseil/board"
	chatcmder "github.com/conseilapp/conseil/cmd/conseil/chat"
	configcmder "github.com/conseilapp/conseil/cmd/conseil/config"
	historycmder "github.com/conseilapp/conseil/cmd/conseil/history"
	mockdcmder "github.com/conseilapp/conseil/cmd/conseil/mockd"
)

// Build metadata, stamped with -ldflags at release time.
var (
	version   = "dev"
	commit    = "HEAD"
	buildtime = "dev"
)

const conseilLongDesc string = `Conseil est votre assistant personnel en ligne de commande.

Talk to the assistant:
  conseil chat               Interactive chat session
  conseil board "question"   Ask your board of advisors to deliberate

Everything streams live from the backend; press Ctrl+C at any time to
stop a reply without losing what already arrived.`

const conseilShortDesc string = "Conseil - votre conseil personnel"

func NewConseilCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conseil",
		Short:   conseilShortDesc,
		Long:    conseilLongDesc,
		Version: fmt.Sprintf("%s (%s, %s)", version, commit, buildtime),
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .conseil/ directory")

	// Add subcommands
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(boardcmder.NewBoardCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(mockdcmder.NewMockdCmd())

	return cmd
}
