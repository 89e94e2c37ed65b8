// Package chatcmder provides the interactive chat command.
package chatcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/conseilapp/conseil/pkg/backend"
	"github.com/conseilapp/conseil/pkg/chat"
	"github.com/conseilapp/conseil/pkg/cliui"
	"github.com/conseilapp/conseil/pkg/config"
	"github.com/conseilapp/conseil/pkg/credentials"
	"github.com/conseilapp/conseil/pkg/history"
	"github.com/conseilapp/conseil/pkg/logger"
)

var (
	userPrompt      = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true).Render("vous> ")
	assistantPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("conseil> ")
)

type chatCommander struct {
	backendURL string
	model      string
	locale     string
	noSave     bool
	configDir  string
	debug      bool

	logger *slog.Logger
	store  *history.Store
}

const chatLongDesc string = `Start an interactive chat session with the assistant.

Replies stream token by token as the backend produces them. Press Ctrl+C
while a reply is streaming to stop it; everything that already arrived is
kept. Type /exit or press Ctrl+D to quit.

Each completed exchange is archived locally (see "conseil history") unless
--no-save is given.

Examples:
  conseil chat
  conseil chat --model conseil-large
  conseil chat --backend-url http://localhost:8787`

const chatShortDesc string = "Interactive chat with the assistant"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			cfger, err := config.NewConfiger(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cfg, err := cfger.LoadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("backend-url") {
				cmder.backendURL = cfg.Backend.URL
			}
			if !cmd.Flags().Changed("model") {
				cmder.model = cfg.Chat.Model
			}
			if !cmd.Flags().Changed("locale") {
				cmder.locale = cfg.Backend.Locale
			}

			if !cmder.noSave {
				path, err := history.ResolvePath(cfg.History.SQLitePath, cmder.configDir)
				if err != nil {
					return err
				}
				cmder.store, err = history.Open(path, nil)
				if err != nil {
					return fmt.Errorf("opening history: %w", err)
				}
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run()
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVarP(&cmder.backendURL, "backend-url", "b", defaults.Backend.URL, "Conseil backend URL")
	cmd.Flags().StringVarP(&cmder.model, "model", "m", defaults.Chat.Model, "Model to answer with")
	cmd.Flags().StringVarP(&cmder.locale, "locale", "l", defaults.Backend.Locale, "Reply locale (e.g. fr-FR)")
	cmd.Flags().BoolVar(&cmder.noSave, "no-save", false, "Do not archive the conversation locally")

	return cmd
}

func (c *chatCommander) run() error {
	c.logger = logger.New(
		logger.WithPretty(true),
		logger.WithDebug(c.debug),
		logger.WithWriter(os.Stderr),
	)

	if c.store != nil {
		defer c.store.Close()
	}

	credMgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}
	token, err := credMgr.Token()
	if err != nil {
		return err
	}

	client := backend.New(c.backendURL,
		backend.WithToken(token),
		backend.WithLogger(c.logger),
	)

	fmt.Println()
	fmt.Printf("  %s %s\n",
		cliui.KeyStyle.Render("Backend:"),
		cliui.ValueStyle.Render(c.backendURL),
	)
	fmt.Printf("  %s %s\n\n",
		cliui.KeyStyle.Render("Modèle:"),
		cliui.NameStyle.Render(c.model),
	)
	fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Écrivez votre message puis Entrée. /exit ou Ctrl+D pour quitter."))

	var messages []backend.Message

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(userPrompt)
		if !scanner.Scan() {
			// EOF or error
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		messages = append(messages, backend.Message{Role: "user", Content: input})

		reply, err := c.sendAndStream(client, messages)
		if err != nil {
			fmt.Fprintf(os.Stderr, "\n  %s %v\n", cliui.FailMark, err)
			// Remove the failed user message so the exchange can be retried.
			messages = messages[:len(messages)-1]
			continue
		}

		if reply.Failed() {
			fmt.Fprintf(os.Stderr, "\n  %s %s\n", cliui.FailMark, cliui.ErrorStyle.Render(reply.ErrMessage))
			messages = messages[:len(messages)-1]
			continue
		}

		messages = append(messages, backend.Message{Role: "assistant", Content: reply.Text()})

		fmt.Println()
		if reply.Usage != nil {
			fmt.Printf("  %s\n", cliui.DimStyle.Render(
				fmt.Sprintf("%d tokens", reply.Usage.TotalTokens),
			))
		}
		fmt.Println()

		if c.store != nil {
			if _, err := c.store.SaveChat(context.Background(), c.locale, input, reply); err != nil {
				c.logger.Warn("could not archive exchange", "error", err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Println()
	return nil
}

// sendAndStream opens a reply stream and prints deltas as they arrive.
// Ctrl+C cancels the stream's context: the partial reply is returned as a
// normal completion, matching how the backend treats an aborted request.
func (c *chatCommander) sendAndStream(client *backend.Client, messages []backend.Message) (*chat.Reply, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s, err := client.StreamChat(ctx, &backend.ChatRequest{
		Messages: messages,
		Model:    c.model,
		Locale:   c.locale,
	})
	if err != nil {
		return nil, err
	}
	defer s.Close()

	fmt.Print(assistantPrompt)

	reply, err := chat.Collect(s, func(delta string) {
		fmt.Print(delta)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Printf("\n  %s\n", cliui.DimStyle.Render("(interrompu)"))
			return reply, nil
		}
		return reply, fmt.Errorf("reading stream: %w", err)
	}

	if ctx.Err() != nil {
		fmt.Printf("\n  %s\n", cliui.DimStyle.Render("(interrompu)"))
	}

	return reply, nil
}
