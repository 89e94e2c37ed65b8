// Package boardcmder provides the board command: one question, several
// advisors deliberating live, then a synthesis.
package boardcmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conseilapp/conseil/pkg/backend"
	"github.com/conseilapp/conseil/pkg/board"
	"github.com/conseilapp/conseil/pkg/cliui"
	"github.com/conseilapp/conseil/pkg/config"
	"github.com/conseilapp/conseil/pkg/credentials"
	"github.com/conseilapp/conseil/pkg/history"
	"github.com/conseilapp/conseil/pkg/logger"
	"github.com/conseilapp/conseil/pkg/stream"
)

type boardCommander struct {
	backendURL string
	locale     string
	advisors   []string
	plain      bool
	noSave     bool
	configDir  string
	debug      bool

	logger *slog.Logger
	store  *history.Store
}

const boardLongDesc string = `Ask your board of advisors to deliberate on a question.

Each configured advisor speaks in turn, then a synthesis of the whole
deliberation is streamed. By default the deliberation renders in a live
panel view; use --plain for sequential output suitable for piping.

The advisor list comes from board.advisors in the config unless --advisors
is given.

Examples:
  conseil board "Faut-il lancer le produit en septembre ?"
  conseil board --advisors analyst,jurist "Quels risques contractuels ?"
  conseil board --plain "Question" > deliberation.txt`

const boardShortDesc string = "Ask the board of advisors to deliberate"

func NewBoardCmd() *cobra.Command {
	cmder := &boardCommander{}

	cmd := &cobra.Command{
		Use:   "board <question>",
		Short: boardShortDesc,
		Long:  boardLongDesc,
		Args:  cobra.ExactArgs(1),
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
			if !cmd.Flags().Changed("locale") {
				cmder.locale = cfg.Backend.Locale
			}
			if !cmd.Flags().Changed("advisors") {
				cmder.advisors = cfg.Board.Advisors
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
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(args[0])
		},
	}

	defaults := config.NewDefaultConfig()
	cmd.Flags().StringVarP(&cmder.backendURL, "backend-url", "b", defaults.Backend.URL, "Conseil backend URL")
	cmd.Flags().StringVarP(&cmder.locale, "locale", "l", defaults.Backend.Locale, "Deliberation locale (e.g. fr-FR)")
	cmd.Flags().StringSliceVarP(&cmder.advisors, "advisors", "a", defaults.Board.Advisors, "Advisors to consult")
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Sequential output instead of the live panel view")
	cmd.Flags().BoolVar(&cmder.noSave, "no-save", false, "Do not archive the deliberation locally")

	return cmd
}

func (c *boardCommander) run(question string) error {
	c.logger = logger.New(
		logger.WithPretty(true),
		logger.WithDebug(c.debug),
		logger.WithWriter(os.Stderr),
	)

	if c.store != nil {
		defer c.store.Close()
	}

	question = strings.TrimSpace(question)
	if question == "" {
		return fmt.Errorf("question cannot be empty")
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s, err := client.StreamBoard(ctx, &backend.BoardRequest{
		Question: question,
		Advisors: c.advisors,
		Locale:   c.locale,
	})
	if err != nil {
		return err
	}
	defer s.Close()

	var transcript *board.Transcript
	if c.plain {
		transcript, err = c.runPlain(s, question)
	} else {
		transcript, err = runBoardTUI(ctx, s, question)
	}
	if err != nil {
		return err
	}

	if transcript.Failed() {
		return fmt.Errorf("deliberation failed: %s", transcript.ErrMessage)
	}

	if c.store != nil {
		if _, err := c.store.SaveBoard(context.Background(), c.locale, question, transcript); err != nil {
			c.logger.Warn("could not archive deliberation", "error", err)
		}
	}

	return nil
}

// runPlain prints the deliberation sequentially: advisors speak one at a
// time on the wire, so chunks can be streamed in arrival order.
func (c *boardCommander) runPlain(s *stream.Stream, question string) (*board.Transcript, error) {
	fmt.Printf("\n  %s %s\n", cliui.KeyStyle.Render("Question:"), cliui.ValueStyle.Render(question))

	synthesisStarted := false
	transcript, err := board.Collect(s, func(_ *board.Transcript, ev *stream.Event) {
		switch ev.Type {
		case stream.KindAdvisorStart:
			fmt.Printf("\n%s\n", cliui.AdvisorHeader(ev.Role, ev.Name, ev.Emoji))
		case stream.KindAdvisorChunk:
			fmt.Print(ev.Content)
		case stream.KindAdvisorDone:
			fmt.Println()
		case stream.KindSynthesisChunk:
			if !synthesisStarted {
				fmt.Printf("\n%s\n", cliui.AdvisorHeader("", "Synthèse", "⚖️"))
				synthesisStarted = true
			}
			fmt.Print(ev.Content)
		}
	})
	if err != nil {
		return transcript, fmt.Errorf("reading stream: %w", err)
	}

	fmt.Println()
	if transcript.Usage != nil {
		fmt.Printf("\n  %s\n", cliui.DimStyle.Render(
			fmt.Sprintf("%d tokens", transcript.Usage.TotalTokens),
		))
	}
	fmt.Println()

	return transcript, nil
}
