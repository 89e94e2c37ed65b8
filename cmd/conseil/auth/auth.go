// Package authcmder provides the auth command for storing the backend
// access token.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/conseilapp/conseil/pkg/cliui"
	"github.com/conseilapp/conseil/pkg/credentials"
)

const authLongDesc string = `Store the access token for the conseil backend.

The token is stored in credentials.toml in the .conseil/ directory and
sent as a Bearer token on every streaming request. Running without flags
prompts for the token with hidden input; piping works too.

Examples:
  conseil auth                   Prompt for the backend token
  conseil auth --status          Show whether a token is stored
  conseil auth --remove          Remove the stored token
  echo $TOKEN | conseil auth     Pipe the token from stdin`

const authShortDesc string = "Store the backend access token"

func NewAuthCmd() *cobra.Command {
	var statusFlag bool
	var removeFlag bool

	cmd := &cobra.Command{
		Use:   "auth",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			switch {
			case statusFlag:
				return runStatus(configDir)
			case removeFlag:
				return runRemove(configDir)
			default:
				return runAuth(configDir)
			}
		},
	}

	cmd.Flags().BoolVar(&statusFlag, "status", false, "Show whether a token is stored")
	cmd.Flags().BoolVar(&removeFlag, "remove", false, "Remove the stored token")

	return cmd
}

func runAuth(configDir string) error {
	token, err := readToken()
	if err != nil {
		return err
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token cannot be empty")
	}

	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.SetToken(token); err != nil {
		return err
	}

	fmt.Printf("\n  %s Token stored %s\n\n",
		cliui.SuccessMark,
		cliui.DimStyle.Render("(sent as Authorization: Bearer on every request)"),
	)

	return nil
}

func runStatus(configDir string) error {
	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	token, err := mgr.Token()
	if err != nil {
		return err
	}

	if token == "" {
		fmt.Printf("\n  %s No token stored. Use 'conseil auth' to store one.\n\n", cliui.DimStyle.Render("●"))
		return nil
	}

	fmt.Printf("\n  %s Token stored %s\n\n",
		cliui.SuccessMark,
		cliui.DimStyle.Render(fmt.Sprintf("(%d characters)", len(token))),
	)
	return nil
}

func runRemove(configDir string) error {
	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	if err := mgr.Clear(); err != nil {
		return err
	}

	fmt.Printf("\n  %s Token removed.\n\n", cliui.SuccessMark)
	return nil
}

// readToken reads the token from stdin. If stdin is a pipe, it reads the
// first line. Otherwise, it prompts interactively with hidden input.
func readToken() (string, error) {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return "", fmt.Errorf("checking stdin: %w", err)
	}

	// Piped input
	if (fi.Mode() & os.ModeCharDevice) == 0 {
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			return scanner.Text(), nil
		}
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return "", errors.New("no input received on stdin")
	}

	// Interactive terminal
	fmt.Print("Enter the conseil backend token: ")

	tokenBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println() // newline after hidden input
	if err != nil {
		return "", fmt.Errorf("reading token: %w", err)
	}

	return string(tokenBytes), nil
}
