// Package mockdcmder provides the mockd command for running the local
// development backend.
package mockdcmder

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conseilapp/conseil/pkg/logger"
	"github.com/conseilapp/conseil/pkg/mockd"

	configpkg "github.com/conseilapp/conseil/pkg/config"
)

type mockdCommander struct {
	listen   string
	scenario string
	debug    bool

	logger *zap.Logger
}

const mockdLongDesc string = `Run a local mock of the conseil backend.

The mock serves the chat and board streaming endpoints, replaying either a
built-in exchange or a TOML scenario file. Point the CLI at it with
backend.url (the default already matches):

  conseil config set backend.url http://localhost:8787
  conseil mockd

The scenario file is watched and hot-reloaded, so wire-level edge cases
(malformed frames, comments, missing terminators) can be tweaked while a
client session stays open.

Flag values fall back to mockd.listen and mockd.scenario from the config,
and CONSEIL_MOCKD_LISTEN / CONSEIL_MOCKD_SCENARIO from the environment.

Examples:
  conseil mockd
  conseil mockd --listen :9001 --scenario ./scenario.toml`

const mockdShortDesc string = "Run a local mock backend"

func NewMockdCmd() *cobra.Command {
	cmder := &mockdCommander{}

	cmd := &cobra.Command{
		Use:   "mockd",
		Short: mockdShortDesc,
		Long:  mockdLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := configpkg.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			if !cmd.Flags().Changed("listen") {
				cmder.listen = v.GetString("mockd.listen")
			}
			if !cmd.Flags().Changed("scenario") {
				cmder.scenario = v.GetString("mockd.scenario")
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

	defaults := configpkg.NewDefaultConfig()
	cmd.Flags().StringVarP(&cmder.listen, "listen", "L", defaults.Mockd.Listen, "Address to listen on")
	cmd.Flags().StringVarP(&cmder.scenario, "scenario", "s", "", "TOML scenario file to replay")

	return cmd
}

func (c *mockdCommander) run() error {
	c.logger = logger.NewZap(c.debug)
	defer func() { _ = c.logger.Sync() }()

	server, err := mockd.New(mockd.Config{
		ListenAddr:   c.listen,
		ScenarioPath: c.scenario,
	}, c.logger)
	if err != nil {
		return err
	}
	defer server.Close()

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("mockd error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("shutting down", zap.String("signal", sig.String()))
		return nil
	}
}
