package main

import (
	"errors"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"taskflow/internal/client"
	"taskflow/internal/config"
	"taskflow/internal/confirm"
	"taskflow/internal/tui"
)

func boardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Open the interactive task board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !confirm.Interactive(os.Stdin) || !confirm.Interactive(os.Stdout) {
				return errors.New("the board needs an interactive terminal; use 'taskflow tasks' instead")
			}

			api, err := newAPIClient(cfg.Client)
			if err != nil {
				return err
			}
			modal := confirm.NewModal(confirm.NewLine(os.Stdin, os.Stdout))
			return tui.Run(cmd.Context(), api, modal)
		},
	}

	cmd.PersistentFlags().String("api", "", "base URL of the task API (default http://localhost:3030)")
	return cmd
}

func newAPIClient(cfg config.ClientConfig) (*client.Client, error) {
	return client.New(cfg.BaseURL, &http.Client{Timeout: cfg.Timeout})
}
