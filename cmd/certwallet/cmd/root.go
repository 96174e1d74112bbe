// Package cmd implements the certwallet command line: local wallet
// operations against the configured store, admin token issuing, and a tail
// of the import event stream.
package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"certwallet/internal/app"
	"certwallet/internal/platform/config"
	"certwallet/internal/platform/logger"
)

type rootFlags struct {
	configPath string
}

func NewRootCommand() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "certwallet",
		Short:         "Certificate wallet",
		Long:          "certwallet imports, lists, verifies and deletes certificates in the configured wallet store.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to a YAML config file")

	root.AddCommand(newImportCommand(flags))
	root.AddCommand(newListCommand(flags))
	root.AddCommand(newVerifyCommand(flags))
	root.AddCommand(newDeleteCommand(flags))
	root.AddCommand(newTokenCommand(flags))
	root.AddCommand(newEventsCommand(flags))

	return root
}

func (f *rootFlags) load(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log), nil
}

// openWallet builds the wallet and loads every stored certificate. Stored
// documents that fail to load are logged and skipped.
func (f *rootFlags) openWallet(ctx context.Context, cmd *cobra.Command, opts ...app.Option) (*app.App, error) {
	cfg, log, err := f.load(cmd)
	if err != nil {
		return nil, err
	}
	a, err := app.Build(ctx, cfg, log, opts...)
	if err != nil {
		return nil, err
	}
	report, err := a.Service.Load(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	for _, failure := range report.Failures {
		log.Warn("stored certificate skipped", "filename", failure.Filename, "error", failure.Err)
	}
	return a, nil
}
