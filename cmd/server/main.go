package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/janisto/index-api/internal/platform/config"
	applog "github.com/janisto/index-api/internal/platform/logging"
)

// Version can be overridden at build time: -ldflags "-X main.Version=1.2.3"
var Version = "dev"

func main() {
	os.Exit(execute())
}

func execute() int {
	defer func() {
		if err := applog.Sync(); err != nil {
			applog.LogError(context.Background(), "logger sync error", err)
		}
	}()
	if err := applog.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
	}
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		applog.LogError(context.Background(), "server failed", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "index-api",
		Short:         "Serve the index API",
		Long:          "index-api serves GET /Index, which answers 201 Created with a fixed greeting.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			if err := applog.SetLevel(cfg.LogLevel); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, Version)
		},
	}
	cmd.SetVersionTemplate("index-api version {{.Version}}\n")
	config.RegisterFlags(cmd.Flags())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "index-api version %s\n", Version)
		},
	}
}
