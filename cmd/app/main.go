package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"RegimeModel/internal/di"
	"RegimeModel/internal/domain/errs"
	"RegimeModel/pkg/config"
	"RegimeModel/pkg/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:           "regime-model",
		Short:         "Fit a Gaussian HMM to daily prices and backtest a regime-filtered strategy",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "config/config.yaml", "config file path")
	return cmd
}

func run(ctx context.Context, configPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return errs.Wrap(errs.KindConfiguration, "ERR_CONFIG", err, "config load failed")
	}
	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		return errs.Wrap(errs.KindConfiguration, "ERR_INIT", err, "app initialization failed")
	}
	defer cleanup()

	res, err := app.Run(ctx)
	if err != nil {
		return err
	}
	return server.WriteResults(os.Stdout, res.Report)
}

// exitCode maps configuration problems to 2 and everything else to 1.
func exitCode(err error) int {
	if errs.KindOf(err) == errs.KindConfiguration {
		return 2
	}
	return 1
}
