package main

import (
	"errors"
	"fmt"
	stdLog "log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/Astemirdum/library-lending/library/app"
	"github.com/Astemirdum/library-lending/library/config"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		stdLog.Fatal("load envs from .env ", err)
	}
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		logLevel      string
		sweepInterval time.Duration
	)
	loadConfig := func(cmd *cobra.Command) (*config.Config, error) {
		opts := []config.Option{config.WithWriteTimeout(time.Minute)}
		if cmd.Flags().Changed("log-level") {
			level, err := zapcore.ParseLevel(logLevel)
			if err != nil {
				return nil, err
			}
			opts = append(opts, config.WithLogLevel(level))
		}
		if cmd.Flags().Changed("sweep-interval") {
			opts = append(opts, config.WithSweepInterval(sweepInterval))
		}
		return config.NewConfig(opts...), nil
	}

	serve := func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return app.Run(cfg)
	}

	root := &cobra.Command{
		Use:          "library",
		Short:        "Library lending ledger",
		SilenceUsage: true,
		RunE:         serve,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  serve,
	}
	serveCmd.Flags().DurationVar(&sweepInterval, "sweep-interval", 0, "run the overdue sweep periodically, 0 disables it")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return app.Migrate(cfg)
		},
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Mark overdue loans and recompute member statuses once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			res, err := app.SweepOnce(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "members touched: %d, status changed: %d\n", res.MembersTouched, res.StatusChanged)
			return nil
		},
	}

	root.AddCommand(serveCmd, migrateCmd, sweepCmd)
	return root
}
