package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jakechorley/territory-balancer/cmd/cli/commands"
	"github.com/jakechorley/territory-balancer/internal/config"
	"github.com/jakechorley/territory-balancer/pkg/clients/anthropicclient"
	"github.com/jakechorley/territory-balancer/pkg/postgres"
	"github.com/jakechorley/territory-balancer/pkg/utils/logging"
)

var (
	env     string
	verbose bool
	app     = &commands.AppContext{}
	closeDB func()
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "territory",
		Short: "Territory balancer - assign accounts to sales reps",
		Long:  `A CLI tool for scoring account-to-rep assignments, balancing ARR across reps and comparing what-if scenarios.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if closeDB != nil {
				closeDB()
			}
			if app.Logger != nil {
				app.Logger.Sync()
			}
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to the console")

	rootCmd.AddCommand(commands.AllocateCmd(app))
	rootCmd.AddCommand(commands.MetricsCmd(app))
	rootCmd.AddCommand(commands.SuggestCmd(app))
	rootCmd.AddCommand(commands.WhatIfCmd(app))
	rootCmd.AddCommand(commands.ScheduleCmd(app))
	rootCmd.AddCommand(commands.MigrateCmd(app))
	rootCmd.AddCommand(commands.InteractiveCmd(app))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger, config, database and the optional model client
func initApp() error {
	app.Ctx = context.Background()

	opts := logging.Options{}
	if verbose {
		opts.ConsoleLevel = zapcore.DebugLevel
	}
	logger, logPath, err := logging.NewLogger(env, opts)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.Logger = logger

	app.Logger.Info("Starting application", zap.String("environment", env))
	app.Logger.Debug("Logging to file", zap.String("path", logPath))

	app.Logger.Info("Loading configuration")
	app.Cfg, err = config.LoadWithEnv(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.Logger.Debug("Configuration loaded successfully",
		zap.Int("scenarios", len(app.Cfg.Scenarios)),
		zap.Bool("anthropic", app.Cfg.Anthropic != nil))

	app.Logger.Info("Connecting to database")
	database, err := postgres.NewDB(app.Ctx, os.ExpandEnv(app.Cfg.DatabaseURL), app.Logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.Database = database
	app.Migrator = database
	closeDB = database.Close
	app.Logger.Info("Database initialized successfully")

	if app.Cfg.Anthropic != nil {
		apiKey := os.Getenv(app.Cfg.Anthropic.APIKeyEnv)
		if apiKey == "" {
			app.Logger.Warn("Anthropic API key not set; suggestions disabled",
				zap.String("env_var", app.Cfg.Anthropic.APIKeyEnv))
		} else {
			interval, err := app.Cfg.Anthropic.Interval()
			if err != nil {
				return fmt.Errorf("invalid anthropic config: %w", err)
			}
			app.Anthropic = anthropicclient.NewClient(apiKey, interval)
			app.Logger.Debug("Anthropic client initialized", zap.String("model", app.Cfg.Anthropic.Model))
		}
	}

	return nil
}
