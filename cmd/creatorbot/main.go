package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/m3rciful/creatorbot/core/bootstrap"
	"github.com/m3rciful/creatorbot/core/buildinfo"
	corecmd "github.com/m3rciful/creatorbot/core/cmd"
	coredatabase "github.com/m3rciful/creatorbot/core/database"
	"github.com/m3rciful/creatorbot/internal/app"
)

const (
	configEnvVar      = "CONFIG_PATH"
	defaultConfigPath = "config.yaml"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}

	var configPath string
	rootCmd := &cobra.Command{
		Use:          "creatorbot",
		Short:        "Telegram bot that onboards creators and runs the daily posting challenge",
		Version:      buildinfo.Version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(configPath)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (overrides $"+configEnvVar+")")

	rootCmd.AddCommand(runCmd(&configPath))
	rootCmd.AddCommand(migrateCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the bot (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(*configPath)
		},
	}
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := corecmd.ResolveConfigPath(cmdOptions(*configPath))
			if err != nil {
				return err
			}
			cfg, err := app.LoadConfig(path)
			if err != nil {
				return err
			}
			db := cfg.DatabaseConfig()
			if db == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "storage.driver is memory; nothing to migrate")
				return nil
			}
			if err := coredatabase.RunMigrations(*db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func runBot(configPath string) error {
	opts := cmdOptions(configPath)
	opts.LoadConfig = func(path string) (corecmd.ConfigCarrier, error) {
		return app.LoadConfig(path)
	}
	opts.Bootstrap = func(cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
		appCfg, ok := cfg.(*app.Config)
		if !ok {
			return nil, fmt.Errorf("unexpected config type %T", cfg)
		}
		return app.Bootstrap(appCfg, bootstrap.Options{})
	}
	return corecmd.Run(opts)
}

func cmdOptions(configPath string) corecmd.Options {
	return corecmd.Options{
		ConfigPath:        configPath,
		ConfigEnvVar:      configEnvVar,
		DefaultConfigPath: defaultConfigPath,
	}
}
