// Package cli implements the simbot commands.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"patientsim/internal/config"
	"patientsim/internal/db"
)

var (
	envFile string
	cfg     *config.Config
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:           "simbot",
	Short:         "Simulated-patient interview bot for medical students",
	Long:          "Serves the simulated-patient chat bot, migrates its database and seeds clinical cases.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil {
			logrus.WithError(err).Debug("no .env file loaded, using process environment")
		}
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		cfg = loaded
		setupLogging(cfg.LogLevel)
		return nil
	},
}

func init() {
	RootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before reading configuration")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		logrus.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func setupLogging(level string) {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.WithField("level", level).Warn("unknown log level, using info")
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}

// openDatabase connects to the configured database and applies the schema.
func openDatabase(ctx context.Context) (*db.DB, error) {
	database, err := db.Open(ctx, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, database); err != nil {
		database.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return database, nil
}
