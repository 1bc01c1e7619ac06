package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ngmaloney/tide-terminal/internal/config"
	"github.com/ngmaloney/tide-terminal/internal/database"
	"github.com/ngmaloney/tide-terminal/internal/geocoding"
	"github.com/ngmaloney/tide-terminal/internal/logging"
	"github.com/ngmaloney/tide-terminal/internal/predictor"
	"github.com/ngmaloney/tide-terminal/internal/uhslc"
)

// app holds what every subcommand needs once the root command has run its
// setup.
type app struct {
	cfg    *config.Config
	db     *sql.DB
	logger *slog.Logger
	svc    *predictor.Service

	dataDir   string
	logLevel  string
	logFormat string
}

func newRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "tidepredict",
		Short:         "Harmonic tide predictions from UHSLC research quality data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "Data directory (default $TIDE_DATA_DIR or ~/.tidepredict)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format: text or json")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return a.setup()
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return a.close()
	}

	rootCmd.AddCommand(
		predictCommand(a),
		genharmCommand(a),
		listCommand(a),
		nearestCommand(a),
		historyCommand(a),
		zonesCommand(a),
		tuiCommand(a),
		serveCommand(a),
	)
	return rootCmd
}

// setup loads the configuration, applies flag overrides and opens the
// database.
func (a *app) setup() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.dataDir != "" {
		cfg.DataDir = a.dataDir
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.logFormat != "" {
		cfg.LogFormat = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	db, err := database.Open(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	a.db = db

	ftp := uhslc.NewFTPClient(cfg.FTPHost, cfg.FTPTimeout, cfg.FTPRetries, a.logger)
	geo := geocoding.NewGeocoder(geocoding.WithBaseURL(cfg.GeocoderURL))
	a.svc = predictor.New(cfg, db, ftp, predictor.WithLogger(a.logger), predictor.WithGeocoder(geo))
	return nil
}

func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}
