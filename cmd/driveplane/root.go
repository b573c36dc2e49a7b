package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/fmachado/driveplane/internal/alert"
	"github.com/fmachado/driveplane/internal/appconfig"
	"github.com/fmachado/driveplane/internal/config"
	"github.com/fmachado/driveplane/internal/drive"
	"github.com/fmachado/driveplane/internal/health"
)

const probeTimeout = 5 * time.Second

var (
	cfgFile   string
	dagRunID  string
	logLevel  string
	logFormat string

	appCfg appconfig.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "driveplane",
	Short: "Control plane for windowed data-movement pipelines",
	Long: `driveplane guards a windowed data-movement pipeline. Each tick it
probes the source, stage, target, and drive systems, decides which
transfers may run, resets stale in-process work units back to PENDING,
and selects the next batch of admissible pending windows.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		appCfg, err = appconfig.Load(cfgFile)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			appCfg.Logging.Level = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			appCfg.Logging.Format = logFormat
		}

		var out io.Writer
		switch appCfg.Logging.Format {
		case "json":
			out = os.Stdout
		default:
			out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		}
		logger = zerolog.New(out).With().Timestamp().Logger()

		level, err := zerolog.ParseLevel(appCfg.Logging.Level)
		if err != nil {
			level = zerolog.InfoLevel
		}
		logger = logger.Level(level)

		return nil
	},
}

func init() {
	f := rootCmd.PersistentFlags()

	f.StringVar(&cfgFile, "config", "", "Path to config.toml (default: ~/.driveplane/config.toml, then /etc/driveplane/config.toml)")
	f.StringVar(&dagRunID, "dag-run-id", "", "Run correlation ID (generated when empty)")

	// Logging flags override the config file.
	f.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	f.StringVar(&logFormat, "log-format", "console", "Log format (console, json)")
}

// runID returns the configured correlation ID, minting one when none
// was given.
func runID() string {
	if dagRunID != "" {
		return dagRunID
	}
	return uuid.New().String()
}

// buildProbes wires the connectivity checks: plain TCP dials for the
// data systems, a real connect-and-ping for the drive.
func buildProbes(cfg config.Config) health.Probes {
	return health.Probes{
		Source: health.DialProbe(appCfg.Endpoints.Source, probeTimeout),
		Stage:  health.DialProbe(appCfg.Endpoints.Stage, probeTimeout),
		Target: health.DialProbe(appCfg.Endpoints.Target, probeTimeout),
		Drive: func(ctx context.Context) (bool, error) {
			s, err := drive.Open(ctx, cfg, logger)
			if err != nil {
				return false, err
			}
			s.Close()
			return true, nil
		},
	}
}

func buildMailer() alert.Mailer {
	if appCfg.Alerts.Enabled {
		return alert.NewSMTPMailer(appCfg.Alerts.SMTPAddr, appCfg.Alerts.From, appCfg.Alerts.To, logger)
	}
	return alert.LogMailer{Logger: logger}
}
