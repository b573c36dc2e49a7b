// Package appconfig loads driveplane's TOML configuration file and
// applies environment overrides.
package appconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/fmachado/driveplane/internal/config"
)

type PipelineConfig struct {
	Name     string `toml:"name"`
	Source   string `toml:"source"`
	Category string `toml:"category"`
	SubType  string `toml:"sub_type"`
}

type DriveConfig struct {
	Account   string `toml:"account"`
	User      string `toml:"user"`
	Password  string `toml:"password"`
	Warehouse string `toml:"warehouse"`
	Database  string `toml:"database"`
	Schema    string `toml:"schema"`
	Table     string `toml:"table"`
}

type AdmissionConfig struct {
	XTimeBack         string `toml:"x_time_back"`
	Granularity       string `toml:"granularity"`
	MaxPendingRecords int    `toml:"max_pending_records"`
}

type StalenessConfig struct {
	ThresholdFactor  float64 `toml:"threshold_factor"`
	ExpectedDuration string  `toml:"expected_duration"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type AlertsConfig struct {
	Enabled  bool     `toml:"enabled"`
	SMTPAddr string   `toml:"smtp_addr"`
	From     string   `toml:"from"`
	To       []string `toml:"to"`
}

// EndpointsConfig lists the dial targets the shipped connectivity
// probes check. An empty endpoint is treated as unavailable.
type EndpointsConfig struct {
	Source string `toml:"source"`
	Stage  string `toml:"stage"`
	Target string `toml:"target"`
}

type SchedulerConfig struct {
	Interval      string `toml:"interval"`
	MetricsListen string `toml:"metrics_listen"`
}

type Config struct {
	Timezone  string          `toml:"timezone"`
	Pipeline  PipelineConfig  `toml:"pipeline"`
	Drive     DriveConfig     `toml:"drive"`
	Admission AdmissionConfig `toml:"admission"`
	Staleness StalenessConfig `toml:"staleness"`
	Logging   LoggingConfig   `toml:"logging"`
	Alerts    AlertsConfig    `toml:"alerts"`
	Endpoints EndpointsConfig `toml:"endpoints"`
	Scheduler SchedulerConfig `toml:"scheduler"`
}

func Defaults() Config {
	return Config{
		Timezone: "UTC",
		Admission: AdmissionConfig{
			XTimeBack:         "1h",
			Granularity:       "15m",
			MaxPendingRecords: 50,
		},
		Staleness: StalenessConfig{
			ThresholdFactor:  3,
			ExpectedDuration: "1h",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Scheduler: SchedulerConfig{
			Interval: "5m",
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Defaults()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func findConfigFile() string {
	candidates := []string{}

	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".driveplane", "config.toml"))
	}
	candidates = append(candidates, "/etc/driveplane/config.toml")

	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DRIVEPLANE_DRIVE_ACCOUNT"); v != "" {
		cfg.Drive.Account = v
	}
	if v := os.Getenv("DRIVEPLANE_DRIVE_USER"); v != "" {
		cfg.Drive.User = v
	}
	if v := os.Getenv("DRIVEPLANE_DRIVE_PASSWORD"); v != "" {
		cfg.Drive.Password = v
	}
	if v := os.Getenv("DRIVEPLANE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DRIVEPLANE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}

// Core maps the file-level configuration onto the domain config the
// control-plane components consume. The DAG run ID is supplied per run
// by the caller, not by the file.
func (c Config) Core(dagRunID string) config.Config {
	return config.Config{
		PipelineName:   c.Pipeline.Name,
		SourceName:     c.Pipeline.Source,
		SourceCategory: c.Pipeline.Category,
		SourceSubType:  c.Pipeline.SubType,

		Timezone:             c.Timezone,
		XTimeBack:            c.Admission.XTimeBack,
		Granularity:          c.Admission.Granularity,
		MaxPendingRecords:    c.Admission.MaxPendingRecords,
		StaleThresholdFactor: c.Staleness.ThresholdFactor,
		PipelineExpDuration:  c.Staleness.ExpectedDuration,
		DAGRunID:             dagRunID,

		Drive: config.DriveConfig{
			Account:   c.Drive.Account,
			User:      c.Drive.User,
			Password:  c.Drive.Password,
			Warehouse: c.Drive.Warehouse,
			Database:  c.Drive.Database,
			Schema:    c.Drive.Schema,
			Table:     c.Drive.Table,
		},
	}
}
