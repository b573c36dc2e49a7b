// Package config holds the control-plane configuration: the drive
// warehouse connection block, the pipeline identity quadruple, and the
// admission/staleness knobs.
package config

import (
	"errors"
	"fmt"
	"net/url"
)

// RedactedPassword replaces the drive password anywhere config is
// logged or embedded in an error payload.
const RedactedPassword = "[REDACTED]"

// ErrConfig wraps every validation failure so callers can classify it
// with errors.Is.
var ErrConfig = errors.New("invalid configuration")

// DriveConfig holds connection parameters for the drive warehouse.
// Account is the network address of the warehouse endpoint.
type DriveConfig struct {
	Account   string
	User      string
	Password  string
	Warehouse string
	Database  string
	Schema    string
	Table     string
}

// DSN returns a Postgres-protocol connection string for the drive
// warehouse. The schema rides along as search_path and the warehouse
// name as the session application name.
func (d DriveConfig) DSN() string {
	q := url.Values{}
	q.Set("search_path", d.Schema)
	q.Set("application_name", d.Warehouse)
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Account,
		Path:     d.Database,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Redacted returns the connection block with the password replaced by
// the redaction sentinel, safe to log or attach to errors.
func (d DriveConfig) Redacted() map[string]string {
	return map[string]string{
		"account":   d.Account,
		"user":      d.User,
		"password":  RedactedPassword,
		"warehouse": d.Warehouse,
		"database":  d.Database,
		"schema":    d.Schema,
		"table":     d.Table,
	}
}

// Config is the per-(pipeline, source) control-plane configuration.
type Config struct {
	PipelineName   string
	SourceName     string
	SourceCategory string
	SourceSubType  string

	// Timezone is an IANA zone name. The pending selector defaults it
	// to UTC when empty.
	Timezone string

	// XTimeBack and Granularity are compact duration strings. A pending
	// window is admissible only after XTimeBack+Granularity seconds
	// have elapsed since its start.
	XTimeBack   string
	Granularity string

	MaxPendingRecords int

	// StaleThresholdFactor defaults to 3 inside the staleness
	// evaluator when zero.
	StaleThresholdFactor float64

	// PipelineExpDuration is the fallback expected duration for rows
	// that lack their own.
	PipelineExpDuration string

	// DAGRunID correlates one tick's decisions. Required by the
	// capability arbiter, supplied per run by the scheduler.
	DAGRunID string

	Drive DriveConfig
}

// Validate checks that every key the core queries on is present. The
// returned error joins one message per missing key and matches
// ErrConfig. Passwords never appear in the error payload.
func (c *Config) Validate() error {
	var errs []error

	if c.PipelineName == "" {
		errs = append(errs, errors.New("PIPELINE_NAME is required"))
	}
	if c.SourceName == "" {
		errs = append(errs, errors.New("SOURCE_NAME is required"))
	}
	if c.SourceCategory == "" {
		errs = append(errs, errors.New("SOURCE_CATEGORY is required"))
	}
	if c.SourceSubType == "" {
		errs = append(errs, errors.New("SOURCE_SUB_TYPE is required"))
	}

	if c.Drive.Account == "" {
		errs = append(errs, errors.New("drive account is required"))
	}
	if c.Drive.User == "" {
		errs = append(errs, errors.New("drive user is required"))
	}
	if c.Drive.Password == "" {
		errs = append(errs, errors.New("drive password is required"))
	}
	if c.Drive.Warehouse == "" {
		errs = append(errs, errors.New("drive warehouse is required"))
	}
	if c.Drive.Database == "" {
		errs = append(errs, errors.New("drive database is required"))
	}
	if c.Drive.Schema == "" {
		errs = append(errs, errors.New("drive schema is required"))
	}
	if c.Drive.Table == "" {
		errs = append(errs, errors.New("drive table is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrConfig, errors.Join(errs...))
	}
	return nil
}
