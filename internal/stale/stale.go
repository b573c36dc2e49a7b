// Package stale classifies in-process work units that have exceeded
// their expected duration and must be reclaimed.
package stale

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fmachado/driveplane/internal/config"
	"github.com/fmachado/driveplane/internal/drive"
	"github.com/fmachado/driveplane/internal/duration"
)

// DefaultThresholdFactor applies when the config leaves the factor
// unset.
const DefaultThresholdFactor = 3

// Evaluator classifies in-process rows as stale or still running.
type Evaluator struct {
	factor     float64
	defaultExp string
	loc        *time.Location
	logger     zerolog.Logger
}

// NewEvaluator builds an evaluator from config. An unknown timezone is
// fatal.
func NewEvaluator(cfg config.Config, logger zerolog.Logger) (*Evaluator, error) {
	tz := cfg.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q: %w", config.ErrConfig, tz, err)
	}

	factor := cfg.StaleThresholdFactor
	if factor == 0 {
		factor = DefaultThresholdFactor
	}

	return &Evaluator{
		factor:     factor,
		defaultExp: cfg.PipelineExpDuration,
		loc:        loc,
		logger:     logger.With().Str("component", "stale").Logger(),
	}, nil
}

// Classify returns the stale subset of records, in input order. A row
// is stale when its elapsed time exceeds factor × expected duration.
// Per-row parse failures are logged and skip the row; they never abort
// the batch.
func (e *Evaluator) Classify(records []drive.Record, now time.Time) []drive.Record {
	now = now.In(e.loc)

	var stale []drive.Record
	for i, r := range records {
		expStr := e.defaultExp
		if r.PipelineExpDuration != nil && *r.PipelineExpDuration != "" {
			expStr = *r.PipelineExpDuration
		}

		expected, err := duration.Parse(expStr)
		if err != nil {
			e.logger.Warn().
				Str("keyword", "STALE_PARSE_ERROR").
				Str("pipeline_id", r.PipelineID).
				Int("record_index", i).
				Err(err).
				Msg("error parsing record for staleness")
			continue
		}

		if r.PipelineStartTime == nil {
			e.logger.Warn().
				Str("keyword", "STALE_PARSE_ERROR").
				Str("pipeline_id", r.PipelineID).
				Int("record_index", i).
				Msg("in-process record has no start time")
			continue
		}

		actual := now.Sub(*r.PipelineStartTime).Seconds()
		if actual > e.factor*float64(expected) {
			e.logger.Info().
				Str("pipeline_id", r.PipelineID).
				Float64("actual_seconds", actual).
				Int64("expected_seconds", expected).
				Float64("factor", e.factor).
				Msg("record marked stale")
			stale = append(stale, r)
		}
	}
	return stale
}
