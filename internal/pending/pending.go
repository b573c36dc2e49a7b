// Package pending selects admissible PENDING work units: windows old
// enough that their source data has settled.
package pending

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fmachado/driveplane/internal/config"
	"github.com/fmachado/driveplane/internal/drive"
	"github.com/fmachado/driveplane/internal/duration"
)

// Store is the slice of the drive gateway the selector needs.
type Store interface {
	FetchAdmissiblePending(ctx context.Context, maxAccepted time.Time, limit int) ([]drive.Record, error)
}

// Selector computes the admission cutoff and fetches eligible rows.
type Selector struct {
	store  Store
	cfg    config.Config
	logger zerolog.Logger
}

func New(store Store, cfg config.Config, logger zerolog.Logger) *Selector {
	return &Selector{
		store:  store,
		cfg:    cfg,
		logger: logger.With().Str("component", "pending").Logger(),
	}
}

// Cutoff returns the latest window-end time still admissible:
// now − x_time_back − granularity, in the configured timezone
// (UTC when unset). Unparseable config is fatal.
func (s *Selector) Cutoff(now time.Time) (time.Time, error) {
	tz := s.cfg.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: unknown timezone %q: %w", config.ErrConfig, tz, err)
	}

	back, err := duration.Parse(s.cfg.XTimeBack)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse x_time_back %q: %w", s.cfg.XTimeBack, err)
	}
	gran, err := duration.Parse(s.cfg.Granularity)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse granularity %q: %w", s.cfg.Granularity, err)
	}

	return now.In(loc).Add(-time.Duration(back+gran) * time.Second), nil
}

// Select fetches the admissible PENDING rows for this tick, capped at
// max_pending_records.
func (s *Selector) Select(ctx context.Context) ([]drive.Record, error) {
	cutoff, err := s.Cutoff(time.Now())
	if err != nil {
		return nil, err
	}

	records, err := s.store.FetchAdmissiblePending(ctx, cutoff, s.cfg.MaxPendingRecords)
	if err != nil {
		return nil, fmt.Errorf("fetch admissible pending records: %w", err)
	}

	s.logger.Info().
		Str("keyword", "FETCH_VALID_PENDING_SUCCESS").
		Time("max_accepted", cutoff).
		Int("count", len(records)).
		Msg("fetched valid pending records")
	return records, nil
}
