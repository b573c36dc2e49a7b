package reclaim

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fmachado/driveplane/internal/alert"
	"github.com/fmachado/driveplane/internal/config"
	"github.com/fmachado/driveplane/internal/drive"
	"github.com/fmachado/driveplane/internal/stale"
)

// Store is the slice of the drive gateway the reclaimer needs.
type Store interface {
	FetchInProcess(ctx context.Context) ([]drive.Record, error)
	Replace(ctx context.Context, original, updated drive.Record) error
}

// Summary reports one reclaim pass.
type Summary struct {
	Total     int // in-process rows fetched
	Stale     int // rows classified stale
	Converted int // rows successfully reset to PENDING
}

// Reclaimer runs the fetch-classify-alert-reset pass for one tick.
type Reclaimer struct {
	store     Store
	evaluator *stale.Evaluator
	mailer    alert.Mailer
	cfg       config.Config
	logger    zerolog.Logger
}

func New(store Store, evaluator *stale.Evaluator, mailer alert.Mailer, cfg config.Config, logger zerolog.Logger) *Reclaimer {
	return &Reclaimer{
		store:     store,
		evaluator: evaluator,
		mailer:    mailer,
		cfg:       cfg,
		logger:    logger.With().Str("component", "reclaim").Logger(),
	}
}

// Run executes one reclaim pass. The fetch is fatal; the stale alert
// and each per-row conversion are not: a failed row is logged and the
// pass moves on, so one poisoned row cannot wedge the whole batch.
func (r *Reclaimer) Run(ctx context.Context) (Summary, error) {
	inFlight, err := r.store.FetchInProcess(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("fetch in-process records: %w", err)
	}
	if len(inFlight) == 0 {
		r.logger.Info().Msg("no in-process records to evaluate")
		return Summary{}, nil
	}

	staleRecs := r.evaluator.Classify(inFlight, time.Now())
	sum := Summary{Total: len(inFlight), Stale: len(staleRecs)}
	if len(staleRecs) == 0 {
		r.logger.Info().Int("in_process", sum.Total).Msg("no stale records found")
		return sum, nil
	}

	if err := alert.SendStaleProcessAlert(ctx, r.mailer, staleRecs, r.cfg); err != nil {
		r.logger.Warn().Err(err).Msg("stale alert dispatch failed; continuing with reclaim")
	}

	for _, rec := range staleRecs {
		updated := MarkPending(rec)
		if err := r.store.Replace(ctx, rec, updated); err != nil {
			r.logger.Error().
				Str("pipeline_id", rec.PipelineID).
				Err(err).
				Msg("failed to reset stale record to PENDING")
			continue
		}
		sum.Converted++
		r.logger.Info().
			Str("pipeline_id", rec.PipelineID).
			Int64("retry_attempt", updated.Retries()).
			Msg("stale record reset to PENDING")
	}

	r.logger.Info().
		Int("in_process", sum.Total).
		Int("stale", sum.Stale).
		Int("converted", sum.Converted).
		Msg("reclaim pass completed")
	return sum, nil
}
