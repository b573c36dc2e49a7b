// Package controlplane runs one synchronous control tick: probe the
// four systems, arbitrate capability, reclaim stale work, and select
// the next pending batch.
package controlplane

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fmachado/driveplane/internal/alert"
	"github.com/fmachado/driveplane/internal/capability"
	"github.com/fmachado/driveplane/internal/config"
	"github.com/fmachado/driveplane/internal/drive"
	"github.com/fmachado/driveplane/internal/health"
	"github.com/fmachado/driveplane/internal/metrics"
	"github.com/fmachado/driveplane/internal/pending"
	"github.com/fmachado/driveplane/internal/reclaim"
	"github.com/fmachado/driveplane/internal/stale"
)

// Store is what a tick needs from the drive gateway. *drive.Store
// satisfies it.
type Store interface {
	FetchInProcess(ctx context.Context) ([]drive.Record, error)
	FetchAdmissiblePending(ctx context.Context, maxAccepted time.Time, limit int) ([]drive.Record, error)
	Replace(ctx context.Context, original, updated drive.Record) error
	Close()
}

// Result is everything one tick produced.
type Result struct {
	Health   health.Status
	Decision capability.Decision
	Reclaim  reclaim.Summary
	Pending  []drive.Record
}

// Runner executes ticks against a fixed config and probe set.
type Runner struct {
	cfg     config.Config
	probes  health.Probes
	mailer  alert.Mailer
	metrics *metrics.Metrics
	logger  zerolog.Logger

	// OpenStore is swapped out in tests. Defaults to drive.Open.
	OpenStore func(ctx context.Context, cfg config.Config) (Store, error)
}

func New(cfg config.Config, probes health.Probes, mailer alert.Mailer, m *metrics.Metrics, logger zerolog.Logger) *Runner {
	if m == nil {
		m = metrics.Nop()
	}
	return &Runner{
		cfg:     cfg,
		probes:  probes,
		mailer:  mailer,
		metrics: m,
		logger:  logger.With().Str("component", "controlplane").Logger(),
		OpenStore: func(ctx context.Context, cfg config.Config) (Store, error) {
			return drive.Open(ctx, cfg, logger)
		},
	}
}

// RunTick runs one tick. The drive connection is opened after the
// capability decision and closed before returning, so each tick holds
// it only as long as it needs it.
func (r *Runner) RunTick(ctx context.Context) (Result, error) {
	r.metrics.Ticks.Inc()
	res, err := r.runTick(ctx)
	if err != nil {
		r.metrics.TickFailures.Inc()
	}
	return res, err
}

func (r *Runner) runTick(ctx context.Context) (Result, error) {
	var res Result

	res.Health = health.Check(ctx, r.probes, r.logger)
	r.countProbeFailures(res.Health)

	arbiter := capability.New(r.mailer, r.logger)
	decision, err := arbiter.Determine(ctx, res.Health, r.cfg.DAGRunID)
	if err != nil {
		return res, err
	}
	res.Decision = decision
	if decision.ExitDAG {
		r.logger.Warn().Str("dag_run_id", r.cfg.DAGRunID).Msg("capability decision aborts this tick")
		return res, nil
	}

	store, err := r.OpenStore(ctx, r.cfg)
	if err != nil {
		return res, fmt.Errorf("open drive store: %w", err)
	}
	defer store.Close()

	evaluator, err := stale.NewEvaluator(r.cfg, r.logger)
	if err != nil {
		return res, err
	}
	sum, err := reclaim.New(store, evaluator, r.mailer, r.cfg, r.logger).Run(ctx)
	if err != nil {
		return res, err
	}
	res.Reclaim = sum
	r.metrics.StaleFound.Add(float64(sum.Stale))
	r.metrics.Reclaimed.Add(float64(sum.Converted))
	r.metrics.ReclaimFailures.Add(float64(sum.Stale - sum.Converted))

	batch, err := pending.New(store, r.cfg, r.logger).Select(ctx)
	if err != nil {
		return res, err
	}
	res.Pending = batch
	r.metrics.PendingSelected.Add(float64(len(batch)))

	r.logger.Info().
		Str("dag_run_id", r.cfg.DAGRunID).
		Int("stale", sum.Stale).
		Int("converted", sum.Converted).
		Int("pending", len(batch)).
		Msg("tick completed")
	return res, nil
}

func (r *Runner) countProbeFailures(st health.Status) {
	for system, up := range map[string]bool{
		"source": st.Source,
		"stage":  st.Stage,
		"target": st.Target,
		"drive":  st.Drive,
	} {
		if !up {
			r.metrics.ProbeFailures.WithLabelValues(system).Inc()
		}
	}
}
