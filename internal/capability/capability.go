// Package capability converts the four-way health status into the
// tick's transfer-capability decision and notifies operators.
package capability

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fmachado/driveplane/internal/alert"
	"github.com/fmachado/driveplane/internal/config"
	"github.com/fmachado/driveplane/internal/health"
)

// Decision says what the current tick may do.
type Decision struct {
	ExitDAG     bool
	CanSrcToStg bool
	CanStgToTgt bool
}

// Severity of the alert accompanying a decision.
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Decide maps the health status to a capability decision. Pure
// function of the four booleans; first match wins.
func Decide(st health.Status) Decision {
	// Drive unavailability is fatal: no status can be persisted.
	if !st.Drive {
		return Decision{ExitDAG: true}
	}
	// No data system reachable: nothing to move, exit gracefully.
	if !st.Source && !st.Stage && !st.Target {
		return Decision{ExitDAG: true}
	}
	return Decision{
		CanSrcToStg: st.Source && st.Stage,
		CanStgToTgt: st.Stage && st.Target,
	}
}

// alertContent builds the operator notification for a decision.
func alertContent(d Decision, st health.Status, dagRunID string) (Severity, string, string) {
	switch {
	case !st.Drive:
		return SeverityCritical,
			fmt.Sprintf("CRITICAL: Pipeline Aborted - Drive Connection Missing - DAG %s", dagRunID),
			fmt.Sprintf("Critical: Drive connection unavailable. Cannot log pipeline status. Exiting DAG run %s. All data transfer operations aborted.", dagRunID)
	case d.ExitDAG:
		return SeverityWarning,
			fmt.Sprintf("WARNING: No Data Connections Available - DAG %s", dagRunID),
			fmt.Sprintf("No data connections available (source, stage, target all unavailable). Cannot perform any data transfer operations. Exiting DAG run %s. Will retry in next scheduled run.", dagRunID)
	case d.CanSrcToStg && d.CanStgToTgt:
		return SeverityInfo,
			fmt.Sprintf("INFO: Complete Pipeline Execution - DAG %s", dagRunID),
			fmt.Sprintf("All connections available (source, stage, target, drive). Performing complete pipeline: source-to-stage and stage-to-target data transfers. DAG run ID: %s.", dagRunID)
	case d.CanSrcToStg:
		return SeverityWarning,
			fmt.Sprintf("WARNING: Partial Pipeline - Source to Stage Only - DAG %s", dagRunID),
			fmt.Sprintf("Partial pipeline execution: source, stage, and drive connections available. Target connection unavailable. Performing source-to-stage data transfer only. DAG run ID: %s.", dagRunID)
	case d.CanStgToTgt:
		return SeverityWarning,
			fmt.Sprintf("WARNING: Partial Pipeline - Stage to Target Only - DAG %s", dagRunID),
			fmt.Sprintf("Partial pipeline execution: stage, target, and drive connections available. Source connection unavailable. Performing stage-to-target data transfer only. DAG run ID: %s.", dagRunID)
	default:
		return SeverityWarning,
			fmt.Sprintf("WARNING: No Data Transfers Possible - DAG %s", dagRunID),
			fmt.Sprintf("Only drive connection available. Source, stage, and target connections unavailable. No data transfer operations possible. DAG run ID: %s. Status will be logged to drive table only.", dagRunID)
	}
}

// Arbiter decides and notifies. Alert dispatch failure on this path is
// fatal: the core refuses to proceed silently.
type Arbiter struct {
	mailer alert.Mailer
	logger zerolog.Logger
}

func New(mailer alert.Mailer, logger zerolog.Logger) *Arbiter {
	return &Arbiter{
		mailer: mailer,
		logger: logger.With().Str("component", "capability").Logger(),
	}
}

// Determine runs the decision table for one tick. dagRunID is required
// for correlation.
func (a *Arbiter) Determine(ctx context.Context, st health.Status, dagRunID string) (Decision, error) {
	if dagRunID == "" {
		return Decision{}, fmt.Errorf("%w: dag_run_id is required", config.ErrConfig)
	}

	d := Decide(st)
	severity, subject, message := alertContent(d, st, dagRunID)

	if err := a.mailer.Send(ctx, subject, message); err != nil {
		return Decision{}, fmt.Errorf("cannot send capability alert for DAG %s: %w", dagRunID, err)
	}

	evt := a.logger.Info()
	if severity == SeverityCritical {
		evt = a.logger.Error()
	} else if d.ExitDAG {
		evt = a.logger.Warn()
	}
	evt.
		Str("keyword", "CAPABILITY_CHECK_COMPLETE").
		Str("dag_run_id", dagRunID).
		Str("severity", string(severity)).
		Bool("exit_dag", d.ExitDAG).
		Bool("can_src_to_stg", d.CanSrcToStg).
		Bool("can_stg_to_tgt", d.CanStgToTgt).
		Msg("pipeline capability determination completed")

	return d, nil
}
