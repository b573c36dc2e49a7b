// Package reclaim converts stale in-process work units back to
// PENDING so the next run can pick them up again.
package reclaim

import (
	"github.com/fmachado/driveplane/internal/drive"
)

// MarkPending returns a copy of r reset for re-execution. The
// pipeline-level status goes back to PENDING with its timings cleared,
// every phase that has not COMPLETED is reset to PENDING with cleared
// timings, and the retry counter is incremented (null counts as zero).
// Completed phases keep their status and timings so finished work is
// not redone.
func MarkPending(r drive.Record) drive.Record {
	out := r.Clone()

	out.PipelineStatus = drive.StatusPending
	out.PipelineStartTime = nil
	out.PipelineEndTime = nil
	out.PipelineDuration = nil

	for _, ps := range out.PhaseStates() {
		if ps.Status != nil && *ps.Status == drive.StatusCompleted {
			continue
		}
		pending := drive.StatusPending
		// Enabled is owned by the row's scheduler and is left alone.
		out.SetPhaseState(drive.PhaseState{Name: ps.Name, Status: &pending})
	}

	retries := r.Retries() + 1
	out.RetryAttemptNumber = &retries

	return out
}
