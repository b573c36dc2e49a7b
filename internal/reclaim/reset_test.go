package reclaim

import (
	"testing"
	"time"

	"github.com/fmachado/driveplane/internal/drive"
)

func statusPtr(s drive.Status) *drive.Status { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func strPtr(s string) *string { return &s }

func int64Ptr(n int64) *int64 { return &n }

func staleRecord() drive.Record {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	return drive.Record{
		PipelineID:           "p-1",
		PipelineName:         "orders",
		SourceName:           "erp",
		SourceCategory:       "sales",
		SourceSubType:        "hourly",
		QueryWindowStartTime: start,
		QueryWindowEndTime:   start.Add(15 * time.Minute),
		PipelineStatus:       drive.StatusInProcess,
		PipelineStartTime:    timePtr(start.Add(time.Minute)),
		PipelineEndTime:      timePtr(start.Add(2 * time.Minute)),
		PipelineDuration:     strPtr("60"),
		RetryAttemptNumber:   int64Ptr(1),

		SrcStgXferEnabled:  true,
		SrcStgXferStatus:   statusPtr(drive.StatusCompleted),
		SrcStgXferStartTS:  timePtr(start),
		SrcStgXferEndTS:    timePtr(start.Add(time.Minute)),
		SrcStgXferDuration: strPtr("60"),

		SrcStgAuditEnabled: true,
		SrcStgAuditStatus:  statusPtr(drive.StatusInProcess),
		SrcStgAuditStartTS: timePtr(start.Add(time.Minute)),

		StgTgtXferEnabled: true,
		StgTgtXferStatus:  statusPtr(drive.StatusFailed),

		// STG_TGT_AUDIT has no status yet.
		StgTgtAuditEnabled: true,

		SrcTgtAuditEnabled: false,
		SrcTgtAuditStatus:  statusPtr(drive.StatusPending),
	}
}

func TestMarkPending_PipelineLevel(t *testing.T) {
	got := MarkPending(staleRecord())

	if got.PipelineStatus != drive.StatusPending {
		t.Errorf("PipelineStatus = %q, want PENDING", got.PipelineStatus)
	}
	if got.PipelineStartTime != nil || got.PipelineEndTime != nil || got.PipelineDuration != nil {
		t.Error("pipeline timings should be cleared")
	}
	if got.Retries() != 2 {
		t.Errorf("Retries() = %d, want 2", got.Retries())
	}
}

func TestMarkPending_CompletedPhaseUntouched(t *testing.T) {
	in := staleRecord()
	got := MarkPending(in)

	if got.SrcStgXferStatus == nil || *got.SrcStgXferStatus != drive.StatusCompleted {
		t.Errorf("completed phase status = %v, want COMPLETED preserved", got.SrcStgXferStatus)
	}
	if got.SrcStgXferStartTS == nil || !got.SrcStgXferStartTS.Equal(*in.SrcStgXferStartTS) {
		t.Error("completed phase start should be preserved")
	}
	if got.SrcStgXferDuration == nil || *got.SrcStgXferDuration != "60" {
		t.Error("completed phase duration should be preserved")
	}
}

func TestMarkPending_NonCompletedPhasesReset(t *testing.T) {
	got := MarkPending(staleRecord())

	for _, ps := range got.PhaseStates() {
		if ps.Name == drive.PhaseSrcStgXfer {
			continue
		}
		if ps.Status == nil || *ps.Status != drive.StatusPending {
			t.Errorf("phase %s status = %v, want PENDING", ps.Name, ps.Status)
		}
		if ps.StartTS != nil || ps.EndTS != nil || ps.Duration != nil {
			t.Errorf("phase %s timings should be cleared", ps.Name)
		}
	}
}

func TestMarkPending_DisabledPhaseStillReset(t *testing.T) {
	// Enablement does not gate the reset: a disabled, non-completed
	// phase is reset like any other, and its flag is preserved.
	got := MarkPending(staleRecord())

	if got.SrcTgtAuditEnabled {
		t.Error("SRC_TGT_AUDIT enabled flag should be preserved as false")
	}
	if got.SrcTgtAuditStatus == nil || *got.SrcTgtAuditStatus != drive.StatusPending {
		t.Errorf("SRC_TGT_AUDIT status = %v, want PENDING", got.SrcTgtAuditStatus)
	}
}

func TestMarkPending_NullRetryCounter(t *testing.T) {
	in := staleRecord()
	in.RetryAttemptNumber = nil
	got := MarkPending(in)

	if got.RetryAttemptNumber == nil || *got.RetryAttemptNumber != 1 {
		t.Errorf("RetryAttemptNumber = %v, want 1", got.RetryAttemptNumber)
	}
}

func TestMarkPending_InputUnchanged(t *testing.T) {
	in := staleRecord()
	_ = MarkPending(in)

	if in.PipelineStatus != drive.StatusInProcess {
		t.Error("input status mutated")
	}
	if in.PipelineStartTime == nil || in.RetryAttemptNumber == nil || *in.RetryAttemptNumber != 1 {
		t.Error("input pointers mutated")
	}
	if in.SrcStgAuditStatus == nil || *in.SrcStgAuditStatus != drive.StatusInProcess {
		t.Error("input phase status mutated")
	}
}
