// Package drive is the typed gateway to the drive table. Each row is
// one work unit: a time window for one (pipeline, source, category,
// sub-type) quadruple, with per-phase status for the five transfer and
// audit phases.
package drive

import (
	"fmt"
	"time"
)

// Status is a pipeline- or phase-level lifecycle state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusInProcess Status = "IN_PROCESS"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// PhaseName identifies one of the five phases of a work unit.
type PhaseName string

const (
	PhaseSrcStgXfer  PhaseName = "SRC_STG_XFER"
	PhaseSrcStgAudit PhaseName = "SRC_STG_AUDIT"
	PhaseStgTgtXfer  PhaseName = "STG_TGT_XFER"
	PhaseStgTgtAudit PhaseName = "STG_TGT_AUDIT"
	PhaseSrcTgtAudit PhaseName = "SRC_TGT_AUDIT"
)

// PhaseOrder is the fixed processing order for the five phases.
var PhaseOrder = []PhaseName{
	PhaseSrcStgXfer,
	PhaseSrcStgAudit,
	PhaseStgTgtXfer,
	PhaseStgTgtAudit,
	PhaseSrcTgtAudit,
}

// Record is one drive-table row. Field order matches Columns; the
// insert path depends on both staying in sync.
type Record struct {
	PipelineID     string `db:"PIPELINE_ID"`
	PipelineName   string `db:"PIPELINE_NAME"`
	SourceName     string `db:"SOURCE_NAME"`
	SourceCategory string `db:"SOURCE_CATEGORY"`
	SourceSubType  string `db:"SOURCE_SUB_TYPE"`

	QueryWindowStartTime time.Time `db:"QUERY_WINDOW_START_TIME"`
	QueryWindowEndTime   time.Time `db:"QUERY_WINDOW_END_TIME"`

	PipelineStatus      Status     `db:"PIPELINE_STATUS"`
	PipelineStartTime   *time.Time `db:"PIPELINE_START_TIME"`
	PipelineEndTime     *time.Time `db:"PIPELINE_END_TIME"`
	PipelineDuration    *string    `db:"PIPELINE_DURATION"`
	PipelineExpDuration *string    `db:"PIPELINE_EXP_DURATION"`
	RetryAttemptNumber  *int64     `db:"RETRY_ATTEMPT_NUMBER"`

	ContinuityCheckPerformed string `db:"CONTINUITY_CHECK_PERFORMED"`
	CanFetchHistoricalData   string `db:"CAN_FETCH_HISTORICAL_DATA"`

	SrcStgXferEnabled  bool       `db:"SRC_STG_XFER_ENABLED"`
	SrcStgXferStatus   *Status    `db:"SRC_STG_XFER_STATUS"`
	SrcStgXferStartTS  *time.Time `db:"SRC_STG_XFER_START_TS"`
	SrcStgXferEndTS    *time.Time `db:"SRC_STG_XFER_END_TS"`
	SrcStgXferDuration *string    `db:"SRC_STG_XFER_DURATION"`

	SrcStgAuditEnabled  bool       `db:"SRC_STG_AUDIT_ENABLED"`
	SrcStgAuditStatus   *Status    `db:"SRC_STG_AUDIT_STATUS"`
	SrcStgAuditStartTS  *time.Time `db:"SRC_STG_AUDIT_START_TS"`
	SrcStgAuditEndTS    *time.Time `db:"SRC_STG_AUDIT_END_TS"`
	SrcStgAuditDuration *string    `db:"SRC_STG_AUDIT_DURATION"`

	StgTgtXferEnabled  bool       `db:"STG_TGT_XFER_ENABLED"`
	StgTgtXferStatus   *Status    `db:"STG_TGT_XFER_STATUS"`
	StgTgtXferStartTS  *time.Time `db:"STG_TGT_XFER_START_TS"`
	StgTgtXferEndTS    *time.Time `db:"STG_TGT_XFER_END_TS"`
	StgTgtXferDuration *string    `db:"STG_TGT_XFER_DURATION"`

	StgTgtAuditEnabled  bool       `db:"STG_TGT_AUDIT_ENABLED"`
	StgTgtAuditStatus   *Status    `db:"STG_TGT_AUDIT_STATUS"`
	StgTgtAuditStartTS  *time.Time `db:"STG_TGT_AUDIT_START_TS"`
	StgTgtAuditEndTS    *time.Time `db:"STG_TGT_AUDIT_END_TS"`
	StgTgtAuditDuration *string    `db:"STG_TGT_AUDIT_DURATION"`

	SrcTgtAuditEnabled  bool       `db:"SRC_TGT_AUDIT_ENABLED"`
	SrcTgtAuditStatus   *Status    `db:"SRC_TGT_AUDIT_STATUS"`
	SrcTgtAuditStartTS  *time.Time `db:"SRC_TGT_AUDIT_START_TS"`
	SrcTgtAuditEndTS    *time.Time `db:"SRC_TGT_AUDIT_END_TS"`
	SrcTgtAuditDuration *string    `db:"SRC_TGT_AUDIT_DURATION"`
}

// Columns is the declared column order of a Record. Select and insert
// statements both derive from it so the on-wire shape stays stable.
var Columns = []string{
	"PIPELINE_ID",
	"PIPELINE_NAME",
	"SOURCE_NAME",
	"SOURCE_CATEGORY",
	"SOURCE_SUB_TYPE",
	"QUERY_WINDOW_START_TIME",
	"QUERY_WINDOW_END_TIME",
	"PIPELINE_STATUS",
	"PIPELINE_START_TIME",
	"PIPELINE_END_TIME",
	"PIPELINE_DURATION",
	"PIPELINE_EXP_DURATION",
	"RETRY_ATTEMPT_NUMBER",
	"CONTINUITY_CHECK_PERFORMED",
	"CAN_FETCH_HISTORICAL_DATA",
	"SRC_STG_XFER_ENABLED",
	"SRC_STG_XFER_STATUS",
	"SRC_STG_XFER_START_TS",
	"SRC_STG_XFER_END_TS",
	"SRC_STG_XFER_DURATION",
	"SRC_STG_AUDIT_ENABLED",
	"SRC_STG_AUDIT_STATUS",
	"SRC_STG_AUDIT_START_TS",
	"SRC_STG_AUDIT_END_TS",
	"SRC_STG_AUDIT_DURATION",
	"STG_TGT_XFER_ENABLED",
	"STG_TGT_XFER_STATUS",
	"STG_TGT_XFER_START_TS",
	"STG_TGT_XFER_END_TS",
	"STG_TGT_XFER_DURATION",
	"STG_TGT_AUDIT_ENABLED",
	"STG_TGT_AUDIT_STATUS",
	"STG_TGT_AUDIT_START_TS",
	"STG_TGT_AUDIT_END_TS",
	"STG_TGT_AUDIT_DURATION",
	"SRC_TGT_AUDIT_ENABLED",
	"SRC_TGT_AUDIT_STATUS",
	"SRC_TGT_AUDIT_START_TS",
	"SRC_TGT_AUDIT_END_TS",
	"SRC_TGT_AUDIT_DURATION",
}

// PhaseState is a read/write snapshot of one phase block.
type PhaseState struct {
	Name     PhaseName
	Enabled  bool
	Status   *Status
	StartTS  *time.Time
	EndTS    *time.Time
	Duration *string
}

// PhaseStates returns the five phase blocks in PhaseOrder.
func (r Record) PhaseStates() []PhaseState {
	return []PhaseState{
		{PhaseSrcStgXfer, r.SrcStgXferEnabled, r.SrcStgXferStatus, r.SrcStgXferStartTS, r.SrcStgXferEndTS, r.SrcStgXferDuration},
		{PhaseSrcStgAudit, r.SrcStgAuditEnabled, r.SrcStgAuditStatus, r.SrcStgAuditStartTS, r.SrcStgAuditEndTS, r.SrcStgAuditDuration},
		{PhaseStgTgtXfer, r.StgTgtXferEnabled, r.StgTgtXferStatus, r.StgTgtXferStartTS, r.StgTgtXferEndTS, r.StgTgtXferDuration},
		{PhaseStgTgtAudit, r.StgTgtAuditEnabled, r.StgTgtAuditStatus, r.StgTgtAuditStartTS, r.StgTgtAuditEndTS, r.StgTgtAuditDuration},
		{PhaseSrcTgtAudit, r.SrcTgtAuditEnabled, r.SrcTgtAuditStatus, r.SrcTgtAuditStartTS, r.SrcTgtAuditEndTS, r.SrcTgtAuditDuration},
	}
}

// SetPhaseState writes a phase block back onto the record. The Enabled
// flag is not written: enablement belongs to the row's external owner.
func (r *Record) SetPhaseState(s PhaseState) error {
	switch s.Name {
	case PhaseSrcStgXfer:
		r.SrcStgXferStatus, r.SrcStgXferStartTS, r.SrcStgXferEndTS, r.SrcStgXferDuration = s.Status, s.StartTS, s.EndTS, s.Duration
	case PhaseSrcStgAudit:
		r.SrcStgAuditStatus, r.SrcStgAuditStartTS, r.SrcStgAuditEndTS, r.SrcStgAuditDuration = s.Status, s.StartTS, s.EndTS, s.Duration
	case PhaseStgTgtXfer:
		r.StgTgtXferStatus, r.StgTgtXferStartTS, r.StgTgtXferEndTS, r.StgTgtXferDuration = s.Status, s.StartTS, s.EndTS, s.Duration
	case PhaseStgTgtAudit:
		r.StgTgtAuditStatus, r.StgTgtAuditStartTS, r.StgTgtAuditEndTS, r.StgTgtAuditDuration = s.Status, s.StartTS, s.EndTS, s.Duration
	case PhaseSrcTgtAudit:
		r.SrcTgtAuditStatus, r.SrcTgtAuditStartTS, r.SrcTgtAuditEndTS, r.SrcTgtAuditDuration = s.Status, s.StartTS, s.EndTS, s.Duration
	default:
		return fmt.Errorf("unknown phase %q", s.Name)
	}
	return nil
}

// Clone returns a deep copy: pointer fields are re-allocated so the
// copy can be mutated without touching the original. Used to hold the
// before-image during a reclaim swap.
func (r Record) Clone() Record {
	c := r
	c.PipelineStartTime = clonePtr(r.PipelineStartTime)
	c.PipelineEndTime = clonePtr(r.PipelineEndTime)
	c.PipelineDuration = clonePtr(r.PipelineDuration)
	c.PipelineExpDuration = clonePtr(r.PipelineExpDuration)
	c.RetryAttemptNumber = clonePtr(r.RetryAttemptNumber)

	c.SrcStgXferStatus = clonePtr(r.SrcStgXferStatus)
	c.SrcStgXferStartTS = clonePtr(r.SrcStgXferStartTS)
	c.SrcStgXferEndTS = clonePtr(r.SrcStgXferEndTS)
	c.SrcStgXferDuration = clonePtr(r.SrcStgXferDuration)

	c.SrcStgAuditStatus = clonePtr(r.SrcStgAuditStatus)
	c.SrcStgAuditStartTS = clonePtr(r.SrcStgAuditStartTS)
	c.SrcStgAuditEndTS = clonePtr(r.SrcStgAuditEndTS)
	c.SrcStgAuditDuration = clonePtr(r.SrcStgAuditDuration)

	c.StgTgtXferStatus = clonePtr(r.StgTgtXferStatus)
	c.StgTgtXferStartTS = clonePtr(r.StgTgtXferStartTS)
	c.StgTgtXferEndTS = clonePtr(r.StgTgtXferEndTS)
	c.StgTgtXferDuration = clonePtr(r.StgTgtXferDuration)

	c.StgTgtAuditStatus = clonePtr(r.StgTgtAuditStatus)
	c.StgTgtAuditStartTS = clonePtr(r.StgTgtAuditStartTS)
	c.StgTgtAuditEndTS = clonePtr(r.StgTgtAuditEndTS)
	c.StgTgtAuditDuration = clonePtr(r.StgTgtAuditDuration)

	c.SrcTgtAuditStatus = clonePtr(r.SrcTgtAuditStatus)
	c.SrcTgtAuditStartTS = clonePtr(r.SrcTgtAuditStartTS)
	c.SrcTgtAuditEndTS = clonePtr(r.SrcTgtAuditEndTS)
	c.SrcTgtAuditDuration = clonePtr(r.SrcTgtAuditDuration)

	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Retries returns the retry counter, treating null as zero.
func (r Record) Retries() int64 {
	if r.RetryAttemptNumber == nil {
		return 0
	}
	return *r.RetryAttemptNumber
}
