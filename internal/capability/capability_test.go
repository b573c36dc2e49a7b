package capability

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/fmachado/driveplane/internal/config"
	"github.com/fmachado/driveplane/internal/health"
)

type captureMailer struct {
	subject string
	message string
	err     error
	calls   int
}

func (m *captureMailer) Send(ctx context.Context, subject, message string) error {
	m.calls++
	m.subject = subject
	m.message = message
	return m.err
}

func TestDecide_Table(t *testing.T) {
	tests := []struct {
		name string
		st   health.Status
		want Decision
	}{
		{
			name: "drive down aborts",
			st:   health.Status{Source: true, Stage: true, Target: true, Drive: false},
			want: Decision{ExitDAG: true},
		},
		{
			name: "no data connections aborts",
			st:   health.Status{Drive: true},
			want: Decision{ExitDAG: true},
		},
		{
			name: "all healthy runs full pipeline",
			st:   health.Status{Source: true, Stage: true, Target: true, Drive: true},
			want: Decision{CanSrcToStg: true, CanStgToTgt: true},
		},
		{
			name: "target down runs source to stage only",
			st:   health.Status{Source: true, Stage: true, Drive: true},
			want: Decision{CanSrcToStg: true},
		},
		{
			name: "source down runs stage to target only",
			st:   health.Status{Stage: true, Target: true, Drive: true},
			want: Decision{CanStgToTgt: true},
		},
		{
			name: "stage down blocks both transfers",
			st:   health.Status{Source: true, Target: true, Drive: true},
			want: Decision{},
		},
		{
			name: "only source up means no transfer pairs",
			st:   health.Status{Source: true, Drive: true},
			want: Decision{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.st)
			if got != tt.want {
				t.Errorf("Decide(%+v) = %+v, want %+v", tt.st, got, tt.want)
			}
		})
	}
}

func TestDecide_Pure(t *testing.T) {
	st := health.Status{Source: true, Stage: true, Drive: true}
	if Decide(st) != Decide(st) {
		t.Error("Decide is not deterministic")
	}
}

func TestDetermine_AllHealthy(t *testing.T) {
	m := &captureMailer{}
	a := New(m, zerolog.Nop())

	d, err := a.Determine(context.Background(),
		health.Status{Source: true, Stage: true, Target: true, Drive: true}, "d1")
	if err != nil {
		t.Fatalf("Determine() error: %v", err)
	}
	if d.ExitDAG || !d.CanSrcToStg || !d.CanStgToTgt {
		t.Errorf("Determine() = %+v", d)
	}
	if !strings.Contains(m.subject, "Complete Pipeline Execution - DAG d1") {
		t.Errorf("subject = %q", m.subject)
	}
	if !strings.HasPrefix(m.subject, "INFO:") {
		t.Errorf("subject severity = %q, want INFO", m.subject)
	}
}

func TestDetermine_DriveDown(t *testing.T) {
	m := &captureMailer{}
	a := New(m, zerolog.Nop())

	d, err := a.Determine(context.Background(),
		health.Status{Source: true, Stage: true, Target: true, Drive: false}, "d2")
	if err != nil {
		t.Fatalf("Determine() error: %v", err)
	}
	if !d.ExitDAG || d.CanSrcToStg || d.CanStgToTgt {
		t.Errorf("Determine() = %+v", d)
	}
	if !strings.HasPrefix(m.subject, "CRITICAL:") {
		t.Errorf("subject = %q, want CRITICAL severity", m.subject)
	}
	if !strings.Contains(m.subject, "Drive Connection Missing - DAG d2") {
		t.Errorf("subject = %q", m.subject)
	}
}

func TestDetermine_PartialSubjects(t *testing.T) {
	tests := []struct {
		name    string
		st      health.Status
		subject string
	}{
		{
			name:    "source to stage only",
			st:      health.Status{Source: true, Stage: true, Drive: true},
			subject: "Partial Pipeline - Source to Stage Only",
		},
		{
			name:    "stage to target only",
			st:      health.Status{Stage: true, Target: true, Drive: true},
			subject: "Partial Pipeline - Stage to Target Only",
		},
		{
			name:    "no transfer pairs",
			st:      health.Status{Source: true, Drive: true},
			subject: "No Data Transfers Possible",
		},
		{
			name:    "no data connections",
			st:      health.Status{Drive: true},
			subject: "No Data Connections Available",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &captureMailer{}
			a := New(m, zerolog.Nop())
			if _, err := a.Determine(context.Background(), tt.st, "d3"); err != nil {
				t.Fatalf("Determine() error: %v", err)
			}
			if !strings.Contains(m.subject, tt.subject) {
				t.Errorf("subject = %q, want substring %q", m.subject, tt.subject)
			}
		})
	}
}

func TestDetermine_MissingDAGRunID(t *testing.T) {
	m := &captureMailer{}
	a := New(m, zerolog.Nop())

	_, err := a.Determine(context.Background(), health.Status{Drive: true}, "")
	if !errors.Is(err, config.ErrConfig) {
		t.Errorf("Determine() error = %v, want config error", err)
	}
	if m.calls != 0 {
		t.Error("no alert should be sent without a dag_run_id")
	}
}

func TestDetermine_AlertFailureIsFatal(t *testing.T) {
	m := &captureMailer{err: errors.New("smtp down")}
	a := New(m, zerolog.Nop())

	_, err := a.Determine(context.Background(),
		health.Status{Source: true, Stage: true, Target: true, Drive: true}, "d4")
	if err == nil {
		t.Fatal("expected fatal error when alert dispatch fails")
	}
	if !errors.Is(err, m.err) {
		t.Errorf("error = %v, want wrapped mailer error", err)
	}
}
