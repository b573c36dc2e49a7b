package reclaim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/fmachado/driveplane/internal/config"
	"github.com/fmachado/driveplane/internal/drive"
	"github.com/fmachado/driveplane/internal/stale"
)

type fakeStore struct {
	inProcess  []drive.Record
	fetchErr   error
	replaceErr map[string]error
	replaced   []drive.Record
}

func (s *fakeStore) FetchInProcess(ctx context.Context) ([]drive.Record, error) {
	return s.inProcess, s.fetchErr
}

func (s *fakeStore) Replace(ctx context.Context, original, updated drive.Record) error {
	if err := s.replaceErr[original.PipelineID]; err != nil {
		return err
	}
	s.replaced = append(s.replaced, updated)
	return nil
}

type fakeMailer struct {
	err   error
	calls int
}

func (m *fakeMailer) Send(ctx context.Context, subject, message string) error {
	m.calls++
	return m.err
}

func testCfg() config.Config {
	return config.Config{
		PipelineName:         "orders",
		SourceName:           "erp",
		SourceCategory:       "sales",
		SourceSubType:        "hourly",
		Timezone:             "UTC",
		StaleThresholdFactor: 1,
		PipelineExpDuration:  "1m",
	}
}

func inProcessRecord(id string, age time.Duration) drive.Record {
	start := time.Now().Add(-age)
	return drive.Record{
		PipelineID:        id,
		PipelineStatus:    drive.StatusInProcess,
		PipelineStartTime: &start,
	}
}

func newReclaimer(t *testing.T, store Store, mailer *fakeMailer) *Reclaimer {
	t.Helper()
	ev, err := stale.NewEvaluator(testCfg(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEvaluator() error: %v", err)
	}
	return New(store, ev, mailer, testCfg(), zerolog.Nop())
}

func TestRun_NoInProcessRecords(t *testing.T) {
	store := &fakeStore{}
	mailer := &fakeMailer{}
	r := newReclaimer(t, store, mailer)

	sum, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if sum != (Summary{}) {
		t.Errorf("Summary = %+v, want zero", sum)
	}
	if mailer.calls != 0 {
		t.Error("no alert expected without stale records")
	}
}

func TestRun_FetchFailureIsFatal(t *testing.T) {
	fetchErr := errors.New("drive down")
	r := newReclaimer(t, &fakeStore{fetchErr: fetchErr}, &fakeMailer{})

	_, err := r.Run(context.Background())
	if !errors.Is(err, fetchErr) {
		t.Errorf("Run() error = %v, want wrapped fetch error", err)
	}
}

func TestRun_ConvertsStaleRecords(t *testing.T) {
	store := &fakeStore{inProcess: []drive.Record{
		inProcessRecord("old-1", time.Hour),
		inProcessRecord("fresh", 10*time.Second),
		inProcessRecord("old-2", 2*time.Hour),
	}}
	mailer := &fakeMailer{}
	r := newReclaimer(t, store, mailer)

	sum, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	want := Summary{Total: 3, Stale: 2, Converted: 2}
	if sum != want {
		t.Errorf("Summary = %+v, want %+v", sum, want)
	}
	if mailer.calls != 1 {
		t.Errorf("alert calls = %d, want 1", mailer.calls)
	}
	for _, rec := range store.replaced {
		if rec.PipelineStatus != drive.StatusPending {
			t.Errorf("replaced record %s status = %q, want PENDING", rec.PipelineID, rec.PipelineStatus)
		}
		if rec.Retries() != 1 {
			t.Errorf("replaced record %s retries = %d, want 1", rec.PipelineID, rec.Retries())
		}
	}
}

func TestRun_AlertFailureDoesNotAbort(t *testing.T) {
	store := &fakeStore{inProcess: []drive.Record{inProcessRecord("old-1", time.Hour)}}
	mailer := &fakeMailer{err: errors.New("smtp down")}
	r := newReclaimer(t, store, mailer)

	sum, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if sum.Converted != 1 {
		t.Errorf("Converted = %d, want 1 despite alert failure", sum.Converted)
	}
}

func TestRun_PerRowFailureIsolated(t *testing.T) {
	store := &fakeStore{
		inProcess: []drive.Record{
			inProcessRecord("old-1", time.Hour),
			inProcessRecord("old-2", time.Hour),
			inProcessRecord("old-3", time.Hour),
		},
		replaceErr: map[string]error{"old-2": errors.New("conflict")},
	}
	r := newReclaimer(t, store, &fakeMailer{})

	sum, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	want := Summary{Total: 3, Stale: 3, Converted: 2}
	if sum != want {
		t.Errorf("Summary = %+v, want %+v", sum, want)
	}
	if len(store.replaced) != 2 {
		t.Errorf("replaced %d records, want 2", len(store.replaced))
	}
}

func TestRun_NoStaleRecords(t *testing.T) {
	store := &fakeStore{inProcess: []drive.Record{inProcessRecord("fresh", time.Second)}}
	mailer := &fakeMailer{}
	r := newReclaimer(t, store, mailer)

	sum, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	want := Summary{Total: 1}
	if sum != want {
		t.Errorf("Summary = %+v, want %+v", sum, want)
	}
	if mailer.calls != 0 {
		t.Error("no alert expected when nothing is stale")
	}
}
