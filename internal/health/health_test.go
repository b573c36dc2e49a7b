package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func alwaysUp(ctx context.Context) (bool, error)   { return true, nil }
func alwaysDown(ctx context.Context) (bool, error) { return false, nil }

func TestCheck_AllHealthy(t *testing.T) {
	st := Check(context.Background(), Probes{
		Source: alwaysUp,
		Stage:  alwaysUp,
		Target: alwaysUp,
		Drive:  alwaysUp,
	}, zerolog.Nop())

	if !st.Source || !st.Stage || !st.Target || !st.Drive {
		t.Errorf("Check() = %+v, want all true", st)
	}
}

func TestCheck_ErrorIsUnavailable(t *testing.T) {
	st := Check(context.Background(), Probes{
		Source: func(ctx context.Context) (bool, error) { return true, errors.New("dial timeout") },
		Stage:  alwaysUp,
		Target: alwaysDown,
		Drive:  alwaysUp,
	}, zerolog.Nop())

	if st.Source {
		t.Error("probe error should count as unavailable")
	}
	if !st.Stage || st.Target || !st.Drive {
		t.Errorf("Check() = %+v", st)
	}
}

func TestCheck_PanicIsUnavailable(t *testing.T) {
	st := Check(context.Background(), Probes{
		Source: func(ctx context.Context) (bool, error) { panic("boom") },
		Stage:  alwaysUp,
		Target: alwaysUp,
		Drive:  alwaysUp,
	}, zerolog.Nop())

	if st.Source {
		t.Error("probe panic should count as unavailable")
	}
	if !st.Drive {
		t.Error("later probes must still run after a panic")
	}
}

func TestCheck_AllProbesRun(t *testing.T) {
	var calls []string
	record := func(name string, ok bool) Probe {
		return func(ctx context.Context) (bool, error) {
			calls = append(calls, name)
			return ok, nil
		}
	}

	Check(context.Background(), Probes{
		Source: record("source", false),
		Stage:  record("stage", false),
		Target: record("target", false),
		Drive:  record("drive", false),
	}, zerolog.Nop())

	want := []string{"source", "stage", "target", "drive"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("probe order: calls = %v, want %v", calls, want)
			break
		}
	}
}

func TestCheck_NilProbe(t *testing.T) {
	st := Check(context.Background(), Probes{Drive: alwaysUp}, zerolog.Nop())
	if st.Source || st.Stage || st.Target {
		t.Errorf("nil probes should be unavailable: %+v", st)
	}
	if !st.Drive {
		t.Error("configured probe should still run")
	}
}

func TestDialProbe_EmptyAddr(t *testing.T) {
	p := DialProbe("", time.Second)
	ok, err := p(context.Background())
	if ok || err == nil {
		t.Errorf("DialProbe(\"\") = %v, %v; want false with error", ok, err)
	}
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func TestPingProbe(t *testing.T) {
	ok, err := PingProbe(fakePinger{})(context.Background())
	if !ok || err != nil {
		t.Errorf("PingProbe healthy = %v, %v", ok, err)
	}

	ok, err = PingProbe(fakePinger{err: errors.New("down")})(context.Background())
	if ok || err == nil {
		t.Errorf("PingProbe down = %v, %v", ok, err)
	}
}
