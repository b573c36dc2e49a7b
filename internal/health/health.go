// Package health runs the pre-flight connectivity checks against the
// four external systems a tick depends on.
package health

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Probe reports whether one external system is reachable. An error (or
// panic) from a probe is equivalent to unavailable.
type Probe func(ctx context.Context) (bool, error)

// Probes holds the four connectivity probes in check order.
type Probes struct {
	Source Probe
	Stage  Probe
	Target Probe
	Drive  Probe
}

// Status is the result of one health check pass.
type Status struct {
	Source bool
	Stage  bool
	Target bool
	Drive  bool
}

// Check runs all four probes in fixed source/stage/target/drive order.
// Every probe always runs so the operator sees a complete picture per
// tick; there is no short-circuit.
func Check(ctx context.Context, probes Probes, logger zerolog.Logger) Status {
	log := logger.With().Str("component", "health").Logger()
	log.Info().Str("keyword", "HEALTH_CHECK_START").Msg("starting connection health check")

	st := Status{
		Source: runProbe(ctx, "source", probes.Source, log),
		Stage:  runProbe(ctx, "stage", probes.Stage, log),
		Target: runProbe(ctx, "target", probes.Target, log),
		Drive:  runProbe(ctx, "drive", probes.Drive, log),
	}

	log.Info().
		Str("keyword", "HEALTH_CHECK_COMPLETE").
		Bool("source", st.Source).
		Bool("stage", st.Stage).
		Bool("target", st.Target).
		Bool("drive", st.Drive).
		Msg("connection health check completed")
	return st
}

func runProbe(ctx context.Context, name string, p Probe, log zerolog.Logger) (ok bool) {
	crashKeyword := strings.ToUpper(name) + "_CONNECTION_CRASH"

	defer func() {
		if r := recover(); r != nil {
			ok = false
			log.Warn().
				Str("keyword", crashKeyword).
				Interface("panic", r).
				Msgf("%s connection test crashed", name)
		}
	}()

	if p == nil {
		log.Warn().
			Str("keyword", crashKeyword).
			Msgf("no %s probe configured", name)
		return false
	}

	ok, err := p(ctx)
	if err != nil {
		ok = false
		log.Warn().
			Str("keyword", crashKeyword).
			Err(err).
			Msgf("%s connection test crashed", name)
	}

	log.Info().
		Str("keyword", strings.ToUpper(name)+"_CONNECTION_TEST").
		Bool("status", ok).
		Msgf("%s connection test: %s", name, passFail(ok))
	return ok
}

func passFail(ok bool) string {
	if ok {
		return "PASSED"
	}
	return "FAILED"
}

// DialProbe returns a probe that checks TCP reachability of addr. An
// empty addr means the system cannot be verified and counts as
// unavailable.
func DialProbe(addr string, timeout time.Duration) Probe {
	return func(ctx context.Context) (bool, error) {
		if addr == "" {
			return false, fmt.Errorf("no endpoint configured")
		}
		d := net.Dialer{Timeout: timeout}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return false, err
		}
		conn.Close()
		return true, nil
	}
}

// Pinger is the drive-side connectivity contract, satisfied by the
// drive store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingProbe adapts a Pinger into a Probe.
func PingProbe(p Pinger) Probe {
	return func(ctx context.Context) (bool, error) {
		if err := p.Ping(ctx); err != nil {
			return false, err
		}
		return true, nil
	}
}
