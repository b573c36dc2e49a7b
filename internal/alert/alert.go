// Package alert delivers operator notifications for capability
// decisions and stale-work reclaims.
package alert

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/fmachado/driveplane/internal/config"
	"github.com/fmachado/driveplane/internal/drive"
)

// Mailer sends one alert. Implementations must be safe to call from a
// single tick at a time.
type Mailer interface {
	Send(ctx context.Context, subject, message string) error
}

// SMTPMailer submits alerts to a plain SMTP relay.
type SMTPMailer struct {
	addr   string
	from   string
	to     []string
	logger zerolog.Logger
}

func NewSMTPMailer(addr, from string, to []string, logger zerolog.Logger) *SMTPMailer {
	return &SMTPMailer{
		addr:   addr,
		from:   from,
		to:     to,
		logger: logger.With().Str("component", "alert").Logger(),
	}
}

func (m *SMTPMailer) Send(ctx context.Context, subject, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(m.to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n\r\n", subject)
	b.WriteString(message)
	b.WriteString("\r\n")

	if err := smtp.SendMail(m.addr, nil, m.from, m.to, []byte(b.String())); err != nil {
		return fmt.Errorf("send alert %q: %w", subject, err)
	}
	m.logger.Info().Str("subject", subject).Msg("alert dispatched")
	return nil
}

// LogMailer records alerts in the log instead of dispatching them.
// Used when alerting is disabled in config.
type LogMailer struct {
	Logger zerolog.Logger
}

func (m LogMailer) Send(ctx context.Context, subject, message string) error {
	m.Logger.Info().
		Str("component", "alert").
		Str("subject", subject).
		Str("message", message).
		Msg("alerting disabled; logging alert instead")
	return nil
}

// StaleProcessAlert formats the digest for a batch of stale rows about
// to be reclaimed.
func StaleProcessAlert(stale []drive.Record, cfg config.Config) (subject, message string) {
	subject = fmt.Sprintf("WARNING: %d Stale Pipeline Records Detected - %s/%s",
		len(stale), cfg.PipelineName, cfg.SourceName)

	var b strings.Builder
	fmt.Fprintf(&b, "Stale in-process records for pipeline %s, source %s (%s/%s). They will be reset to PENDING.\n\n",
		cfg.PipelineName, cfg.SourceName, cfg.SourceCategory, cfg.SourceSubType)
	for _, r := range stale {
		started := "unknown"
		if r.PipelineStartTime != nil {
			started = r.PipelineStartTime.Format("2006-01-02T15:04:05Z07:00")
		}
		fmt.Fprintf(&b, "- %s window [%s, %s] started %s retries %d\n",
			r.PipelineID,
			r.QueryWindowStartTime.Format("2006-01-02T15:04:05Z07:00"),
			r.QueryWindowEndTime.Format("2006-01-02T15:04:05Z07:00"),
			started,
			r.Retries())
	}
	return subject, b.String()
}

// SendStaleProcessAlert dispatches the stale digest. Callers on the
// reclaim path treat a failure here as non-fatal.
func SendStaleProcessAlert(ctx context.Context, m Mailer, stale []drive.Record, cfg config.Config) error {
	subject, message := StaleProcessAlert(stale, cfg)
	return m.Send(ctx, subject, message)
}
