// Package mailer provides the outbound email collaborator. It wraps a
// provider registry (SMTP, SES, Resend) and applies transport-level retry;
// the pipeline itself never retries a send.
package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/jo12no/lightrail-sydney-alerts/internal/mailer/provider"
	"github.com/jo12no/lightrail-sydney-alerts/internal/mailer/retry"
)

// Config holds outbound email configuration.
type Config struct {
	From     string
	To       string // comma-separated recipient list
	Provider string // primary provider name: smtp, ses, or resend

	SMTP         provider.SMTPConfig
	ResendAPIKey string
	AWSRegion    string
}

// Mailer sends plain-text notification emails.
type Mailer struct {
	from       string
	recipients []string
	registry   *provider.Registry
	retryCfg   retry.Config
}

// New creates a mailer with all providers registered and the configured
// primary selected.
func New(cfg Config) (*Mailer, error) {
	recipients := parseRecipients(cfg.To)
	if len(recipients) == 0 {
		return nil, fmt.Errorf("mailer: no valid recipients in %q", cfg.To)
	}
	for _, r := range recipients {
		if !strings.Contains(r, "@") {
			return nil, fmt.Errorf("mailer: invalid email address %q", r)
		}
	}

	registry := provider.NewRegistry()
	registry.Register(provider.NewSMTPProvider(cfg.SMTP))
	registry.Register(provider.NewResendProvider(cfg.ResendAPIKey))
	registry.Register(provider.NewSESProvider(cfg.AWSRegion))

	primary := cfg.Provider
	if primary == "" {
		primary = "smtp"
	}
	if err := registry.SetPrimary(primary); err != nil {
		return nil, fmt.Errorf("mailer: %w", err)
	}

	return &Mailer{
		from:       cfg.From,
		recipients: recipients,
		registry:   registry,
		retryCfg:   retry.DefaultConfig(),
	}, nil
}

// NewWithRegistry creates a mailer over a custom registry. Useful for tests.
func NewWithRegistry(from string, recipients []string, registry *provider.Registry) *Mailer {
	return &Mailer{
		from:       from,
		recipients: recipients,
		registry:   registry,
		retryCfg:   retry.Config{},
	}
}

// Send delivers one plain-text message to the configured recipients.
// Transient transport failures are retried with backoff; the final error is
// reported to the caller. Duplicate delivery on retry is tolerated.
func (m *Mailer) Send(ctx context.Context, subject, body string) error {
	req := &provider.EmailRequest{
		From:    m.from,
		To:      m.recipients,
		Subject: subject,
		Body:    body,
	}

	return retry.WithRetry(ctx, m.retryCfg, "send_email", func() error {
		return m.registry.Send(ctx, req)
	})
}

// parseRecipients parses a comma-separated list of email addresses.
func parseRecipients(value string) []string {
	parts := strings.Split(value, ",")
	recipients := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			recipients = append(recipients, trimmed)
		}
	}
	return recipients
}
