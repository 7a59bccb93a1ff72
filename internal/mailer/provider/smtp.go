package provider

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// SMTPProvider implements email sending over plain SMTP or STARTTLS/TLS.
type SMTPProvider struct {
	host     string
	port     string
	user     string
	password string
}

// SMTPConfig holds SMTP connection configuration.
type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
}

// NewSMTPProvider creates a new SMTP email provider.
func NewSMTPProvider(cfg SMTPConfig) *SMTPProvider {
	return &SMTPProvider{
		host:     cfg.Host,
		port:     cfg.Port,
		user:     cfg.User,
		password: cfg.Password,
	}
}

// Name returns the provider name.
func (p *SMTPProvider) Name() string {
	return "smtp"
}

// IsConfigured returns true if an SMTP host is set.
func (p *SMTPProvider) IsConfigured() bool {
	return p.host != ""
}

// Send sends an email via SMTP. Port 587 uses STARTTLS and port 465 uses
// TLS from the start; other ports (local relays like MailHog) use plain
// SMTP with optional auth.
func (p *SMTPProvider) Send(ctx context.Context, req *EmailRequest) error {
	if len(req.To) == 0 {
		return fmt.Errorf("email recipient is required")
	}

	msg := buildMessage(req.From, req.To, req.Subject, req.Body)
	addr := fmt.Sprintf("%s:%s", p.host, p.port)

	port, err := strconv.Atoi(p.port)
	if err != nil {
		return fmt.Errorf("invalid SMTP port: %s", p.port)
	}

	if port == 587 || port == 465 {
		err = p.sendWithTLS(addr, port, req.From, req.To, msg)
	} else {
		var auth smtp.Auth
		if p.user != "" && p.password != "" {
			auth = smtp.PlainAuth("", p.user, p.password, p.host)
		}
		err = smtp.SendMail(addr, auth, req.From, req.To, msg)
	}
	if err != nil {
		slog.Error("Failed to send email",
			"error", err,
			"smtp_server", addr,
			"to", strings.Join(req.To, ", "),
		)
		return fmt.Errorf("failed to send email: %w", err)
	}

	slog.Info("Sent email notification",
		"from", req.From,
		"to", strings.Join(req.To, ", "),
		"subject", req.Subject,
		"smtp_server", addr,
	)
	return nil
}

// sendWithTLS sends an email over STARTTLS (587) or implicit TLS (465).
func (p *SMTPProvider) sendWithTLS(addr string, port int, from string, to []string, msg []byte) error {
	var client *smtp.Client

	if port == 465 {
		conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: p.host})
		if err != nil {
			return fmt.Errorf("failed to connect to SMTP server with TLS: %w", err)
		}
		defer conn.Close()

		client, err = smtp.NewClient(conn, p.host)
		if err != nil {
			return fmt.Errorf("failed to create SMTP client: %w", err)
		}
		defer client.Close()
	} else {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return fmt.Errorf("failed to connect to SMTP server: %w", err)
		}
		defer conn.Close()

		client, err = smtp.NewClient(conn, p.host)
		if err != nil {
			return fmt.Errorf("failed to create SMTP client: %w", err)
		}
		defer client.Close()

		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: p.host}); err != nil {
				return fmt.Errorf("failed to start TLS: %w", err)
			}
		}
	}

	if p.user != "" && p.password != "" {
		auth := smtp.PlainAuth("", p.user, p.password, p.host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender %s: %w", from, err)
	}
	for _, recipient := range to {
		if err := client.Rcpt(recipient); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", recipient, err)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data writer: %w", err)
	}
	if _, err := writer.Write(msg); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write email data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := client.Quit(); err != nil {
		slog.Warn("Error during SMTP QUIT", "error", err)
	}
	return nil
}

// buildMessage builds a complete email message in RFC 822 format.
func buildMessage(from string, to []string, subject, body string) []byte {
	var msg bytes.Buffer
	now := time.Now().Format(time.RFC1123Z)

	msg.WriteString(fmt.Sprintf("From: %s\r\n", from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(to, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString(fmt.Sprintf("Date: %s\r\n", now))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return msg.Bytes()
}
