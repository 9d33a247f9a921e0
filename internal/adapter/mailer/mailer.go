// Package mailer sends transactional email.
package mailer

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// Message is a plain-text email.
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig configures SMTPMailer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// sendFunc matches smtp.SendMail.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends mail through an SMTP relay.
type SMTPMailer struct {
	cfg  SMTPConfig
	send sendFunc
}

// NewSMTPMailer creates a mailer for cfg.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

// Send delivers msg. PLAIN auth is used when a username is configured.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("no recipients")
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	body := compose(m.cfg.From, msg)

	errCh := make(chan error, 1)
	go func() {
		errCh <- m.send(addr, auth, m.cfg.From, msg.To, body)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to send mail: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("failed to send mail: %w", ctx.Err())
	}
}

// compose renders msg as an RFC 5322 message.
func compose(from string, msg Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(msg.To, ", ") + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("Date: " + time.Now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct{}

// Send logs msg.
func (LogMailer) Send(_ context.Context, msg Message) error {
	log.Printf("Mail (not sent, SMTP not configured) to=%s subject=%q", strings.Join(msg.To, ","), msg.Subject)
	return nil
}

// New returns an SMTPMailer when a host is configured and a LogMailer
// otherwise.
func New(cfg SMTPConfig) Mailer {
	if cfg.Host == "" {
		return LogMailer{}
	}
	return NewSMTPMailer(cfg)
}
