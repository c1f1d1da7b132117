package mail

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// ErrSMTPDisabled signals that SMTP delivery is disabled via configuration.
var ErrSMTPDisabled = errors.New("smtp: delivery disabled")

// Message represents an outbound email.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Mailer defines behaviour for sending email messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New returns an SMTP mailer when delivery is enabled and a logging mailer otherwise.
func New(cfg SMTPSettings, log *zap.Logger) (Mailer, error) {
	if !cfg.Enabled {
		return NewLogMailer(log), nil
	}
	return NewSMTPMailer(cfg)
}

// LogMailer writes messages to the log instead of delivering them. It is used when
// SMTP is not configured so invite flows still leave a trace in development.
type LogMailer struct {
	log *zap.Logger
}

// NewLogMailer constructs a LogMailer; a nil logger discards output.
func NewLogMailer(log *zap.Logger) *LogMailer {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogMailer{log: log}
}

// Send logs the message envelope and reports ErrSMTPDisabled.
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.log.Info("email delivery disabled; message not sent",
		zap.Strings("to", uniqueAddresses(msg.To)),
		zap.String("subject", escapeHeader(msg.Subject)),
		zap.Int("body_bytes", len(msg.Body)),
	)
	return ErrSMTPDisabled
}

func uniqueAddresses(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	var result []string
	for _, addr := range addresses {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		if _, exists := seen[addr]; exists {
			continue
		}
		seen[addr] = struct{}{}
		result = append(result, addr)
	}
	return result
}

func escapeHeader(value string) string {
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.ReplaceAll(value, "\n", " ")
	return value
}
