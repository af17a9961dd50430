package adapters

import (
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/ZanzyTHEbar/supply-risk-simulator/internal/monitoring"
)

// SMTPConfig holds outbound mail settings.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// Configured reports whether enough settings are present to send mail.
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.From != ""
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer delivers plain-text mail through an SMTP relay using STARTTLS when offered.
type SMTPMailer struct {
	config   SMTPConfig
	sendMail sendMailFunc
	logger   *monitoring.Logger
}

// NewSMTPMailer creates a mailer. An unconfigured mailer accepts calls and reports them as unsent.
func NewSMTPMailer(config SMTPConfig, logger *monitoring.Logger) *SMTPMailer {
	if config.Port == "" {
		config.Port = "587"
	}
	if logger == nil {
		logger = monitoring.NewLogger("info")
	}
	return &SMTPMailer{config: config, sendMail: smtp.SendMail, logger: logger}
}

// Send delivers one message and reports whether it was accepted by the relay.
func (m *SMTPMailer) Send(to, subject, body string) bool {
	if !m.config.Configured() || strings.TrimSpace(to) == "" {
		m.logger.Debug("mail not sent, SMTP not configured")
		return false
	}

	var auth smtp.Auth
	if m.config.Username != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}
	addr := net.JoinHostPort(m.config.Host, m.config.Port)
	msg := buildMessage(m.config.From, to, subject, body)

	if err := m.sendMail(addr, auth, m.config.From, []string{to}, []byte(msg)); err != nil {
		m.logger.Warn("failed to send mail", "to", to, "subject", subject, "error", err)
		return false
	}
	m.logger.Info("mail sent", "to", to, "subject", subject)
	return true
}

// buildMessage builds an RFC 822 message with a fixed header order.
func buildMessage(from, to, subject, body string) string {
	var msg strings.Builder
	for _, h := range [][2]string{
		{"From", from},
		{"To", to},
		{"Subject", sanitizeHeader(subject)},
		{"MIME-Version", "1.0"},
		{"Content-Type", `text/plain; charset="utf-8"`},
	} {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", h[0], h[1]))
	}
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return msg.String()
}

func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}
