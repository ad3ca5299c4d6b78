// Package mail delivers one-time passwords to account holders.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/dentscan/dentclaim/config"
	"go.uber.org/zap"
)

// Notifier sends an OTP to an email address.
type Notifier interface {
	SendOTP(ctx context.Context, to, otp string) error
}

var otpTemplate = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <p>Hello,</p>
  <p>Your verification code is:</p>
  <h2 style="letter-spacing: 4px;">{{.OTP}}</h2>
  <p>The code expires in a few minutes. If you did not request it, ignore this email.</p>
</body>
</html>
`))

// New returns an SMTP notifier when mail is enabled, otherwise one that
// only logs.
func New(cfg config.MailConfig, logger *zap.Logger) Notifier {
	if !cfg.Enabled {
		return &LogNotifier{logger: logger}
	}
	return &SMTPNotifier{cfg: cfg, logger: logger, send: smtp.SendMail}
}

// SMTPNotifier sends HTML OTP emails through an SMTP relay.
type SMTPNotifier struct {
	cfg    config.MailConfig
	logger *zap.Logger
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// SendOTP renders the OTP email and hands it to the relay.
func (n *SMTPNotifier) SendOTP(ctx context.Context, to, otp string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := buildMessage(n.cfg.From, to, "Your verification code", otp)
	if err != nil {
		return err
	}
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}
	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))
	if err := n.send(addr, auth, n.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("mail: send otp: %w", err)
	}
	n.logger.Info("otp email sent", zap.String("to", to))
	return nil
}

func buildMessage(from, to, subject, otp string) ([]byte, error) {
	var body bytes.Buffer
	if err := otpTemplate.Execute(&body, struct{ OTP string }{otp}); err != nil {
		return nil, fmt.Errorf("mail: render: %w", err)
	}
	var msg bytes.Buffer
	header := []string{
		"From: " + from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
	}
	msg.WriteString(strings.Join(header, "\r\n"))
	msg.WriteString("\r\n\r\n")
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}

// LogNotifier writes OTPs to the application log. Used when no SMTP
// relay is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier { return &LogNotifier{logger: logger} }

func (n *LogNotifier) SendOTP(_ context.Context, to, otp string) error {
	n.logger.Info("otp issued", zap.String("to", to), zap.String("otp", otp))
	return nil
}
