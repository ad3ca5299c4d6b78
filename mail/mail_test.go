package mail

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/dentscan/dentclaim/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_DisabledLogsOnly(t *testing.T) {
	n := New(config.MailConfig{}, zap.NewNop())
	_, ok := n.(*LogNotifier)
	assert.True(t, ok)
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLogNotifier(zap.New(core))

	require.NoError(t, n.SendOTP(context.Background(), "a@b.com", "12345"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "12345", logs.All()[0].ContextMap()["otp"])
}

func TestSMTPNotifier_SendOTP(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	n := &SMTPNotifier{
		cfg:    config.MailConfig{Enabled: true, Host: "smtp.example.com", Port: 587, Username: "u", Password: "p", From: "noreply@example.com"},
		logger: zap.NewNop(),
		send: func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
			gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
			return nil
		},
	}

	require.NoError(t, n.SendOTP(context.Background(), "user@example.com", "483920"))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "noreply@example.com", gotFrom)
	assert.Equal(t, []string{"user@example.com"}, gotTo)

	msg := string(gotMsg)
	assert.True(t, strings.HasPrefix(msg, "From: noreply@example.com\r\n"))
	assert.Contains(t, msg, "To: user@example.com\r\n")
	assert.Contains(t, msg, "text/html")
	assert.Contains(t, msg, "483920")
}

func TestSMTPNotifier_SendFailure(t *testing.T) {
	n := &SMTPNotifier{
		cfg:    config.MailConfig{Host: "localhost", Port: 25},
		logger: zap.NewNop(),
		send: func(string, smtp.Auth, string, []string, []byte) error {
			return errors.New("connection refused")
		},
	}
	err := n.SendOTP(context.Background(), "x@y.z", "1")
	assert.ErrorContains(t, err, "connection refused")
}

func TestSMTPNotifier_CancelledContext(t *testing.T) {
	called := false
	n := &SMTPNotifier{
		logger: zap.NewNop(),
		send: func(string, smtp.Auth, string, []string, []byte) error {
			called = true
			return nil
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, n.SendOTP(ctx, "x@y.z", "1"), context.Canceled)
	assert.False(t, called)
}
