package email

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNotifyFailure(t *testing.T) {
	n := NewSMTPNotifier("mail.local", 2525, "noreply@matting.local", zap.NewNop())
	var gotAddr string
	var gotTo []string
	var gotMsg []byte
	n.send = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, msg
		return nil
	}

	require.NoError(t, n.NotifyFailure(context.Background(), "user@example.com", "job-1", "holiday.mp4", "no frames decoded"))

	assert.Equal(t, "mail.local:2525", gotAddr)
	assert.Equal(t, []string{"user@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Background replacement failed [Job job-1]")
	assert.Contains(t, string(gotMsg), "Video: holiday.mp4")
	assert.Contains(t, string(gotMsg), "Error: no frames decoded")
}

func TestNotifyFailureSendError(t *testing.T) {
	n := NewSMTPNotifier("mail.local", 25, "noreply@matting.local", zap.NewNop())
	n.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("connection refused") }

	err := n.NotifyFailure(context.Background(), "user@example.com", "job-1", "a.mp4", "boom")
	assert.ErrorContains(t, err, "connection refused")
}
