package main

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/reengage-backend/internal/config"
	"github.com/unclebandit/reengage-backend/internal/mailer"
)

func TestNewSender(t *testing.T) {
	l := logrus.New()
	l.SetOutput(io.Discard)
	log := logrus.NewEntry(l)

	sender, err := newSender(context.Background(), &config.Config{}, log)
	require.NoError(t, err)
	assert.IsType(t, &mailer.LogSender{}, sender)

	cfg := &config.Config{SES: config.SESConfig{Region: "eu-west-1", AccessKey: "AKIA", SecretKey: "secret"}}
	sender, err = newSender(context.Background(), cfg, log)
	require.NoError(t, err)
	assert.IsType(t, &mailer.SESSender{}, sender)
}

func TestRunRequiresBrokerURL(t *testing.T) {
	t.Setenv("AMQP_URL", "")

	err := run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AMQP_URL")
}
