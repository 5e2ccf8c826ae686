package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"github.com/unclebandit/reengage-backend/internal/config"
	"github.com/unclebandit/reengage-backend/internal/logger"
	"github.com/unclebandit/reengage-backend/internal/mailer"
	"github.com/unclebandit/reengage-backend/internal/queue"
)

const prefetch = 10

func main() {
	if err := run(); err != nil {
		logrus.WithError(err).Fatal("worker exited")
	}
}

// run returns instead of exiting so deferred closes always execute.
func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New("reengage-worker", cfg.App.LogLevel)
	entry := log.Entry()

	if cfg.AMQP.URL == "" {
		return errors.New("AMQP_URL is required for the worker")
	}

	sender, err := newSender(ctx, cfg, entry)
	if err != nil {
		return fmt.Errorf("set up mail sender: %w", err)
	}

	conn, err := amqp.Dial(cfg.AMQP.URL)
	if err != nil {
		return fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if _, err := queue.Declare(ch, cfg.AMQP.Queue); err != nil {
		return err
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("set prefetch: %w", err)
	}

	entry.WithField("queue", cfg.AMQP.Queue).Info("worker running, waiting for deliveries")
	handler := mailer.Handler(sender, cfg.App.TrackingBaseURL, entry)
	if err := queue.Consume(ctx, ch, cfg.AMQP.Queue, handler, entry); err != nil {
		return fmt.Errorf("consumer stopped: %w", err)
	}
	entry.Info("worker stopped")
	return nil
}

// newSender uses SES when credentials are configured and logs otherwise.
func newSender(ctx context.Context, cfg *config.Config, log *logrus.Entry) (mailer.Sender, error) {
	if !cfg.SES.Enabled() {
		log.Warn("SES credentials not set, emails will only be logged")
		return &mailer.LogSender{Log: log}, nil
	}
	return mailer.NewSESSender(ctx, cfg.SES, log)
}
