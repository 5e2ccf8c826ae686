// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/unclebandit/reengage-backend/internal/config"
	"github.com/unclebandit/reengage-backend/internal/controller"
	"github.com/unclebandit/reengage-backend/internal/db"
	"github.com/unclebandit/reengage-backend/internal/logger"
	"github.com/unclebandit/reengage-backend/internal/queue"
	"github.com/unclebandit/reengage-backend/internal/repository"
	"github.com/unclebandit/reengage-backend/internal/service"
)

func main() {
	if err := run(); err != nil {
		logrus.WithError(err).Fatal("server exited")
	}
}

// run returns instead of exiting so deferred closes always execute.
func run() error {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New("reengage-api", cfg.App.LogLevel)

	conn, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer conn.Close()

	campaignRepo := &repository.CampaignRepository{DB: conn}
	userRepo := &repository.UserRepository{DB: conn}
	notificationRepo := &repository.NotificationRepository{DB: conn}

	var publisher queue.Publisher = &queue.LogPublisher{Log: log.Entry()}
	if cfg.AMQP.URL != "" {
		amqpPublisher, err := queue.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Queue)
		if err != nil {
			return err
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
		log.Entry().WithField("queue", cfg.AMQP.Queue).Info("publishing deliveries to RabbitMQ")
	} else if cfg.App.IsProduction() {
		log.Entry().Warn("AMQP_URL not set, deliveries will only be logged")
	}

	campaignService := &service.CampaignService{
		CampaignRepo:     campaignRepo,
		UserRepo:         userRepo,
		NotificationRepo: notificationRepo,
		Publisher:        publisher,
		Logger:           log,
	}
	statsService := &service.StatsService{
		CampaignRepo:     campaignRepo,
		UserRepo:         userRepo,
		NotificationRepo: notificationRepo,
	}

	router := controller.NewRouter(controller.RouterConfig{
		CampaignService: campaignService,
		StatsService:    statsService,
		DB:              conn,
		Logger:          log,
		AllowedOrigins:  cfg.CORS.Origins(),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Entry().WithField("addr", srv.Addr).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	log.Entry().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
