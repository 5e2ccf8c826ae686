package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/unclebandit/reengage-backend/internal/handler"
	"github.com/unclebandit/reengage-backend/internal/logger"
	"github.com/unclebandit/reengage-backend/internal/metrics"
	"github.com/unclebandit/reengage-backend/internal/service"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type RouterConfig struct {
	CampaignService *service.CampaignService
	StatsService    *service.StatsService
	DB              Pinger
	Logger          *logger.Logger
	AllowedOrigins  []string
}

func NewRouter(cfg RouterConfig) http.Handler {
	campaigns := &CampaignController{CampaignService: cfg.CampaignService, Logger: cfg.Logger}
	users := &UserController{CampaignService: cfg.CampaignService, Logger: cfg.Logger}
	stats := &StatsController{StatsService: cfg.StatsService, Logger: cfg.Logger}
	tracking := &TrackingController{CampaignService: cfg.CampaignService, Logger: cfg.Logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(cfg.Logger.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		handler.OK(w, requestLog(cfg.Logger, r), map[string]string{"status": "ok"})
	})
	r.Get("/health/db", func(w http.ResponseWriter, r *http.Request) {
		log := requestLog(cfg.Logger, r)
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := cfg.DB.PingContext(ctx); err != nil {
			log.WithError(err).Warn("database ping failed")
			handler.JSON(w, log, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		handler.OK(w, log, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/campaigns", func(r chi.Router) {
		r.Post("/", campaigns.CreateCampaign)
		r.Get("/", campaigns.ListCampaigns)
		r.Post("/send", campaigns.SendCampaign)
		r.Get("/{id}", campaigns.GetCampaignDetails)
		r.Patch("/{id}", campaigns.UpdateCampaign)
		r.Delete("/{id}", campaigns.DeleteCampaign)
	})
	r.Get("/users/inactive", users.ListInactiveUsers)
	r.Get("/stats", stats.Dashboard)
	r.Get("/track/open/{id}", tracking.TrackOpen)

	return r
}
