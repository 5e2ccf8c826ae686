package controller

import (
	"net/http"

	"github.com/unclebandit/reengage-backend/internal/handler"
	"github.com/unclebandit/reengage-backend/internal/logger"
	"github.com/unclebandit/reengage-backend/internal/service"
)

type StatsController struct {
	StatsService *service.StatsService
	Logger       *logger.Logger
}

func (c *StatsController) Dashboard(w http.ResponseWriter, r *http.Request) {
	log := requestLog(c.Logger, r)

	stats, err := c.StatsService.Dashboard(r.Context())
	if err != nil {
		handler.WriteError(w, log, err)
		return
	}
	handler.OK(w, log, stats)
}
