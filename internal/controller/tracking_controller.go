package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/reengage-backend/internal/handler"
	"github.com/unclebandit/reengage-backend/internal/logger"
	"github.com/unclebandit/reengage-backend/internal/service"
)

type TrackingController struct {
	CampaignService *service.CampaignService
	Logger          *logger.Logger
}

// TrackOpen records the first open of a notification. The pixel is served
// whatever the outcome so mail clients never show a broken image.
func (c *TrackingController) TrackOpen(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	opened, err := c.CampaignService.TrackOpen(r.Context(), id)
	if err != nil {
		requestLog(c.Logger, r).WithError(err).WithField("notification_id", id).Warn("failed to record open")
	} else if opened {
		requestLog(c.Logger, r).WithField("notification_id", id).Debug("notification opened")
	}
	handler.Pixel(w)
}
