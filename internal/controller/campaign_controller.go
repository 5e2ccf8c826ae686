// internal/controller/campaign_controller.go
package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/unclebandit/reengage-backend/internal/handler"
	"github.com/unclebandit/reengage-backend/internal/logger"
	"github.com/unclebandit/reengage-backend/internal/service"
)

type CampaignController struct {
	CampaignService *service.CampaignService
	Logger          *logger.Logger
}

func requestLog(l *logger.Logger, r *http.Request) *logrus.Entry {
	return l.WithRequestID(middleware.GetReqID(r.Context()))
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	log := requestLog(c.Logger, r)

	var body service.CreateCampaignInput
	if !handler.Decode(w, r, log, &body) {
		return
	}

	campaign, err := c.CampaignService.Create(r.Context(), body)
	if err != nil {
		handler.WriteError(w, log, err)
		return
	}
	handler.Created(w, log, campaign)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	log := requestLog(c.Logger, r)

	campaigns, err := c.CampaignService.List(r.Context())
	if err != nil {
		handler.WriteError(w, log, err)
		return
	}
	handler.OK(w, log, campaigns)
}

func (c *CampaignController) GetCampaignDetails(w http.ResponseWriter, r *http.Request) {
	log := requestLog(c.Logger, r)

	details, err := c.CampaignService.GetDetails(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handler.WriteError(w, log, err)
		return
	}
	handler.OK(w, log, details)
}

func (c *CampaignController) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	log := requestLog(c.Logger, r)

	var body service.UpdateCampaignInput
	if !handler.Decode(w, r, log, &body) {
		return
	}

	campaign, err := c.CampaignService.Update(r.Context(), chi.URLParam(r, "id"), body)
	if err != nil {
		handler.WriteError(w, log, err)
		return
	}
	handler.OK(w, log, campaign)
}

func (c *CampaignController) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	log := requestLog(c.Logger, r)

	if err := c.CampaignService.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handler.WriteError(w, log, err)
		return
	}
	handler.OK(w, log, map[string]bool{"success": true})
}

// SendCampaign dispatches a campaign to its eligible users.
func (c *CampaignController) SendCampaign(w http.ResponseWriter, r *http.Request) {
	log := requestLog(c.Logger, r)

	var body service.DispatchInput
	if !handler.Decode(w, r, log, &body) {
		return
	}

	result, err := c.CampaignService.Dispatch(r.Context(), body)
	if err != nil {
		handler.WriteError(w, log, err)
		return
	}
	handler.OK(w, log, result)
}
