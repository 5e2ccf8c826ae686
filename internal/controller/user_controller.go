package controller

import (
	"net/http"
	"strconv"

	"github.com/unclebandit/reengage-backend/internal/handler"
	"github.com/unclebandit/reengage-backend/internal/logger"
	"github.com/unclebandit/reengage-backend/internal/model"
	"github.com/unclebandit/reengage-backend/internal/service"
)

const defaultInactiveLimit = 100

type UserController struct {
	CampaignService *service.CampaignService
	Logger          *logger.Logger
}

// queryInt reads a non-negative integer query parameter, falling back to def
// when it is absent or unusable.
func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 0 {
		return def
	}
	return v
}

func (c *UserController) ListInactiveUsers(w http.ResponseWriter, r *http.Request) {
	log := requestLog(c.Logger, r)

	days := queryInt(r, "days", model.DefaultTargetDays)
	limit := queryInt(r, "limit", defaultInactiveLimit)
	if limit == 0 {
		limit = defaultInactiveLimit
	}
	offset := queryInt(r, "offset", 0)

	page, err := c.CampaignService.ListInactiveUsers(r.Context(), days, limit, offset)
	if err != nil {
		handler.WriteError(w, log, err)
		return
	}
	handler.OK(w, log, page)
}
