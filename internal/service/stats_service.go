package service

import (
	"context"
	"strconv"
	"time"

	"github.com/unclebandit/reengage-backend/internal/model"
	"github.com/unclebandit/reengage-backend/internal/repository"
)

const (
	// DashboardInactiveDays is the fixed inactivity threshold of the dashboard.
	DashboardInactiveDays = 60
	RecentCampaignsLimit  = 5
)

type StatsService struct {
	CampaignRepo     repository.CampaignRepositoryInterface
	UserRepo         repository.UserRepositoryInterface
	NotificationRepo repository.NotificationRepositoryInterface

	Now func() time.Time
}

type DashboardStats struct {
	TotalUsers          int                       `json:"totalUsers"`
	InactiveUsers       int                       `json:"inactiveUsers"`
	TotalCampaigns      int                       `json:"totalCampaigns"`
	ActiveCampaigns     int                       `json:"activeCampaigns"`
	TotalNotifications  int                       `json:"totalNotifications"`
	OpenedNotifications int                       `json:"openedNotifications"`
	OpenRate            string                    `json:"openRate"`
	RecentCampaigns     []model.CampaignWithCount `json:"recentCampaigns"`
}

// OpenRate renders opened/total as a percentage with one decimal, or "0"
// when nothing was sent.
func OpenRate(opened, total int) string {
	if total <= 0 {
		return "0"
	}
	rate := float64(opened) / float64(total) * 100
	if rate < 0 {
		rate = 0
	} else if rate > 100 {
		rate = 100
	}
	return strconv.FormatFloat(rate, 'f', 1, 64)
}

func (s *StatsService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}

	var (
		stats DashboardStats
		err   error
	)
	if stats.TotalUsers, err = s.UserRepo.Count(ctx); err != nil {
		return nil, err
	}
	if stats.InactiveUsers, err = s.UserRepo.CountInactive(ctx, Cutoff(now, DashboardInactiveDays)); err != nil {
		return nil, err
	}
	if stats.TotalCampaigns, err = s.CampaignRepo.Count(ctx); err != nil {
		return nil, err
	}
	if stats.ActiveCampaigns, err = s.CampaignRepo.CountByStatus(ctx, model.StatusActive); err != nil {
		return nil, err
	}
	if stats.TotalNotifications, err = s.NotificationRepo.Count(ctx); err != nil {
		return nil, err
	}
	if stats.OpenedNotifications, err = s.NotificationRepo.CountOpened(ctx); err != nil {
		return nil, err
	}
	if stats.RecentCampaigns, err = s.CampaignRepo.List(ctx, RecentCampaignsLimit); err != nil {
		return nil, err
	}
	stats.OpenRate = OpenRate(stats.OpenedNotifications, stats.TotalNotifications)

	return &stats, nil
}
