// internal/service/campaign_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	appErrors "github.com/unclebandit/reengage-backend/internal/errors"
	"github.com/unclebandit/reengage-backend/internal/logger"
	"github.com/unclebandit/reengage-backend/internal/metrics"
	"github.com/unclebandit/reengage-backend/internal/model"
	"github.com/unclebandit/reengage-backend/internal/queue"
	"github.com/unclebandit/reengage-backend/internal/repository"
)

// RecentNotificationsLimit caps the notifications shown on a campaign's
// detail view.
const RecentNotificationsLimit = 50

type CampaignService struct {
	CampaignRepo     repository.CampaignRepositoryInterface
	UserRepo         repository.UserRepositoryInterface
	NotificationRepo repository.NotificationRepositoryInterface
	Publisher        queue.Publisher
	Logger           *logger.Logger

	// Now is overridable in tests.
	Now func() time.Time
}

type CreateCampaignInput struct {
	Name       string `json:"name" validate:"required"`
	Subject    string `json:"subject" validate:"required"`
	Content    string `json:"content" validate:"required"`
	TargetDays *int   `json:"targetDays" validate:"omitempty,min=0,max=36500"`
}

type UpdateCampaignInput struct {
	Name       *string               `json:"name" validate:"omitempty,min=1"`
	Subject    *string               `json:"subject" validate:"omitempty,min=1"`
	Content    *string               `json:"content" validate:"omitempty,min=1"`
	TargetDays *int                  `json:"targetDays" validate:"omitempty,min=0,max=36500"`
	Status     *model.CampaignStatus `json:"status" validate:"omitempty,oneof=DRAFT ACTIVE PAUSED COMPLETED"`
}

type DispatchInput struct {
	CampaignID string        `json:"campaignId" validate:"required"`
	Channel    model.Channel `json:"channel" validate:"omitempty,oneof=EMAIL PUSH"`
}

type DispatchResult struct {
	Success   bool   `json:"success"`
	SentCount int    `json:"sentCount"`
	Message   string `json:"message"`
}

// CampaignDetails is a campaign with its engagement figures.
type CampaignDetails struct {
	model.CampaignWithCount
	OpenedCount         int                          `json:"openedCount"`
	OpenRate            string                       `json:"openRate"`
	InactiveUsers       int                          `json:"inactiveUsers"`
	RecentNotifications []model.NotificationWithUser `json:"recentNotifications"`
}

type InactiveUsersPage struct {
	Users      []model.User `json:"users"`
	Total      int          `json:"total"`
	Limit      int          `json:"limit"`
	Offset     int          `json:"offset"`
	TargetDays int          `json:"targetDays"`
}

func (s *CampaignService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *CampaignService) log() *logrus.Entry {
	return s.Logger.Entry()
}

// Cutoff is the instant before which a user counts as inactive. days is
// clamped to [0, MaxTargetDays] so the cutoff never lands after now.
func Cutoff(now time.Time, days int) time.Time {
	if days < 0 {
		days = 0
	} else if days > model.MaxTargetDays {
		days = model.MaxTargetDays
	}
	return now.AddDate(0, 0, -days)
}

func (s *CampaignService) Create(ctx context.Context, in CreateCampaignInput) (*model.Campaign, error) {
	if err := validateInput(in, "Missing required fields"); err != nil {
		return nil, err
	}

	targetDays := model.DefaultTargetDays
	if in.TargetDays != nil {
		targetDays = *in.TargetDays
	}

	now := s.now()
	c := &model.Campaign{
		ID:         uuid.New().String(),
		Name:       in.Name,
		Subject:    in.Subject,
		Content:    in.Content,
		TargetDays: targetDays,
		Status:     model.StatusDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.CampaignRepo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.log().WithField("campaign_id", c.ID).Info("campaign created")
	return c, nil
}

// List returns every campaign, newest first.
func (s *CampaignService) List(ctx context.Context) ([]model.CampaignWithCount, error) {
	return s.CampaignRepo.List(ctx, 0)
}

func (s *CampaignService) GetDetails(ctx context.Context, id string) (*CampaignDetails, error) {
	campaign, err := s.CampaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	opened, err := s.NotificationRepo.CountOpenedByCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	recent, err := s.NotificationRepo.ListRecentByCampaign(ctx, id, RecentNotificationsLimit)
	if err != nil {
		return nil, err
	}
	inactive, err := s.UserRepo.CountInactive(ctx, Cutoff(s.now(), campaign.TargetDays))
	if err != nil {
		return nil, err
	}

	return &CampaignDetails{
		CampaignWithCount:   *campaign,
		OpenedCount:         opened,
		OpenRate:            OpenRate(opened, campaign.NotificationCount),
		InactiveUsers:       inactive,
		RecentNotifications: recent,
	}, nil
}

// Update applies a partial update. Any status may be set from any
// other status.
func (s *CampaignService) Update(ctx context.Context, id string, in UpdateCampaignInput) (*model.Campaign, error) {
	if err := validateInput(in, "Missing required fields"); err != nil {
		return nil, err
	}

	update := repository.CampaignUpdate{
		Name:       in.Name,
		Subject:    in.Subject,
		Content:    in.Content,
		TargetDays: in.TargetDays,
		Status:     in.Status,
		UpdatedAt:  s.now(),
	}
	if update.Empty() {
		current, err := s.CampaignRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return &current.Campaign, nil
	}
	return s.CampaignRepo.Update(ctx, id, update)
}

// Delete removes the campaign together with its notifications.
func (s *CampaignService) Delete(ctx context.Context, id string) error {
	if err := s.CampaignRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.log().WithField("campaign_id", id).Info("campaign deleted")
	return nil
}

// SelectEligible returns the users inactive for longer than the campaign's
// threshold who have not received it yet.
func (s *CampaignService) SelectEligible(ctx context.Context, c *model.Campaign) ([]model.User, error) {
	return s.UserRepo.SelectEligible(ctx, c.ID, Cutoff(s.now(), c.TargetDays))
}

func (s *CampaignService) ListInactiveUsers(ctx context.Context, days, limit, offset int) (*InactiveUsersPage, error) {
	if days < 0 || days > model.MaxTargetDays {
		return nil, appErrors.NewValidation("days must be between 0 and %d", model.MaxTargetDays)
	}
	users, total, err := s.UserRepo.ListInactive(ctx, Cutoff(s.now(), days), limit, offset)
	if err != nil {
		return nil, err
	}
	return &InactiveUsersPage{
		Users:      users,
		Total:      total,
		Limit:      limit,
		Offset:     offset,
		TargetDays: days,
	}, nil
}

// Dispatch records one notification for every eligible user of the campaign
// and hands each one to the publisher.
func (s *CampaignService) Dispatch(ctx context.Context, in DispatchInput) (*DispatchResult, error) {
	start := time.Now()
	res, err := s.dispatch(ctx, in)
	status := "success"
	if err != nil {
		status = "failure"
	}
	metrics.RecordDispatch(status, time.Since(start))
	return res, err
}

func (s *CampaignService) dispatch(ctx context.Context, in DispatchInput) (*DispatchResult, error) {
	if err := validateInput(in, "Campaign ID is required"); err != nil {
		return nil, err
	}
	if in.Channel == "" {
		in.Channel = model.ChannelEmail
	}

	campaign, err := s.CampaignRepo.GetByID(ctx, in.CampaignID)
	if err != nil {
		return nil, err
	}

	eligible, err := s.SelectEligible(ctx, &campaign.Campaign)
	if err != nil {
		return nil, err
	}
	if len(eligible) == 0 {
		return &DispatchResult{Success: true, SentCount: 0, Message: "No eligible users found"}, nil
	}

	users := make(map[string]model.User, len(eligible))
	ids := make([]string, 0, len(eligible))
	for _, u := range eligible {
		users[u.ID] = u
		ids = append(ids, u.ID)
	}

	created, err := s.NotificationRepo.RecordDispatch(ctx, repository.DispatchRecord{
		CampaignID:    campaign.ID,
		Channel:       in.Channel,
		UserIDs:       ids,
		SentAt:        s.now(),
		ActivateDraft: campaign.Status == model.StatusDraft,
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordSent(string(in.Channel), len(created))

	log := s.log().WithField("campaign_id", campaign.ID)
	for _, n := range created {
		u := users[n.UserID]
		d := queue.Delivery{
			NotificationID: n.ID,
			CampaignID:     campaign.ID,
			UserID:         u.ID,
			Email:          u.Email,
			Name:           u.Name,
			Channel:        n.Channel,
			Subject:        campaign.Subject,
			Content:        campaign.Content,
			SentAt:         n.SentAt,
		}
		if u.PushToken != nil {
			d.PushToken = *u.PushToken
		}
		// The notification is already recorded; a failed hand-off is not
		// retried here.
		if err := s.Publisher.Publish(ctx, d); err != nil {
			log.WithError(err).WithField("notification_id", n.ID).Warn("failed to publish delivery")
		}
	}

	log.WithFields(logrus.Fields{
		"eligible":   len(eligible),
		"sent_count": len(created),
	}).Info("campaign dispatched")

	return &DispatchResult{
		Success:   true,
		SentCount: len(created),
		Message:   fmt.Sprintf("Campaign sent to %d users", len(created)),
	}, nil
}

// TrackOpen marks a notification as opened the first time it is seen.
func (s *CampaignService) TrackOpen(ctx context.Context, notificationID string) (bool, error) {
	return s.NotificationRepo.MarkOpened(ctx, notificationID, s.now())
}
