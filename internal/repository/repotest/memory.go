// Package repotest provides in-memory repositories for tests that exercise
// the service and HTTP layers without a database.
package repotest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/reengage-backend/internal/errors"
	"github.com/unclebandit/reengage-backend/internal/model"
	"github.com/unclebandit/reengage-backend/internal/queue"
	"github.com/unclebandit/reengage-backend/internal/repository"
)

// Store is the shared state behind the in-memory repositories.
type Store struct {
	mu            sync.Mutex
	Users         []model.User
	Campaigns     map[string]*model.Campaign
	Notifications []model.Notification
}

func NewStore(users ...model.User) *Store {
	return &Store{Users: users, Campaigns: map[string]*model.Campaign{}}
}

func (s *Store) countFor(campaignID string, openedOnly bool) int {
	n := 0
	for _, x := range s.Notifications {
		if x.CampaignID == campaignID && (!openedOnly || x.OpenedAt != nil) {
			n++
		}
	}
	return n
}

func (s *Store) notified(userID, campaignID string) bool {
	for _, x := range s.Notifications {
		if x.UserID == userID && x.CampaignID == campaignID {
			return true
		}
	}
	return false
}

// ---------------- users ----------------

type UserRepo struct{ Store *Store }

var _ repository.UserRepositoryInterface = (*UserRepo)(nil)

func (m *UserRepo) inactive(cutoff time.Time) []model.User {
	out := []model.User{}
	for _, u := range m.Store.Users {
		if u.LastActiveAt.Before(cutoff) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActiveAt.Before(out[j].LastActiveAt) })
	return out
}

func (m *UserRepo) SelectEligible(ctx context.Context, campaignID string, cutoff time.Time) ([]model.User, error) {
	m.Store.mu.Lock()
	defer m.Store.mu.Unlock()
	out := []model.User{}
	for _, u := range m.inactive(cutoff) {
		if !m.Store.notified(u.ID, campaignID) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *UserRepo) ListInactive(ctx context.Context, cutoff time.Time, limit, offset int) ([]model.User, int, error) {
	m.Store.mu.Lock()
	defer m.Store.mu.Unlock()
	all := m.inactive(cutoff)
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], len(all), nil
}

func (m *UserRepo) CountInactive(ctx context.Context, cutoff time.Time) (int, error) {
	m.Store.mu.Lock()
	defer m.Store.mu.Unlock()
	return len(m.inactive(cutoff)), nil
}

func (m *UserRepo) Count(ctx context.Context) (int, error) {
	m.Store.mu.Lock()
	defer m.Store.mu.Unlock()
	return len(m.Store.Users), nil
}

// ---------------- campaigns ----------------

type CampaignRepo struct {
	Store     *Store
	CreateErr error
}

var _ repository.CampaignRepositoryInterface = (*CampaignRepo)(nil)

func (m *CampaignRepo) Create(ctx context.Context, c *model.Campaign) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.Store.mu.Lock()
	defer m.Store.mu.Unlock()
	cp := *c
	m.Store.Campaigns[c.ID] = &cp
	return nil
}

func (m *CampaignRepo) GetByID(ctx context.Context, id string) (*model.CampaignWithCount, error) {
	m.Store.mu.Lock()
	defer m.Store.mu.Unlock()
	c, ok := m.Store.Campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	return &model.CampaignWithCount{Campaign: *c, NotificationCount: m.Store.countFor(id, false)}, nil
}

func (m *CampaignRepo) List(ctx context.Context, limit int) ([]model.CampaignWithCount, error) {
	m.Store.mu.Lock()
	defer m.Store.mu.Unlock()
	out := []model.CampaignWithCount{}
	for _, c := range m.Store.Campaigns {
		out = append(out, model.CampaignWithCount{Campaign: *c, NotificationCount: m.Store.countFor(c.ID, false)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *CampaignRepo) Update(ctx context.Context, id string, u repository.CampaignUpdate) (*model.Campaign, error) {
	m.Store.mu.Lock()
	defer m.Store.mu.Unlock()
	c, ok := m.Store.Campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Subject != nil {
		c.Subject = *u.Subject
	}
	if u.Content != nil {
		c.Content = *u.Content
	}
	if u.TargetDays != nil {
		c.TargetDays = *u.TargetDays
	}
	if u.Status != nil {
		c.Status = *u.Status
	}
	c.UpdatedAt = u.UpdatedAt
	cp := *c
	return &cp, nil
}

func (m *CampaignRepo) Delete(ctx context.Context, id string) error {
	m.Store.mu.Lock()
	defer m.Store.mu.Unlock()
	if _, ok := m.Store.Campaigns[id]; !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	kept := m.Store.Notifications[:0]
	for _, n := range m.Store.Notifications {
		if n.CampaignID != id {
			kept = append(kept, n)
		}
	}
	m.Store.Notifications = kept
	delete(m.Store.Campaigns, id)
	return nil
}

func (m *CampaignRepo) Count(ctx context.Context) (int, error) {
	m.Store.mu.Lock()
	defer m.Store.mu.Unlock()
	return len(m.Store.Campaigns), nil
}

func (m *CampaignRepo) CountByStatus(ctx context.Context, status model.CampaignStatus) (int, error) {
	m.Store.mu.Lock()
	defer m.Store.mu.Unlock()
	n := 0
	for _, c := range m.Store.Campaigns {
		if c.Status == status {
			n++
		}
	}
	return n, nil
}

// ---------------- notifications ----------------

type NotificationRepo struct {
	Store     *Store
	RecordErr error
}

var _ repository.NotificationRepositoryInterface = (*NotificationRepo)(nil)

func (m *NotificationRepo) RecordDispatch(ctx context.Context, d repository.DispatchRecord) ([]model.Notification, error) {
	if m.RecordErr != nil {
		return nil, m.RecordErr
	}
	m.Store.mu.Lock()
	defer m.Store.mu.Unlock()
	created := []model.Notification{}
	for _, uid := range d.UserIDs {
		if m.Store.notified(uid, d.CampaignID) {
			continue
		}
		n := model.Notification{
			ID:         uuid.New().String(),
			UserID:     uid,
			CampaignID: d.CampaignID,
			Channel:    d.Channel,
			SentAt:     d.SentAt,
		}
		m.Store.Notifications = append(m.Store.Notifications, n)
		created = append(created, n)
	}
	if d.ActivateDraft && len(created) > 0 {
		if c, ok := m.Store.Campaigns[d.CampaignID]; ok && c.Status == model.StatusDraft {
			c.Status = model.StatusActive
		}
	}
	return created, nil
}

func (m *NotificationRepo) Count(ctx context.Context) (int, error) {
	m.Store.mu.Lock()
	defer m.Store.mu.Unlock()
	return len(m.Store.Notifications), nil
}

func (m *NotificationRepo) CountOpened(ctx context.Context) (int, error) {
	m.Store.mu.Lock()
	defer m.Store.mu.Unlock()
	n := 0
	for _, x := range m.Store.Notifications {
		if x.OpenedAt != nil {
			n++
		}
	}
	return n, nil
}

func (m *NotificationRepo) CountOpenedByCampaign(ctx context.Context, campaignID string) (int, error) {
	m.Store.mu.Lock()
	defer m.Store.mu.Unlock()
	return m.Store.countFor(campaignID, true), nil
}

func (m *NotificationRepo) ListRecentByCampaign(ctx context.Context, campaignID string, limit int) ([]model.NotificationWithUser, error) {
	m.Store.mu.Lock()
	defer m.Store.mu.Unlock()
	out := []model.NotificationWithUser{}
	for i := len(m.Store.Notifications) - 1; i >= 0 && len(out) < limit; i-- {
		n := m.Store.Notifications[i]
		if n.CampaignID == campaignID {
			out = append(out, model.NotificationWithUser{Notification: n})
		}
	}
	return out, nil
}

func (m *NotificationRepo) MarkOpened(ctx context.Context, id string, at time.Time) (bool, error) {
	m.Store.mu.Lock()
	defer m.Store.mu.Unlock()
	for i := range m.Store.Notifications {
		n := &m.Store.Notifications[i]
		if n.ID == id && n.OpenedAt == nil {
			t := at
			n.OpenedAt = &t
			return true, nil
		}
	}
	return false, nil
}

// ---------------- publisher ----------------

// Publisher records every delivery it is handed.
type Publisher struct {
	mu        sync.Mutex
	Published []queue.Delivery
	Err       error
}

func (p *Publisher) Publish(ctx context.Context, d queue.Delivery) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Published = append(p.Published, d)
	return nil
}

// InactiveUser builds a user last active the given number of days before now.
func InactiveUser(now time.Time, days int) model.User {
	id := fmt.Sprintf("user-%d", days)
	return model.User{
		ID:           id,
		Email:        id + "@example.com",
		Name:         id,
		LastActiveAt: now.AddDate(0, 0, -days),
	}
}
