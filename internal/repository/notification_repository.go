package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/unclebandit/reengage-backend/internal/model"
)

type NotificationRepositoryInterface interface {
	RecordDispatch(ctx context.Context, d DispatchRecord) ([]model.Notification, error)
	Count(ctx context.Context) (int, error)
	CountOpened(ctx context.Context) (int, error)
	CountOpenedByCampaign(ctx context.Context, campaignID string) (int, error)
	ListRecentByCampaign(ctx context.Context, campaignID string, limit int) ([]model.NotificationWithUser, error)
	MarkOpened(ctx context.Context, id string, at time.Time) (bool, error)
}

// DispatchRecord describes one batch of sends for a campaign.
type DispatchRecord struct {
	CampaignID string
	Channel    model.Channel
	UserIDs    []string
	SentAt     time.Time
	// ActivateDraft moves a DRAFT campaign to ACTIVE when at least one
	// notification is created.
	ActivateDraft bool
}

type NotificationRepository struct {
	DB *sqlx.DB
}

// RecordDispatch inserts one notification per user and, when requested,
// activates the campaign, all in one transaction. Pairs that already have a
// notification are skipped by the (user_id, campaign_id) unique constraint, so
// the returned slice holds only the rows created by this call.
func (r *NotificationRepository) RecordDispatch(ctx context.Context, d DispatchRecord) ([]model.Notification, error) {
	created := []model.Notification{}
	if len(d.UserIDs) == 0 {
		return created, nil
	}

	ids := make([]string, len(d.UserIDs))
	for i := range ids {
		ids[i] = uuid.New().String()
	}

	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin dispatch: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO notifications (id, user_id, campaign_id, channel, sent_at)
		SELECT batch.id, batch.user_id, $3, $4, $5
		FROM unnest($1::text[], $2::text[]) AS batch(id, user_id)
		ON CONFLICT (user_id, campaign_id) DO NOTHING
		RETURNING id, user_id, campaign_id, channel, sent_at, opened_at
	`
	if err := tx.SelectContext(ctx, &created, query,
		pq.Array(ids), pq.Array(d.UserIDs), d.CampaignID, d.Channel, d.SentAt); err != nil {
		return nil, fmt.Errorf("insert notifications: %w", err)
	}

	if d.ActivateDraft && len(created) > 0 {
		_, err := tx.ExecContext(ctx, `
			UPDATE campaigns SET status = $1, updated_at = $2
			WHERE id = $3 AND status = $4`,
			model.StatusActive, d.SentAt, d.CampaignID, model.StatusDraft)
		if err != nil {
			return nil, fmt.Errorf("activate campaign: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit dispatch: %w", err)
	}
	return created, nil
}

func (r *NotificationRepository) Count(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM notifications`)
}

func (r *NotificationRepository) CountOpened(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM notifications WHERE opened_at IS NOT NULL`)
}

func (r *NotificationRepository) CountOpenedByCampaign(ctx context.Context, campaignID string) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM notifications WHERE campaign_id = $1 AND opened_at IS NOT NULL`, campaignID)
}

func (r *NotificationRepository) count(ctx context.Context, query string, args ...interface{}) (int, error) {
	var n int
	if err := r.DB.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return n, nil
}

// ListRecentByCampaign returns the latest notifications of a campaign joined
// with their recipients.
func (r *NotificationRepository) ListRecentByCampaign(ctx context.Context, campaignID string, limit int) ([]model.NotificationWithUser, error) {
	query := `
		SELECT n.id, n.user_id, n.campaign_id, n.channel, n.sent_at, n.opened_at,
		       u.email AS user_email, u.name AS user_name
		FROM notifications n
		JOIN users u ON u.id = n.user_id
		WHERE n.campaign_id = $1
		ORDER BY n.sent_at DESC
		LIMIT $2
	`
	out := []model.NotificationWithUser{}
	if err := r.DB.SelectContext(ctx, &out, query, campaignID, limit); err != nil {
		return nil, fmt.Errorf("list campaign notifications: %w", err)
	}
	return out, nil
}

// MarkOpened stamps the first open of a notification. It reports false when
// the notification does not exist or was already opened.
func (r *NotificationRepository) MarkOpened(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE notifications SET opened_at = $1 WHERE id = $2 AND opened_at IS NULL`, at, id)
	if err != nil {
		return false, fmt.Errorf("mark notification opened: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark notification opened: %w", err)
	}
	return n > 0, nil
}

var _ NotificationRepositoryInterface = (*NotificationRepository)(nil)
