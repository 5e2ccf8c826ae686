package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	appErrors "github.com/unclebandit/reengage-backend/internal/errors"
	"github.com/unclebandit/reengage-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(ctx context.Context, c *model.Campaign) error
	GetByID(ctx context.Context, id string) (*model.CampaignWithCount, error)
	List(ctx context.Context, limit int) ([]model.CampaignWithCount, error)
	Update(ctx context.Context, id string, u CampaignUpdate) (*model.Campaign, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context, status model.CampaignStatus) (int, error)
}

// CampaignUpdate holds the mutable fields of a campaign. Nil fields are left
// untouched.
type CampaignUpdate struct {
	Name       *string
	Subject    *string
	Content    *string
	TargetDays *int
	Status     *model.CampaignStatus
	// UpdatedAt stamps the row; zero means the current time.
	UpdatedAt  time.Time
}

func (u CampaignUpdate) Empty() bool {
	return u.Name == nil && u.Subject == nil && u.Content == nil && u.TargetDays == nil && u.Status == nil
}

type CampaignRepository struct {
	DB *sqlx.DB
}

const campaignColumns = `c.id, c.name, c.subject, c.content, c.target_days, c.status, c.created_at, c.updated_at`

// ====================== Campaign CRUD ======================

func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) error {
	query := `
		INSERT INTO campaigns (id, name, subject, content, target_days, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.DB.ExecContext(ctx, query,
		c.ID, c.Name, c.Subject, c.Content, c.TargetDays, c.Status, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create campaign: %w", err)
	}
	return nil
}

func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*model.CampaignWithCount, error) {
	query := `
		SELECT ` + campaignColumns + `,
		       (SELECT COUNT(*) FROM notifications n WHERE n.campaign_id = c.id) AS notification_count
		FROM campaigns c
		WHERE c.id = $1
	`
	var c model.CampaignWithCount
	if err := r.DB.GetContext(ctx, &c, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return &c, nil
}

// List returns campaigns newest first. A limit of zero returns all of them.
func (r *CampaignRepository) List(ctx context.Context, limit int) ([]model.CampaignWithCount, error) {
	query := `
		SELECT ` + campaignColumns + `,
		       (SELECT COUNT(*) FROM notifications n WHERE n.campaign_id = c.id) AS notification_count
		FROM campaigns c
		ORDER BY c.created_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	campaigns := []model.CampaignWithCount{}
	if err := r.DB.SelectContext(ctx, &campaigns, query, args...); err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	return campaigns, nil
}

func (r *CampaignRepository) Update(ctx context.Context, id string, u CampaignUpdate) (*model.Campaign, error) {
	if u.Status != nil && !u.Status.Valid() {
		return nil, appErrors.NewValidation("invalid status %q", *u.Status)
	}

	sets := []string{}
	args := []interface{}{}
	add := func(col string, val interface{}) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if u.Name != nil {
		add("name", *u.Name)
	}
	if u.Subject != nil {
		add("subject", *u.Subject)
	}
	if u.Content != nil {
		add("content", *u.Content)
	}
	if u.TargetDays != nil {
		add("target_days", *u.TargetDays)
	}
	if u.Status != nil {
		add("status", *u.Status)
	}
	updatedAt := u.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	add("updated_at", updatedAt)

	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE campaigns SET %s
		WHERE id = $%d
		RETURNING id, name, subject, content, target_days, status, created_at, updated_at`,
		strings.Join(sets, ", "), len(args))

	var c model.Campaign
	if err := r.DB.GetContext(ctx, &c, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, fmt.Errorf("update campaign: %w", err)
	}
	return &c, nil
}

// Delete removes the campaign and its notifications in one transaction.
func (r *CampaignRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM notifications WHERE campaign_id = $1`, id); err != nil {
		return fmt.Errorf("delete notifications: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	if n == 0 {
		return appErrors.NewCampaignNotFound(id)
	}
	return tx.Commit()
}

func (r *CampaignRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.DB.GetContext(ctx, &n, `SELECT COUNT(*) FROM campaigns`); err != nil {
		return 0, fmt.Errorf("count campaigns: %w", err)
	}
	return n, nil
}

func (r *CampaignRepository) CountByStatus(ctx context.Context, status model.CampaignStatus) (int, error) {
	var n int
	if err := r.DB.GetContext(ctx, &n, `SELECT COUNT(*) FROM campaigns WHERE status = $1`, status); err != nil {
		return 0, fmt.Errorf("count campaigns by status: %w", err)
	}
	return n, nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
