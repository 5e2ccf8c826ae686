package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/unclebandit/reengage-backend/internal/model"
)

// UserRepositoryInterface defines methods used by service
type UserRepositoryInterface interface {
	SelectEligible(ctx context.Context, campaignID string, cutoff time.Time) ([]model.User, error)
	ListInactive(ctx context.Context, cutoff time.Time, limit, offset int) ([]model.User, int, error)
	CountInactive(ctx context.Context, cutoff time.Time) (int, error)
	Count(ctx context.Context) (int, error)
}

// UserRepository is the concrete implementation
type UserRepository struct {
	DB *sqlx.DB
}

// SelectEligible returns users last active before cutoff that have no
// notification for the campaign yet, oldest activity first.
func (r *UserRepository) SelectEligible(ctx context.Context, campaignID string, cutoff time.Time) ([]model.User, error) {
	query := `
		SELECT u.id, u.email, u.name, u.last_active_at, u.push_token, u.preferences
		FROM users u
		WHERE u.last_active_at < $1
		  AND NOT EXISTS (
		      SELECT 1 FROM notifications n
		      WHERE n.user_id = u.id AND n.campaign_id = $2
		  )
		ORDER BY u.last_active_at ASC
	`
	users := []model.User{}
	if err := r.DB.SelectContext(ctx, &users, query, cutoff, campaignID); err != nil {
		return nil, fmt.Errorf("select eligible users: %w", err)
	}
	return users, nil
}

// ListInactive pages through users last active before cutoff and returns the
// total number of such users.
func (r *UserRepository) ListInactive(ctx context.Context, cutoff time.Time, limit, offset int) ([]model.User, int, error) {
	query := `
		SELECT id, email, name, last_active_at, push_token
		FROM users
		WHERE last_active_at < $1
		ORDER BY last_active_at ASC
		LIMIT $2 OFFSET $3
	`
	users := []model.User{}
	if err := r.DB.SelectContext(ctx, &users, query, cutoff, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list inactive users: %w", err)
	}

	total, err := r.CountInactive(ctx, cutoff)
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *UserRepository) CountInactive(ctx context.Context, cutoff time.Time) (int, error) {
	var n int
	if err := r.DB.GetContext(ctx, &n, `SELECT COUNT(*) FROM users WHERE last_active_at < $1`, cutoff); err != nil {
		return 0, fmt.Errorf("count inactive users: %w", err)
	}
	return n, nil
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.DB.GetContext(ctx, &n, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

var _ UserRepositoryInterface = (*UserRepository)(nil)
