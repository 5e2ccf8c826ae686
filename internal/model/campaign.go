// internal/model/campaign.go
package model

import "time"

// CampaignStatus is the lifecycle state of a campaign.
type CampaignStatus string

const (
	StatusDraft     CampaignStatus = "DRAFT"
	StatusActive    CampaignStatus = "ACTIVE"
	StatusPaused    CampaignStatus = "PAUSED"
	StatusCompleted CampaignStatus = "COMPLETED"
)

// DefaultTargetDays is used when a campaign is created without a threshold.
const DefaultTargetDays = 60

// MaxTargetDays bounds inactivity thresholds to a hundred years.
const MaxTargetDays = 36500

func (s CampaignStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusPaused, StatusCompleted:
		return true
	}
	return false
}

type Campaign struct {
	ID         string         `db:"id" json:"id"`
	Name       string         `db:"name" json:"name"`
	Subject    string         `db:"subject" json:"subject"`
	Content    string         `db:"content" json:"content"`
	TargetDays int            `db:"target_days" json:"targetDays"`
	Status     CampaignStatus `db:"status" json:"status"`
	CreatedAt  time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time      `db:"updated_at" json:"updatedAt"`
}

// CampaignWithCount is a campaign row joined with its notification count.
type CampaignWithCount struct {
	Campaign
	NotificationCount int `db:"notification_count" json:"notificationCount"`
}
