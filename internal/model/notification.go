// internal/model/notification.go
package model

import "time"

type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelPush  Channel = "PUSH"
)

// Notification records one message sent to one user for one campaign.
// Only OpenedAt changes after creation.
type Notification struct {
	ID         string     `db:"id" json:"id"`
	UserID     string     `db:"user_id" json:"userId"`
	CampaignID string     `db:"campaign_id" json:"campaignId"`
	Channel    Channel    `db:"channel" json:"channel"`
	SentAt     time.Time  `db:"sent_at" json:"sentAt"`
	OpenedAt   *time.Time `db:"opened_at" json:"openedAt"`
}

// NotificationWithUser is used by the campaign detail view.
type NotificationWithUser struct {
	Notification
	UserEmail string `db:"user_email" json:"userEmail"`
	UserName  string `db:"user_name" json:"userName"`
}
