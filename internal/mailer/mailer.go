// Package mailer delivers queued campaign notifications to recipients.
package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/unclebandit/reengage-backend/internal/logger"
	"github.com/unclebandit/reengage-backend/internal/model"
	"github.com/unclebandit/reengage-backend/internal/queue"
)

// Message is one rendered email.
type Message struct {
	NotificationID string
	CampaignID     string
	To             string
	ToName         string
	Subject        string
	HTML           string
}

type Sender interface {
	Send(ctx context.Context, m Message) error
}

// LogSender only logs the message.
type LogSender struct {
	Log *logrus.Entry
}

func (s *LogSender) Send(_ context.Context, m Message) error {
	s.Log.WithFields(logrus.Fields{
		"notification_id": m.NotificationID,
		"campaign_id":     m.CampaignID,
		"to":              logger.RedactEmail(m.To),
	}).Infof("sending email: %s", m.Subject)
	return nil
}

// TrackingPixel returns the image tag that reports an open of the notification.
func TrackingPixel(baseURL, notificationID string) string {
	return fmt.Sprintf(`<img src="%s/track/open/%s" width="1" height="1" alt="" style="display:none" />`,
		strings.TrimRight(baseURL, "/"), notificationID)
}

// injectPixel places the pixel before </body> when present, else appends it.
func injectPixel(html, pixel string) string {
	if i := strings.LastIndex(strings.ToLower(html), "</body>"); i >= 0 {
		return html[:i] + pixel + html[i:]
	}
	return html + pixel
}

// Handler turns queued deliveries into sends. Push deliveries have no
// provider yet and are acknowledged after logging.
func Handler(sender Sender, trackingBaseURL string, log *logrus.Entry) queue.Handler {
	return func(ctx context.Context, d queue.Delivery) error {
		if d.Channel == model.ChannelPush {
			log.WithFields(logrus.Fields{
				"notification_id": d.NotificationID,
				"has_token":       d.PushToken != "",
			}).Info("push delivery skipped: no push provider configured")
			return nil
		}
		if d.Email == "" {
			return fmt.Errorf("delivery %s has no recipient", d.NotificationID)
		}

		html := d.Content
		if trackingBaseURL != "" {
			html = injectPixel(html, TrackingPixel(trackingBaseURL, d.NotificationID))
		}

		return sender.Send(ctx, Message{
			NotificationID: d.NotificationID,
			CampaignID:     d.CampaignID,
			To:             d.Email,
			ToName:         d.Name,
			Subject:        d.Subject,
			HTML:           html,
		})
	}
}
