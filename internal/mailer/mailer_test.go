package mailer

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/reengage-backend/internal/model"
	"github.com/unclebandit/reengage-backend/internal/queue"
)

type captureSender struct {
	sent []Message
	err  error
}

func (c *captureSender) Send(_ context.Context, m Message) error {
	c.sent = append(c.sent, m)
	return c.err
}

func testLog() (*logrus.Entry, *bytes.Buffer) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})
	return logrus.NewEntry(l), &buf
}

func delivery() queue.Delivery {
	return queue.Delivery{
		NotificationID: "n-1",
		CampaignID:     "c-1",
		UserID:         "u-1",
		Email:          "jane@example.com",
		Name:           "Jane",
		Channel:        model.ChannelEmail,
		Subject:        "We miss you",
		Content:        "<html><body><p>Come back</p></body></html>",
	}
}

func TestHandler_InjectsTrackingPixel(t *testing.T) {
	log, _ := testLog()
	sender := &captureSender{}
	h := Handler(sender, "https://api.example.com/", log)

	require.NoError(t, h(context.Background(), delivery()))
	require.Len(t, sender.sent, 1)
	m := sender.sent[0]
	assert.Equal(t, "jane@example.com", m.To)
	assert.Equal(t, "We miss you", m.Subject)
	assert.Contains(t, m.HTML, `src="https://api.example.com/track/open/n-1"`)
	assert.Contains(t, m.HTML, `display:none" /></body>`)
}

func TestHandler_NoTrackingURL(t *testing.T) {
	log, _ := testLog()
	sender := &captureSender{}
	d := delivery()

	require.NoError(t, Handler(sender, "", log)(context.Background(), d))
	assert.Equal(t, d.Content, sender.sent[0].HTML)
}

func TestHandler_PushIsSkipped(t *testing.T) {
	log, _ := testLog()
	sender := &captureSender{}
	d := delivery()
	d.Channel = model.ChannelPush

	require.NoError(t, Handler(sender, "", log)(context.Background(), d))
	assert.Empty(t, sender.sent)
}

func TestHandler_Errors(t *testing.T) {
	log, _ := testLog()
	d := delivery()
	d.Email = ""
	assert.Error(t, Handler(&captureSender{}, "", log)(context.Background(), d))

	failing := &captureSender{err: errors.New("throttled")}
	assert.Error(t, Handler(failing, "", log)(context.Background(), delivery()))
}

func TestInjectPixel_NoBody(t *testing.T) {
	assert.Equal(t, "<p>x</p><img/>", injectPixel("<p>x</p>", "<img/>"))
	assert.Equal(t, "<BODY>x<img/></BODY>", injectPixel("<BODY>x</BODY>", "<img/>"))
}

func TestLogSender_Redacts(t *testing.T) {
	log, buf := testLog()
	require.NoError(t, (&LogSender{Log: log}).Send(context.Background(), Message{To: "jane@example.com", Subject: "Hi"}))
	assert.NotContains(t, buf.String(), "jane@example.com")
	assert.Contains(t, buf.String(), "ja***@example.com")
}

type fakeSES struct {
	in  *sesv2.SendEmailInput
	err error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("ses-123")}, nil
}

func TestSESSender_Send(t *testing.T) {
	log, buf := testLog()
	client := &fakeSES{}
	s := &SESSender{client: client, fromEmail: "hello@example.com", fromName: "Home Decor", log: log}

	err := s.Send(context.Background(), Message{
		NotificationID: "n-1",
		CampaignID:     "c-1",
		To:             "jane@example.com",
		ToName:         "Jane",
		Subject:        "We miss you",
		HTML:           "<p>hi</p>",
	})
	require.NoError(t, err)
	require.NotNil(t, client.in)
	assert.Equal(t, "Home Decor <hello@example.com>", aws.ToString(client.in.FromEmailAddress))
	assert.Equal(t, []string{"Jane <jane@example.com>"}, client.in.Destination.ToAddresses)
	assert.Equal(t, "We miss you", aws.ToString(client.in.Content.Simple.Subject.Data))
	assert.Equal(t, "<p>hi</p>", aws.ToString(client.in.Content.Simple.Body.Html.Data))
	assert.Contains(t, buf.String(), "ses-123")
}

func TestSESSender_SendError(t *testing.T) {
	log, _ := testLog()
	s := &SESSender{client: &fakeSES{err: errors.New("MessageRejected")}, log: log}

	err := s.Send(context.Background(), Message{To: "jane@example.com"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "jane@example.com")
}
