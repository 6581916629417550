package mailer

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridSender delivers mail through the SendGrid v3 API.
type SendGridSender struct {
	apiKey   string
	from     string
	fromName string
	host     string
}

// NewSendGridSender creates a sender. host may be empty for the public API.
func NewSendGridSender(apiKey, from, fromName, host string) *SendGridSender {
	return &SendGridSender{apiKey: apiKey, from: from, fromName: fromName, host: host}
}

func (s *SendGridSender) Send(ctx context.Context, m Message) error {
	if s.apiKey == "" {
		return fmt.Errorf("SendGrid API key is not set")
	}
	from := m.From
	if from == "" {
		from = s.from
	}
	fromName := m.FromName
	if fromName == "" {
		fromName = s.fromName
	}

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail("", m.To))

	msg := mail.NewV3Mail()
	msg.SetFrom(mail.NewEmail(fromName, from))
	msg.Subject = m.Subject
	msg.AddPersonalizations(p)
	msg.AddContent(mail.NewContent("text/html", m.HTML))
	for _, a := range m.Attachments {
		att := mail.NewAttachment()
		att.SetContent(base64.StdEncoding.EncodeToString(a.Data))
		att.SetType(a.Type)
		att.SetFilename(a.Name)
		att.SetDisposition("attachment")
		msg.AddAttachment(att)
	}

	req := sendgrid.GetRequest(s.apiKey, "/v3/mail/send", s.host)
	req.Method = "POST"
	req.Body = mail.GetRequestBody(msg)

	resp, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("SendGrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("SendGrid API error (status %d): %s", resp.StatusCode, resp.Body)
	}
	return nil
}
