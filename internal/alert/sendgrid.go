package alert

import (
	"context"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"rentcar-booking-backend/internal/logger"
)

type mailSender interface {
	Send(email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridAlerter emails alerts to the operator list.
type SendGridAlerter struct {
	client    mailSender
	fromEmail string
	fromName  string
	to        []string
}

func NewSendGridAlerter(cfg Config) *SendGridAlerter {
	return &SendGridAlerter{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		to:        cfg.To,
	}
}

func (s *SendGridAlerter) Alert(ctx context.Context, e Event) error {
	if len(s.to) == 0 {
		return nil
	}
	message := mail.NewV3Mail()
	message.SetFrom(mail.NewEmail(s.fromName, s.fromEmail))
	message.Subject = e.Subject()

	p := mail.NewPersonalization()
	for _, addr := range s.to {
		p.AddTos(mail.NewEmail("", addr))
	}
	message.AddPersonalizations(p)
	message.AddContent(mail.NewContent("text/plain", e.Body()))

	logger.ExternalServiceCall("SendGrid", "Send", "kind", e.Kind, "booking_id", e.BookingID)
	response, err := s.client.Send(message)
	if err == nil && response.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	logger.ExternalServiceResult("SendGrid", "Send", err, "kind", e.Kind)
	if err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}
	return nil
}
