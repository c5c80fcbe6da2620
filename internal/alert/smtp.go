package alert

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"rentcar-booking-backend/internal/logger"
)

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPAlerter emails alerts through a plain SMTP relay.
type SMTPAlerter struct {
	dialer dialer
	from   string
	to     []string
}

func NewSMTPAlerter(cfg Config) *SMTPAlerter {
	return &SMTPAlerter{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:   cfg.FromEmail,
		to:     cfg.To,
	}
}

func (s *SMTPAlerter) Alert(ctx context.Context, e Event) error {
	if len(s.to) == 0 {
		return nil
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", s.to...)
	m.SetHeader("Subject", e.Subject())
	m.SetBody("text/plain", e.Body())

	logger.ExternalServiceCall("SMTP", "DialAndSend", "kind", e.Kind, "booking_id", e.BookingID)
	err := s.dialer.DialAndSend(m)
	logger.ExternalServiceResult("SMTP", "DialAndSend", err, "kind", e.Kind)
	if err != nil {
		return fmt.Errorf("failed to send alert via gomail: %w", err)
	}
	return nil
}
