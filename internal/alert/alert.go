package alert

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rentcar-booking-backend/internal/logger"
)

type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Event is something an operator has to look at, such as an illegal state change or a
// payment that does not match its booking.
type Event struct {
	Kind      string
	Severity  Severity
	BookingID int32
	Message   string
	Fields    map[string]any
	At        time.Time
}

func (e Event) Subject() string {
	return fmt.Sprintf("[%s] %s on booking %d", strings.ToUpper(string(e.Severity)), e.Kind, e.BookingID)
}

// Body renders the event as plain text, fields sorted for stable output.
func (e Event) Body() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\nbooking: %d\nkind: %s\nat: %s\n", e.Message, e.BookingID, e.Kind, e.At.Format(time.RFC3339))
	for _, k := range sortedKeys(e.Fields) {
		fmt.Fprintf(&b, "%s: %v\n", k, e.Fields[k])
	}
	return b.String()
}

// Alerter delivers operator alerts.
type Alerter interface {
	Alert(ctx context.Context, e Event) error
}

// LogAlerter writes alerts to the structured log only.
type LogAlerter struct{}

func NewLogAlerter() *LogAlerter { return &LogAlerter{} }

func (LogAlerter) Alert(ctx context.Context, e Event) error {
	args := []any{"kind", e.Kind, "severity", e.Severity, "booking_id", e.BookingID}
	for _, k := range sortedKeys(e.Fields) {
		args = append(args, k, e.Fields[k])
	}
	logger.ErrorContext(ctx, "OPERATOR ALERT: "+e.Message, args...)
	return nil
}

// Config selects and configures the alert channel
type Config struct {
	Provider  string // "log", "sendgrid" or "smtp"
	APIKey    string
	FromEmail string
	FromName  string
	To        []string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
}

// New builds the configured alerter. Alerts are always logged as well as delivered.
func New(cfg Config) (Alerter, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "log":
		return NewLogAlerter(), nil
	case "sendgrid":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("sendgrid alerter requires an api key")
		}
		return Fanout{NewLogAlerter(), NewSendGridAlerter(cfg)}, nil
	case "smtp":
		if cfg.SMTPHost == "" {
			return nil, fmt.Errorf("smtp alerter requires a host")
		}
		return Fanout{NewLogAlerter(), NewSMTPAlerter(cfg)}, nil
	default:
		return nil, fmt.Errorf("unknown alert provider %q", cfg.Provider)
	}
}

// Fanout delivers to every alerter and returns the first error.
type Fanout []Alerter

func (f Fanout) Alert(ctx context.Context, e Event) error {
	var first error
	for _, a := range f {
		if err := a.Alert(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}
