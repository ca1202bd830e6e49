package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/medisched/hms-api/internal/config"
)

type smtpService struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPService returns a gomail-backed Service. When cfg.Enabled is
// false a no-op implementation is returned instead, so callers never
// need to branch.
func NewSMTPService(cfg config.EmailConfig) Service {
	if !cfg.Enabled {
		return &noopService{}
	}
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *smtpService) send(ctx context.Context, to, subject, body string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

func (s *smtpService) SendAppointmentBooked(ctx context.Context, to, patientName, doctorName, date, timeSlot string) error {
	body := fmt.Sprintf(
		"Dear %s,\n\nYour appointment with %s on %s at %s has been booked and is pending confirmation.\n\nRegards,\nMediSched",
		patientName, doctorName, date, timeSlot,
	)
	return s.send(ctx, to, "Appointment booked", body)
}

func (s *smtpService) SendAppointmentConfirmed(ctx context.Context, to, patientName, doctorName, date, timeSlot string) error {
	body := fmt.Sprintf(
		"Dear %s,\n\nYour appointment with %s on %s at %s has been confirmed.\n\nRegards,\nMediSched",
		patientName, doctorName, date, timeSlot,
	)
	return s.send(ctx, to, "Appointment confirmed", body)
}

func (s *smtpService) SendAppointmentCancelled(ctx context.Context, to, patientName, doctorName, date, timeSlot string) error {
	body := fmt.Sprintf(
		"Dear %s,\n\nYour appointment with %s on %s at %s has been cancelled.\n\nRegards,\nMediSched",
		patientName, doctorName, date, timeSlot,
	)
	return s.send(ctx, to, "Appointment cancelled", body)
}

func (s *smtpService) SendWelcome(ctx context.Context, to, name string) error {
	body := fmt.Sprintf(
		"Dear %s,\n\nWelcome to MediSched. You can now book appointments with our doctors.\n\nRegards,\nMediSched",
		name,
	)
	return s.send(ctx, to, "Welcome to MediSched", body)
}

type noopService struct{}

func (n *noopService) SendAppointmentBooked(context.Context, string, string, string, string, string) error {
	return nil
}
func (n *noopService) SendAppointmentConfirmed(context.Context, string, string, string, string, string) error {
	return nil
}
func (n *noopService) SendAppointmentCancelled(context.Context, string, string, string, string, string) error {
	return nil
}
func (n *noopService) SendWelcome(context.Context, string, string) error { return nil }
