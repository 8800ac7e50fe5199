package notifications

import (
	"context"
	"log/slog"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

type Service struct {
	store       StoreAPI
	Mailer      Mailer
	DefaultFrom string
}

func New(store StoreAPI, mailer Mailer) *Service {
	return &Service{store: store, Mailer: mailer, DefaultFrom: "no-reply@example.com"}
}

// Enqueue records a notification intent. An empty employeeID fans out to the
// tenant's HR recipients. Email delivery is best effort; the stored row is
// the durable record either way.
func (s *Service) Enqueue(ctx context.Context, tenantID, employeeID, kind, title, body string) error {
	recipients := []string{employeeID}
	if employeeID == "" {
		hr, err := s.store.ListHRRecipients(ctx, tenantID)
		if err != nil {
			return err
		}
		recipients = hr
	}
	for _, recipient := range recipients {
		if err := s.store.CreateNotification(ctx, tenantID, recipient, kind, title, body); err != nil {
			return err
		}
		s.sendEmail(ctx, tenantID, recipient, title, body)
	}
	return nil
}

func (s *Service) sendEmail(ctx context.Context, tenantID, employeeID, subject, body string) {
	if s.Mailer == nil {
		return
	}
	enabled, from, err := s.store.EmailSettings(ctx, tenantID)
	if err != nil || !enabled {
		return
	}
	if from == "" {
		from = s.DefaultFrom
	}
	email, err := s.store.EmployeeEmail(ctx, tenantID, employeeID)
	if err != nil {
		slog.Warn("notification email lookup failed", "err", err)
		return
	}
	if email == "" {
		return
	}
	if err := s.Mailer.Send(ctx, from, email, subject, body); err != nil {
		slog.Warn("notification email send failed", "err", err)
	}
}

func (s *Service) List(ctx context.Context, tenantID, employeeID string, limit, offset int) ([]Notification, error) {
	return s.store.ListNotifications(ctx, tenantID, employeeID, limit, offset)
}

func (s *Service) Count(ctx context.Context, tenantID, employeeID string) (int, error) {
	return s.store.CountNotifications(ctx, tenantID, employeeID)
}

func (s *Service) MarkRead(ctx context.Context, tenantID, employeeID, notificationID string) error {
	return s.store.MarkRead(ctx, tenantID, employeeID, notificationID)
}

func (s *Service) GetSettings(ctx context.Context, tenantID string) (bool, string, error) {
	return s.store.EmailSettings(ctx, tenantID)
}

func (s *Service) UpdateSettings(ctx context.Context, tenantID string, enabled bool, from string) error {
	return s.store.UpdateSettings(ctx, tenantID, enabled, from)
}
