package notifications

import (
	"context"
	"time"
)

type Notification struct {
	ID         string     `json:"id"`
	EmployeeID string     `json:"employeeId"`
	Kind       string     `json:"kind"`
	Title      string     `json:"title"`
	Body       string     `json:"body"`
	ReadAt     *time.Time `json:"readAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

type StoreAPI interface {
	CreateNotification(ctx context.Context, tenantID, employeeID, kind, title, body string) error
	ListHRRecipients(ctx context.Context, tenantID string) ([]string, error)
	EmployeeEmail(ctx context.Context, tenantID, employeeID string) (string, error)
	ListNotifications(ctx context.Context, tenantID, employeeID string, limit, offset int) ([]Notification, error)
	CountNotifications(ctx context.Context, tenantID, employeeID string) (int, error)
	MarkRead(ctx context.Context, tenantID, employeeID, notificationID string) error
	EmailSettings(ctx context.Context, tenantID string) (bool, string, error)
	UpdateSettings(ctx context.Context, tenantID string, enabled bool, from string) error
}
