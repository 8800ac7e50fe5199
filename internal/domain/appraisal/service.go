package appraisal

import (
	"context"
	"time"
)

// Notifier records a durable notification intent. An empty employeeID
// addresses the tenant's HR audience. Delivery is asynchronous and owned by
// the sink; the engine never waits for or retries delivery.
type Notifier interface {
	Enqueue(ctx context.Context, tenantID, employeeID, kind, title, body string) error
}

type Service struct {
	store    StoreAPI
	notifier Notifier
	now      func() time.Time
}

func NewService(store StoreAPI, notifier Notifier) *Service {
	return &Service{store: store, notifier: notifier, now: time.Now}
}
