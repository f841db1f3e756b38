package transaction

import (
	"context"

	"github.com/viant/sagaflow/service/compensation"
	"github.com/viant/sagaflow/service/event"
)

// NotificationType is a lifecycle notification kind
type NotificationType string

const (
	NotificationStarted    NotificationType = "started"
	NotificationCommitted  NotificationType = "committed"
	NotificationRolledBack NotificationType = "rolledBack"
	NotificationFailed     NotificationType = "failed"
	// NotificationOrphaned reports an operation that completed after the
	// transaction finished; the report lists it as uncompensated.
	NotificationOrphaned NotificationType = "orphaned"
)

// Notification is published to a Sink on transaction lifecycle changes
type Notification struct {
	Type          NotificationType     `json:"type"`
	TransactionID string               `json:"transactionId"`
	Status        Status               `json:"status"`
	Operations    int                  `json:"operations"`
	Report        *compensation.Report `json:"report,omitempty"`
}

// Sink receives lifecycle notifications; event.Publisher[Notification]
// satisfies it.
type Sink interface {
	Publish(ctx context.Context, e *event.Event[Notification]) error
}

var _ Sink = (*event.Publisher[Notification])(nil)
