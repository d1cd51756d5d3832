package services

import (
	"context"
	"time"

	"donation-api/internal/models"
	"donation-api/pkg/logging"
)

// Event types published after a transaction change commits.
const (
	EventTransactionCreated       = "transaction.created"
	EventTransactionStatusChanged = "transaction.status_changed"
	EventTransactionDeleted       = "transaction.deleted"
)

// TransactionEvent describes a committed change to a transaction.
type TransactionEvent struct {
	Type        string
	Transaction *models.Transaction
	FromStatus  models.TransactionStatus
	ToStatus    models.TransactionStatus
	ChangedBy   string
	OccurredAt  time.Time
}

// Notifier receives committed transaction changes. Implementations must not block
// the caller for long and must not report failures back to the request.
type Notifier interface {
	TransactionChanged(ctx context.Context, event TransactionEvent)
}

// NopNotifier discards events.
type NopNotifier struct{}

// TransactionChanged implements Notifier.
func (NopNotifier) TransactionChanged(context.Context, TransactionEvent) {}

// MultiNotifier fans an event out to several notifiers.
type MultiNotifier []Notifier

// TransactionChanged implements Notifier.
func (m MultiNotifier) TransactionChanged(ctx context.Context, event TransactionEvent) {
	for _, n := range m {
		n.TransactionChanged(ctx, event)
	}
}

// LogNotifier writes events to the application log.
type LogNotifier struct{}

// TransactionChanged implements Notifier.
func (LogNotifier) TransactionChanged(_ context.Context, event TransactionEvent) {
	logging.Infow("transaction changed",
		"event", event.Type,
		"transaction_id", event.Transaction.ID,
		"from", event.FromStatus,
		"to", event.ToStatus,
		"changed_by", event.ChangedBy,
	)
}
