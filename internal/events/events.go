package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/bankcore/bankcore/internal/domain"
)

// TransactionCompleted is emitted after a ledger operation commits. Transfers
// emit one event carrying both sides; CounterpartyID is zero otherwise.
type TransactionCompleted struct {
	TransactionID  int64                  `json:"transaction_id"`
	AccountID      int64                  `json:"account_id"`
	Type           domain.TransactionType `json:"type"`
	Amount         int64                  `json:"amount"`
	CounterpartyID int64                  `json:"counterparty_id,omitempty"`
	OccurredAt     time.Time              `json:"occurred_at"`
}

// Publisher delivers ledger events to downstream consumers. Publishing is
// best effort; a failed publish never unwinds a committed operation.
type Publisher interface {
	Publish(ctx context.Context, event TransactionCompleted) error
}

// LogPublisher writes events to the structured logger. Used when no broker
// is configured.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher constructs a logging publisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish writes the event to the logger.
func (p *LogPublisher) Publish(_ context.Context, event TransactionCompleted) error {
	if p == nil || p.logger == nil {
		return nil
	}
	p.logger.Info("transaction completed",
		"transaction_id", event.TransactionID,
		"account_id", event.AccountID,
		"type", string(event.Type),
		"amount", event.Amount,
	)
	return nil
}
