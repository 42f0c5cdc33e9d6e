package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bankcore/bankcore/internal/authz"
	"github.com/bankcore/bankcore/internal/domain"
	"github.com/bankcore/bankcore/internal/events"
	"github.com/bankcore/bankcore/internal/store"
)

// Engine executes money-movement operations as all-or-nothing units. Every
// operation passes the same gates in order: amount validation, ownership
// resolution, balance check at mutation time, commit. A failure at any gate
// leaves persisted state untouched.
type Engine struct {
	store     store.Store
	policy    authz.Policy
	publisher events.Publisher
	logger    *slog.Logger
}

// NewEngine builds a ledger engine. The publisher may be nil.
func NewEngine(st store.Store, policy authz.Policy, publisher events.Publisher, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: st, policy: policy, publisher: publisher, logger: logger}
}

// Deposit credits the account and posts a DEPOSIT record.
func (e *Engine) Deposit(ctx context.Context, actor domain.Actor, accountID, amount int64) (domain.Transaction, error) {
	timer := prometheus.NewTimer(operationDuration.WithLabelValues("deposit"))
	defer timer.ObserveDuration()

	rec, err := e.deposit(ctx, actor, accountID, amount)
	observe("deposit", err)
	return rec, err
}

func (e *Engine) deposit(ctx context.Context, actor domain.Actor, accountID, amount int64) (domain.Transaction, error) {
	if amount <= 0 {
		return domain.Transaction{}, domain.ErrInvalidAmount
	}
	if _, err := e.resolveOwned(ctx, actor, accountID); err != nil {
		return domain.Transaction{}, err
	}

	_, rec, err := e.store.UpdateBalance(ctx, accountID,
		func(balance int64) (int64, error) { return balance + amount, nil },
		store.Draft{AccountID: accountID, Type: domain.TypeDeposit, Amount: amount, Description: "Deposit"},
	)
	if err != nil {
		return domain.Transaction{}, err
	}

	e.publish(ctx, rec, 0)
	return rec, nil
}

// Withdraw debits the account and posts a WITHDRAW record. The sufficiency
// check runs against the balance read under the store's lock, not a stale
// read, so concurrent withdrawals cannot both pass it.
func (e *Engine) Withdraw(ctx context.Context, actor domain.Actor, accountID, amount int64) (domain.Transaction, error) {
	timer := prometheus.NewTimer(operationDuration.WithLabelValues("withdraw"))
	defer timer.ObserveDuration()

	rec, err := e.withdraw(ctx, actor, accountID, amount)
	observe("withdraw", err)
	return rec, err
}

func (e *Engine) withdraw(ctx context.Context, actor domain.Actor, accountID, amount int64) (domain.Transaction, error) {
	if amount <= 0 {
		return domain.Transaction{}, domain.ErrInvalidAmount
	}
	if _, err := e.resolveOwned(ctx, actor, accountID); err != nil {
		return domain.Transaction{}, err
	}

	_, rec, err := e.store.UpdateBalance(ctx, accountID,
		debit(amount),
		store.Draft{AccountID: accountID, Type: domain.TypeWithdraw, Amount: amount, Description: "Withdraw"},
	)
	if err != nil {
		return domain.Transaction{}, err
	}

	e.publish(ctx, rec, 0)
	return rec, nil
}

// Transfer moves funds between two accounts, posting one TRANSFER record per
// side, and returns the receiving-side record. The source must belong to the
// actor; the destination is resolved by id alone so third parties can be
// paid. All four effects commit as one unit.
func (e *Engine) Transfer(ctx context.Context, actor domain.Actor, fromID, toID, amount int64) (domain.Transaction, error) {
	timer := prometheus.NewTimer(operationDuration.WithLabelValues("transfer"))
	defer timer.ObserveDuration()

	rec, err := e.transfer(ctx, actor, fromID, toID, amount)
	observe("transfer", err)
	return rec, err
}

func (e *Engine) transfer(ctx context.Context, actor domain.Actor, fromID, toID, amount int64) (domain.Transaction, error) {
	if amount <= 0 || fromID == toID {
		return domain.Transaction{}, domain.ErrInvalidAmount
	}
	if _, err := e.resolveOwned(ctx, actor, fromID); err != nil {
		return domain.Transaction{}, err
	}
	if _, err := e.store.ReadAccount(ctx, toID); err != nil {
		return domain.Transaction{}, err
	}

	_, credit, err := e.store.UpdateBalancePair(ctx,
		store.BalanceUpdate{
			AccountID: fromID,
			Delta:     debit(amount),
			Draft: store.Draft{
				AccountID:   fromID,
				Type:        domain.TypeTransfer,
				Amount:      amount,
				Description: fmt.Sprintf("Transfer to account %d", toID),
			},
		},
		store.BalanceUpdate{
			AccountID: toID,
			Delta:     func(balance int64) (int64, error) { return balance + amount, nil },
			Draft: store.Draft{
				AccountID:   toID,
				Type:        domain.TypeTransfer,
				Amount:      amount,
				Description: fmt.Sprintf("Transfer from account %d", fromID),
			},
		},
	)
	if err != nil {
		return domain.Transaction{}, err
	}

	e.publish(ctx, credit, fromID)
	return credit, nil
}

// List returns the actor's transaction history; admins receive all records.
func (e *Engine) List(ctx context.Context, actor domain.Actor) ([]domain.Transaction, error) {
	if actor.Role == domain.RoleAdmin {
		return e.store.ListTransactions(ctx)
	}
	return e.store.ListTransactionsByOwner(ctx, actor.ID)
}

// ListAll is the administrative listing across every account. Non-admin
// callers are rejected outright; unlike ownership checks this reveals that
// the records exist.
func (e *Engine) ListAll(ctx context.Context, actor domain.Actor) ([]domain.Transaction, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, domain.ErrForbidden
	}
	return e.store.ListTransactions(ctx)
}

// Get fetches a single transaction visible to the actor.
func (e *Engine) Get(ctx context.Context, actor domain.Actor, id int64) (domain.Transaction, error) {
	ownerFilter := actor.ID
	if actor.Role == domain.RoleAdmin {
		ownerFilter = 0
	}
	return e.store.FindTransaction(ctx, id, ownerFilter)
}

// debit returns a delta that re-checks sufficiency at the moment of mutation.
func debit(amount int64) store.DeltaFunc {
	return func(balance int64) (int64, error) {
		if balance < amount {
			return 0, domain.ErrInsufficientFunds
		}
		return balance - amount, nil
	}
}

func (e *Engine) resolveOwned(ctx context.Context, actor domain.Actor, accountID int64) (domain.Account, error) {
	acct, err := e.store.ReadAccount(ctx, accountID)
	if err != nil {
		return domain.Account{}, err
	}
	if !e.policy.CanAccess(actor, acct.OwnerID) {
		return domain.Account{}, domain.ErrNotFound
	}
	return acct, nil
}

// publish emits a completion event. Publishing is best effort: the ledger
// mutation has already committed, so a failure is logged rather than undone.
func (e *Engine) publish(ctx context.Context, rec domain.Transaction, counterpartyID int64) {
	if e.publisher == nil {
		return
	}
	err := e.publisher.Publish(ctx, events.TransactionCompleted{
		TransactionID:  rec.ID,
		AccountID:      rec.AccountID,
		Type:           rec.Type,
		Amount:         rec.Amount,
		CounterpartyID: counterpartyID,
		OccurredAt:     time.Now().UTC(),
	})
	if err != nil {
		e.logger.Warn("transaction event publish failed",
			slog.Int64("transaction_id", rec.ID),
			slog.Any("error", err))
	}
}
