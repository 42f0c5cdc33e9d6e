package store

import (
	"context"

	"github.com/bankcore/bankcore/internal/domain"
)

// DeltaFunc computes a new balance from the current one, read at the moment
// of mutation. Returning an error aborts the update with no effects; this is
// where insufficient-funds checks run, under the row lock.
type DeltaFunc func(balance int64) (int64, error)

// Draft is a transaction record before the store assigns its id and
// timestamp. Drafts only become Transactions inside an atomic balance update.
type Draft struct {
	AccountID   int64
	Type        domain.TransactionType
	Amount      int64
	Description string
}

// BalanceUpdate bundles one side of a two-account atomic update.
type BalanceUpdate struct {
	AccountID int64
	Delta     DeltaFunc
	Draft     Draft
}

// Store is the durable port consumed by the account registry and the ledger
// engine. Implementations must make each balance update and its transaction
// append a single atomic unit, serialized against concurrent updates of the
// same account. Contention beyond the implementation's retry budget surfaces
// as domain.ErrConflict.
type Store interface {
	CreateAccount(ctx context.Context, ownerID, initialBalance int64) (domain.Account, error)
	ReadAccount(ctx context.Context, id int64) (domain.Account, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	ListAccountsByOwner(ctx context.Context, ownerID int64) ([]domain.Account, error)
	SetBalance(ctx context.Context, id, balance int64) (domain.Account, error)
	DeleteAccount(ctx context.Context, id int64) error

	// UpdateBalance applies delta to the account's balance and appends the
	// draft as a transaction record, atomically. Either both persist or
	// neither does.
	UpdateBalance(ctx context.Context, id int64, delta DeltaFunc, draft Draft) (domain.Account, domain.Transaction, error)

	// UpdateBalancePair is UpdateBalance across two accounts as one unit.
	// Implementations acquire the accounts in ascending id order regardless
	// of argument order, so opposing transfers cannot deadlock.
	UpdateBalancePair(ctx context.Context, a, b BalanceUpdate) (domain.Transaction, domain.Transaction, error)

	ListTransactions(ctx context.Context) ([]domain.Transaction, error)
	ListTransactionsByOwner(ctx context.Context, ownerID int64) ([]domain.Transaction, error)

	// FindTransaction fetches one record. An ownerID of zero skips the
	// ownership filter (administrative lookup).
	FindTransaction(ctx context.Context, id, ownerID int64) (domain.Transaction, error)
}
