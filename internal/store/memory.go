package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bankcore/bankcore/internal/domain"
)

type memoryStore struct {
	mu           sync.RWMutex
	accounts     map[int64]domain.Account
	transactions []domain.Transaction
	nextAccount  int64
	nextTx       int64
}

// NewMemory creates a concurrency-safe in-memory store used by unit tests
// and by dev mode when no database is configured.
func NewMemory() Store {
	return &memoryStore{accounts: make(map[int64]domain.Account)}
}

func (s *memoryStore) CreateAccount(_ context.Context, ownerID, initialBalance int64) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextAccount++
	now := time.Now().UTC()
	acct := domain.Account{
		ID:        s.nextAccount,
		OwnerID:   ownerID,
		Balance:   initialBalance,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.accounts[acct.ID] = acct
	return acct, nil
}

func (s *memoryStore) ReadAccount(_ context.Context, id int64) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	return acct, nil
}

func (s *memoryStore) ListAccounts(_ context.Context) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Account, 0, len(s.accounts))
	for _, acct := range s.accounts {
		out = append(out, acct)
	}
	sortAccounts(out)
	return out, nil
}

func (s *memoryStore) ListAccountsByOwner(_ context.Context, ownerID int64) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Account
	for _, acct := range s.accounts {
		if acct.OwnerID == ownerID {
			out = append(out, acct)
		}
	}
	sortAccounts(out)
	return out, nil
}

func (s *memoryStore) SetBalance(_ context.Context, id, balance int64) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[id]
	if !ok {
		return domain.Account{}, domain.ErrNotFound
	}
	acct.Balance = balance
	acct.UpdatedAt = time.Now().UTC()
	s.accounts[id] = acct
	return acct, nil
}

func (s *memoryStore) DeleteAccount(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.accounts, id)
	return nil
}

func (s *memoryStore) UpdateBalance(_ context.Context, id int64, delta DeltaFunc, draft Draft) (domain.Account, domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[id]
	if !ok {
		return domain.Account{}, domain.Transaction{}, domain.ErrNotFound
	}
	newBalance, err := delta(acct.Balance)
	if err != nil {
		return domain.Account{}, domain.Transaction{}, err
	}

	now := time.Now().UTC()
	acct.Balance = newBalance
	acct.UpdatedAt = now
	s.accounts[id] = acct

	return acct, s.appendLocked(draft, now), nil
}

func (s *memoryStore) UpdateBalancePair(_ context.Context, a, b BalanceUpdate) (domain.Transaction, domain.Transaction, error) {
	// Both deltas read the balance once, so the same account on both sides
	// would lose the first write.
	if a.AccountID == b.AccountID {
		return domain.Transaction{}, domain.Transaction{}, domain.ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acctA, ok := s.accounts[a.AccountID]
	if !ok {
		return domain.Transaction{}, domain.Transaction{}, domain.ErrNotFound
	}
	acctB, ok := s.accounts[b.AccountID]
	if !ok {
		return domain.Transaction{}, domain.Transaction{}, domain.ErrNotFound
	}

	balanceA, err := a.Delta(acctA.Balance)
	if err != nil {
		return domain.Transaction{}, domain.Transaction{}, err
	}
	balanceB, err := b.Delta(acctB.Balance)
	if err != nil {
		return domain.Transaction{}, domain.Transaction{}, err
	}

	now := time.Now().UTC()
	acctA.Balance = balanceA
	acctA.UpdatedAt = now
	acctB.Balance = balanceB
	acctB.UpdatedAt = now
	s.accounts[a.AccountID] = acctA
	s.accounts[b.AccountID] = acctB

	txA := s.appendLocked(a.Draft, now)
	txB := s.appendLocked(b.Draft, now)
	return txA, txB, nil
}

func (s *memoryStore) ListTransactions(_ context.Context) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Transaction, len(s.transactions))
	copy(out, s.transactions)
	return out, nil
}

func (s *memoryStore) ListTransactionsByOwner(_ context.Context, ownerID int64) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Transaction
	for _, tx := range s.transactions {
		acct, ok := s.accounts[tx.AccountID]
		if ok && acct.OwnerID == ownerID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *memoryStore) FindTransaction(_ context.Context, id, ownerID int64) (domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, tx := range s.transactions {
		if tx.ID != id {
			continue
		}
		if ownerID != 0 {
			acct, ok := s.accounts[tx.AccountID]
			if !ok || acct.OwnerID != ownerID {
				break
			}
		}
		return tx, nil
	}
	return domain.Transaction{}, domain.ErrNotFound
}

// appendLocked assigns the next transaction id and timestamp; callers hold mu.
// The log is append-only: records are returned by value and never rewritten.
func (s *memoryStore) appendLocked(draft Draft, now time.Time) domain.Transaction {
	s.nextTx++
	tx := domain.Transaction{
		ID:          s.nextTx,
		AccountID:   draft.AccountID,
		Type:        draft.Type,
		Amount:      draft.Amount,
		Description: draft.Description,
		CreatedAt:   now,
	}
	s.transactions = append(s.transactions, tx)
	return tx
}

func sortAccounts(accounts []domain.Account) {
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
}
