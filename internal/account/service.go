package account

import (
	"context"

	"github.com/bankcore/bankcore/internal/authz"
	"github.com/bankcore/bankcore/internal/domain"
	"github.com/bankcore/bankcore/internal/store"
)

// Service owns the account lifecycle: creation, retrieval, administrative
// correction, and deletion. Ownership failures are reported as
// domain.ErrNotFound so callers cannot probe for accounts they may not see.
type Service struct {
	store  store.Store
	policy authz.Policy
}

// NewService builds an account registry over the given store and policy.
func NewService(st store.Store, policy authz.Policy) *Service {
	return &Service{store: st, policy: policy}
}

// Patch carries the administrative fields that may be updated. A nil field
// is left untouched.
type Patch struct {
	Balance *int64 `json:"balance"`
}

// Create opens an account owned by the actor with the given starting balance.
func (s *Service) Create(ctx context.Context, actor domain.Actor, initialBalance int64) (domain.Account, error) {
	if initialBalance < 0 {
		return domain.Account{}, domain.ErrInvalidAmount
	}
	return s.store.CreateAccount(ctx, actor.ID, initialBalance)
}

// Get returns the account if the actor may see it.
func (s *Service) Get(ctx context.Context, actor domain.Actor, accountID int64) (domain.Account, error) {
	return s.resolve(ctx, actor, accountID)
}

// List returns every account for admins, otherwise the actor's own accounts.
func (s *Service) List(ctx context.Context, actor domain.Actor) ([]domain.Account, error) {
	if actor.Role == domain.RoleAdmin {
		return s.store.ListAccounts(ctx)
	}
	return s.store.ListAccountsByOwner(ctx, actor.ID)
}

// Update applies an administrative correction, currently a direct balance
// edit. Ledger operations go through the engine instead; corrections do not
// post transaction records.
func (s *Service) Update(ctx context.Context, actor domain.Actor, accountID int64, patch Patch) (domain.Account, error) {
	acct, err := s.resolve(ctx, actor, accountID)
	if err != nil {
		return domain.Account{}, err
	}
	if patch.Balance == nil {
		return acct, nil
	}
	if *patch.Balance < 0 {
		return domain.Account{}, domain.ErrInvalidAmount
	}
	return s.store.SetBalance(ctx, accountID, *patch.Balance)
}

// Delete removes an account. Accounts holding funds cannot be deleted.
func (s *Service) Delete(ctx context.Context, actor domain.Actor, accountID int64) error {
	acct, err := s.resolve(ctx, actor, accountID)
	if err != nil {
		return err
	}
	if acct.Balance != 0 {
		return domain.ErrConflict
	}
	return s.store.DeleteAccount(ctx, accountID)
}

func (s *Service) resolve(ctx context.Context, actor domain.Actor, accountID int64) (domain.Account, error) {
	acct, err := s.store.ReadAccount(ctx, accountID)
	if err != nil {
		return domain.Account{}, err
	}
	if !s.policy.CanAccess(actor, acct.OwnerID) {
		return domain.Account{}, domain.ErrNotFound
	}
	return acct, nil
}
