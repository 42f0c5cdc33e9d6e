package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bankcore/bankcore/internal/domain"
)

func TestUpdateBalanceAtomicity(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()
	acct, _ := st.CreateAccount(ctx, 1, 500)

	boom := errors.New("delta aborted")
	_, _, err := st.UpdateBalance(ctx, acct.ID,
		func(int64) (int64, error) { return 0, boom },
		Draft{AccountID: acct.ID, Type: domain.TypeWithdraw, Amount: 500, Description: "Withdraw"},
	)
	if !errors.Is(err, boom) {
		t.Fatalf("expected delta error, got %v", err)
	}

	// Aborted delta leaves neither a balance change nor a record.
	got, _ := st.ReadAccount(ctx, acct.ID)
	if got.Balance != 500 {
		t.Fatalf("balance mutated on aborted delta: %d", got.Balance)
	}
	if recs, _ := st.ListTransactions(ctx); len(recs) != 0 {
		t.Fatalf("aborted delta appended %d records", len(recs))
	}
}

func TestUpdateBalanceAdvancesUpdatedAt(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()
	acct, _ := st.CreateAccount(ctx, 1, 0)

	updated, _, err := st.UpdateBalance(ctx, acct.ID,
		func(balance int64) (int64, error) { return balance + 10, nil },
		Draft{AccountID: acct.ID, Type: domain.TypeDeposit, Amount: 10, Description: "Deposit"},
	)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.UpdatedAt.Before(acct.UpdatedAt) {
		t.Fatalf("updated_at did not advance")
	}
}

func TestTransactionIDsMonotonic(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()
	acct, _ := st.CreateAccount(ctx, 1, 0)

	var last int64
	for i := 0; i < 5; i++ {
		_, rec, err := st.UpdateBalance(ctx, acct.ID,
			func(balance int64) (int64, error) { return balance + 1, nil },
			Draft{AccountID: acct.ID, Type: domain.TypeDeposit, Amount: 1, Description: "Deposit"},
		)
		if err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
		if rec.ID <= last {
			t.Fatalf("transaction id %d not greater than %d", rec.ID, last)
		}
		last = rec.ID
	}
}

func TestListTransactionsReturnsCopies(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()
	acct, _ := st.CreateAccount(ctx, 1, 0)
	_, _, _ = st.UpdateBalance(ctx, acct.ID,
		func(balance int64) (int64, error) { return balance + 1, nil },
		Draft{AccountID: acct.ID, Type: domain.TypeDeposit, Amount: 1, Description: "Deposit"},
	)

	recs, _ := st.ListTransactions(ctx)
	recs[0].Amount = 9_999
	recs[0].Description = "tampered"

	fresh, _ := st.ListTransactions(ctx)
	if fresh[0].Amount != 1 || fresh[0].Description != "Deposit" {
		t.Fatalf("stored record mutated through listing: %+v", fresh[0])
	}
}

func TestUpdateBalancePairBothSidesOrNeither(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()
	a, _ := st.CreateAccount(ctx, 1, 100)
	b, _ := st.CreateAccount(ctx, 2, 0)

	_, _, err := st.UpdateBalancePair(ctx,
		BalanceUpdate{
			AccountID: a.ID,
			Delta: func(balance int64) (int64, error) {
				if balance < 500 {
					return 0, domain.ErrInsufficientFunds
				}
				return balance - 500, nil
			},
			Draft: Draft{AccountID: a.ID, Type: domain.TypeTransfer, Amount: 500},
		},
		BalanceUpdate{
			AccountID: b.ID,
			Delta:     func(balance int64) (int64, error) { return balance + 500, nil },
			Draft:     Draft{AccountID: b.ID, Type: domain.TypeTransfer, Amount: 500},
		},
	)
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	gotA, _ := st.ReadAccount(ctx, a.ID)
	gotB, _ := st.ReadAccount(ctx, b.ID)
	if gotA.Balance != 100 || gotB.Balance != 0 {
		t.Fatalf("partial application observed: %d/%d", gotA.Balance, gotB.Balance)
	}
}

func TestUpdateBalancePairRejectsSameAccount(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()
	acct, _ := st.CreateAccount(ctx, 1, 1_000)

	_, _, err := st.UpdateBalancePair(ctx,
		BalanceUpdate{
			AccountID: acct.ID,
			Delta:     func(balance int64) (int64, error) { return balance - 100, nil },
			Draft:     Draft{AccountID: acct.ID, Type: domain.TypeTransfer, Amount: 100},
		},
		BalanceUpdate{
			AccountID: acct.ID,
			Delta:     func(balance int64) (int64, error) { return balance + 100, nil },
			Draft:     Draft{AccountID: acct.ID, Type: domain.TypeTransfer, Amount: 100},
		},
	)
	if !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount for identical ids, got %v", err)
	}

	got, _ := st.ReadAccount(ctx, acct.ID)
	if got.Balance != 1_000 {
		t.Fatalf("balance changed on rejected pair: %d", got.Balance)
	}
}

func TestDeleteAccountRetainsHistory(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()
	acct, _ := st.CreateAccount(ctx, 1, 0)
	_, rec, _ := st.UpdateBalance(ctx, acct.ID,
		func(balance int64) (int64, error) { return balance + 100, nil },
		Draft{AccountID: acct.ID, Type: domain.TypeDeposit, Amount: 100, Description: "Deposit"},
	)
	_, _, _ = st.UpdateBalance(ctx, acct.ID,
		func(int64) (int64, error) { return 0, nil },
		Draft{AccountID: acct.ID, Type: domain.TypeWithdraw, Amount: 100, Description: "Withdraw"},
	)

	if err := st.DeleteAccount(ctx, acct.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// Records survive their account: the log is append-only.
	recs, _ := st.ListTransactions(ctx)
	if len(recs) != 2 {
		t.Fatalf("expected 2 records after account deletion, got %d", len(recs))
	}
	if _, err := st.FindTransaction(ctx, rec.ID, 0); err != nil {
		t.Fatalf("unfiltered lookup after deletion: %v", err)
	}
}

func TestConcurrentUpdatesSerialize(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()
	acct, _ := st.CreateAccount(ctx, 1, 0)

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = st.UpdateBalance(ctx, acct.ID,
				func(balance int64) (int64, error) { return balance + 1, nil },
				Draft{AccountID: acct.ID, Type: domain.TypeDeposit, Amount: 1, Description: "Deposit"},
			)
		}()
	}
	wg.Wait()

	final, _ := st.ReadAccount(ctx, acct.ID)
	if final.Balance != workers {
		t.Fatalf("lost updates: expected %d, got %d", workers, final.Balance)
	}
	recs, _ := st.ListTransactions(ctx)
	if len(recs) != workers {
		t.Fatalf("expected %d records, got %d", workers, len(recs))
	}
}

func TestFindTransactionOwnerFilter(t *testing.T) {
	st := NewMemory()
	ctx := context.Background()
	acct, _ := st.CreateAccount(ctx, 7, 0)
	_, rec, _ := st.UpdateBalance(ctx, acct.ID,
		func(balance int64) (int64, error) { return balance + 1, nil },
		Draft{AccountID: acct.ID, Type: domain.TypeDeposit, Amount: 1, Description: "Deposit"},
	)

	if _, err := st.FindTransaction(ctx, rec.ID, 7); err != nil {
		t.Fatalf("owner lookup: %v", err)
	}
	if _, err := st.FindTransaction(ctx, rec.ID, 8); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for wrong owner, got %v", err)
	}
	if _, err := st.FindTransaction(ctx, rec.ID, 0); err != nil {
		t.Fatalf("unfiltered lookup: %v", err)
	}
}
