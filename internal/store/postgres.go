package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bankcore/bankcore/internal/domain"
)

// maxTxRetries bounds transparent retries of serialization and deadlock
// failures before surfacing domain.ErrConflict to the caller.
const maxTxRetries = 3

// PostgresStore persists accounts and transactions in PostgreSQL. Balance
// updates lock the touched rows with SELECT ... FOR UPDATE inside a single
// database transaction, so the read-check-write-append sequence is isolated
// per account.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgres constructs a Postgres-backed store.
func NewPostgres(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateAccount(ctx context.Context, ownerID, initialBalance int64) (domain.Account, error) {
	const query = `INSERT INTO accounts (owner_id, balance, created_at, updated_at)
        VALUES ($1, $2, now(), now())
        RETURNING id, owner_id, balance, created_at, updated_at`
	return scanAccount(s.db.QueryRow(ctx, query, ownerID, initialBalance))
}

func (s *PostgresStore) ReadAccount(ctx context.Context, id int64) (domain.Account, error) {
	const query = `SELECT id, owner_id, balance, created_at, updated_at FROM accounts WHERE id = $1`
	return scanAccount(s.db.QueryRow(ctx, query, id))
}

func (s *PostgresStore) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	const query = `SELECT id, owner_id, balance, created_at, updated_at FROM accounts ORDER BY id`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return collectAccounts(rows)
}

func (s *PostgresStore) ListAccountsByOwner(ctx context.Context, ownerID int64) ([]domain.Account, error) {
	const query = `SELECT id, owner_id, balance, created_at, updated_at FROM accounts
        WHERE owner_id = $1 ORDER BY id`
	rows, err := s.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	return collectAccounts(rows)
}

func (s *PostgresStore) SetBalance(ctx context.Context, id, balance int64) (domain.Account, error) {
	const query = `UPDATE accounts SET balance = $1, updated_at = now() WHERE id = $2
        RETURNING id, owner_id, balance, created_at, updated_at`
	return scanAccount(s.db.QueryRow(ctx, query, balance, id))
}

func (s *PostgresStore) DeleteAccount(ctx context.Context, id int64) error {
	cmd, err := s.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) UpdateBalance(ctx context.Context, id int64, delta DeltaFunc, draft Draft) (domain.Account, domain.Transaction, error) {
	var (
		acct domain.Account
		rec  domain.Transaction
	)
	err := s.withRetry(ctx, func(tx pgx.Tx) error {
		locked, err := lockAccount(ctx, tx, id)
		if err != nil {
			return err
		}
		newBalance, err := delta(locked.Balance)
		if err != nil {
			return err
		}
		acct, err = writeBalance(ctx, tx, id, newBalance)
		if err != nil {
			return err
		}
		rec, err = appendTransaction(ctx, tx, draft)
		return err
	})
	if err != nil {
		return domain.Account{}, domain.Transaction{}, err
	}
	return acct, rec, nil
}

func (s *PostgresStore) UpdateBalancePair(ctx context.Context, a, b BalanceUpdate) (domain.Transaction, domain.Transaction, error) {
	// Both deltas read the balance once, so the same account on both sides
	// would lose the first write.
	if a.AccountID == b.AccountID {
		return domain.Transaction{}, domain.Transaction{}, domain.ErrInvalidAmount
	}

	var recA, recB domain.Transaction
	err := s.withRetry(ctx, func(tx pgx.Tx) error {
		// Lock in ascending id order so opposing transfers between the same
		// pair of accounts cannot deadlock.
		first, second := a, b
		if first.AccountID > second.AccountID {
			first, second = second, first
		}
		firstAcct, err := lockAccount(ctx, tx, first.AccountID)
		if err != nil {
			return err
		}
		secondAcct, err := lockAccount(ctx, tx, second.AccountID)
		if err != nil {
			return err
		}

		firstBalance, err := first.Delta(firstAcct.Balance)
		if err != nil {
			return err
		}
		secondBalance, err := second.Delta(secondAcct.Balance)
		if err != nil {
			return err
		}

		if _, err := writeBalance(ctx, tx, first.AccountID, firstBalance); err != nil {
			return err
		}
		if _, err := writeBalance(ctx, tx, second.AccountID, secondBalance); err != nil {
			return err
		}

		// Records append in caller order so the source side precedes the
		// destination side regardless of lock order.
		recA, err = appendTransaction(ctx, tx, a.Draft)
		if err != nil {
			return err
		}
		recB, err = appendTransaction(ctx, tx, b.Draft)
		return err
	})
	if err != nil {
		return domain.Transaction{}, domain.Transaction{}, err
	}
	return recA, recB, nil
}

func (s *PostgresStore) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	const query = `SELECT id, account_id, type, amount, description, created_at
        FROM transactions ORDER BY id`
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

func (s *PostgresStore) ListTransactionsByOwner(ctx context.Context, ownerID int64) ([]domain.Transaction, error) {
	const query = `SELECT t.id, t.account_id, t.type, t.amount, t.description, t.created_at
        FROM transactions t
        INNER JOIN accounts a ON a.id = t.account_id
        WHERE a.owner_id = $1
        ORDER BY t.id`
	rows, err := s.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	return collectTransactions(rows)
}

func (s *PostgresStore) FindTransaction(ctx context.Context, id, ownerID int64) (domain.Transaction, error) {
	// LEFT JOIN keeps records of deleted accounts reachable for unfiltered
	// (admin) lookups; owner-filtered lookups drop them like the join would.
	const query = `SELECT t.id, t.account_id, t.type, t.amount, t.description, t.created_at
        FROM transactions t
        LEFT JOIN accounts a ON a.id = t.account_id
        WHERE t.id = $1 AND ($2 = 0 OR a.owner_id = $2)`
	return scanTransaction(s.db.QueryRow(ctx, query, id, ownerID))
}

// withRetry runs fn inside a transaction, retrying serialization failures and
// deadlocks up to maxTxRetries before reporting domain.ErrConflict. Business
// errors from fn abort immediately with the transaction rolled back.
func (s *PostgresStore) withRetry(ctx context.Context, fn func(tx pgx.Tx) error) error {
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err := s.runTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}
	}
	return domain.ErrConflict
}

func (s *PostgresStore) runTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01": // serialization_failure, deadlock_detected
		return true
	}
	return false
}

func lockAccount(ctx context.Context, tx pgx.Tx, id int64) (domain.Account, error) {
	const query = `SELECT id, owner_id, balance, created_at, updated_at
        FROM accounts WHERE id = $1 FOR UPDATE`
	return scanAccount(tx.QueryRow(ctx, query, id))
}

func writeBalance(ctx context.Context, tx pgx.Tx, id, balance int64) (domain.Account, error) {
	const query = `UPDATE accounts SET balance = $1, updated_at = now() WHERE id = $2
        RETURNING id, owner_id, balance, created_at, updated_at`
	return scanAccount(tx.QueryRow(ctx, query, balance, id))
}

func appendTransaction(ctx context.Context, tx pgx.Tx, draft Draft) (domain.Transaction, error) {
	const query = `INSERT INTO transactions (account_id, type, amount, description, created_at)
        VALUES ($1, $2, $3, $4, now())
        RETURNING id, account_id, type, amount, description, created_at`
	return scanTransaction(tx.QueryRow(ctx, query, draft.AccountID, string(draft.Type), draft.Amount, draft.Description))
}

func scanAccount(row pgx.Row) (domain.Account, error) {
	var acct domain.Account
	err := row.Scan(&acct.ID, &acct.OwnerID, &acct.Balance, &acct.CreatedAt, &acct.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Account{}, err
	}
	acct.CreatedAt = acct.CreatedAt.UTC()
	acct.UpdatedAt = acct.UpdatedAt.UTC()
	return acct, nil
}

func scanTransaction(row pgx.Row) (domain.Transaction, error) {
	var rec domain.Transaction
	var kind string
	err := row.Scan(&rec.ID, &rec.AccountID, &kind, &rec.Amount, &rec.Description, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Transaction{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Transaction{}, err
	}
	rec.Type = domain.TransactionType(kind)
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}

func collectAccounts(rows pgx.Rows) ([]domain.Account, error) {
	defer rows.Close()
	var out []domain.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, acct)
	}
	return out, rows.Err()
}

func collectTransactions(rows pgx.Rows) ([]domain.Transaction, error) {
	defer rows.Close()
	var out []domain.Transaction
	for rows.Next() {
		rec, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
