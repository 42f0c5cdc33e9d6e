package identity

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bankcore/bankcore/internal/domain"
)

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, user User) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByID(ctx context.Context, id int64) (User, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed user repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new user. A duplicate email reports domain.ErrConflict.
func (r *PostgresRepository) Create(ctx context.Context, user User) (User, error) {
	const query = `INSERT INTO users (email, name, role, password_hash, created_at)
        VALUES ($1, $2, $3, $4, now())
        RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query, user.Email, user.Name, user.Role.String(), user.PasswordHash).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, domain.ErrConflict
		}
		return User{}, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return user, nil
}

// FindByEmail fetches a user by email address.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	const query = `SELECT id, email, name, role, password_hash, created_at FROM users WHERE email = $1`
	return scanUser(r.db.QueryRow(ctx, query, email))
}

// FindByID fetches a user by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (User, error) {
	const query = `SELECT id, email, name, role, password_hash, created_at FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

func scanUser(row pgx.Row) (User, error) {
	var (
		user      User
		role      string
		createdAt time.Time
	)
	err := row.Scan(&user.ID, &user.Email, &user.Name, &role, &user.PasswordHash, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, domain.ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	user.Role = domain.ParseRole(role)
	user.CreatedAt = createdAt.UTC()
	return user, nil
}
