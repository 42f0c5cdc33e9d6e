package identity

import (
	"time"

	"github.com/bankcore/bankcore/internal/domain"
)

// User represents a registered account holder.
type User struct {
	ID           int64
	Email        string
	Name         string
	Role         domain.Role
	PasswordHash []byte
	CreatedAt    time.Time
}

// Credentials request structure.
type Credentials struct {
	Email    string
	Password string
	Name     string
}
