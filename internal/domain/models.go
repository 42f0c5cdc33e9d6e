package domain

import "time"

// TransactionType classifies a ledger posting.
type TransactionType string

const (
	TypeDeposit  TransactionType = "DEPOSIT"
	TypeWithdraw TransactionType = "WITHDRAW"
	TypeTransfer TransactionType = "TRANSFER"
)

// Role identifies the capability tier of an authenticated caller.
type Role int

const (
	RoleUser Role = iota
	RoleAdmin
)

// String renders the role for logs and JWT claims.
func (r Role) String() string {
	if r == RoleAdmin {
		return "admin"
	}
	return "user"
}

// ParseRole maps a claim string back to a Role, defaulting to user.
func ParseRole(s string) Role {
	if s == "admin" {
		return RoleAdmin
	}
	return RoleUser
}

// Actor is the authenticated identity performing an operation.
type Actor struct {
	ID   int64
	Role Role
}

// Account is a user-owned balance. Balance is held in minor units and is
// never negative once a mutation commits.
type Account struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Transaction is an immutable ledger record posted against one account.
// A transfer posts two of them, one per side.
type Transaction struct {
	ID          int64           `json:"id"`
	AccountID   int64           `json:"account_id"`
	Type        TransactionType `json:"type"`
	Amount      int64           `json:"amount"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}
