package user

import (
	"context"
	"time"
)

// User is a managed Meican account. Snapshots and ledger rows are scoped to
// its ID and removed with it.
type User struct {
	ID    string
	Email string
	// PasswordEnc is the AEAD-encrypted Meican password; empty means the
	// global password applies.
	PasswordEnc string
	AddressID   string
	Active      bool
	CreatedAt   time.Time
	LastRunAt   *time.Time
}

// Operator is a local web UI login.
type Operator struct {
	ID           string
	Username     string
	PasswordHash []byte
	CreatedAt    time.Time
}

type Repository interface {
	Create(ctx context.Context, u User) error
	Get(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	List(ctx context.Context, activeOnly bool) ([]User, error)
	SetActive(ctx context.Context, id string, active bool) error
	TouchLastRun(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

type OperatorRepository interface {
	CreateOperator(ctx context.Context, o Operator) error
	GetOperatorByUsername(ctx context.Context, username string) (Operator, error)
}
