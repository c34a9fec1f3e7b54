package identity

import (
	"context"
	"time"

	"github.com/makerpath/progress-hub/internal/domain/shared"
)

// Repository defines storage operations for accounts.
// Implementations live in infrastructure/persistence.
type Repository interface {
	// Create stores a new account.
	// Returns shared.ErrAccountAlreadyExists on a duplicate ID.
	Create(ctx context.Context, account *Account) error

	// GetByID returns the account with the given ID.
	// Returns shared.ErrAccountNotFound when absent.
	GetByID(ctx context.Context, id shared.AccountID) (*Account, error)

	// GetByEmail returns the account registered under the normalized email.
	// Returns shared.ErrAccountNotFound when absent.
	GetByEmail(ctx context.Context, email shared.Email) (*Account, error)

	// AddXP atomically credits XP and returns the new total.
	AddXP(ctx context.Context, id shared.AccountID, amount int) (shared.XP, error)

	// TouchLastActive updates the last-activity timestamp.
	TouchLastActive(ctx context.Context, id shared.AccountID, at time.Time) error

	// Exists reports whether the account is known to the engine.
	Exists(ctx context.Context, id shared.AccountID) (bool, error)
}
