package streak

import (
	"context"

	"github.com/makerpath/progress-hub/internal/domain/shared"
)

// Repository defines storage operations for streak states.
// Implementations live in infrastructure/persistence.
type Repository interface {
	// Save upserts the streak state and its history window.
	Save(ctx context.Context, state *State) error

	// Get returns the account's streak state.
	// Returns shared.ErrStreakNotFound when absent.
	Get(ctx context.Context, accountID shared.AccountID) (*State, error)

	// GetOrNew returns the account's streak state, or a fresh empty one
	// when the account has never been active.
	GetOrNew(ctx context.Context, accountID shared.AccountID) (*State, error)
}
