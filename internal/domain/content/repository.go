package content

import (
	"context"

	"github.com/makerpath/progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// CompletionRepository defines storage operations for completion states.
type CompletionRepository interface {
	// Save upserts a completion state keyed by (account, unit).
	Save(ctx context.Context, state *CompletionState) error

	// Get returns the state for (account, unit).
	// Returns shared.ErrCompletionNotFound when absent.
	Get(ctx context.Context, accountID shared.AccountID, unit shared.UnitSlug) (*CompletionState, error)

	// ListByAccount returns all completion states for an account,
	// keyed by unit slug.
	ListByAccount(ctx context.Context, accountID shared.AccountID) (map[shared.UnitSlug]*CompletionState, error)

	// CountCompleted returns how many units of the given kind the account
	// has completed. The kind filter uses the catalog at the call site,
	// so the repository only counts by slug set.
	CountCompleted(ctx context.Context, accountID shared.AccountID, slugs []shared.UnitSlug) (int, error)
}

// UnlockRepository defines storage operations for unlock records.
type UnlockRepository interface {
	// Insert writes an unlock record if one does not exist for
	// (account, unit). Returns true when a new record was written.
	// Unlocks are monotonic: nothing ever deletes them.
	Insert(ctx context.Context, record *UnlockRecord) (bool, error)

	// IsUnlocked reports whether the unit is unlocked for the account.
	IsUnlocked(ctx context.Context, accountID shared.AccountID, unit shared.UnitSlug) (bool, error)

	// ListByAccount returns the account's unlock records ordered by time.
	ListByAccount(ctx context.Context, accountID shared.AccountID) ([]*UnlockRecord, error)
}
