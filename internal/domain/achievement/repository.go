package achievement

import (
	"context"

	"github.com/makerpath/progress-hub/internal/domain/shared"
)

// Repository defines storage operations for achievement grants.
// Implementations live in infrastructure/persistence.
type Repository interface {
	// Insert writes a grant if the account does not hold the achievement
	// yet. Returns true when a new grant was written.
	Insert(ctx context.Context, grant *Grant) (bool, error)

	// ListCodes returns the codes the account already holds.
	ListCodes(ctx context.Context, accountID shared.AccountID) (map[string]bool, error)

	// ListByAccount returns the account's grants ordered by grant time.
	ListByAccount(ctx context.Context, accountID shared.AccountID) ([]*Grant, error)

	// MarkNotified records that the learner has been shown the grant.
	MarkNotified(ctx context.Context, accountID shared.AccountID, code string) error
}
