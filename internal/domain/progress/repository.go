package progress

import (
	"context"
	"time"

	"github.com/makerpath/progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// These interfaces define the storage contract. Implementations live in
// infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository defines operations on visitor/account progress records.
type Repository interface {
	// ─────────────────────────────────────────────────────────────────────────
	// Record Operations
	// ─────────────────────────────────────────────────────────────────────────

	// Save upserts a record keyed by (owner, kind, unit index).
	// A repeated save replaces the payload in full.
	Save(ctx context.Context, record *Record) error

	// Get returns the record for (owner, kind, unit index).
	// Returns shared.ErrRecordNotFound when absent.
	Get(ctx context.Context, owner shared.OwnerRef, kind shared.RecordKind, unitIndex int) (*Record, error)

	// ListByOwner returns every record belonging to an owner,
	// ordered by kind then unit index.
	ListByOwner(ctx context.Context, owner shared.OwnerRef) ([]*Record, error)

	// ListUnmigratedByOwner returns the owner's records that have not been
	// migrated yet, in the same order as ListByOwner.
	ListUnmigratedByOwner(ctx context.Context, owner shared.OwnerRef) ([]*Record, error)

	// ─────────────────────────────────────────────────────────────────────────
	// Identity Linking
	// ─────────────────────────────────────────────────────────────────────────

	// LinkEmailToVisitor stamps the email onto the visitor's records that
	// carry no email yet. Returns how many were stamped and how many were
	// left untouched because a different email got there first.
	LinkEmailToVisitor(ctx context.Context, visitorID shared.VisitorID, email shared.Email) (linked, kept int, err error)

	// LinkAccountToVisitor stamps the account onto the visitor's records
	// that carry no account yet, same first-write-wins contract.
	LinkAccountToVisitor(ctx context.Context, visitorID shared.VisitorID, accountID shared.AccountID) (linked, kept int, err error)

	// ─────────────────────────────────────────────────────────────────────────
	// Migration Bookkeeping
	// ─────────────────────────────────────────────────────────────────────────

	// MarkMigrated stamps the migration time and the destination account
	// on a record. Safe to repeat: both stamps keep their first value.
	MarkMigrated(ctx context.Context, recordID string, accountID shared.AccountID, at time.Time) error

	// ─────────────────────────────────────────────────────────────────────────
	// Maintenance
	// ─────────────────────────────────────────────────────────────────────────

	// DeleteStaleVisitorRecords removes unlinked visitor records not touched
	// since the cutoff. Returns the number removed.
	DeleteStaleVisitorRecords(ctx context.Context, cutoff time.Time) (int, error)
}

// FormResponseRepository defines operations on permanent form responses.
type FormResponseRepository interface {
	// Insert writes a permanent form response.
	Insert(ctx context.Context, response *FormResponse) error

	// Exists reports whether the account already has a response for the unit.
	Exists(ctx context.Context, accountID shared.AccountID, unitIndex int) (bool, error)

	// Get returns the response for (account, unit index).
	// Returns shared.ErrRecordNotFound when absent.
	Get(ctx context.Context, accountID shared.AccountID, unitIndex int) (*FormResponse, error)

	// ListByAccount returns all responses for an account, ordered by unit index.
	ListByAccount(ctx context.Context, accountID shared.AccountID) ([]*FormResponse, error)
}

// ChecklistRepository defines operations on permanent checklist completions.
type ChecklistRepository interface {
	// Insert writes a single item completion.
	Insert(ctx context.Context, completion *ChecklistCompletion) error

	// ListItemIDs returns the already-completed item IDs for (account, unit index).
	ListItemIDs(ctx context.Context, accountID shared.AccountID, unitIndex int) ([]string, error)

	// ListByAccount returns all completions for an account,
	// ordered by unit index then item ID.
	ListByAccount(ctx context.Context, accountID shared.AccountID) ([]*ChecklistCompletion, error)
}
