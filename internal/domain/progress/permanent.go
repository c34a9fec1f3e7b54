package progress

import (
	"encoding/json"
	"time"

	"github.com/makerpath/progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PERMANENT RECORDS
// Migration copies visitor snapshots into these account-scoped entities.
// They are append-only: migration never updates or deletes them.
// ══════════════════════════════════════════════════════════════════════════════

// FormResponse is a migrated form snapshot owned by an account.
type FormResponse struct {
	// ID - internal unique identifier (UUID in string form).
	ID string

	// AccountID - the owning account.
	AccountID shared.AccountID

	// UnitIndex - position of the unit the form belongs to.
	UnitIndex int

	// Answers maps question keys to the learner's answers.
	Answers map[string]json.RawMessage

	// GeneratedContent is the personalized output stored with the form, if any.
	GeneratedContent json.RawMessage

	// SourceVisitorID - the visitor session the response was migrated from.
	// Empty when the response was written directly by the account.
	SourceVisitorID shared.VisitorID

	// CreatedAt - when the permanent copy was written.
	CreatedAt time.Time
}

// NewFormResponse creates a permanent form response from a decoded payload.
func NewFormResponse(id string, accountID shared.AccountID, unitIndex int, payload FormPayload, source shared.VisitorID) (*FormResponse, error) {
	if id == "" {
		return nil, shared.NewDomainError("progress", "NewFormResponse", shared.ErrEmptyValue, "form response id is required")
	}
	if accountID.IsEmpty() {
		return nil, shared.ErrInvalidAccountID
	}
	if unitIndex < 0 {
		return nil, shared.NewDomainError("progress", "NewFormResponse", shared.ErrNegativeValue, "unit index cannot be negative")
	}

	return &FormResponse{
		ID:               id,
		AccountID:        accountID,
		UnitIndex:        unitIndex,
		Answers:          payload.Responses,
		GeneratedContent: payload.GeneratedContent,
		SourceVisitorID:  source,
		CreatedAt:        time.Now().UTC(),
	}, nil
}

// ChecklistCompletion is a single migrated checklist item. Item completions
// are stored one row each so re-running a migration can skip the items that
// already exist without touching the rest.
type ChecklistCompletion struct {
	// ID - internal unique identifier (UUID in string form).
	ID string

	// AccountID - the owning account.
	AccountID shared.AccountID

	// UnitIndex - position of the unit the checklist belongs to.
	UnitIndex int

	// ItemID - the checked-off item.
	ItemID string

	// SourceVisitorID - the visitor session the completion was migrated from.
	SourceVisitorID shared.VisitorID

	// CreatedAt - when the permanent copy was written.
	CreatedAt time.Time
}

// NewChecklistCompletion creates a permanent checklist item completion.
func NewChecklistCompletion(id string, accountID shared.AccountID, unitIndex int, itemID string, source shared.VisitorID) (*ChecklistCompletion, error) {
	if id == "" {
		return nil, shared.NewDomainError("progress", "NewChecklistCompletion", shared.ErrEmptyValue, "completion id is required")
	}
	if accountID.IsEmpty() {
		return nil, shared.ErrInvalidAccountID
	}
	if unitIndex < 0 {
		return nil, shared.NewDomainError("progress", "NewChecklistCompletion", shared.ErrNegativeValue, "unit index cannot be negative")
	}
	if itemID == "" {
		return nil, shared.NewDomainError("progress", "NewChecklistCompletion", shared.ErrEmptyValue, "item id is required")
	}

	return &ChecklistCompletion{
		ID:              id,
		AccountID:       accountID,
		UnitIndex:       unitIndex,
		ItemID:          itemID,
		SourceVisitorID: source,
		CreatedAt:       time.Now().UTC(),
	}, nil
}
