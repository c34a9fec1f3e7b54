package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/makerpath/progress-hub/internal/domain/progress"
	"github.com/makerpath/progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESS RECORDS QUERY
// Returns the saved snapshots for an owner so the site can rehydrate forms
// and checklists. Works for anonymous visitors and for accounts alike.
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressQuery contains parameters for the snapshot read.
type GetProgressQuery struct {
	// OwnerKind - "visitor" or "account".
	OwnerKind string

	// OwnerID - visitor session ID or account ID.
	OwnerID string

	// Kind - filter by record kind. Empty returns both kinds.
	Kind string

	// UnitIndex - filter to a single unit. Negative means all units.
	UnitIndex int
}

// Validate checks the query parameters.
func (q *GetProgressQuery) Validate() error {
	if q.OwnerID == "" {
		return errors.New("owner_id is required")
	}
	if q.OwnerKind == "" {
		q.OwnerKind = shared.OwnerVisitor.String()
	}
	return nil
}

// ProgressRecordDTO is one saved snapshot.
type ProgressRecordDTO struct {
	ID            string          `json:"id"`
	Kind          string          `json:"kind"`
	UnitIndex     int             `json:"unit_index"`
	Payload       json.RawMessage `json:"payload"`
	LinkedEmail   string          `json:"linked_email,omitempty"`
	LinkedAccount string          `json:"linked_account,omitempty"`
	Migrated      bool            `json:"migrated"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ProgressDTO is the owner's full snapshot set.
type ProgressDTO struct {
	OwnerKind string              `json:"owner_kind"`
	OwnerID   string              `json:"owner_id"`
	Records   []ProgressRecordDTO `json:"records"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressHandler handles the GetProgressQuery.
type GetProgressHandler struct {
	progressRepo progress.Repository
}

// NewGetProgressHandler creates a new GetProgressHandler.
func NewGetProgressHandler(progressRepo progress.Repository) *GetProgressHandler {
	return &GetProgressHandler{progressRepo: progressRepo}
}

// Handle executes the snapshot query.
func (h *GetProgressHandler) Handle(ctx context.Context, query GetProgressQuery) (*ProgressDTO, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("get_progress: validation failed: %w", err)
	}

	owner, err := ownerFromQuery(query)
	if err != nil {
		return nil, fmt.Errorf("get_progress: %w", err)
	}

	var kindFilter *shared.RecordKind
	if query.Kind != "" {
		kind, err := shared.NewRecordKind(query.Kind)
		if err != nil {
			return nil, fmt.Errorf("get_progress: %w", err)
		}
		kindFilter = &kind
	}

	records, err := h.progressRepo.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("get_progress: failed to list records: %w", err)
	}

	result := &ProgressDTO{
		OwnerKind: owner.Kind.String(),
		OwnerID:   owner.ID,
		Records:   make([]ProgressRecordDTO, 0, len(records)),
	}
	for _, record := range records {
		if kindFilter != nil && record.Kind != *kindFilter {
			continue
		}
		if query.UnitIndex >= 0 && record.UnitIndex != query.UnitIndex {
			continue
		}
		result.Records = append(result.Records, ProgressRecordDTO{
			ID:            record.ID,
			Kind:          record.Kind.String(),
			UnitIndex:     record.UnitIndex,
			Payload:       record.Payload,
			LinkedEmail:   record.LinkedEmail.String(),
			LinkedAccount: record.LinkedAccount.String(),
			Migrated:      record.IsMigrated(),
			UpdatedAt:     record.UpdatedAt,
		})
	}

	return result, nil
}

func ownerFromQuery(query GetProgressQuery) (shared.OwnerRef, error) {
	switch shared.OwnerKind(query.OwnerKind) {
	case shared.OwnerVisitor:
		visitorID, err := shared.NewVisitorID(query.OwnerID)
		if err != nil {
			return shared.OwnerRef{}, err
		}
		return shared.VisitorOwner(visitorID), nil
	case shared.OwnerAccount:
		accountID, err := shared.NewAccountID(query.OwnerID)
		if err != nil {
			return shared.OwnerRef{}, err
		}
		return shared.AccountOwner(accountID), nil
	default:
		return shared.OwnerRef{}, shared.ErrInvalidOwner
	}
}
