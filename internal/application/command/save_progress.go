// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/makerpath/progress-hub/internal/domain/progress"
	"github.com/makerpath/progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SAVE PROGRESS COMMAND
// Upserts a progress snapshot for a visitor or account. At most one record
// exists per (owner, kind, unit index); a repeated save replaces the payload.
// ══════════════════════════════════════════════════════════════════════════════

// SaveProgressCommand contains the data to save a progress snapshot.
type SaveProgressCommand struct {
	// OwnerKind - "visitor" or "account".
	OwnerKind string

	// OwnerID - the visitor session or account identifier.
	OwnerID string

	// Kind - "form" or "checklist".
	Kind string

	// UnitIndex - position of the course unit.
	UnitIndex int

	// Payload - the raw snapshot to store.
	Payload json.RawMessage

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c SaveProgressCommand) Validate() error {
	if !shared.OwnerKind(c.OwnerKind).IsValid() {
		return errors.New("save_progress: owner kind must be visitor or account")
	}
	if c.OwnerID == "" {
		return errors.New("save_progress: owner id is required")
	}
	if _, err := shared.NewRecordKind(c.Kind); err != nil {
		return fmt.Errorf("save_progress: %w", err)
	}
	if c.UnitIndex < 0 {
		return errors.New("save_progress: unit index cannot be negative")
	}
	if len(c.Payload) == 0 {
		return errors.New("save_progress: payload is required")
	}
	if !json.Valid(c.Payload) {
		return errors.New("save_progress: payload must be valid JSON")
	}
	return nil
}

// owner builds the typed owner reference.
func (c SaveProgressCommand) owner() shared.OwnerRef {
	return shared.OwnerRef{Kind: shared.OwnerKind(c.OwnerKind), ID: c.OwnerID}
}

// SaveProgressResult contains the result of saving a snapshot.
type SaveProgressResult struct {
	// RecordID - the stored record's ID.
	RecordID string

	// Created - true when a new record was created, false on replace.
	Created bool
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// SaveProgressHandler handles the SaveProgressCommand.
type SaveProgressHandler struct {
	progressRepo progress.Repository
}

// NewSaveProgressHandler creates a new SaveProgressHandler.
func NewSaveProgressHandler(progressRepo progress.Repository) *SaveProgressHandler {
	return &SaveProgressHandler{progressRepo: progressRepo}
}

// Handle executes the save progress command.
func (h *SaveProgressHandler) Handle(ctx context.Context, cmd SaveProgressCommand) (*SaveProgressResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("save_progress: validation failed: %w", err)
	}

	owner := cmd.owner()
	kind := shared.RecordKind(cmd.Kind)

	existing, err := h.progressRepo.Get(ctx, owner, kind, cmd.UnitIndex)
	switch {
	case err == nil:
		if err := existing.Replace(cmd.Payload); err != nil {
			return nil, fmt.Errorf("save_progress: %w", err)
		}
		if err := h.progressRepo.Save(ctx, existing); err != nil {
			return nil, fmt.Errorf("save_progress: failed to save record: %w", err)
		}
		return &SaveProgressResult{RecordID: existing.ID, Created: false}, nil

	case shared.IsNotFound(err):
		record, err := progress.NewRecord(progress.NewRecordParams{
			ID:        uuid.NewString(),
			Owner:     owner,
			Kind:      kind,
			UnitIndex: cmd.UnitIndex,
			Payload:   cmd.Payload,
		})
		if err != nil {
			return nil, fmt.Errorf("save_progress: %w", err)
		}
		if err := h.progressRepo.Save(ctx, record); err != nil {
			return nil, fmt.Errorf("save_progress: failed to save record: %w", err)
		}
		return &SaveProgressResult{RecordID: record.ID, Created: true}, nil

	default:
		return nil, fmt.Errorf("save_progress: failed to load record: %w", err)
	}
}
