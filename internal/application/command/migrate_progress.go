package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/makerpath/progress-hub/internal/domain/progress"
	"github.com/makerpath/progress-hub/internal/domain/shared"
	"github.com/makerpath/progress-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATE PROGRESS COMMAND
// Copies a visitor's saved snapshots into permanent account storage. The
// whole command is idempotent and each record is processed in isolation:
// one bad record never blocks the rest.
// ══════════════════════════════════════════════════════════════════════════════

// MigrateProgressCommand migrates a visitor's records to an account.
type MigrateProgressCommand struct {
	// VisitorID - the session whose records are migrated.
	VisitorID string

	// AccountID - the destination account.
	AccountID string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c MigrateProgressCommand) Validate() error {
	if c.VisitorID == "" {
		return errors.New("migrate_progress: visitor id is required")
	}
	if c.AccountID == "" {
		return errors.New("migrate_progress: account id is required")
	}
	return nil
}

// MigrateProgressResult reports what the migration did.
type MigrateProgressResult struct {
	// FormsMigrated - form snapshots copied to permanent storage.
	FormsMigrated int

	// ItemsMigrated - checklist items copied to permanent storage.
	ItemsMigrated int

	// Skipped - records (or items) that already existed on the account.
	Skipped int

	// Malformed - records whose payload could not be decoded. They are
	// marked migrated anyway so the migration never retries them.
	Malformed int
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// MigrateProgressHandler handles the MigrateProgressCommand.
type MigrateProgressHandler struct {
	progressRepo   progress.Repository
	formRepo       progress.FormResponseRepository
	checklistRepo  progress.ChecklistRepository
	eventPublisher shared.EventPublisher
	log            *logger.Logger
}

// NewMigrateProgressHandler creates a new MigrateProgressHandler.
func NewMigrateProgressHandler(
	progressRepo progress.Repository,
	formRepo progress.FormResponseRepository,
	checklistRepo progress.ChecklistRepository,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *MigrateProgressHandler {
	return &MigrateProgressHandler{
		progressRepo:   progressRepo,
		formRepo:       formRepo,
		checklistRepo:  checklistRepo,
		eventPublisher: eventPublisher,
		log:            log.With(logger.Component("migration")),
	}
}

// Handle executes the migration. Re-running with the same arguments is
// safe: migrated records are skipped via their migration stamp, and the
// permanent stores are checked before every insert in case an earlier run
// stopped between the copy and the stamp.
func (h *MigrateProgressHandler) Handle(ctx context.Context, cmd MigrateProgressCommand) (*MigrateProgressResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("migrate_progress: validation failed: %w", err)
	}

	visitorID, err := shared.NewVisitorID(cmd.VisitorID)
	if err != nil {
		return nil, fmt.Errorf("migrate_progress: %w", err)
	}
	accountID, err := shared.NewAccountID(cmd.AccountID)
	if err != nil {
		return nil, fmt.Errorf("migrate_progress: %w", err)
	}

	records, err := h.progressRepo.ListUnmigratedByOwner(ctx, shared.VisitorOwner(visitorID))
	if err != nil {
		return nil, fmt.Errorf("migrate_progress: failed to list records: %w", err)
	}

	result := &MigrateProgressResult{}
	log := h.log.With(logger.VisitorID(visitorID.String()), logger.AccountID(accountID.String()))

	for _, record := range records {
		if err := h.migrateRecord(ctx, record, visitorID, accountID, result, log); err != nil {
			// Record-level isolation: log and keep going. The record stays
			// unmigrated and the next run picks it up again.
			log.Error("record migration failed",
				logger.String("record_id", record.ID),
				logger.RecordKind(record.Kind.String()),
				logger.UnitIndex(record.UnitIndex),
				logger.Err(err))
			continue
		}
		if err := h.progressRepo.MarkMigrated(ctx, record.ID, accountID, time.Now().UTC()); err != nil {
			log.Error("failed to stamp migrated record",
				logger.String("record_id", record.ID), logger.Err(err))
		}
	}

	event := shared.NewMigrationCompletedEvent(
		accountID.String(), visitorID.String(),
		result.FormsMigrated, result.ItemsMigrated, result.Skipped, result.Malformed,
	)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.eventPublisher.Publish(event)

	log.Info("migration completed",
		logger.Int("forms_migrated", result.FormsMigrated),
		logger.Int("items_migrated", result.ItemsMigrated),
		logger.Int("skipped", result.Skipped),
		logger.Int("malformed", result.Malformed))

	return result, nil
}

// migrateRecord copies one record into permanent storage. Malformed
// payloads are counted, logged, and treated as handled so they never block
// future runs.
func (h *MigrateProgressHandler) migrateRecord(
	ctx context.Context,
	record *progress.Record,
	visitorID shared.VisitorID,
	accountID shared.AccountID,
	result *MigrateProgressResult,
	log *logger.Logger,
) error {
	switch record.Kind {
	case shared.RecordForm:
		return h.migrateForm(ctx, record, visitorID, accountID, result, log)
	case shared.RecordChecklist:
		return h.migrateChecklist(ctx, record, visitorID, accountID, result, log)
	default:
		return shared.ErrInvalidRecordKind
	}
}

func (h *MigrateProgressHandler) migrateForm(
	ctx context.Context,
	record *progress.Record,
	visitorID shared.VisitorID,
	accountID shared.AccountID,
	result *MigrateProgressResult,
	log *logger.Logger,
) error {
	payload, err := progress.DecodeFormPayload(record.Payload)
	if err != nil {
		result.Malformed++
		log.Warn("skipping malformed form payload",
			logger.String("record_id", record.ID),
			logger.UnitIndex(record.UnitIndex),
			logger.Err(err))
		return nil
	}

	exists, err := h.formRepo.Exists(ctx, accountID, record.UnitIndex)
	if err != nil {
		return fmt.Errorf("failed to check form response: %w", err)
	}
	if exists {
		result.Skipped++
		return nil
	}

	response, err := progress.NewFormResponse(uuid.NewString(), accountID, record.UnitIndex, payload, visitorID)
	if err != nil {
		return err
	}
	if err := h.formRepo.Insert(ctx, response); err != nil {
		if shared.IsAlreadyExists(err) {
			result.Skipped++
			return nil
		}
		return fmt.Errorf("failed to insert form response: %w", err)
	}

	result.FormsMigrated++
	return nil
}

func (h *MigrateProgressHandler) migrateChecklist(
	ctx context.Context,
	record *progress.Record,
	visitorID shared.VisitorID,
	accountID shared.AccountID,
	result *MigrateProgressResult,
	log *logger.Logger,
) error {
	payload, err := progress.DecodeChecklistPayload(record.Payload)
	if err != nil {
		result.Malformed++
		log.Warn("skipping malformed checklist payload",
			logger.String("record_id", record.ID),
			logger.UnitIndex(record.UnitIndex),
			logger.Err(err))
		return nil
	}

	existing, err := h.checklistRepo.ListItemIDs(ctx, accountID, record.UnitIndex)
	if err != nil {
		return fmt.Errorf("failed to list checklist items: %w", err)
	}
	done := make(map[string]bool, len(existing))
	for _, id := range existing {
		done[id] = true
	}

	for _, itemID := range payload.CompletedItems {
		if done[itemID] {
			result.Skipped++
			continue
		}
		completion, err := progress.NewChecklistCompletion(uuid.NewString(), accountID, record.UnitIndex, itemID, visitorID)
		if err != nil {
			return err
		}
		if err := h.checklistRepo.Insert(ctx, completion); err != nil {
			if shared.IsAlreadyExists(err) {
				result.Skipped++
				continue
			}
			return fmt.Errorf("failed to insert checklist item: %w", err)
		}
		result.ItemsMigrated++
		done[itemID] = true
	}

	return nil
}
