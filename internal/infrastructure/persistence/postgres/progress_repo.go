package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/makerpath/progress-hub/internal/domain/progress"
	"github.com/makerpath/progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS RECORD REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// ProgressRepository implements progress.Repository for PostgreSQL.
type ProgressRepository struct {
	conn *Connection
}

// NewProgressRepository creates a new ProgressRepository.
func NewProgressRepository(conn *Connection) *ProgressRepository {
	return &ProgressRepository{conn: conn}
}

const progressColumns = `id, owner_kind, owner_id, kind, unit_index, payload,
	   linked_email, linked_account, migrated_at, created_at, updated_at`

// Save upserts a record keyed by (owner, kind, unit index).
func (r *ProgressRepository) Save(ctx context.Context, record *progress.Record) error {
	query := `
		INSERT INTO progress_records (
			id, owner_kind, owner_id, kind, unit_index, payload,
			linked_email, linked_account, migrated_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (owner_kind, owner_id, kind, unit_index) DO UPDATE SET
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at
	`

	var linkedEmail, linkedAccount *string
	if !record.LinkedEmail.IsEmpty() {
		v := record.LinkedEmail.String()
		linkedEmail = &v
	}
	if !record.LinkedAccount.IsEmpty() {
		v := record.LinkedAccount.String()
		linkedAccount = &v
	}

	_, err := r.conn.Exec(ctx, query,
		record.ID,
		record.Owner.Kind.String(),
		record.Owner.ID,
		record.Kind.String(),
		record.UnitIndex,
		[]byte(record.Payload),
		linkedEmail,
		linkedAccount,
		record.MigratedAt,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save progress record: %w", err)
	}
	return nil
}

// Get returns the record for (owner, kind, unit index).
func (r *ProgressRepository) Get(ctx context.Context, owner shared.OwnerRef, kind shared.RecordKind, unitIndex int) (*progress.Record, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM progress_records
		WHERE owner_kind = $1 AND owner_id = $2 AND kind = $3 AND unit_index = $4
	`, progressColumns)

	row := r.conn.QueryRow(ctx, query, owner.Kind.String(), owner.ID, kind.String(), unitIndex)
	return r.scanRecord(row)
}

// ListByOwner returns every record belonging to an owner.
func (r *ProgressRepository) ListByOwner(ctx context.Context, owner shared.OwnerRef) ([]*progress.Record, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM progress_records
		WHERE owner_kind = $1 AND owner_id = $2
		ORDER BY kind, unit_index
	`, progressColumns)

	return r.queryRecords(ctx, query, owner.Kind.String(), owner.ID)
}

// ListUnmigratedByOwner returns the owner's records without a migration stamp.
func (r *ProgressRepository) ListUnmigratedByOwner(ctx context.Context, owner shared.OwnerRef) ([]*progress.Record, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM progress_records
		WHERE owner_kind = $1 AND owner_id = $2 AND migrated_at IS NULL
		ORDER BY kind, unit_index
	`, progressColumns)

	return r.queryRecords(ctx, query, owner.Kind.String(), owner.ID)
}

// LinkEmailToVisitor stamps the email onto unclaimed records.
// First write wins: records already claimed by a different email are
// counted but left untouched.
func (r *ProgressRepository) LinkEmailToVisitor(ctx context.Context, visitorID shared.VisitorID, email shared.Email) (int, int, error) {
	linkQuery := `
		UPDATE progress_records
		SET linked_email = $3, updated_at = NOW()
		WHERE owner_kind = $1 AND owner_id = $2 AND linked_email IS NULL
	`
	tag, err := r.conn.Exec(ctx, linkQuery, shared.OwnerVisitor.String(), visitorID.String(), email.String())
	if err != nil {
		return 0, 0, fmt.Errorf("failed to link email: %w", err)
	}
	linked := int(tag.RowsAffected())

	keptQuery := `
		SELECT COUNT(*) FROM progress_records
		WHERE owner_kind = $1 AND owner_id = $2 AND linked_email IS NOT NULL AND linked_email != $3
	`
	var kept int
	if err := r.conn.QueryRow(ctx, keptQuery, shared.OwnerVisitor.String(), visitorID.String(), email.String()).Scan(&kept); err != nil {
		return 0, 0, fmt.Errorf("failed to count kept records: %w", err)
	}

	return linked, kept, nil
}

// LinkAccountToVisitor stamps the account onto unclaimed records, same
// first-write-wins contract as LinkEmailToVisitor.
func (r *ProgressRepository) LinkAccountToVisitor(ctx context.Context, visitorID shared.VisitorID, accountID shared.AccountID) (int, int, error) {
	linkQuery := `
		UPDATE progress_records
		SET linked_account = $3, updated_at = NOW()
		WHERE owner_kind = $1 AND owner_id = $2 AND linked_account IS NULL
	`
	tag, err := r.conn.Exec(ctx, linkQuery, shared.OwnerVisitor.String(), visitorID.String(), accountID.String())
	if err != nil {
		return 0, 0, fmt.Errorf("failed to link account: %w", err)
	}
	linked := int(tag.RowsAffected())

	keptQuery := `
		SELECT COUNT(*) FROM progress_records
		WHERE owner_kind = $1 AND owner_id = $2 AND linked_account IS NOT NULL AND linked_account != $3
	`
	var kept int
	if err := r.conn.QueryRow(ctx, keptQuery, shared.OwnerVisitor.String(), visitorID.String(), accountID.String()).Scan(&kept); err != nil {
		return 0, 0, fmt.Errorf("failed to count kept records: %w", err)
	}

	return linked, kept, nil
}

// MarkMigrated stamps the migration time and the destination account.
// Both columns keep an earlier stamp if one exists, so a migrate that runs
// before any explicit account link still claims the record.
func (r *ProgressRepository) MarkMigrated(ctx context.Context, recordID string, accountID shared.AccountID, at time.Time) error {
	query := `
		UPDATE progress_records
		SET migrated_at = COALESCE(migrated_at, $2),
		    linked_account = COALESCE(linked_account, $3),
		    updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.conn.Exec(ctx, query, recordID, at, accountID.String())
	if err != nil {
		return fmt.Errorf("failed to mark record migrated: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrRecordNotFound
	}
	return nil
}

// DeleteStaleVisitorRecords removes unlinked visitor records not touched
// since the cutoff.
func (r *ProgressRepository) DeleteStaleVisitorRecords(ctx context.Context, cutoff time.Time) (int, error) {
	query := `
		DELETE FROM progress_records
		WHERE owner_kind = $1
		  AND linked_email IS NULL
		  AND linked_account IS NULL
		  AND updated_at < $2
	`
	tag, err := r.conn.Exec(ctx, query, shared.OwnerVisitor.String(), cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale records: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scanning
// ─────────────────────────────────────────────────────────────────────────────

func (r *ProgressRepository) queryRecords(ctx context.Context, query string, args ...interface{}) ([]*progress.Record, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress records: %w", err)
	}
	defer rows.Close()

	var records []*progress.Record
	for rows.Next() {
		record, err := r.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (r *ProgressRepository) scanRecord(row pgx.Row) (*progress.Record, error) {
	var (
		record        progress.Record
		ownerKind     string
		ownerID       string
		kind          string
		payload       []byte
		linkedEmail   *string
		linkedAccount *string
	)

	err := row.Scan(
		&record.ID,
		&ownerKind,
		&ownerID,
		&kind,
		&record.UnitIndex,
		&payload,
		&linkedEmail,
		&linkedAccount,
		&record.MigratedAt,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to scan progress record: %w", err)
	}

	record.Owner = shared.OwnerRef{Kind: shared.OwnerKind(ownerKind), ID: ownerID}
	record.Kind = shared.RecordKind(kind)
	record.Payload = payload
	if linkedEmail != nil {
		record.LinkedEmail = shared.Email(*linkedEmail)
	}
	if linkedAccount != nil {
		record.LinkedAccount = shared.AccountID(*linkedAccount)
	}

	return &record, nil
}
