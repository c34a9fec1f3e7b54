package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/makerpath/progress-hub/internal/domain/content"
	"github.com/makerpath/progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETION STATE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// CompletionRepository implements content.CompletionRepository for PostgreSQL.
type CompletionRepository struct {
	conn *Connection
}

// NewCompletionRepository creates a new CompletionRepository.
func NewCompletionRepository(conn *Connection) *CompletionRepository {
	return &CompletionRepository{conn: conn}
}

// Save upserts a completion state keyed by (account, unit).
func (r *CompletionRepository) Save(ctx context.Context, state *content.CompletionState) error {
	query := `
		INSERT INTO completion_states (
			account_id, unit_slug, status, completed_sub_units, quiz_score,
			time_spent_minutes, started_at, completed_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (account_id, unit_slug) DO UPDATE SET
			status = EXCLUDED.status,
			completed_sub_units = EXCLUDED.completed_sub_units,
			quiz_score = EXCLUDED.quiz_score,
			time_spent_minutes = EXCLUDED.time_spent_minutes,
			completed_at = EXCLUDED.completed_at,
			updated_at = EXCLUDED.updated_at
	`

	subUnits, err := json.Marshal(state.CompletedSubUnits)
	if err != nil {
		return fmt.Errorf("failed to marshal sub-units: %w", err)
	}

	_, err = r.conn.Exec(ctx, query,
		state.AccountID.String(),
		state.Unit.String(),
		state.Status.String(),
		subUnits,
		state.QuizScore,
		state.TimeSpentMinutes,
		state.StartedAt,
		state.CompletedAt,
		state.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save completion state: %w", err)
	}
	return nil
}

// Get returns the state for (account, unit).
func (r *CompletionRepository) Get(ctx context.Context, accountID shared.AccountID, unit shared.UnitSlug) (*content.CompletionState, error) {
	query := `
		SELECT account_id, unit_slug, status, completed_sub_units, quiz_score,
			   time_spent_minutes, started_at, completed_at, updated_at
		FROM completion_states
		WHERE account_id = $1 AND unit_slug = $2
	`
	return r.scanState(r.conn.QueryRow(ctx, query, accountID.String(), unit.String()))
}

// ListByAccount returns all completion states for an account.
func (r *CompletionRepository) ListByAccount(ctx context.Context, accountID shared.AccountID) (map[shared.UnitSlug]*content.CompletionState, error) {
	query := `
		SELECT account_id, unit_slug, status, completed_sub_units, quiz_score,
			   time_spent_minutes, started_at, completed_at, updated_at
		FROM completion_states
		WHERE account_id = $1
	`

	rows, err := r.conn.Query(ctx, query, accountID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query completion states: %w", err)
	}
	defer rows.Close()

	states := make(map[shared.UnitSlug]*content.CompletionState)
	for rows.Next() {
		state, err := r.scanState(rows)
		if err != nil {
			return nil, err
		}
		states[state.Unit] = state
	}
	return states, rows.Err()
}

// CountCompleted returns how many of the given units the account completed.
func (r *CompletionRepository) CountCompleted(ctx context.Context, accountID shared.AccountID, slugs []shared.UnitSlug) (int, error) {
	if len(slugs) == 0 {
		return 0, nil
	}

	raw := make([]string, len(slugs))
	for i, s := range slugs {
		raw[i] = s.String()
	}

	query := `
		SELECT COUNT(*) FROM completion_states
		WHERE account_id = $1 AND status = 'completed' AND unit_slug = ANY($2)
	`
	var count int
	if err := r.conn.QueryRow(ctx, query, accountID.String(), raw).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count completed units: %w", err)
	}
	return count, nil
}

func (r *CompletionRepository) scanState(row pgx.Row) (*content.CompletionState, error) {
	var (
		state     content.CompletionState
		accountID string
		slug      string
		status    string
		subUnits  []byte
	)

	err := row.Scan(
		&accountID,
		&slug,
		&status,
		&subUnits,
		&state.QuizScore,
		&state.TimeSpentMinutes,
		&state.StartedAt,
		&state.CompletedAt,
		&state.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrCompletionNotFound
		}
		return nil, fmt.Errorf("failed to scan completion state: %w", err)
	}

	if err := json.Unmarshal(subUnits, &state.CompletedSubUnits); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sub-units: %w", err)
	}
	state.AccountID = shared.AccountID(accountID)
	state.Unit = shared.UnitSlug(slug)
	state.Status = content.Status(status)
	return &state, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// UNLOCK RECORD REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// UnlockRepository implements content.UnlockRepository for PostgreSQL.
type UnlockRepository struct {
	conn *Connection
}

// NewUnlockRepository creates a new UnlockRepository.
func NewUnlockRepository(conn *Connection) *UnlockRepository {
	return &UnlockRepository{conn: conn}
}

// Insert writes an unlock record if one does not exist for (account, unit).
// The primary key keeps unlocks monotonic under concurrent evaluation.
func (r *UnlockRepository) Insert(ctx context.Context, record *content.UnlockRecord) (bool, error) {
	query := `
		INSERT INTO unlock_records (account_id, unit_slug, reason, unlocked_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id, unit_slug) DO NOTHING
	`

	tag, err := r.conn.Exec(ctx, query,
		record.AccountID.String(),
		record.Unit.String(),
		record.Reason.String(),
		record.UnlockedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert unlock record: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// IsUnlocked reports whether the unit is unlocked for the account.
func (r *UnlockRepository) IsUnlocked(ctx context.Context, accountID shared.AccountID, unit shared.UnitSlug) (bool, error) {
	var unlocked bool
	err := r.conn.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM unlock_records WHERE account_id = $1 AND unit_slug = $2)`,
		accountID.String(), unit.String(),
	).Scan(&unlocked)
	if err != nil {
		return false, fmt.Errorf("failed to check unlock: %w", err)
	}
	return unlocked, nil
}

// ListByAccount returns the account's unlock records ordered by time.
func (r *UnlockRepository) ListByAccount(ctx context.Context, accountID shared.AccountID) ([]*content.UnlockRecord, error) {
	query := `
		SELECT account_id, unit_slug, reason, unlocked_at
		FROM unlock_records
		WHERE account_id = $1
		ORDER BY unlocked_at
	`

	rows, err := r.conn.Query(ctx, query, accountID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query unlock records: %w", err)
	}
	defer rows.Close()

	var records []*content.UnlockRecord
	for rows.Next() {
		var (
			record    content.UnlockRecord
			accountID string
			slug      string
			reason    string
		)
		if err := rows.Scan(&accountID, &slug, &reason, &record.UnlockedAt); err != nil {
			return nil, fmt.Errorf("failed to scan unlock record: %w", err)
		}
		record.AccountID = shared.AccountID(accountID)
		record.Unit = shared.UnitSlug(slug)
		record.Reason = content.UnlockReason(reason)
		records = append(records, &record)
	}
	return records, rows.Err()
}
