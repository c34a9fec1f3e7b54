package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/makerpath/progress-hub/internal/domain/shared"
	"github.com/makerpath/progress-hub/internal/domain/streak"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// StreakRepository implements streak.Repository for PostgreSQL. The head
// state and the bounded history window are written in one transaction so a
// reader never sees a streak count that disagrees with its day entries.
type StreakRepository struct {
	conn *Connection
}

// NewStreakRepository creates a new StreakRepository.
func NewStreakRepository(conn *Connection) *StreakRepository {
	return &StreakRepository{conn: conn}
}

// Save upserts the streak state and replaces its history window.
func (r *StreakRepository) Save(ctx context.Context, state *streak.State) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		stateQuery := `
			INSERT INTO streak_states (account_id, current_streak, longest_streak, last_active_date, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (account_id) DO UPDATE SET
				current_streak = EXCLUDED.current_streak,
				longest_streak = EXCLUDED.longest_streak,
				last_active_date = EXCLUDED.last_active_date,
				updated_at = EXCLUDED.updated_at
		`

		var lastActive interface{}
		if !state.LastActiveDate.IsZero() {
			lastActive = state.LastActiveDate
		}

		_, err := tx.Exec(ctx, stateQuery,
			state.AccountID.String(),
			state.Current,
			state.Longest,
			lastActive,
			state.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save streak state: %w", err)
		}

		// The domain already trims History to the window, so replacing the
		// rows wholesale keeps the table bounded too.
		if _, err := tx.Exec(ctx, `DELETE FROM streak_days WHERE account_id = $1`, state.AccountID.String()); err != nil {
			return fmt.Errorf("failed to clear streak history: %w", err)
		}

		dayQuery := `
			INSERT INTO streak_days (account_id, date, minutes, lessons_completed)
			VALUES ($1, $2, $3, $4)
		`
		for _, entry := range state.History {
			if _, err := tx.Exec(ctx, dayQuery, state.AccountID.String(), entry.Date, entry.Minutes, entry.LessonsCompleted); err != nil {
				return fmt.Errorf("failed to save streak day: %w", err)
			}
		}
		return nil
	})
}

// Get returns the account's streak state with its history window.
func (r *StreakRepository) Get(ctx context.Context, accountID shared.AccountID) (*streak.State, error) {
	stateQuery := `
		SELECT account_id, current_streak, longest_streak, last_active_date, updated_at
		FROM streak_states
		WHERE account_id = $1
	`

	var (
		state          streak.State
		id             string
		lastActiveDate *time.Time
	)
	err := r.conn.QueryRow(ctx, stateQuery, accountID.String()).Scan(
		&id, &state.Current, &state.Longest, &lastActiveDate, &state.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrStreakNotFound
		}
		return nil, fmt.Errorf("failed to scan streak state: %w", err)
	}
	state.AccountID = shared.AccountID(id)
	if lastActiveDate != nil {
		state.LastActiveDate = *lastActiveDate
	}

	historyQuery := `
		SELECT date, minutes, lessons_completed
		FROM streak_days
		WHERE account_id = $1
		ORDER BY date
	`
	rows, err := r.conn.Query(ctx, historyQuery, accountID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query streak history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry streak.DayEntry
		if err := rows.Scan(&entry.Date, &entry.Minutes, &entry.LessonsCompleted); err != nil {
			return nil, fmt.Errorf("failed to scan streak day: %w", err)
		}
		state.History = append(state.History, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &state, nil
}

// GetOrNew returns the stored state or a fresh one for unseen accounts.
func (r *StreakRepository) GetOrNew(ctx context.Context, accountID shared.AccountID) (*streak.State, error) {
	state, err := r.Get(ctx, accountID)
	if err != nil {
		if errors.Is(err, shared.ErrStreakNotFound) {
			return streak.NewState(accountID)
		}
		return nil, err
	}
	return state, nil
}
