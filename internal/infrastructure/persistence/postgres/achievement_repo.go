package postgres

import (
	"context"
	"fmt"

	"github.com/makerpath/progress-hub/internal/domain/achievement"
	"github.com/makerpath/progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT GRANT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// AchievementRepository implements achievement.Repository for PostgreSQL.
type AchievementRepository struct {
	conn *Connection
}

// NewAchievementRepository creates a new AchievementRepository.
func NewAchievementRepository(conn *Connection) *AchievementRepository {
	return &AchievementRepository{conn: conn}
}

// Insert writes a grant if the account does not hold the code yet.
// The primary key enforces at-most-once under concurrent sweeps.
func (r *AchievementRepository) Insert(ctx context.Context, grant *achievement.Grant) (bool, error) {
	query := `
		INSERT INTO achievement_grants (account_id, code, reward_xp, secret, granted_at, notified)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (account_id, code) DO NOTHING
	`

	tag, err := r.conn.Exec(ctx, query,
		grant.AccountID.String(),
		grant.Code,
		grant.RewardXP,
		grant.Secret,
		grant.GrantedAt,
		grant.Notified,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert achievement grant: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListCodes returns the codes the account already holds.
func (r *AchievementRepository) ListCodes(ctx context.Context, accountID shared.AccountID) (map[string]bool, error) {
	rows, err := r.conn.Query(ctx,
		`SELECT code FROM achievement_grants WHERE account_id = $1`,
		accountID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query achievement codes: %w", err)
	}
	defer rows.Close()

	codes := make(map[string]bool)
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan achievement code: %w", err)
		}
		codes[code] = true
	}
	return codes, rows.Err()
}

// ListByAccount returns the account's grants ordered by grant time.
func (r *AchievementRepository) ListByAccount(ctx context.Context, accountID shared.AccountID) ([]*achievement.Grant, error) {
	query := `
		SELECT account_id, code, reward_xp, secret, granted_at, notified
		FROM achievement_grants
		WHERE account_id = $1
		ORDER BY granted_at
	`

	rows, err := r.conn.Query(ctx, query, accountID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query achievement grants: %w", err)
	}
	defer rows.Close()

	var grants []*achievement.Grant
	for rows.Next() {
		var (
			grant achievement.Grant
			id    string
		)
		err := rows.Scan(&id, &grant.Code, &grant.RewardXP, &grant.Secret, &grant.GrantedAt, &grant.Notified)
		if err != nil {
			return nil, fmt.Errorf("failed to scan achievement grant: %w", err)
		}
		grant.AccountID = shared.AccountID(id)
		grants = append(grants, &grant)
	}
	return grants, rows.Err()
}

// MarkNotified records that the learner has been shown the grant.
func (r *AchievementRepository) MarkNotified(ctx context.Context, accountID shared.AccountID, code string) error {
	query := `UPDATE achievement_grants SET notified = TRUE WHERE account_id = $1 AND code = $2`

	tag, err := r.conn.Exec(ctx, query, accountID.String(), code)
	if err != nil {
		return fmt.Errorf("failed to mark grant notified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrAchievementNotFound
	}
	return nil
}
