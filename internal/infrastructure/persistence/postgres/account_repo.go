package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/makerpath/progress-hub/internal/domain/identity"
	"github.com/makerpath/progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACCOUNT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// AccountRepository implements identity.Repository for PostgreSQL.
type AccountRepository struct {
	conn *Connection
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(conn *Connection) *AccountRepository {
	return &AccountRepository{conn: conn}
}

// Create stores a new account.
func (r *AccountRepository) Create(ctx context.Context, account *identity.Account) error {
	query := `
		INSERT INTO accounts (id, email, total_xp, last_active_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.conn.Exec(ctx, query,
		account.ID.String(),
		account.Email.String(),
		account.TotalXP.Int(),
		account.LastActiveAt,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAccountAlreadyExists
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetByID returns the account with the given ID.
func (r *AccountRepository) GetByID(ctx context.Context, id shared.AccountID) (*identity.Account, error) {
	query := `
		SELECT id, email, total_xp, last_active_at, created_at, updated_at
		FROM accounts WHERE id = $1
	`
	return r.scanAccount(r.conn.QueryRow(ctx, query, id.String()))
}

// GetByEmail returns the account registered under the normalized email.
func (r *AccountRepository) GetByEmail(ctx context.Context, email shared.Email) (*identity.Account, error) {
	query := `
		SELECT id, email, total_xp, last_active_at, created_at, updated_at
		FROM accounts WHERE email = $1
	`
	return r.scanAccount(r.conn.QueryRow(ctx, query, email.String()))
}

// AddXP atomically credits XP and returns the new total. The credit is
// capped at the XP ceiling in SQL so concurrent sweeps cannot overflow it.
func (r *AccountRepository) AddXP(ctx context.Context, id shared.AccountID, amount int) (shared.XP, error) {
	query := `
		UPDATE accounts
		SET total_xp = LEAST(total_xp + $2, $3), updated_at = NOW()
		WHERE id = $1
		RETURNING total_xp
	`

	var total int
	err := r.conn.QueryRow(ctx, query, id.String(), amount, shared.MaxXP).Scan(&total)
	if err != nil {
		if IsNoRows(err) {
			return 0, shared.ErrAccountNotFound
		}
		return 0, fmt.Errorf("failed to add xp: %w", err)
	}
	return shared.XP(total), nil
}

// TouchLastActive updates the last-activity timestamp.
func (r *AccountRepository) TouchLastActive(ctx context.Context, id shared.AccountID, at time.Time) error {
	query := `UPDATE accounts SET last_active_at = $2, updated_at = NOW() WHERE id = $1`

	tag, err := r.conn.Exec(ctx, query, id.String(), at)
	if err != nil {
		return fmt.Errorf("failed to touch account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}

// Exists reports whether the account is known to the engine.
func (r *AccountRepository) Exists(ctx context.Context, id shared.AccountID) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, id.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check account: %w", err)
	}
	return exists, nil
}

func (r *AccountRepository) scanAccount(row pgx.Row) (*identity.Account, error) {
	var (
		account identity.Account
		id      string
		email   string
		totalXP int
	)

	err := row.Scan(&id, &email, &totalXP, &account.LastActiveAt, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}

	account.ID = shared.AccountID(id)
	account.Email = shared.Email(email)
	account.TotalXP = shared.XP(totalXP)
	return &account, nil
}
