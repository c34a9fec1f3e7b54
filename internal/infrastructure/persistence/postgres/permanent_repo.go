package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/makerpath/progress-hub/internal/domain/progress"
	"github.com/makerpath/progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PERMANENT STORAGE REPOSITORIES
// Form responses and checklist completions written by the migration. Both
// rely on unique constraints so a concurrent migration run cannot double
// up: (account, unit) for forms, (account, unit, item) for checklists.
// ══════════════════════════════════════════════════════════════════════════════

// FormResponseRepository implements progress.FormResponseRepository for PostgreSQL.
type FormResponseRepository struct {
	conn *Connection
}

// NewFormResponseRepository creates a new FormResponseRepository.
func NewFormResponseRepository(conn *Connection) *FormResponseRepository {
	return &FormResponseRepository{conn: conn}
}

// Insert writes a permanent form response.
func (r *FormResponseRepository) Insert(ctx context.Context, response *progress.FormResponse) error {
	query := `
		INSERT INTO form_responses (
			id, account_id, unit_index, answers, generated_content, source_visitor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	answers, err := json.Marshal(response.Answers)
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}
	var generated []byte
	if len(response.GeneratedContent) > 0 {
		generated = response.GeneratedContent
	}

	_, err = r.conn.Exec(ctx, query,
		response.ID,
		response.AccountID.String(),
		response.UnitIndex,
		answers,
		generated,
		response.SourceVisitorID.String(),
		response.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert form response: %w", err)
	}
	return nil
}

// Exists reports whether the account already has a response for the unit.
func (r *FormResponseRepository) Exists(ctx context.Context, accountID shared.AccountID, unitIndex int) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM form_responses WHERE account_id = $1 AND unit_index = $2)`,
		accountID.String(), unitIndex,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check form response: %w", err)
	}
	return exists, nil
}

// Get returns the response for (account, unit index).
func (r *FormResponseRepository) Get(ctx context.Context, accountID shared.AccountID, unitIndex int) (*progress.FormResponse, error) {
	query := `
		SELECT id, account_id, unit_index, answers, generated_content, source_visitor_id, created_at
		FROM form_responses
		WHERE account_id = $1 AND unit_index = $2
	`
	return r.scanResponse(r.conn.QueryRow(ctx, query, accountID.String(), unitIndex))
}

// ListByAccount returns all responses for an account, ordered by unit index.
func (r *FormResponseRepository) ListByAccount(ctx context.Context, accountID shared.AccountID) ([]*progress.FormResponse, error) {
	query := `
		SELECT id, account_id, unit_index, answers, generated_content, source_visitor_id, created_at
		FROM form_responses
		WHERE account_id = $1
		ORDER BY unit_index
	`

	rows, err := r.conn.Query(ctx, query, accountID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query form responses: %w", err)
	}
	defer rows.Close()

	var responses []*progress.FormResponse
	for rows.Next() {
		response, err := r.scanResponse(rows)
		if err != nil {
			return nil, err
		}
		responses = append(responses, response)
	}
	return responses, rows.Err()
}

func (r *FormResponseRepository) scanResponse(row pgx.Row) (*progress.FormResponse, error) {
	var (
		response  progress.FormResponse
		accountID string
		visitorID string
		answers   []byte
		generated []byte
	)

	err := row.Scan(&response.ID, &accountID, &response.UnitIndex, &answers, &generated, &visitorID, &response.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to scan form response: %w", err)
	}

	if err := json.Unmarshal(answers, &response.Answers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal answers: %w", err)
	}
	response.GeneratedContent = generated
	response.AccountID = shared.AccountID(accountID)
	response.SourceVisitorID = shared.VisitorID(visitorID)
	return &response, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Checklist completions
// ─────────────────────────────────────────────────────────────────────────────

// ChecklistRepository implements progress.ChecklistRepository for PostgreSQL.
type ChecklistRepository struct {
	conn *Connection
}

// NewChecklistRepository creates a new ChecklistRepository.
func NewChecklistRepository(conn *Connection) *ChecklistRepository {
	return &ChecklistRepository{conn: conn}
}

// Insert writes a single item completion.
func (r *ChecklistRepository) Insert(ctx context.Context, completion *progress.ChecklistCompletion) error {
	query := `
		INSERT INTO checklist_completions (
			id, account_id, unit_index, item_id, source_visitor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.conn.Exec(ctx, query,
		completion.ID,
		completion.AccountID.String(),
		completion.UnitIndex,
		completion.ItemID,
		completion.SourceVisitorID.String(),
		completion.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert checklist completion: %w", err)
	}
	return nil
}

// ListItemIDs returns the already-completed item IDs for (account, unit index).
func (r *ChecklistRepository) ListItemIDs(ctx context.Context, accountID shared.AccountID, unitIndex int) ([]string, error) {
	query := `
		SELECT item_id FROM checklist_completions
		WHERE account_id = $1 AND unit_index = $2
		ORDER BY item_id
	`

	rows, err := r.conn.Query(ctx, query, accountID.String(), unitIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to query checklist items: %w", err)
	}
	defer rows.Close()

	var items []string
	for rows.Next() {
		var item string
		if err := rows.Scan(&item); err != nil {
			return nil, fmt.Errorf("failed to scan checklist item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListByAccount returns all completions for an account.
func (r *ChecklistRepository) ListByAccount(ctx context.Context, accountID shared.AccountID) ([]*progress.ChecklistCompletion, error) {
	query := `
		SELECT id, account_id, unit_index, item_id, source_visitor_id, created_at
		FROM checklist_completions
		WHERE account_id = $1
		ORDER BY unit_index, item_id
	`

	rows, err := r.conn.Query(ctx, query, accountID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query checklist completions: %w", err)
	}
	defer rows.Close()

	var completions []*progress.ChecklistCompletion
	for rows.Next() {
		var (
			completion progress.ChecklistCompletion
			accID      string
			visitorID  string
		)
		err := rows.Scan(&completion.ID, &accID, &completion.UnitIndex, &completion.ItemID, &visitorID, &completion.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan checklist completion: %w", err)
		}
		completion.AccountID = shared.AccountID(accID)
		completion.SourceVisitorID = shared.VisitorID(visitorID)
		completions = append(completions, &completion)
	}
	return completions, rows.Err()
}
