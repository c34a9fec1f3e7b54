package command

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/makerpath/progress-hub/internal/domain/achievement"
	"github.com/makerpath/progress-hub/internal/domain/content"
	"github.com/makerpath/progress-hub/internal/domain/identity"
	"github.com/makerpath/progress-hub/internal/domain/progress"
	"github.com/makerpath/progress-hub/internal/domain/shared"
	"github.com/makerpath/progress-hub/internal/domain/streak"
)

// In-memory repository fakes backing the command handler tests.

// ─────────────────────────────────────────────────────────────────────────────
// Progress records
// ─────────────────────────────────────────────────────────────────────────────

type memProgressRepo struct {
	mu      sync.Mutex
	records map[string]*progress.Record
}

func newMemProgressRepo() *memProgressRepo {
	return &memProgressRepo{records: make(map[string]*progress.Record)}
}

func (r *memProgressRepo) Save(_ context.Context, record *progress.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ID] = record.Clone()
	return nil
}

func (r *memProgressRepo) Get(_ context.Context, owner shared.OwnerRef, kind shared.RecordKind, unitIndex int) (*progress.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, record := range r.records {
		if record.Owner == owner && record.Kind == kind && record.UnitIndex == unitIndex {
			return record.Clone(), nil
		}
	}
	return nil, shared.ErrRecordNotFound
}

func (r *memProgressRepo) ListByOwner(_ context.Context, owner shared.OwnerRef) ([]*progress.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*progress.Record
	for _, record := range r.records {
		if record.Owner == owner {
			out = append(out, record.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].UnitIndex < out[j].UnitIndex
	})
	return out, nil
}

func (r *memProgressRepo) ListUnmigratedByOwner(ctx context.Context, owner shared.OwnerRef) ([]*progress.Record, error) {
	all, err := r.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	var out []*progress.Record
	for _, record := range all {
		if !record.IsMigrated() {
			out = append(out, record)
		}
	}
	return out, nil
}

func (r *memProgressRepo) LinkEmailToVisitor(_ context.Context, visitorID shared.VisitorID, email shared.Email) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner := shared.VisitorOwner(visitorID)
	linked, kept := 0, 0
	for _, record := range r.records {
		if record.Owner != owner {
			continue
		}
		switch {
		case record.LinkedEmail.IsEmpty():
			record.LinkEmail(email)
			linked++
		case record.LinkedEmail == email:
			// Already claimed by the same email, nothing to do.
		default:
			kept++
		}
	}
	return linked, kept, nil
}

func (r *memProgressRepo) LinkAccountToVisitor(_ context.Context, visitorID shared.VisitorID, accountID shared.AccountID) (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner := shared.VisitorOwner(visitorID)
	linked, kept := 0, 0
	for _, record := range r.records {
		if record.Owner != owner {
			continue
		}
		switch {
		case record.LinkedAccount.IsEmpty():
			record.LinkAccount(accountID)
			linked++
		case record.LinkedAccount == accountID:
			// Already claimed by the same account, nothing to do.
		default:
			kept++
		}
	}
	return linked, kept, nil
}

func (r *memProgressRepo) MarkMigrated(_ context.Context, recordID string, accountID shared.AccountID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[recordID]
	if !ok {
		return shared.ErrRecordNotFound
	}
	record.MarkMigrated(accountID, at)
	return nil
}

func (r *memProgressRepo) DeleteStaleVisitorRecords(_ context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, record := range r.records {
		if record.Owner.Kind != shared.OwnerVisitor {
			continue
		}
		if !record.LinkedEmail.IsEmpty() || !record.LinkedAccount.IsEmpty() {
			continue
		}
		if record.UpdatedAt.Before(cutoff) {
			delete(r.records, id)
			removed++
		}
	}
	return removed, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Permanent form and checklist stores
// ─────────────────────────────────────────────────────────────────────────────

type memFormRepo struct {
	mu        sync.Mutex
	responses map[string]*progress.FormResponse
}

func newMemFormRepo() *memFormRepo {
	return &memFormRepo{responses: make(map[string]*progress.FormResponse)}
}

func formKey(accountID shared.AccountID, unitIndex int) string {
	return accountID.String() + "|" + strconv.Itoa(unitIndex)
}

func (r *memFormRepo) Insert(_ context.Context, response *progress.FormResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := formKey(response.AccountID, response.UnitIndex)
	if _, ok := r.responses[key]; ok {
		return shared.ErrAlreadyExists
	}
	r.responses[key] = response
	return nil
}

func (r *memFormRepo) Exists(_ context.Context, accountID shared.AccountID, unitIndex int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.responses[formKey(accountID, unitIndex)]
	return ok, nil
}

func (r *memFormRepo) Get(_ context.Context, accountID shared.AccountID, unitIndex int) (*progress.FormResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	response, ok := r.responses[formKey(accountID, unitIndex)]
	if !ok {
		return nil, shared.ErrRecordNotFound
	}
	return response, nil
}

func (r *memFormRepo) ListByAccount(_ context.Context, accountID shared.AccountID) ([]*progress.FormResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*progress.FormResponse
	for _, response := range r.responses {
		if response.AccountID == accountID {
			out = append(out, response)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UnitIndex < out[j].UnitIndex })
	return out, nil
}

type memChecklistRepo struct {
	mu          sync.Mutex
	completions []*progress.ChecklistCompletion
}

func newMemChecklistRepo() *memChecklistRepo {
	return &memChecklistRepo{}
}

func (r *memChecklistRepo) Insert(_ context.Context, completion *progress.ChecklistCompletion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.completions {
		if c.AccountID == completion.AccountID && c.UnitIndex == completion.UnitIndex && c.ItemID == completion.ItemID {
			return shared.ErrAlreadyExists
		}
	}
	r.completions = append(r.completions, completion)
	return nil
}

func (r *memChecklistRepo) ListItemIDs(_ context.Context, accountID shared.AccountID, unitIndex int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, c := range r.completions {
		if c.AccountID == accountID && c.UnitIndex == unitIndex {
			out = append(out, c.ItemID)
		}
	}
	return out, nil
}

func (r *memChecklistRepo) ListByAccount(_ context.Context, accountID shared.AccountID) ([]*progress.ChecklistCompletion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*progress.ChecklistCompletion
	for _, c := range r.completions {
		if c.AccountID == accountID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UnitIndex != out[j].UnitIndex {
			return out[i].UnitIndex < out[j].UnitIndex
		}
		return out[i].ItemID < out[j].ItemID
	})
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Accounts
// ─────────────────────────────────────────────────────────────────────────────

type memAccountRepo struct {
	mu       sync.Mutex
	accounts map[shared.AccountID]*identity.Account
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{accounts: make(map[shared.AccountID]*identity.Account)}
}

func (r *memAccountRepo) Create(_ context.Context, account *identity.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[account.ID]; ok {
		return shared.ErrAccountAlreadyExists
	}
	r.accounts[account.ID] = account
	return nil
}

func (r *memAccountRepo) GetByID(_ context.Context, id shared.AccountID) (*identity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return nil, shared.ErrAccountNotFound
	}
	return account, nil
}

func (r *memAccountRepo) GetByEmail(_ context.Context, email shared.Email) (*identity.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.accounts {
		if account.Email == email {
			return account, nil
		}
	}
	return nil, shared.ErrAccountNotFound
}

func (r *memAccountRepo) AddXP(_ context.Context, id shared.AccountID, amount int) (shared.XP, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return 0, shared.ErrAccountNotFound
	}
	return account.AddXP(amount)
}

func (r *memAccountRepo) TouchLastActive(_ context.Context, id shared.AccountID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return shared.ErrAccountNotFound
	}
	account.Touch(at)
	return nil
}

func (r *memAccountRepo) Exists(_ context.Context, id shared.AccountID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.accounts[id]
	return ok, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Completion states and unlocks
// ─────────────────────────────────────────────────────────────────────────────

type memCompletionRepo struct {
	mu     sync.Mutex
	states map[string]*content.CompletionState
}

func newMemCompletionRepo() *memCompletionRepo {
	return &memCompletionRepo{states: make(map[string]*content.CompletionState)}
}

func completionKey(accountID shared.AccountID, unit shared.UnitSlug) string {
	return accountID.String() + "|" + unit.String()
}

func (r *memCompletionRepo) Save(_ context.Context, state *content.CompletionState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[completionKey(state.AccountID, state.Unit)] = state
	return nil
}

func (r *memCompletionRepo) Get(_ context.Context, accountID shared.AccountID, unit shared.UnitSlug) (*content.CompletionState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.states[completionKey(accountID, unit)]
	if !ok {
		return nil, shared.ErrCompletionNotFound
	}
	return state, nil
}

func (r *memCompletionRepo) ListByAccount(_ context.Context, accountID shared.AccountID) (map[shared.UnitSlug]*content.CompletionState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[shared.UnitSlug]*content.CompletionState)
	for _, state := range r.states {
		if state.AccountID == accountID {
			out[state.Unit] = state
		}
	}
	return out, nil
}

func (r *memCompletionRepo) CountCompleted(_ context.Context, accountID shared.AccountID, slugs []shared.UnitSlug) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, slug := range slugs {
		if state, ok := r.states[completionKey(accountID, slug)]; ok && state.IsCompleted() {
			count++
		}
	}
	return count, nil
}

type memUnlockRepo struct {
	mu      sync.Mutex
	records map[string]*content.UnlockRecord
}

func newMemUnlockRepo() *memUnlockRepo {
	return &memUnlockRepo{records: make(map[string]*content.UnlockRecord)}
}

func (r *memUnlockRepo) Insert(_ context.Context, record *content.UnlockRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := completionKey(record.AccountID, record.Unit)
	if _, ok := r.records[key]; ok {
		return false, nil
	}
	r.records[key] = record
	return true, nil
}

func (r *memUnlockRepo) IsUnlocked(_ context.Context, accountID shared.AccountID, unit shared.UnitSlug) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.records[completionKey(accountID, unit)]
	return ok, nil
}

func (r *memUnlockRepo) ListByAccount(_ context.Context, accountID shared.AccountID) ([]*content.UnlockRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*content.UnlockRecord
	for _, record := range r.records {
		if record.AccountID == accountID {
			out = append(out, record)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UnlockedAt.Before(out[j].UnlockedAt) })
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Streaks and achievements
// ─────────────────────────────────────────────────────────────────────────────

type memStreakRepo struct {
	mu     sync.Mutex
	states map[shared.AccountID]*streak.State
}

func newMemStreakRepo() *memStreakRepo {
	return &memStreakRepo{states: make(map[shared.AccountID]*streak.State)}
}

func (r *memStreakRepo) Save(_ context.Context, state *streak.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[state.AccountID] = state
	return nil
}

func (r *memStreakRepo) Get(_ context.Context, accountID shared.AccountID) (*streak.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.states[accountID]
	if !ok {
		return nil, shared.ErrStreakNotFound
	}
	return state, nil
}

func (r *memStreakRepo) GetOrNew(ctx context.Context, accountID shared.AccountID) (*streak.State, error) {
	state, err := r.Get(ctx, accountID)
	if err == nil {
		return state, nil
	}
	if !shared.IsNotFound(err) {
		return nil, err
	}
	return streak.NewState(accountID)
}

type memAchievementRepo struct {
	mu     sync.Mutex
	grants map[string]*achievement.Grant
}

func newMemAchievementRepo() *memAchievementRepo {
	return &memAchievementRepo{grants: make(map[string]*achievement.Grant)}
}

func (r *memAchievementRepo) Insert(_ context.Context, grant *achievement.Grant) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := grant.AccountID.String() + "|" + grant.Code
	if _, ok := r.grants[key]; ok {
		return false, nil
	}
	r.grants[key] = grant
	return true, nil
}

func (r *memAchievementRepo) ListCodes(_ context.Context, accountID shared.AccountID) (map[string]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]bool)
	for _, grant := range r.grants {
		if grant.AccountID == accountID {
			out[grant.Code] = true
		}
	}
	return out, nil
}

func (r *memAchievementRepo) ListByAccount(_ context.Context, accountID shared.AccountID) ([]*achievement.Grant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*achievement.Grant
	for _, grant := range r.grants {
		if grant.AccountID == accountID {
			out = append(out, grant)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GrantedAt.Before(out[j].GrantedAt) })
	return out, nil
}

func (r *memAchievementRepo) MarkNotified(_ context.Context, accountID shared.AccountID, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	grant, ok := r.grants[accountID.String()+"|"+code]
	if !ok {
		return shared.ErrAchievementNotFound
	}
	grant.Notified = true
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Event capture
// ─────────────────────────────────────────────────────────────────────────────

type memPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *memPublisher) Publish(event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *memPublisher) byType(eventType shared.EventType) []shared.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.Event
	for _, e := range p.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}
