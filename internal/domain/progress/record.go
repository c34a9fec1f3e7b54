// Package progress contains the progress record model: the per-owner,
// per-kind, per-unit snapshots that anonymous visitors and registered
// accounts accumulate while working through a course. This is the core of
// the business logic - there are no external dependencies here.
package progress

import (
	"encoding/json"
	"time"

	"github.com/makerpath/progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: RECORD
// ══════════════════════════════════════════════════════════════════════════════

// Record is a single progress snapshot. At most one record exists per
// (owner, kind, unit index): saving again replaces the payload in full.
type Record struct {
	// ID - internal unique identifier (UUID in string form).
	ID string

	// Owner - the visitor or account namespace the record belongs to.
	Owner shared.OwnerRef

	// Kind - form or checklist.
	Kind shared.RecordKind

	// UnitIndex - position of the course unit the record refers to.
	UnitIndex int

	// Payload - the raw saved state. The engine treats it as opaque until
	// migration time.
	Payload json.RawMessage

	// LinkedEmail - normalized email this record was claimed by, if any.
	LinkedEmail shared.Email

	// LinkedAccount - account this record was claimed by, if any.
	LinkedAccount shared.AccountID

	// MigratedAt - when the record was copied into permanent storage.
	// Nil means not migrated yet.
	MigratedAt *time.Time

	// CreatedAt - when the record was first saved.
	CreatedAt time.Time

	// UpdatedAt - time of the last save.
	UpdatedAt time.Time
}

// NewRecordParams holds parameters for creating a new record.
type NewRecordParams struct {
	ID        string
	Owner     shared.OwnerRef
	Kind      shared.RecordKind
	UnitIndex int
	Payload   json.RawMessage
}

// NewRecord creates a new progress record with validation.
func NewRecord(params NewRecordParams) (*Record, error) {
	if params.ID == "" {
		return nil, shared.NewDomainError("progress", "NewRecord", shared.ErrEmptyValue, "record id is required")
	}
	if !params.Owner.IsValid() {
		return nil, shared.ErrInvalidOwner
	}
	if !params.Kind.IsValid() {
		return nil, shared.ErrInvalidRecordKind
	}
	if params.UnitIndex < 0 {
		return nil, shared.NewDomainError("progress", "NewRecord", shared.ErrNegativeValue, "unit index cannot be negative")
	}
	if len(params.Payload) == 0 {
		return nil, shared.NewDomainError("progress", "NewRecord", shared.ErrEmptyValue, "payload is required")
	}

	now := time.Now().UTC()

	return &Record{
		ID:        params.ID,
		Owner:     params.Owner,
		Kind:      params.Kind,
		UnitIndex: params.UnitIndex,
		Payload:   params.Payload,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN METHODS
// ══════════════════════════════════════════════════════════════════════════════

// Replace overwrites the payload with a new snapshot. Last write wins.
func (r *Record) Replace(payload json.RawMessage) error {
	if len(payload) == 0 {
		return shared.NewDomainError("progress", "Replace", shared.ErrEmptyValue, "payload is required")
	}
	r.Payload = payload
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// LinkEmail stamps the record with a normalized email. The first link wins:
// a record already claimed by a different email is left untouched and the
// method reports false.
func (r *Record) LinkEmail(email shared.Email) bool {
	if !r.LinkedEmail.IsEmpty() {
		return r.LinkedEmail == email
	}
	r.LinkedEmail = email
	r.UpdatedAt = time.Now().UTC()
	return true
}

// LinkAccount stamps the record with an account ID, first link wins.
func (r *Record) LinkAccount(accountID shared.AccountID) bool {
	if !r.LinkedAccount.IsEmpty() {
		return r.LinkedAccount == accountID
	}
	r.LinkedAccount = accountID
	r.UpdatedAt = time.Now().UTC()
	return true
}

// IsMigrated reports whether the record has been copied to permanent storage.
func (r *Record) IsMigrated() bool {
	return r.MigratedAt != nil
}

// MarkMigrated stamps the migration time and the destination account.
// Idempotent: a second call keeps the original timestamp, and the account
// link follows the usual first-write-wins contract. Migration may run
// straight from checkout, so the record cannot rely on a prior LinkAccount
// call to carry the account stamp.
func (r *Record) MarkMigrated(accountID shared.AccountID, at time.Time) {
	r.LinkAccount(accountID)
	if r.MigratedAt != nil {
		return
	}
	t := at.UTC()
	r.MigratedAt = &t
	r.UpdatedAt = time.Now().UTC()
}

// Clone creates a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	clone.Payload = make(json.RawMessage, len(r.Payload))
	copy(clone.Payload, r.Payload)
	if r.MigratedAt != nil {
		t := *r.MigratedAt
		clone.MigratedAt = &t
	}
	return &clone
}
