// Package identity contains the registered account model and the contract
// for resolving anonymous visitors into durable learner identities.
package identity

import (
	"fmt"
	"time"

	"github.com/makerpath/progress-hub/internal/domain/shared"
)

// Account is a registered learner. Accounts accumulate XP from achievements
// and own the permanent copies of migrated progress.
type Account struct {
	// ID - external account identifier issued by the auth system.
	ID shared.AccountID

	// Email - normalized primary email.
	Email shared.Email

	// TotalXP - lifetime experience points.
	TotalXP shared.XP

	// LastActiveAt - last time any progress activity was recorded.
	LastActiveAt time.Time

	// CreatedAt - when the account was first seen by the engine.
	CreatedAt time.Time

	// UpdatedAt - time of the last change.
	UpdatedAt time.Time
}

// NewAccount creates an account with validation.
func NewAccount(id shared.AccountID, email shared.Email) (*Account, error) {
	if !id.IsValid() {
		return nil, shared.ErrInvalidAccountID
	}
	if !email.IsValid() {
		return nil, shared.ErrInvalidEmail
	}

	now := time.Now().UTC()

	return &Account{
		ID:           id,
		Email:        email,
		TotalXP:      0,
		LastActiveAt: now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// AddXP credits experience points and returns the new total.
func (a *Account) AddXP(amount int) (shared.XP, error) {
	if amount < 0 {
		return a.TotalXP, shared.NewDomainError("identity", "AddXP", shared.ErrNegativeValue, "XP amount cannot be negative")
	}
	a.TotalXP = a.TotalXP.Add(amount)
	a.UpdatedAt = time.Now().UTC()
	return a.TotalXP, nil
}

// Touch records activity on the account.
func (a *Account) Touch(at time.Time) {
	if at.After(a.LastActiveAt) {
		a.LastActiveAt = at.UTC()
	}
	a.UpdatedAt = time.Now().UTC()
}

// String returns a representation for logging.
func (a *Account) String() string {
	return fmt.Sprintf("Account{ID: %s, Email: %s, XP: %d}", a.ID, a.Email, a.TotalXP)
}
