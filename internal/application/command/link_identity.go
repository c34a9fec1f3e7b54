package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/makerpath/progress-hub/internal/domain/identity"
	"github.com/makerpath/progress-hub/internal/domain/progress"
	"github.com/makerpath/progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LINK IDENTITY COMMANDS
// Identity resolution happens in two steps: a visitor's records are first
// claimed by an email (newsletter signup, lead magnet), then by an account
// once the learner registers. Both links are first-write-wins per record.
// ══════════════════════════════════════════════════════════════════════════════

// LinkEmailCommand claims a visitor's records for an email address.
type LinkEmailCommand struct {
	// VisitorID - the anonymous session to claim.
	VisitorID string

	// Email - raw email; the handler normalizes it.
	Email string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c LinkEmailCommand) Validate() error {
	if c.VisitorID == "" {
		return errors.New("link_email: visitor id is required")
	}
	if c.Email == "" {
		return errors.New("link_email: email is required")
	}
	return nil
}

// LinkEmailResult contains the result of linking an email.
type LinkEmailResult struct {
	// Email - the normalized email that was linked.
	Email string

	// RecordsLinked - how many records were stamped with the email.
	RecordsLinked int

	// RecordsKept - records left untouched because a different email
	// claimed them first.
	RecordsKept int
}

// LinkAccountCommand claims a visitor's records for a registered account.
type LinkAccountCommand struct {
	// VisitorID - the anonymous session to claim.
	VisitorID string

	// AccountID - the registered account.
	AccountID string

	// Email - the account's email, used to register the account with the
	// engine on first contact.
	Email string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c LinkAccountCommand) Validate() error {
	if c.VisitorID == "" {
		return errors.New("link_account: visitor id is required")
	}
	if c.AccountID == "" {
		return errors.New("link_account: account id is required")
	}
	return nil
}

// LinkAccountResult contains the result of linking an account.
type LinkAccountResult struct {
	// RecordsLinked - how many records were stamped with the account.
	RecordsLinked int

	// RecordsKept - records already claimed by a different account.
	RecordsKept int

	// AccountCreated - true when the account was first seen by the engine.
	AccountCreated bool
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// LinkIdentityHandler handles both identity-linking commands.
type LinkIdentityHandler struct {
	progressRepo   progress.Repository
	accountRepo    identity.Repository
	eventPublisher shared.EventPublisher
}

// NewLinkIdentityHandler creates a new LinkIdentityHandler.
func NewLinkIdentityHandler(
	progressRepo progress.Repository,
	accountRepo identity.Repository,
	eventPublisher shared.EventPublisher,
) *LinkIdentityHandler {
	return &LinkIdentityHandler{
		progressRepo:   progressRepo,
		accountRepo:    accountRepo,
		eventPublisher: eventPublisher,
	}
}

// HandleLinkEmail executes the link email command.
func (h *LinkIdentityHandler) HandleLinkEmail(ctx context.Context, cmd LinkEmailCommand) (*LinkEmailResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("link_email: validation failed: %w", err)
	}

	visitorID, err := shared.NewVisitorID(cmd.VisitorID)
	if err != nil {
		return nil, fmt.Errorf("link_email: %w", err)
	}
	email, err := shared.NewEmail(cmd.Email)
	if err != nil {
		return nil, fmt.Errorf("link_email: %w", err)
	}

	linked, kept, err := h.progressRepo.LinkEmailToVisitor(ctx, visitorID, email)
	if err != nil {
		return nil, fmt.Errorf("link_email: failed to link records: %w", err)
	}

	event := shared.NewEmailLinkedEvent(visitorID.String(), email.String(), linked, kept)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.eventPublisher.Publish(event)

	return &LinkEmailResult{
		Email:         email.String(),
		RecordsLinked: linked,
		RecordsKept:   kept,
	}, nil
}

// HandleLinkAccount executes the link account command. The account is
// registered with the engine on first contact when an email is supplied.
func (h *LinkIdentityHandler) HandleLinkAccount(ctx context.Context, cmd LinkAccountCommand) (*LinkAccountResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("link_account: validation failed: %w", err)
	}

	visitorID, err := shared.NewVisitorID(cmd.VisitorID)
	if err != nil {
		return nil, fmt.Errorf("link_account: %w", err)
	}
	accountID, err := shared.NewAccountID(cmd.AccountID)
	if err != nil {
		return nil, fmt.Errorf("link_account: %w", err)
	}

	created, err := h.ensureAccount(ctx, accountID, cmd.Email)
	if err != nil {
		return nil, fmt.Errorf("link_account: %w", err)
	}

	linked, kept, err := h.progressRepo.LinkAccountToVisitor(ctx, visitorID, accountID)
	if err != nil {
		return nil, fmt.Errorf("link_account: failed to link records: %w", err)
	}

	event := shared.NewAccountLinkedEvent(visitorID.String(), accountID.String(), linked, kept)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.eventPublisher.Publish(event)

	return &LinkAccountResult{
		RecordsLinked:  linked,
		RecordsKept:    kept,
		AccountCreated: created,
	}, nil
}

// ensureAccount registers the account on first contact.
func (h *LinkIdentityHandler) ensureAccount(ctx context.Context, accountID shared.AccountID, rawEmail string) (bool, error) {
	exists, err := h.accountRepo.Exists(ctx, accountID)
	if err != nil {
		return false, fmt.Errorf("failed to check account: %w", err)
	}
	if exists {
		return false, nil
	}
	if rawEmail == "" {
		return false, shared.ErrAccountNotFound
	}

	email, err := shared.NewEmail(rawEmail)
	if err != nil {
		return false, err
	}
	account, err := identity.NewAccount(accountID, email)
	if err != nil {
		return false, err
	}
	if err := h.accountRepo.Create(ctx, account); err != nil {
		// Lost a race with a concurrent link; the account exists now.
		if shared.IsAlreadyExists(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create account: %w", err)
	}
	return true, nil
}
