// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// VisitorID identifies an anonymous browser session. Generated client-side,
// so the format is opaque: we only require it to be non-empty and bounded.
type VisitorID string

// IsValid checks if the visitor ID is acceptable.
func (v VisitorID) IsValid() bool {
	s := string(v)
	return len(s) > 0 && len(s) <= 64
}

// String returns the string representation.
func (v VisitorID) String() string {
	return string(v)
}

// IsEmpty checks if the ID is empty.
func (v VisitorID) IsEmpty() bool {
	return v == ""
}

// NewVisitorID creates a new VisitorID with validation.
func NewVisitorID(id string) (VisitorID, error) {
	vid := VisitorID(strings.TrimSpace(id))
	if !vid.IsValid() {
		return "", ErrInvalidVisitorID
	}
	return vid, nil
}

// AccountID identifies a registered learner account.
type AccountID string

var accountIDRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,63}$`)

// IsValid checks if the account ID format is valid.
func (a AccountID) IsValid() bool {
	return accountIDRegex.MatchString(string(a))
}

// String returns the string representation.
func (a AccountID) String() string {
	return string(a)
}

// IsEmpty checks if the ID is empty.
func (a AccountID) IsEmpty() bool {
	return a == ""
}

// NewAccountID creates a new AccountID with validation.
func NewAccountID(id string) (AccountID, error) {
	aid := AccountID(strings.TrimSpace(id))
	if !aid.IsValid() {
		return "", ErrInvalidAccountID
	}
	return aid, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Email Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Email represents a learner email address.
// Two inputs that normalize to the same string are the same identity.
type Email string

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// NormalizeEmail applies the canonical normalization: lowercase and trim
// surrounding whitespace. Nothing else - no plus-stripping, no dot-folding.
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// IsValid checks if the email has a plausible shape.
func (e Email) IsValid() bool {
	return emailRegex.MatchString(string(e))
}

// String returns the string representation.
func (e Email) String() string {
	return string(e)
}

// IsEmpty checks if the email is empty.
func (e Email) IsEmpty() bool {
	return e == ""
}

// NewEmail creates a normalized Email with validation.
func NewEmail(raw string) (Email, error) {
	e := Email(NormalizeEmail(raw))
	if !e.IsValid() {
		return "", ErrInvalidEmail
	}
	return e, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Owner Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// OwnerKind distinguishes the two namespaces a progress record can live in.
type OwnerKind string

const (
	OwnerVisitor OwnerKind = "visitor"
	OwnerAccount OwnerKind = "account"
)

// IsValid checks if the owner kind is known.
func (k OwnerKind) IsValid() bool {
	return k == OwnerVisitor || k == OwnerAccount
}

// String returns the string representation.
func (k OwnerKind) String() string {
	return string(k)
}

// OwnerRef is a typed reference to a record owner. Visitor and account
// namespaces never collide even if the raw IDs happen to be equal.
type OwnerRef struct {
	Kind OwnerKind
	ID   string
}

// VisitorOwner builds an OwnerRef for an anonymous visitor.
func VisitorOwner(id VisitorID) OwnerRef {
	return OwnerRef{Kind: OwnerVisitor, ID: id.String()}
}

// AccountOwner builds an OwnerRef for a registered account.
func AccountOwner(id AccountID) OwnerRef {
	return OwnerRef{Kind: OwnerAccount, ID: id.String()}
}

// IsValid checks if the reference is usable.
func (o OwnerRef) IsValid() bool {
	return o.Kind.IsValid() && o.ID != ""
}

// Key returns a stable composite key, e.g. "visitor:v_123".
func (o OwnerRef) Key() string {
	return fmt.Sprintf("%s:%s", o.Kind, o.ID)
}

// String returns the composite key.
func (o OwnerRef) String() string {
	return o.Key()
}

// ═══════════════════════════════════════════════════════════════════════════
// Record Kind Value Object
// ═══════════════════════════════════════════════════════════════════════════

// RecordKind is the category of a progress record.
type RecordKind string

const (
	RecordForm      RecordKind = "form"
	RecordChecklist RecordKind = "checklist"
)

// IsValid checks if the record kind is known.
func (k RecordKind) IsValid() bool {
	return k == RecordForm || k == RecordChecklist
}

// String returns the string representation.
func (k RecordKind) String() string {
	return string(k)
}

// NewRecordKind parses and validates a record kind.
func NewRecordKind(s string) (RecordKind, error) {
	k := RecordKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", ErrInvalidRecordKind
	}
	return k, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Unit Slug Value Object
// ═══════════════════════════════════════════════════════════════════════════

// UnitSlug identifies a course unit (module, lesson, or day).
type UnitSlug string

// Slug format: lowercase words joined by hyphens (e.g. "module-3", "day-1-intro").
var unitSlugRegex = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// IsValid checks if the slug format is valid.
func (u UnitSlug) IsValid() bool {
	s := string(u)
	return len(s) >= 1 && len(s) <= 64 && unitSlugRegex.MatchString(s)
}

// String returns the string representation.
func (u UnitSlug) String() string {
	return string(u)
}

// IsEmpty checks if the slug is empty.
func (u UnitSlug) IsEmpty() bool {
	return u == ""
}

// NewUnitSlug creates a new UnitSlug with validation.
func NewUnitSlug(s string) (UnitSlug, error) {
	slug := UnitSlug(strings.ToLower(strings.TrimSpace(s)))
	if !slug.IsValid() {
		return "", ErrInvalidUnitSlug
	}
	return slug, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// XP Value Object (Experience Points)
// ═══════════════════════════════════════════════════════════════════════════

// XP represents experience points earned by a learner.
type XP int

const (
	// XP boundaries
	MinXP XP = 0
	MaxXP XP = 1000000 // 1 million XP cap
)

// IsValid checks if the XP value is within valid range.
func (x XP) IsValid() bool {
	return x >= MinXP && x <= MaxXP
}

// Int returns the underlying int value.
func (x XP) Int() int {
	return int(x)
}

// Add adds XP and returns the result, capped at MaxXP.
func (x XP) Add(amount int) XP {
	result := XP(int(x) + amount)
	if result > MaxXP {
		return MaxXP
	}
	if result < MinXP {
		return MinXP
	}
	return result
}

// NewXP creates a new XP value with validation.
func NewXP(amount int) (XP, error) {
	if amount < int(MinXP) {
		return 0, NewDomainError("shared", "NewXP", ErrNegativeValue, "XP cannot be negative")
	}
	if amount > int(MaxXP) {
		return MaxXP, nil // Cap at max
	}
	return XP(amount), nil
}

// ═══════════════════════════════════════════════════════════════════════════
// TimeRange Value Object
// ═══════════════════════════════════════════════════════════════════════════

// TimeRange represents a time period.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// IsValid checks if the time range is valid.
func (t TimeRange) IsValid() bool {
	return !t.From.IsZero() && !t.To.IsZero() && !t.From.After(t.To)
}

// Duration returns the duration of the time range.
func (t TimeRange) Duration() time.Duration {
	return t.To.Sub(t.From)
}

// Contains checks if a time is within the range.
func (t TimeRange) Contains(tm time.Time) bool {
	return (tm.Equal(t.From) || tm.After(t.From)) && (tm.Equal(t.To) || tm.Before(t.To))
}

// LastNDays returns a TimeRange for the last N days.
func LastNDays(n int) TimeRange {
	now := time.Now()
	return TimeRange{
		From: now.AddDate(0, 0, -n),
		To:   now,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Pagination Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Pagination represents pagination parameters.
type Pagination struct {
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Offset returns the offset for database queries.
func (p Pagination) Offset() int {
	if p.Page <= 0 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// Limit returns the limit for database queries.
func (p Pagination) Limit() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return p.PageSize
}

// NewPagination creates a new Pagination with defaults.
func NewPagination(page, pageSize int) Pagination {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return Pagination{Page: page, PageSize: pageSize}
}

// DefaultPagination returns default pagination.
func DefaultPagination() Pagination {
	return NewPagination(1, DefaultPageSize)
}
