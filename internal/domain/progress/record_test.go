package progress

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makerpath/progress-hub/internal/domain/shared"
)

func newTestRecord(t *testing.T) *Record {
	t.Helper()
	record, err := NewRecord(NewRecordParams{
		ID:        "rec-1",
		Owner:     shared.VisitorOwner("v_123"),
		Kind:      shared.RecordForm,
		UnitIndex: 2,
		Payload:   json.RawMessage(`{"q1": "a"}`),
	})
	require.NoError(t, err)
	return record
}

func TestNewRecord_Validation(t *testing.T) {
	_, err := NewRecord(NewRecordParams{
		Owner:     shared.VisitorOwner("v_123"),
		Kind:      shared.RecordForm,
		UnitIndex: 0,
		Payload:   json.RawMessage(`{}`),
	})
	assert.Error(t, err, "missing id")

	_, err = NewRecord(NewRecordParams{
		ID:        "rec-1",
		Owner:     shared.OwnerRef{},
		Kind:      shared.RecordForm,
		Payload:   json.RawMessage(`{}`),
	})
	assert.ErrorIs(t, err, shared.ErrInvalidOwner)

	_, err = NewRecord(NewRecordParams{
		ID:        "rec-1",
		Owner:     shared.VisitorOwner("v_123"),
		Kind:      shared.RecordKind("essay"),
		Payload:   json.RawMessage(`{}`),
	})
	assert.ErrorIs(t, err, shared.ErrInvalidRecordKind)

	_, err = NewRecord(NewRecordParams{
		ID:        "rec-1",
		Owner:     shared.VisitorOwner("v_123"),
		Kind:      shared.RecordChecklist,
		UnitIndex: -1,
		Payload:   json.RawMessage(`{}`),
	})
	assert.ErrorIs(t, err, shared.ErrNegativeValue)
}

func TestRecord_Replace(t *testing.T) {
	record := newTestRecord(t)
	before := record.UpdatedAt

	err := record.Replace(json.RawMessage(`{"q1": "b"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"q1": "b"}`, string(record.Payload))
	assert.False(t, record.UpdatedAt.Before(before))

	assert.Error(t, record.Replace(nil))
}

func TestRecord_LinkEmail_FirstWriteWins(t *testing.T) {
	record := newTestRecord(t)

	assert.True(t, record.LinkEmail("jane@example.com"))
	assert.Equal(t, shared.Email("jane@example.com"), record.LinkedEmail)

	// Same email again is fine.
	assert.True(t, record.LinkEmail("jane@example.com"))

	// A different email does not displace the first one.
	assert.False(t, record.LinkEmail("mallory@example.com"))
	assert.Equal(t, shared.Email("jane@example.com"), record.LinkedEmail)
}

func TestRecord_LinkAccount_FirstWriteWins(t *testing.T) {
	record := newTestRecord(t)

	assert.True(t, record.LinkAccount("acc_1"))
	assert.True(t, record.LinkAccount("acc_1"))
	assert.False(t, record.LinkAccount("acc_2"))
	assert.Equal(t, shared.AccountID("acc_1"), record.LinkedAccount)
}

func TestRecord_MarkMigrated_Idempotent(t *testing.T) {
	record := newTestRecord(t)
	assert.False(t, record.IsMigrated())

	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	record.MarkMigrated("acc_1", first)
	require.True(t, record.IsMigrated())
	assert.Equal(t, first, *record.MigratedAt)
	assert.Equal(t, shared.AccountID("acc_1"), record.LinkedAccount)

	// A later call keeps the original stamps.
	record.MarkMigrated("acc_2", first.Add(48*time.Hour))
	assert.Equal(t, first, *record.MigratedAt)
	assert.Equal(t, shared.AccountID("acc_1"), record.LinkedAccount)
}

func TestRecord_MarkMigrated_KeepsEarlierAccountLink(t *testing.T) {
	record := newTestRecord(t)
	require.True(t, record.LinkAccount("acc_1"))

	record.MarkMigrated("acc_other", time.Now())
	assert.Equal(t, shared.AccountID("acc_1"), record.LinkedAccount)
}

func TestRecord_Clone(t *testing.T) {
	record := newTestRecord(t)
	record.MarkMigrated("acc_1", time.Now())

	clone := record.Clone()
	require.NotNil(t, clone)

	clone.Payload[0] = 'X'
	clone.LinkedEmail = "other@example.com"

	assert.JSONEq(t, `{"q1": "a"}`, string(record.Payload))
	assert.True(t, record.LinkedEmail.IsEmpty())
}
