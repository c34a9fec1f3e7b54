package command

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makerpath/progress-hub/internal/domain/shared"
)

func TestSaveProgress_UpsertReplacesPayload(t *testing.T) {
	repo := newMemProgressRepo()
	handler := NewSaveProgressHandler(repo)
	ctx := context.Background()

	first, err := handler.Handle(ctx, SaveProgressCommand{
		OwnerKind: "visitor", OwnerID: "v_1", Kind: "form", UnitIndex: 0,
		Payload: json.RawMessage(`{"goal":"draft"}`),
	})
	require.NoError(t, err)
	assert.True(t, first.Created)

	second, err := handler.Handle(ctx, SaveProgressCommand{
		OwnerKind: "visitor", OwnerID: "v_1", Kind: "form", UnitIndex: 0,
		Payload: json.RawMessage(`{"goal":"final"}`),
	})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.RecordID, second.RecordID)

	record, err := repo.Get(ctx, mustVisitorOwner(t, "v_1"), shared.RecordForm, 0)
	require.NoError(t, err)
	assert.JSONEq(t, `{"goal":"final"}`, string(record.Payload))
}

func TestSaveProgress_SeparateRecordsPerKindAndUnit(t *testing.T) {
	repo := newMemProgressRepo()
	handler := NewSaveProgressHandler(repo)
	ctx := context.Background()

	for _, cmd := range []SaveProgressCommand{
		{OwnerKind: "visitor", OwnerID: "v_1", Kind: "form", UnitIndex: 0, Payload: json.RawMessage(`{}`)},
		{OwnerKind: "visitor", OwnerID: "v_1", Kind: "checklist", UnitIndex: 0, Payload: json.RawMessage(`[]`)},
		{OwnerKind: "visitor", OwnerID: "v_1", Kind: "form", UnitIndex: 1, Payload: json.RawMessage(`{}`)},
	} {
		result, err := handler.Handle(ctx, cmd)
		require.NoError(t, err)
		assert.True(t, result.Created)
	}

	records, err := repo.ListByOwner(ctx, mustVisitorOwner(t, "v_1"))
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestSaveProgress_RejectsInvalidInput(t *testing.T) {
	handler := NewSaveProgressHandler(newMemProgressRepo())
	ctx := context.Background()

	cases := []SaveProgressCommand{
		{OwnerKind: "visitor", OwnerID: "", Kind: "form", UnitIndex: 0, Payload: json.RawMessage(`{}`)},
		{OwnerKind: "ghost", OwnerID: "v_1", Kind: "form", UnitIndex: 0, Payload: json.RawMessage(`{}`)},
		{OwnerKind: "visitor", OwnerID: "v_1", Kind: "diary", UnitIndex: 0, Payload: json.RawMessage(`{}`)},
		{OwnerKind: "visitor", OwnerID: "v_1", Kind: "form", UnitIndex: -1, Payload: json.RawMessage(`{}`)},
		{OwnerKind: "visitor", OwnerID: "v_1", Kind: "form", UnitIndex: 0, Payload: json.RawMessage(`{broken`)},
	}
	for _, cmd := range cases {
		_, err := handler.Handle(ctx, cmd)
		assert.Error(t, err)
	}
}

func TestLinkEmail_NormalizesAndStampsUnclaimedRecords(t *testing.T) {
	progressRepo := newMemProgressRepo()
	handler := NewLinkIdentityHandler(progressRepo, newMemAccountRepo(), &memPublisher{})
	ctx := context.Background()

	saveSnapshot(t, progressRepo, "v_1", "form", 0, `{"goal":"x"}`)
	saveSnapshot(t, progressRepo, "v_1", "checklist", 0, `["a"]`)

	result, err := handler.HandleLinkEmail(ctx, LinkEmailCommand{VisitorID: "v_1", Email: "  Jane@Example.COM "})
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", result.Email)
	assert.Equal(t, 2, result.RecordsLinked)
	assert.Equal(t, 0, result.RecordsKept)
}

func TestLinkEmail_FirstWriteWinsPerRecord(t *testing.T) {
	progressRepo := newMemProgressRepo()
	handler := NewLinkIdentityHandler(progressRepo, newMemAccountRepo(), &memPublisher{})
	ctx := context.Background()

	saveSnapshot(t, progressRepo, "v_1", "form", 0, `{"goal":"x"}`)

	_, err := handler.HandleLinkEmail(ctx, LinkEmailCommand{VisitorID: "v_1", Email: "first@example.com"})
	require.NoError(t, err)

	// A later snapshot from the same session is unclaimed until linked.
	saveSnapshot(t, progressRepo, "v_1", "form", 1, `{"goal":"y"}`)

	result, err := handler.HandleLinkEmail(ctx, LinkEmailCommand{VisitorID: "v_1", Email: "second@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.RecordsLinked, "only the new record takes the second email")
	assert.Equal(t, 1, result.RecordsKept, "the first record keeps its original email")

	record, err := progressRepo.Get(ctx, mustVisitorOwner(t, "v_1"), shared.RecordForm, 0)
	require.NoError(t, err)
	assert.Equal(t, "first@example.com", record.LinkedEmail.String())
}

func TestLinkEmail_SameEmailRelinksCleanly(t *testing.T) {
	progressRepo := newMemProgressRepo()
	handler := NewLinkIdentityHandler(progressRepo, newMemAccountRepo(), &memPublisher{})
	ctx := context.Background()

	saveSnapshot(t, progressRepo, "v_1", "form", 0, `{"goal":"x"}`)

	_, err := handler.HandleLinkEmail(ctx, LinkEmailCommand{VisitorID: "v_1", Email: "jane@example.com"})
	require.NoError(t, err)
	result, err := handler.HandleLinkEmail(ctx, LinkEmailCommand{VisitorID: "v_1", Email: "JANE@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", result.Email, "case differences normalize to the same email")
	assert.Equal(t, 0, result.RecordsLinked, "relinking the same email is a no-op")
	assert.Equal(t, 0, result.RecordsKept)
}

func TestLinkAccount_RegistersAccountOnFirstContact(t *testing.T) {
	progressRepo := newMemProgressRepo()
	accountRepo := newMemAccountRepo()
	handler := NewLinkIdentityHandler(progressRepo, accountRepo, &memPublisher{})
	ctx := context.Background()

	saveSnapshot(t, progressRepo, "v_1", "form", 0, `{"goal":"x"}`)

	result, err := handler.HandleLinkAccount(ctx, LinkAccountCommand{
		VisitorID: "v_1", AccountID: "acc_1", Email: "jane@example.com",
	})
	require.NoError(t, err)
	assert.True(t, result.AccountCreated)
	assert.Equal(t, 1, result.RecordsLinked)

	again, err := handler.HandleLinkAccount(ctx, LinkAccountCommand{
		VisitorID: "v_1", AccountID: "acc_1", Email: "jane@example.com",
	})
	require.NoError(t, err)
	assert.False(t, again.AccountCreated)
	assert.Equal(t, 0, again.RecordsLinked, "relinking the same account is a no-op")
	assert.Equal(t, 0, again.RecordsKept)
}

func TestLinkAccount_UnknownAccountWithoutEmailFails(t *testing.T) {
	handler := NewLinkIdentityHandler(newMemProgressRepo(), newMemAccountRepo(), &memPublisher{})

	_, err := handler.HandleLinkAccount(context.Background(), LinkAccountCommand{
		VisitorID: "v_1", AccountID: "acc_1",
	})
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}
