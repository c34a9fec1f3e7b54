package command

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makerpath/progress-hub/internal/domain/progress"
	"github.com/makerpath/progress-hub/internal/domain/shared"
	"github.com/makerpath/progress-hub/pkg/logger"
)

func newMigrateFixture() (*MigrateProgressHandler, *memProgressRepo, *memFormRepo, *memChecklistRepo, *memPublisher) {
	progressRepo := newMemProgressRepo()
	formRepo := newMemFormRepo()
	checklistRepo := newMemChecklistRepo()
	publisher := &memPublisher{}
	handler := NewMigrateProgressHandler(progressRepo, formRepo, checklistRepo, publisher, logger.NewNop())
	return handler, progressRepo, formRepo, checklistRepo, publisher
}

func saveSnapshot(t *testing.T, repo *memProgressRepo, visitorID, kind string, unitIndex int, payload string) {
	t.Helper()
	saver := NewSaveProgressHandler(repo)
	_, err := saver.Handle(context.Background(), SaveProgressCommand{
		OwnerKind: shared.OwnerVisitor.String(),
		OwnerID:   visitorID,
		Kind:      kind,
		UnitIndex: unitIndex,
		Payload:   json.RawMessage(payload),
	})
	require.NoError(t, err)
}

func TestMigrateProgress_CopiesFormsAndChecklists(t *testing.T) {
	handler, progressRepo, formRepo, checklistRepo, publisher := newMigrateFixture()
	ctx := context.Background()

	saveSnapshot(t, progressRepo, "v_1", "form", 0, `{"goal":"launch a store"}`)
	saveSnapshot(t, progressRepo, "v_1", "form", 2, `{"responses":{"budget":"500"},"generatedContent":{"tips":["start small"]}}`)
	saveSnapshot(t, progressRepo, "v_1", "checklist", 1, `["item-a","item-b"]`)

	result, err := handler.Handle(ctx, MigrateProgressCommand{VisitorID: "v_1", AccountID: "acc_1"})
	require.NoError(t, err)

	assert.Equal(t, 2, result.FormsMigrated)
	assert.Equal(t, 2, result.ItemsMigrated)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 0, result.Malformed)

	accountID, err := shared.NewAccountID("acc_1")
	require.NoError(t, err)

	responses, err := formRepo.ListByAccount(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, responses, 2)
	assert.Equal(t, "v_1", responses[0].SourceVisitorID.String())
	assert.JSONEq(t, `"launch a store"`, string(responses[0].Answers["goal"]))

	items, err := checklistRepo.ListItemIDs(ctx, accountID, 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"item-a", "item-b"}, items)

	events := publisher.byType(shared.EventMigrationCompleted)
	require.Len(t, events, 1)
}

func TestMigrateProgress_RerunIsIdempotent(t *testing.T) {
	handler, progressRepo, formRepo, checklistRepo, _ := newMigrateFixture()
	ctx := context.Background()

	saveSnapshot(t, progressRepo, "v_1", "form", 0, `{"goal":"x"}`)
	saveSnapshot(t, progressRepo, "v_1", "checklist", 0, `["a","b","c"]`)

	first, err := handler.Handle(ctx, MigrateProgressCommand{VisitorID: "v_1", AccountID: "acc_1"})
	require.NoError(t, err)
	assert.Equal(t, 1, first.FormsMigrated)
	assert.Equal(t, 3, first.ItemsMigrated)

	second, err := handler.Handle(ctx, MigrateProgressCommand{VisitorID: "v_1", AccountID: "acc_1"})
	require.NoError(t, err)
	assert.Equal(t, 0, second.FormsMigrated)
	assert.Equal(t, 0, second.ItemsMigrated)
	assert.Equal(t, 0, second.Skipped, "stamped records are not even listed on rerun")

	accountID, err := shared.NewAccountID("acc_1")
	require.NoError(t, err)
	responses, err := formRepo.ListByAccount(ctx, accountID)
	require.NoError(t, err)
	assert.Len(t, responses, 1)
	items, err := checklistRepo.ListItemIDs(ctx, accountID, 0)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestMigrateProgress_ChecklistItemsAreIdempotentAcrossSources(t *testing.T) {
	handler, progressRepo, _, checklistRepo, _ := newMigrateFixture()
	ctx := context.Background()

	// Two visitor sessions completed overlapping items for the same unit.
	saveSnapshot(t, progressRepo, "v_1", "checklist", 0, `["a","b"]`)
	saveSnapshot(t, progressRepo, "v_2", "checklist", 0, `{"completedItems":["b","c"]}`)

	_, err := handler.Handle(ctx, MigrateProgressCommand{VisitorID: "v_1", AccountID: "acc_1"})
	require.NoError(t, err)
	result, err := handler.Handle(ctx, MigrateProgressCommand{VisitorID: "v_2", AccountID: "acc_1"})
	require.NoError(t, err)

	assert.Equal(t, 1, result.ItemsMigrated, "only c is new")
	assert.Equal(t, 1, result.Skipped, "b was already completed")

	accountID, err := shared.NewAccountID("acc_1")
	require.NoError(t, err)
	items, err := checklistRepo.ListItemIDs(ctx, accountID, 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, items)
}

func TestMigrateProgress_MalformedRecordDoesNotBlockTheRest(t *testing.T) {
	handler, progressRepo, formRepo, _, _ := newMigrateFixture()
	ctx := context.Background()

	saveSnapshot(t, progressRepo, "v_1", "form", 0, `["not","an","object"]`)
	saveSnapshot(t, progressRepo, "v_1", "form", 1, `{"goal":"y"}`)

	result, err := handler.Handle(ctx, MigrateProgressCommand{VisitorID: "v_1", AccountID: "acc_1"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Malformed)
	assert.Equal(t, 1, result.FormsMigrated)

	// The malformed record is stamped too, so it never retries.
	owner := mustVisitorOwner(t, "v_1")
	remaining, err := progressRepo.ListUnmigratedByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	accountID, err := shared.NewAccountID("acc_1")
	require.NoError(t, err)
	responses, err := formRepo.ListByAccount(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, 1, responses[0].UnitIndex)
}

func TestMigrateProgress_StampsAccountWithoutPriorLink(t *testing.T) {
	handler, progressRepo, _, _, _ := newMigrateFixture()
	ctx := context.Background()

	// Migration fired straight from checkout, with no link-account call
	// before it. The source records must still end up claimed.
	saveSnapshot(t, progressRepo, "v_1", "form", 0, `{"goal":"z"}`)
	saveSnapshot(t, progressRepo, "v_1", "checklist", 0, `["a"]`)

	_, err := handler.Handle(ctx, MigrateProgressCommand{VisitorID: "v_1", AccountID: "acc_1"})
	require.NoError(t, err)

	records, err := progressRepo.ListByOwner(ctx, mustVisitorOwner(t, "v_1"))
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, record := range records {
		assert.True(t, record.IsMigrated())
		assert.Equal(t, shared.AccountID("acc_1"), record.LinkedAccount)
	}
}

func TestMigrateProgress_ExistingFormResponseWins(t *testing.T) {
	handler, progressRepo, formRepo, _, _ := newMigrateFixture()
	ctx := context.Background()

	accountID, err := shared.NewAccountID("acc_1")
	require.NoError(t, err)
	visitorID, err := shared.NewVisitorID("v_0")
	require.NoError(t, err)
	existing, err := progress.NewFormResponse("resp-1", accountID, 0, progress.FormPayload{
		Responses: map[string]json.RawMessage{"goal": json.RawMessage(`"original"`)},
	}, visitorID)
	require.NoError(t, err)
	require.NoError(t, formRepo.Insert(ctx, existing))

	saveSnapshot(t, progressRepo, "v_1", "form", 0, `{"goal":"late arrival"}`)

	result, err := handler.Handle(ctx, MigrateProgressCommand{VisitorID: "v_1", AccountID: "acc_1"})
	require.NoError(t, err)
	assert.Equal(t, 0, result.FormsMigrated)
	assert.Equal(t, 1, result.Skipped)

	got, err := formRepo.Get(ctx, accountID, 0)
	require.NoError(t, err)
	assert.JSONEq(t, `"original"`, string(got.Answers["goal"]))
}

func mustVisitorOwner(t *testing.T, id string) shared.OwnerRef {
	t.Helper()
	visitorID, err := shared.NewVisitorID(id)
	require.NoError(t, err)
	return shared.VisitorOwner(visitorID)
}
