package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makerpath/progress-hub/internal/domain/shared"
	"github.com/makerpath/progress-hub/pkg/logger"
)

// Walks the full journey of one learner: anonymous snapshots, an email
// capture, account registration, and the migration into permanent storage.
func TestVisitorToAccountLifecycle(t *testing.T) {
	ctx := context.Background()

	progressRepo := newMemProgressRepo()
	accountRepo := newMemAccountRepo()
	formRepo := newMemFormRepo()
	checklistRepo := newMemChecklistRepo()
	publisher := &memPublisher{}

	save := NewSaveProgressHandler(progressRepo)
	link := NewLinkIdentityHandler(progressRepo, accountRepo, publisher)
	migrate := NewMigrateProgressHandler(progressRepo, formRepo, checklistRepo, publisher, logger.NewNop())

	// An anonymous visitor works through the first two units.
	for _, cmd := range []SaveProgressCommand{
		{OwnerKind: "visitor", OwnerID: "v_1", Kind: "form", UnitIndex: 0,
			Payload: []byte(`{"goal":"sell prints online","budget":"200"}`)},
		{OwnerKind: "visitor", OwnerID: "v_1", Kind: "checklist", UnitIndex: 0,
			Payload: []byte(`["pick-niche","register-domain"]`)},
		{OwnerKind: "visitor", OwnerID: "v_1", Kind: "form", UnitIndex: 1,
			Payload: []byte(`{"responses":{"audience":"art collectors"},"generatedContent":{"tips":["post daily"]}}`)},
	} {
		_, err := save.Handle(ctx, cmd)
		require.NoError(t, err)
	}

	// Newsletter signup captures the email.
	emailResult, err := link.HandleLinkEmail(ctx, LinkEmailCommand{VisitorID: "v_1", Email: "Jane@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", emailResult.Email)
	assert.Equal(t, 3, emailResult.RecordsLinked)

	// Registration links the account and creates it in the engine.
	accountResult, err := link.HandleLinkAccount(ctx, LinkAccountCommand{
		VisitorID: "v_1", AccountID: "acc_jane", Email: "jane@example.com",
	})
	require.NoError(t, err)
	assert.True(t, accountResult.AccountCreated)
	assert.Equal(t, 3, accountResult.RecordsLinked)

	// Migration copies everything into permanent storage.
	migrateResult, err := migrate.Handle(ctx, MigrateProgressCommand{VisitorID: "v_1", AccountID: "acc_jane"})
	require.NoError(t, err)
	assert.Equal(t, 2, migrateResult.FormsMigrated)
	assert.Equal(t, 2, migrateResult.ItemsMigrated)
	assert.Equal(t, 0, migrateResult.Malformed)

	accountID, err := shared.NewAccountID("acc_jane")
	require.NoError(t, err)

	responses, err := formRepo.ListByAccount(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, responses, 2)
	assert.JSONEq(t, `"sell prints online"`, string(responses[0].Answers["goal"]))
	assert.JSONEq(t, `{"tips":["post daily"]}`, string(responses[1].GeneratedContent))

	items, err := checklistRepo.ListItemIDs(ctx, accountID, 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"pick-niche", "register-domain"}, items)

	// The anonymous source records carry both stamps afterwards.
	visitorID, err := shared.NewVisitorID("v_1")
	require.NoError(t, err)
	sources, err := progressRepo.ListByOwner(ctx, shared.VisitorOwner(visitorID))
	require.NoError(t, err)
	require.Len(t, sources, 3)
	for _, record := range sources {
		assert.True(t, record.IsMigrated())
		assert.Equal(t, shared.Email("jane@example.com"), record.LinkedEmail)
		assert.Equal(t, accountID, record.LinkedAccount)
	}

	// A second migration finds nothing left to do.
	rerun, err := migrate.Handle(ctx, MigrateProgressCommand{VisitorID: "v_1", AccountID: "acc_jane"})
	require.NoError(t, err)
	assert.Zero(t, rerun.FormsMigrated)
	assert.Zero(t, rerun.ItemsMigrated)
	assert.Zero(t, rerun.Skipped)

	// Each stage announced itself exactly once, the migration twice.
	assert.Len(t, publisher.byType(shared.EventEmailLinked), 1)
	assert.Len(t, publisher.byType(shared.EventAccountLinked), 1)
	assert.Len(t, publisher.byType(shared.EventMigrationCompleted), 2)
}
