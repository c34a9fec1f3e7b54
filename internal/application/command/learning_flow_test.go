package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makerpath/progress-hub/internal/domain/achievement"
	"github.com/makerpath/progress-hub/internal/domain/content"
	"github.com/makerpath/progress-hub/internal/domain/identity"
	"github.com/makerpath/progress-hub/internal/domain/shared"
)

const testCatalogJSON = `{
	"units": [
		{"slug": "getting-started", "kind": "module", "title": "Getting Started", "position": 1,
		 "subUnits": ["intro", "setup"]},
		{"slug": "first-sale", "kind": "module", "title": "First Sale", "position": 2,
		 "unlock": {"kind": "module-complete", "target": "getting-started"}},
		{"slug": "quiz-gate", "kind": "lesson", "title": "Pricing Quiz Gate", "position": 3,
		 "unlock": {"kind": "quiz-score", "target": "first-sale", "threshold": 80}},
		{"slug": "bonus-track", "kind": "lesson", "title": "Bonus Track", "position": 4,
		 "unlock": {"kind": "percentage-complete", "target": "getting-started", "threshold": 50}}
	]
}`

func mustTestCatalog(t *testing.T) *content.Catalog {
	t.Helper()
	catalog, err := content.ParseCatalog([]byte(testCatalogJSON))
	require.NoError(t, err)
	return catalog
}

func mustAccount(t *testing.T, repo *memAccountRepo, id, email string) shared.AccountID {
	t.Helper()
	accountID, err := shared.NewAccountID(id)
	require.NoError(t, err)
	addr, err := shared.NewEmail(email)
	require.NoError(t, err)
	account, err := identity.NewAccount(accountID, addr)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), account))
	return accountID
}

func TestCompleteUnit_FiresEventOnlyOnFirstCompletion(t *testing.T) {
	catalog := mustTestCatalog(t)
	completionRepo := newMemCompletionRepo()
	publisher := &memPublisher{}
	handler := NewUnitProgressHandler(catalog, completionRepo, publisher, DefaultUnitProgressHandlerConfig())
	ctx := context.Background()

	score := 90.0
	first, err := handler.HandleComplete(ctx, CompleteUnitCommand{
		AccountID: "acc_1", UnitSlug: "getting-started", QuizScore: &score, TimeSpentMinutes: 30,
	})
	require.NoError(t, err)
	assert.False(t, first.AlreadyCompleted)
	require.NotNil(t, first.QuizPassed)
	assert.True(t, *first.QuizPassed)

	second, err := handler.HandleComplete(ctx, CompleteUnitCommand{
		AccountID: "acc_1", UnitSlug: "getting-started",
	})
	require.NoError(t, err)
	assert.True(t, second.AlreadyCompleted)

	assert.Len(t, publisher.byType(shared.EventUnitCompleted), 1)
}

func TestCompleteUnit_UnknownUnitRejected(t *testing.T) {
	handler := NewUnitProgressHandler(mustTestCatalog(t), newMemCompletionRepo(), &memPublisher{}, DefaultUnitProgressHandlerConfig())

	_, err := handler.HandleComplete(context.Background(), CompleteUnitCommand{
		AccountID: "acc_1", UnitSlug: "no-such-unit",
	})
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestUpdateUnitProgress_AccumulatesSteps(t *testing.T) {
	catalog := mustTestCatalog(t)
	completionRepo := newMemCompletionRepo()
	handler := NewUnitProgressHandler(catalog, completionRepo, &memPublisher{}, DefaultUnitProgressHandlerConfig())
	ctx := context.Background()

	require.NoError(t, handler.HandleUpdate(ctx, UpdateUnitProgressCommand{
		AccountID: "acc_1", UnitSlug: "getting-started", SubUnitID: "intro", TimeSpentMinutes: 10,
	}))
	require.NoError(t, handler.HandleUpdate(ctx, UpdateUnitProgressCommand{
		AccountID: "acc_1", UnitSlug: "getting-started", SubUnitID: "intro",
	}))

	accountID, err := shared.NewAccountID("acc_1")
	require.NoError(t, err)
	slug, err := shared.NewUnitSlug("getting-started")
	require.NoError(t, err)
	state, err := completionRepo.Get(ctx, accountID, slug)
	require.NoError(t, err)

	assert.Equal(t, []string{"intro"}, state.CompletedSubUnits, "repeated step completion deduplicates")
	assert.Equal(t, 10, state.TimeSpentMinutes)
	assert.Equal(t, content.StatusInProgress, state.Status)

	unit, err := catalog.Unit(slug)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, state.PercentComplete(unit), 0.001)
}

func TestEvaluateUnlocks_PrerequisiteChain(t *testing.T) {
	catalog := mustTestCatalog(t)
	completionRepo := newMemCompletionRepo()
	unlockRepo := newMemUnlockRepo()
	publisher := &memPublisher{}
	progressHandler := NewUnitProgressHandler(catalog, completionRepo, publisher, DefaultUnitProgressHandlerConfig())
	unlockHandler := NewEvaluateUnlocksHandler(catalog, completionRepo, unlockRepo, publisher)
	ctx := context.Background()

	score := 85.0
	_, err := progressHandler.HandleComplete(ctx, CompleteUnitCommand{
		AccountID: "acc_1", UnitSlug: "getting-started", QuizScore: &score,
	})
	require.NoError(t, err)

	result, err := unlockHandler.Handle(ctx, EvaluateUnlocksCommand{
		AccountID: "acc_1", ChangedUnit: "getting-started",
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"first-sale", "bonus-track"}, result.Unlocked,
		"module completion satisfies both the module-complete and percentage gates")

	// Re-evaluating inserts nothing new.
	again, err := unlockHandler.Handle(ctx, EvaluateUnlocksCommand{
		AccountID: "acc_1", ChangedUnit: "getting-started",
	})
	require.NoError(t, err)
	assert.Empty(t, again.Unlocked)

	assert.Len(t, publisher.byType(shared.EventUnitUnlocked), 2)
}

func TestEvaluateUnlocks_QuizScoreGate(t *testing.T) {
	catalog := mustTestCatalog(t)
	completionRepo := newMemCompletionRepo()
	unlockRepo := newMemUnlockRepo()
	progressHandler := NewUnitProgressHandler(catalog, completionRepo, &memPublisher{}, DefaultUnitProgressHandlerConfig())
	unlockHandler := NewEvaluateUnlocksHandler(catalog, completionRepo, unlockRepo, &memPublisher{})
	ctx := context.Background()

	low := 70.0
	_, err := progressHandler.HandleComplete(ctx, CompleteUnitCommand{
		AccountID: "acc_1", UnitSlug: "first-sale", QuizScore: &low,
	})
	require.NoError(t, err)

	result, err := unlockHandler.Handle(ctx, EvaluateUnlocksCommand{AccountID: "acc_1", ChangedUnit: "first-sale"})
	require.NoError(t, err)
	assert.Empty(t, result.Unlocked, "70 does not meet the 80 threshold")

	exact := 80.0
	require.NoError(t, progressHandler.HandleUpdate(ctx, UpdateUnitProgressCommand{
		AccountID: "acc_1", UnitSlug: "first-sale", QuizScore: &exact,
	}))

	result, err = unlockHandler.Handle(ctx, EvaluateUnlocksCommand{AccountID: "acc_1", ChangedUnit: "first-sale"})
	require.NoError(t, err)
	assert.Equal(t, []string{"quiz-gate"}, result.Unlocked, "the threshold is inclusive")
}

func TestEvaluateUnlocks_EnsureDefaultsAndManualGrant(t *testing.T) {
	catalog := mustTestCatalog(t)
	unlockRepo := newMemUnlockRepo()
	handler := NewEvaluateUnlocksHandler(catalog, newMemCompletionRepo(), unlockRepo, &memPublisher{})
	ctx := context.Background()

	require.NoError(t, handler.EnsureDefaults(ctx, "acc_1", ""))

	accountID, err := shared.NewAccountID("acc_1")
	require.NoError(t, err)
	records, err := unlockRepo.ListByAccount(ctx, accountID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "getting-started", records[0].Unit.String())
	assert.Equal(t, content.ReasonDefault, records[0].Reason)

	inserted, err := handler.Grant(ctx, "acc_1", "bonus-track", content.ReasonManual, "")
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = handler.Grant(ctx, "acc_1", "bonus-track", content.ReasonManual, "")
	require.NoError(t, err)
	assert.False(t, inserted, "unlocks are monotonic")

	_, err = handler.Grant(ctx, "acc_1", "bonus-track", content.ReasonPrerequisite, "")
	require.Error(t, err, "graph reasons cannot be granted by hand")
}

func TestEvaluateAchievements_GrantsOnceAndCreditsXP(t *testing.T) {
	catalog := mustTestCatalog(t)
	completionRepo := newMemCompletionRepo()
	accountRepo := newMemAccountRepo()
	achievementRepo := newMemAchievementRepo()
	publisher := &memPublisher{}
	engine, err := achievement.NewEngine(achievement.DefaultCatalog())
	require.NoError(t, err)

	handler := NewEvaluateAchievementsHandler(
		engine, catalog, completionRepo, newMemStreakRepo(), achievementRepo, accountRepo, publisher)
	progressHandler := NewUnitProgressHandler(catalog, completionRepo, &memPublisher{}, DefaultUnitProgressHandlerConfig())
	ctx := context.Background()

	accountID := mustAccount(t, accountRepo, "acc_1", "jane@example.com")

	_, err = progressHandler.HandleComplete(ctx, CompleteUnitCommand{
		AccountID: "acc_1", UnitSlug: "getting-started", TimeSpentMinutes: 45,
	})
	require.NoError(t, err)

	result, err := handler.Handle(ctx, EvaluateAchievementsCommand{AccountID: "acc_1"})
	require.NoError(t, err)
	assert.Contains(t, result.Granted, "first-steps")
	assert.Contains(t, result.Granted, "module-1-done")
	assert.Equal(t, 150, result.RewardXP)

	account, err := accountRepo.GetByID(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, 150, account.TotalXP.Int())

	again, err := handler.Handle(ctx, EvaluateAchievementsCommand{AccountID: "acc_1"})
	require.NoError(t, err)
	assert.Empty(t, again.Granted, "achievements are granted at most once")
	assert.Equal(t, 150, account.TotalXP.Int(), "no double XP")

	assert.Len(t, publisher.byType(shared.EventAchievementGranted), 2)
	assert.Len(t, publisher.byType(shared.EventXPGained), 1)
}

func TestRecordActivity_StreakLifecycle(t *testing.T) {
	streakRepo := newMemStreakRepo()
	accountRepo := newMemAccountRepo()
	publisher := &memPublisher{}
	handler := NewRecordActivityHandler(streakRepo, accountRepo, publisher, DefaultRecordActivityHandlerConfig())
	ctx := context.Background()

	mustAccount(t, accountRepo, "acc_1", "jane@example.com")
	day1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	first, err := handler.Handle(ctx, RecordActivityCommand{AccountID: "acc_1", At: day1, Minutes: 20})
	require.NoError(t, err)
	assert.Equal(t, 1, first.CurrentStreak)
	assert.True(t, first.Extended)

	next, err := handler.Handle(ctx, RecordActivityCommand{AccountID: "acc_1", At: day1.AddDate(0, 0, 1), Minutes: 15})
	require.NoError(t, err)
	assert.Equal(t, 2, next.CurrentStreak)
	assert.True(t, next.Extended)

	same, err := handler.Handle(ctx, RecordActivityCommand{AccountID: "acc_1", At: day1.AddDate(0, 0, 1).Add(5 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, 2, same.CurrentStreak)
	assert.True(t, same.SameDay)

	reset, err := handler.Handle(ctx, RecordActivityCommand{AccountID: "acc_1", At: day1.AddDate(0, 0, 4), Minutes: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, reset.CurrentStreak)
	assert.True(t, reset.StreakBroken)
	assert.Equal(t, 2, reset.PreviousStreak)
	assert.Equal(t, 2, reset.LongestStreak, "longest survives the reset")

	assert.Len(t, publisher.byType(shared.EventStreakBroken), 1)
	assert.Len(t, publisher.byType(shared.EventStreakUpdated), 4)

	// Last-activity bookkeeping followed along.
	accountID, err := shared.NewAccountID("acc_1")
	require.NoError(t, err)
	account, err := accountRepo.GetByID(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, day1.AddDate(0, 0, 4), account.LastActiveAt)
}
