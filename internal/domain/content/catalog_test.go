package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makerpath/progress-hub/internal/domain/shared"
)

func TestNewCatalog_BuildsIndexes(t *testing.T) {
	catalog, err := NewCatalog([]*Unit{
		{Slug: "module-2", Kind: UnitModule, Position: 2,
			Unlock: &UnlockCondition{Kind: ConditionModuleComplete, Target: "module-1"}},
		{Slug: "module-1", Kind: UnitModule, Position: 1},
		{Slug: "bonus-day", Kind: UnitDay, Position: 3,
			Unlock: &UnlockCondition{Kind: ConditionQuizScore, Target: "module-1", Threshold: 80}},
	})
	require.NoError(t, err)

	// Units come back in position order regardless of input order.
	units := catalog.Units()
	require.Len(t, units, 3)
	assert.Equal(t, shared.UnitSlug("module-1"), units[0].Slug)

	deps := catalog.Dependents("module-1")
	require.Len(t, deps, 2)

	defaults := catalog.DefaultUnlocked()
	require.Len(t, defaults, 1)
	assert.Equal(t, shared.UnitSlug("module-1"), defaults[0].Slug)

	assert.Equal(t, 2, catalog.ModuleCount())
}

func TestNewCatalog_RejectsDuplicateSlug(t *testing.T) {
	_, err := NewCatalog([]*Unit{
		{Slug: "module-1", Kind: UnitModule, Position: 1},
		{Slug: "module-1", Kind: UnitModule, Position: 2},
	})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestNewCatalog_RejectsUnknownTarget(t *testing.T) {
	_, err := NewCatalog([]*Unit{
		{Slug: "module-1", Kind: UnitModule, Position: 1,
			Unlock: &UnlockCondition{Kind: ConditionModuleComplete, Target: "ghost"}},
	})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestNewCatalog_RejectsCycle(t *testing.T) {
	_, err := NewCatalog([]*Unit{
		{Slug: "module-1", Kind: UnitModule, Position: 1,
			Unlock: &UnlockCondition{Kind: ConditionModuleComplete, Target: "module-2"}},
		{Slug: "module-2", Kind: UnitModule, Position: 2,
			Unlock: &UnlockCondition{Kind: ConditionModuleComplete, Target: "module-1"}},
	})
	assert.ErrorIs(t, err, shared.ErrCatalogCycle)
}

func TestNewCatalog_RejectsBadThreshold(t *testing.T) {
	_, err := NewCatalog([]*Unit{
		{Slug: "module-1", Kind: UnitModule, Position: 1},
		{Slug: "module-2", Kind: UnitModule, Position: 2,
			Unlock: &UnlockCondition{Kind: ConditionQuizScore, Target: "module-1", Threshold: 150}},
	})
	assert.ErrorIs(t, err, shared.ErrValueOutOfRange)
}

func TestParseCatalog(t *testing.T) {
	data := []byte(`{
		"units": [
			{"slug": "module-1", "kind": "module", "title": "Find Your Idea", "position": 1,
			 "subUnits": ["lesson-1", "lesson-2"]},
			{"slug": "module-2", "kind": "module", "title": "Validate It", "position": 2,
			 "unlock": {"kind": "percentage-complete", "target": "module-1", "threshold": 50}}
		]
	}`)

	catalog, err := ParseCatalog(data)
	require.NoError(t, err)
	require.Equal(t, 2, catalog.Len())

	unit, err := catalog.Unit("module-2")
	require.NoError(t, err)
	require.NotNil(t, unit.Unlock)
	assert.Equal(t, ConditionPercentageComplete, unit.Unlock.Kind)
	assert.Equal(t, 50.0, unit.Unlock.Threshold)
}

func TestParseCatalog_Invalid(t *testing.T) {
	_, err := ParseCatalog([]byte(`not json`))
	assert.Error(t, err)

	_, err = ParseCatalog([]byte(`{"units": []}`))
	assert.ErrorIs(t, err, shared.ErrEmptyValue)
}

func TestCatalog_UnknownUnit(t *testing.T) {
	catalog, err := NewCatalog([]*Unit{{Slug: "module-1", Kind: UnitModule, Position: 1}})
	require.NoError(t, err)

	_, err = catalog.Unit("ghost")
	assert.ErrorIs(t, err, shared.ErrUnitNotFound)
}
