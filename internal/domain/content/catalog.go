package content

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/makerpath/progress-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG
// The catalog is loaded once at startup from authored JSON and is immutable
// afterwards. Indexes are built at load so evaluation stays O(dependents).
// ══════════════════════════════════════════════════════════════════════════════

// Catalog is the validated set of course units and their unlock graph.
type Catalog struct {
	units      []*Unit
	bySlug     map[shared.UnitSlug]*Unit
	dependents map[shared.UnitSlug][]*Unit // target slug -> units gated on it
}

// NewCatalog builds and validates a catalog from authored units.
// It rejects duplicate slugs, conditions pointing at unknown units,
// and cycles in the unlock graph.
func NewCatalog(units []*Unit) (*Catalog, error) {
	c := &Catalog{
		units:      make([]*Unit, 0, len(units)),
		bySlug:     make(map[shared.UnitSlug]*Unit, len(units)),
		dependents: make(map[shared.UnitSlug][]*Unit),
	}

	for _, u := range units {
		if !u.Slug.IsValid() {
			return nil, shared.ErrInvalidUnitSlug
		}
		if !u.Kind.IsValid() {
			return nil, shared.NewDomainError("content", "Load", shared.ErrInvalidInput,
				fmt.Sprintf("unit %s has unknown kind %q", u.Slug, u.Kind))
		}
		if _, dup := c.bySlug[u.Slug]; dup {
			return nil, shared.WrapError("content", "Load", shared.ErrAlreadyExists,
				fmt.Sprintf("duplicate unit slug %s", u.Slug), shared.ErrDuplicateCatalogSlug)
		}
		c.bySlug[u.Slug] = u
		c.units = append(c.units, u)
	}

	sort.SliceStable(c.units, func(i, j int) bool {
		return c.units[i].Position < c.units[j].Position
	})

	for _, u := range c.units {
		if u.Unlock == nil {
			continue
		}
		if err := u.Unlock.Validate(); err != nil {
			return nil, err
		}
		if _, ok := c.bySlug[u.Unlock.Target]; !ok {
			return nil, shared.NewDomainError("content", "Load", shared.ErrInvalidInput,
				fmt.Sprintf("unit %s is gated on unknown unit %s", u.Slug, u.Unlock.Target))
		}
		c.dependents[u.Unlock.Target] = append(c.dependents[u.Unlock.Target], u)
	}

	if err := c.checkCycles(); err != nil {
		return nil, err
	}

	return c, nil
}

// checkCycles walks the unit -> condition-target edges with a three-color DFS.
func (c *Catalog) checkCycles() error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[shared.UnitSlug]int, len(c.units))

	var visit func(slug shared.UnitSlug) error
	visit = func(slug shared.UnitSlug) error {
		switch color[slug] {
		case gray:
			return shared.ErrCatalogCycle
		case black:
			return nil
		}
		color[slug] = gray
		if u := c.bySlug[slug]; u.Unlock != nil {
			if err := visit(u.Unlock.Target); err != nil {
				return err
			}
		}
		color[slug] = black
		return nil
	}

	for _, u := range c.units {
		if err := visit(u.Slug); err != nil {
			return err
		}
	}
	return nil
}

// Unit returns the unit with the given slug.
// Returns shared.ErrUnitNotFound when absent.
func (c *Catalog) Unit(slug shared.UnitSlug) (*Unit, error) {
	u, ok := c.bySlug[slug]
	if !ok {
		return nil, shared.ErrUnitNotFound
	}
	return u, nil
}

// Units returns all units ordered by position.
func (c *Catalog) Units() []*Unit {
	return c.units
}

// Len returns the number of units in the catalog.
func (c *Catalog) Len() int {
	return len(c.units)
}

// ModuleCount returns the number of module-kind units. Course-complete
// achievements are measured against this.
func (c *Catalog) ModuleCount() int {
	n := 0
	for _, u := range c.units {
		if u.Kind == UnitModule {
			n++
		}
	}
	return n
}

// Dependents returns the units whose unlock condition reads the given
// unit's state, in position order.
func (c *Catalog) Dependents(slug shared.UnitSlug) []*Unit {
	return c.dependents[slug]
}

// DefaultUnlocked returns the units with no gating condition.
func (c *Catalog) DefaultUnlocked() []*Unit {
	var out []*Unit
	for _, u := range c.units {
		if u.IsDefaultUnlocked() {
			out = append(out, u)
		}
	}
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// JSON loading
// ──────────────────────────────────────────────────────────────────────────────

type catalogFile struct {
	Units []unitDTO `json:"units"`
}

type unitDTO struct {
	Slug     string        `json:"slug"`
	Kind     string        `json:"kind"`
	Title    string        `json:"title"`
	Position int           `json:"position"`
	SubUnits []string      `json:"subUnits,omitempty"`
	Unlock   *conditionDTO `json:"unlock,omitempty"`
}

type conditionDTO struct {
	Kind      string  `json:"kind"`
	Target    string  `json:"target"`
	Threshold float64 `json:"threshold,omitempty"`
}

// ParseCatalog loads a catalog from authored JSON.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, shared.WrapError("content", "Load", shared.ErrInvalidFormat, "catalog is not valid JSON", err)
	}
	if len(file.Units) == 0 {
		return nil, shared.NewDomainError("content", "Load", shared.ErrEmptyValue, "catalog has no units")
	}

	units := make([]*Unit, 0, len(file.Units))
	for _, dto := range file.Units {
		slug, err := shared.NewUnitSlug(dto.Slug)
		if err != nil {
			return nil, err
		}
		u := &Unit{
			Slug:     slug,
			Kind:     UnitKind(dto.Kind),
			Title:    dto.Title,
			Position: dto.Position,
			SubUnits: dto.SubUnits,
		}
		if dto.Unlock != nil {
			target, err := shared.NewUnitSlug(dto.Unlock.Target)
			if err != nil {
				return nil, err
			}
			u.Unlock = &UnlockCondition{
				Kind:      ConditionKind(dto.Unlock.Kind),
				Target:    target,
				Threshold: dto.Unlock.Threshold,
			}
		}
		units = append(units, u)
	}

	return NewCatalog(units)
}
