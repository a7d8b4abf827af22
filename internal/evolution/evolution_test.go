package evolution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestNodesForTier(t *testing.T) {
	c := MustDefaultCatalog()

	assert.Empty(t, c.NodesForTier(0))
	assert.Empty(t, c.NodesForTier(9))
	assert.Equal(t, []string{"eggs-1", "digestion-1"}, ids(c.NodesForTier(10)))

	tier2 := ids(c.NodesForTier(25))
	assert.ElementsMatch(t, []string{"eggs-1", "digestion-1", "claws-1", "eggs-2", "co-op-1"}, tier2)

	assert.Len(t, c.NodesForTier(1000), len(DefaultNodes()))
}

func TestTier(t *testing.T) {
	c := MustDefaultCatalog()
	assert.Equal(t, 0, c.Tier(-5))
	assert.Equal(t, 0, c.Tier(9))
	assert.Equal(t, 1, c.Tier(10))
	assert.Equal(t, 3, c.Tier(39))
}

func TestCheckPurchase(t *testing.T) {
	c := MustDefaultCatalog()

	require.NoError(t, c.CheckPurchase("eggs-1", 10, 5, nil))
	assert.ErrorIs(t, c.CheckPurchase("nope", 100, 100, nil), ErrUnknownNode)
	assert.ErrorIs(t, c.CheckPurchase("eggs-1", 10, 4, nil), ErrInsufficientEP)
	assert.ErrorIs(t, c.CheckPurchase("eggs-1", 9, 100, nil), ErrNotVisible)
	assert.ErrorIs(t, c.CheckPurchase("eggs-1", 10, 100, []string{"eggs-1"}), ErrAlreadyPurchased)
	assert.ErrorIs(t, c.CheckPurchase("eggs-2", 20, 100, nil), ErrMissingPrerequisite)
	require.NoError(t, c.CheckPurchase("eggs-2", 20, 15, []string{"eggs-1"}))
	assert.ErrorIs(t, c.CheckPurchase("arms-2", 40, 100, []string{"arms-1"}), ErrMissingPrerequisite)
}

func TestAggregate(t *testing.T) {
	c := MustDefaultCatalog()

	m := c.Aggregate(nil)
	assert.Equal(t, NewModifiers(), m)

	m = c.Aggregate([]string{"eggs-1", "eggs-2", "digestion-1", "digestion-2", "claws-1", "co-op-1"})
	assert.InDelta(t, 2.25, m.EggMultiplier, 1e-9)
	assert.Equal(t, 3, m.ExtraFoodTiles)
	assert.Equal(t, 25, m.PredatorMitigationPct)
	assert.Equal(t, 10000, m.PopCapIncrease)
	assert.Equal(t, 1, m.GroupsIncrease)
}

func TestAggregate_IgnoresDuplicatesAndUnknown(t *testing.T) {
	c := MustDefaultCatalog()
	m := c.Aggregate([]string{"digestion-1", "digestion-1", "ghost"})
	assert.Equal(t, 1, m.ExtraFoodTiles)
}

func TestModifiers_MitigationCapped(t *testing.T) {
	m := NewModifiers().Add(Effects{PredatorMitigationPct: 80}).Add(Effects{PredatorMitigationPct: 80})
	assert.Equal(t, 100, m.PredatorMitigationPct)
}

func TestEggsPerClutch(t *testing.T) {
	c := MustDefaultCatalog()
	assert.Equal(t, 3, EggsPerClutch(3, NewModifiers()))
	assert.Equal(t, 4, EggsPerClutch(3, c.Aggregate([]string{"eggs-1"})))
	assert.Equal(t, 6, EggsPerClutch(3, c.Aggregate([]string{"eggs-1", "eggs-2"})))

	m := NewModifiers()
	m.EggBonus = 1
	assert.Equal(t, 4, EggsPerClutch(3, m))
	assert.Equal(t, 3, EggsPerClutch(3, Modifiers{}))
}

func TestNewCatalog_Invalid(t *testing.T) {
	_, err := NewCatalog([]Node{{ID: "a"}, {ID: "a"}}, 10)
	assert.Error(t, err)

	_, err = NewCatalog([]Node{{ID: "a", Requires: []string{"b"}}}, 10)
	assert.Error(t, err)

	c, err := NewCatalog([]Node{{ID: "a", Tier: 1}}, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultMilestoneStep, c.Step())
}

func TestTraits(t *testing.T) {
	ts, err := NewTraitSet(DefaultTraits())
	require.NoError(t, err)
	assert.Equal(t, []string{SlotClutch, SlotForage, SlotHide}, ts.Slots())

	require.NoError(t, ts.CheckEquip(SlotClutch, "wide-nest", 0))
	assert.ErrorIs(t, ts.CheckEquip(SlotClutch, "deep-nest", 99), ErrTraitLocked)
	assert.ErrorIs(t, ts.CheckEquip(SlotHide, "wide-nest", 0), ErrWrongSlot)
	assert.ErrorIs(t, ts.CheckEquip(SlotHide, "ghost", 0), ErrUnknownTrait)

	m := ts.Apply(NewModifiers(), Equipped{SlotClutch: "deep-nest", SlotForage: "keen-nose"})
	assert.Equal(t, 2, m.EggBonus)
	assert.Equal(t, 1, m.ExtraFoodTiles)
	assert.Equal(t, 5, EggsPerClutch(3, m))

	// Wrong-slot entries contribute nothing.
	m = ts.Apply(NewModifiers(), Equipped{SlotHide: "wide-nest"})
	assert.Equal(t, 0, m.EggBonus)
}

func TestEquippedClone(t *testing.T) {
	a := Equipped{SlotClutch: "wide-nest"}
	b := a.Clone()
	b[SlotClutch] = "deep-nest"
	assert.Equal(t, "wide-nest", a[SlotClutch])
}
