// Package evolution holds the upgrade tree bought with evolution points and
// the trait slots equipped between rounds.
package evolution

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Branches of the upgrade tree.
const (
	BranchForaging = "foraging"
	BranchDefense  = "defense"
	BranchSocial   = "social"
	BranchArms     = "arms"
)

// DefaultMilestoneStep is the EP needed per visible tier.
const DefaultMilestoneStep = 10

var (
	ErrUnknownNode         = errors.New("unknown evolution node")
	ErrNotVisible          = errors.New("evolution node tier not reached")
	ErrInsufficientEP      = errors.New("not enough evolution points")
	ErrMissingPrerequisite = errors.New("missing prerequisite")
	ErrAlreadyPurchased    = errors.New("evolution node already purchased")
)

// Effects are the optional bonuses a node or trait grants.
type Effects struct {
	ExtraFoodTiles        int     `json:"extra_food_tiles,omitempty" yaml:"extra_food_tiles"`
	PredatorMitigationPct int     `json:"predator_mitigation_pct,omitempty" yaml:"predator_mitigation_pct"`
	EggMultiplier         float64 `json:"egg_multiplier,omitempty" yaml:"egg_multiplier"` // 0 means none
	PopCapIncrease        int     `json:"pop_cap_increase,omitempty" yaml:"pop_cap_increase"`
	GroupsIncrease        int     `json:"groups_increase,omitempty" yaml:"groups_increase"`
}

// Node is one purchasable upgrade.
type Node struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Cost     int      `json:"cost" yaml:"cost"`
	Tier     int      `json:"tier" yaml:"tier"`
	Requires []string `json:"requires,omitempty" yaml:"requires"`
	Effects  Effects  `json:"effects" yaml:"effects"`
	Branch   string   `json:"branch" yaml:"branch"`
}

// DefaultNodes returns the standard upgrade tree.
func DefaultNodes() []Node {
	return []Node{
		{ID: "eggs-1", Name: "Larger Clutch", Cost: 5, Tier: 1, Branch: BranchSocial,
			Effects: Effects{EggMultiplier: 1.5}},
		{ID: "digestion-1", Name: "Hardy Gut", Cost: 5, Tier: 1, Branch: BranchForaging,
			Effects: Effects{ExtraFoodTiles: 1}},
		{ID: "claws-1", Name: "Sharp Claws", Cost: 10, Tier: 2, Branch: BranchDefense,
			Effects: Effects{PredatorMitigationPct: 25}},
		{ID: "eggs-2", Name: "Twin Yolks", Cost: 15, Tier: 2, Branch: BranchSocial, Requires: []string{"eggs-1"},
			Effects: Effects{EggMultiplier: 1.5}},
		{ID: "co-op-1", Name: "Shared Burrows", Cost: 10, Tier: 2, Branch: BranchSocial,
			Effects: Effects{PopCapIncrease: 10000, GroupsIncrease: 1}},
		{ID: "digestion-2", Name: "Second Stomach", Cost: 20, Tier: 3, Branch: BranchForaging, Requires: []string{"digestion-1"},
			Effects: Effects{ExtraFoodTiles: 2}},
		{ID: "claws-2", Name: "Hooked Talons", Cost: 20, Tier: 3, Branch: BranchDefense, Requires: []string{"claws-1"},
			Effects: Effects{PredatorMitigationPct: 25}},
		{ID: "arms-1", Name: "Horned Brow", Cost: 15, Tier: 3, Branch: BranchArms,
			Effects: Effects{PredatorMitigationPct: 15}},
		{ID: "co-op-2", Name: "Colony Mind", Cost: 30, Tier: 4, Branch: BranchSocial, Requires: []string{"co-op-1"},
			Effects: Effects{PopCapIncrease: 1000000, GroupsIncrease: 1}},
		{ID: "arms-2", Name: "Plated Hide", Cost: 30, Tier: 4, Branch: BranchArms, Requires: []string{"arms-1", "claws-1"},
			Effects: Effects{PredatorMitigationPct: 20}},
	}
}

// Catalog indexes a node table. Build one at startup and pass it down.
type Catalog struct {
	nodes []Node
	index map[string]int
	step  int
}

// NewCatalog validates and indexes nodes. A step below 1 falls back to
// DefaultMilestoneStep.
func NewCatalog(nodes []Node, milestoneStep int) (*Catalog, error) {
	if milestoneStep < 1 {
		milestoneStep = DefaultMilestoneStep
	}
	c := &Catalog{
		nodes: append([]Node(nil), nodes...),
		index: make(map[string]int, len(nodes)),
		step:  milestoneStep,
	}
	for i, n := range c.nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("node %d has no id", i)
		}
		if _, dup := c.index[n.ID]; dup {
			return nil, fmt.Errorf("duplicate node id %q", n.ID)
		}
		if n.Cost < 0 {
			return nil, fmt.Errorf("node %q has negative cost", n.ID)
		}
		c.index[n.ID] = i
	}
	for _, n := range c.nodes {
		for _, req := range n.Requires {
			if _, ok := c.index[req]; !ok {
				return nil, fmt.Errorf("node %q requires unknown node %q", n.ID, req)
			}
		}
	}
	return c, nil
}

// MustDefaultCatalog builds the default catalog.
func MustDefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultNodes(), DefaultMilestoneStep)
	if err != nil {
		panic(err)
	}
	return c
}

// Step is the EP per tier.
func (c *Catalog) Step() int { return c.step }

// Tier is floor(ep / step).
func (c *Catalog) Tier(ep int) int {
	if ep <= 0 {
		return 0
	}
	return ep / c.step
}

// Nodes returns every node in table order.
func (c *Catalog) Nodes() []Node {
	return append([]Node(nil), c.nodes...)
}

// Node looks a node up by id.
func (c *Catalog) Node(id string) (Node, bool) {
	i, ok := c.index[id]
	if !ok {
		return Node{}, false
	}
	return c.nodes[i], true
}

// NodesForTier returns the nodes visible at ep. Visibility is gated by tier
// only; cost and prerequisites are checked at purchase.
func (c *Catalog) NodesForTier(ep int) []Node {
	tier := c.Tier(ep)
	var out []Node
	for _, n := range c.nodes {
		if n.Tier <= tier {
			out = append(out, n)
		}
	}
	return out
}

// CheckPurchase reports why a node cannot be bought, or nil. visibleEP
// gates the tier and balance pays the cost.
func (c *Catalog) CheckPurchase(id string, visibleEP, balance int, purchased []string) error {
	n, ok := c.Node(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, id)
	}
	owned := make(map[string]bool, len(purchased))
	for _, p := range purchased {
		owned[p] = true
	}
	if owned[id] {
		return fmt.Errorf("%w: %s", ErrAlreadyPurchased, id)
	}
	if n.Tier > c.Tier(visibleEP) {
		return fmt.Errorf("%w: %s needs tier %d", ErrNotVisible, id, n.Tier)
	}
	if balance < n.Cost {
		return fmt.Errorf("%w: %s costs %d, have %d", ErrInsufficientEP, id, n.Cost, balance)
	}
	for _, req := range n.Requires {
		if !owned[req] {
			return fmt.Errorf("%w: %s needs %s", ErrMissingPrerequisite, id, req)
		}
	}
	return nil
}

// Modifiers is the combined effect of everything a player owns.
type Modifiers struct {
	ExtraFoodTiles        int     `json:"extra_food_tiles"`
	PredatorMitigationPct int     `json:"predator_mitigation_pct"`
	EggMultiplier         float64 `json:"egg_multiplier"`
	PopCapIncrease        int     `json:"pop_cap_increase"`
	GroupsIncrease        int     `json:"groups_increase"`
	EggBonus              int     `json:"egg_bonus"`
}

// NewModifiers returns the identity modifiers.
func NewModifiers() Modifiers {
	return Modifiers{EggMultiplier: 1}
}

// Add folds one set of effects in. Egg multipliers compose by product,
// everything else by sum. Mitigation is capped at 100.
func (m Modifiers) Add(e Effects) Modifiers {
	m.ExtraFoodTiles += e.ExtraFoodTiles
	m.PredatorMitigationPct += e.PredatorMitigationPct
	if m.PredatorMitigationPct > 100 {
		m.PredatorMitigationPct = 100
	}
	if e.EggMultiplier > 0 {
		m.EggMultiplier *= e.EggMultiplier
	}
	m.PopCapIncrease += e.PopCapIncrease
	m.GroupsIncrease += e.GroupsIncrease
	return m
}

// Aggregate combines the effects of purchased nodes. Unknown ids are skipped.
func (c *Catalog) Aggregate(purchased []string) Modifiers {
	m := NewModifiers()
	ids := append([]string(nil), purchased...)
	sort.Strings(ids)
	for i, id := range ids {
		if i > 0 && ids[i-1] == id {
			continue
		}
		if n, ok := c.Node(id); ok {
			m = m.Add(n.Effects)
		}
	}
	return m
}

// EggsPerClutch is floor((base + egg bonus) * egg multiplier), never below zero.
func EggsPerClutch(base int, m Modifiers) int {
	mult := m.EggMultiplier
	if mult <= 0 {
		mult = 1
	}
	eggs := int(math.Floor(float64(base+m.EggBonus)*mult + 1e-9))
	if eggs < 0 {
		return 0
	}
	return eggs
}
