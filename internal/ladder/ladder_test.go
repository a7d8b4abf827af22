package ladder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Default(t *testing.T) {
	levels := Generate(DefaultOptions())
	require.Len(t, levels, 24)

	for i, lv := range levels {
		assert.Equal(t, i, lv.LevelIndex)
		assert.Equal(t, i/6, lv.CycleIndex)
		assert.Equal(t, i%6, lv.StepIndex)
		assert.Equal(t, DefaultLabels[i%6], lv.ScaleLabel)
	}

	first := levels[:6]
	wantMins := []int{1, 10, 50, 100, 200, 400}
	wantCards := []int{5, 10, 15, 20, 40, 80}
	for i, lv := range first {
		assert.Equal(t, wantMins[i], lv.PopulationMin)
		assert.Equal(t, wantCards[i], lv.CardCount)
		assert.Equal(t, StandardOddsKey, lv.OddsKey)
	}

	assert.Equal(t, 1000, levels[6].PopulationMin)
	assert.Equal(t, 5, levels[6].CardCount)
	assert.Equal(t, "era-1", levels[6].OddsKey)
}

func TestGenerate_MonotonicIndex(t *testing.T) {
	opts := DefaultOptions()
	opts.CycleScale = 1
	levels := Generate(opts)
	for i := 1; i < len(levels); i++ {
		assert.Greater(t, levels[i].LevelIndex, levels[i-1].LevelIndex)
	}
	// A scale of one repeats the thresholds exactly.
	assert.Equal(t, levels[0].PopulationMin, levels[6].PopulationMin)
}

func TestGenerate_LabelFallback(t *testing.T) {
	opts := DefaultOptions()
	opts.Labels = nil
	levels := Generate(opts)
	assert.Equal(t, FallbackLabel, levels[3].ScaleLabel)
}

func TestCurrent(t *testing.T) {
	l := New(DefaultOptions())

	_, ok := l.Current(0, 0)
	assert.False(t, ok)

	lv, ok := l.Current(1, 0)
	require.True(t, ok)
	assert.Equal(t, 0, lv.LevelIndex)
	assert.Equal(t, 5, lv.CardCount)

	lv, ok = l.Current(55, 0)
	require.True(t, ok)
	assert.Equal(t, "glade", lv.ScaleLabel)

	lv, ok = l.Current(999999, 0)
	require.True(t, ok)
	assert.Equal(t, 80, lv.CardCount)
	assert.Equal(t, 5, lv.LevelIndex)
}

func TestCurrent_CycleGate(t *testing.T) {
	l := New(DefaultOptions())

	lv, ok := l.Current(1500, 1)
	require.True(t, ok)
	assert.Equal(t, 6, lv.LevelIndex)

	// Entering an era without its population keeps the previous province.
	lv, ok = l.Current(500, 1)
	require.True(t, ok)
	assert.Equal(t, 5, lv.LevelIndex)
}

func TestCurrent_MonotonicInPopulation(t *testing.T) {
	l := New(DefaultOptions())
	prev := -1
	for pop := 0; pop <= 5000; pop += 7 {
		lv, ok := l.Current(pop, 3)
		if !ok {
			continue
		}
		require.GreaterOrEqual(t, lv.LevelIndex, prev)
		prev = lv.LevelIndex
	}
}

func TestLayoutForCardCount(t *testing.T) {
	assert.Equal(t, Layout{Kind: KindRow, Rows: 1, Cols: 5}, LayoutForCardCount(5))
	assert.Equal(t, KindGrid, LayoutForCardCount(20).Kind)
	assert.Equal(t, []int{5, 5}, LayoutForCardCount(40).ColumnGroups)
	assert.Equal(t, 8, LayoutForCardCount(80).Rows)

	generic := LayoutForCardCount(33)
	assert.Equal(t, Layout{Kind: KindGrid, Rows: 7, Cols: 5}, generic)

	assert.Equal(t, 1, LayoutForCardCount(1).Rows)
}

func TestLayoutForCardCount_ReturnsCopy(t *testing.T) {
	a := LayoutForCardCount(40)
	a.ColumnGroups[0] = 99
	assert.Equal(t, 5, LayoutForCardCount(40).ColumnGroups[0])
}

func TestDisplayLabel(t *testing.T) {
	l := New(DefaultOptions())
	lv, _ := l.Level(1)
	assert.Equal(t, "grove", lv.DisplayLabel())
	lv, _ = l.Level(7)
	assert.Equal(t, "grove II", lv.DisplayLabel())
	lv, _ = l.Level(23)
	assert.Equal(t, "province IV", lv.DisplayLabel())
}

func TestLadderHelpers(t *testing.T) {
	l := New(DefaultOptions())
	assert.Equal(t, 4, l.Cycles())

	lv, _ := l.Level(5)
	assert.True(t, l.IsLastStep(lv))

	entry, ok := l.CycleEntry(2)
	require.True(t, ok)
	assert.Equal(t, 12, entry.LevelIndex)
	assert.Equal(t, 1000000, entry.PopulationMin)

	_, ok = l.CycleEntry(4)
	assert.False(t, ok)
}

func TestOptionsValidate(t *testing.T) {
	require.NoError(t, DefaultOptions().Validate())

	bad := DefaultOptions()
	bad.CardCounts = bad.CardCounts[:3]
	assert.Error(t, bad.Validate())

	bad = DefaultOptions()
	bad.Thresholds = []int{5, 1, 50, 100, 200, 400}
	assert.Error(t, bad.Validate())
}
