package headless

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/graviris/wildweb-scraper/internal/wildweb"
)

func visibleBatch(from, to int) []visibleRow {
	rows := make([]visibleRow, 0, to-from)
	for i := from; i < to; i++ {
		rows = append(rows, visibleRow{
			Index: strconv.Itoa(i),
			Cells: []string{"INC-" + strconv.Itoa(i), "RIVER"},
		})
	}
	return rows
}

// A grid that surfaces every advertised row must end with at least as many
// collected rows as the reported target, even though the internal stop
// threshold stretches past it while scrolling continues.
func TestScrollStateFullGridMeetsTarget(t *testing.T) {
	t.Parallel()

	columns := defaultColumns()
	state := newScrollState(40, 50)

	require.Equal(t, 20, state.merge(visibleBatch(0, 20), columns))
	require.False(t, state.extend())
	require.Equal(t, 20, state.merge(visibleBatch(20, 40), columns))

	require.True(t, state.extend(), "threshold stretches once the advertised count is met")
	require.Equal(t, 90, state.threshold)
	require.Equal(t, 40, state.target, "the reported target never grows")

	// Nothing else surfaces; stagnation eventually ends the loop.
	for i := 0; i < 20; i++ {
		state.merge(nil, columns)
	}
	require.True(t, state.done())

	rows := state.rows()
	require.Len(t, rows, 40)
	require.GreaterOrEqual(t, len(rows), state.target,
		"a fully loaded grid satisfies the completeness bar")
	require.Equal(t, 0, rows[0].Index)
	require.Equal(t, 39, rows[39].Index)
	require.Equal(t, "INC-7", rows[7].Fields[wildweb.FieldIncidentNumber])
}

func TestScrollStateMergeSkipsBadRows(t *testing.T) {
	t.Parallel()

	state := newScrollState(10, 50)
	added := state.merge([]visibleRow{
		{Index: "3", Cells: []string{"INC-3"}},
		{Index: "3", Cells: []string{"INC-3"}},
		{Index: "bogus", Cells: []string{"INC-X"}},
		{Index: "4", Cells: nil},
	}, defaultColumns())
	require.Equal(t, 1, added)
	require.Len(t, state.rows(), 1)
}

func TestScrollStateStagnation(t *testing.T) {
	t.Parallel()

	columns := defaultColumns()

	// Past nine tenths of the threshold: 15 barren passes suffice.
	near := newScrollState(1000, 50)
	near.merge(visibleBatch(0, 1000), columns)
	near.extend()
	for i := 0; i < 14; i++ {
		near.merge(nil, columns)
		require.False(t, near.done())
	}
	near.merge(nil, columns)
	require.True(t, near.done())

	// Far from the threshold: only a hard stall of 20 passes ends it.
	far := newScrollState(100, 50)
	far.merge(visibleBatch(0, 5), columns)
	for i := 0; i < 19; i++ {
		far.merge(nil, columns)
		require.False(t, far.done())
	}
	far.merge(nil, columns)
	require.True(t, far.done())
}

func TestScrollStateBarren(t *testing.T) {
	t.Parallel()

	state := newScrollState(250, 50)
	for i := 0; i < 14; i++ {
		state.merge(nil, defaultColumns())
		require.False(t, state.barren())
	}
	state.merge(nil, defaultColumns())
	require.True(t, state.barren())

	fed := newScrollState(250, 50)
	fed.merge(visibleBatch(0, 1), defaultColumns())
	for i := 0; i < 16; i++ {
		fed.merge(nil, defaultColumns())
	}
	require.False(t, fed.barren())
}
