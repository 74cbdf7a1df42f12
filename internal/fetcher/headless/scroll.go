package headless

import (
	"sort"
	"strconv"

	"github.com/graviris/wildweb-scraper/internal/wildweb"
)

// scrollState tracks row collection across scroll passes. The advertised
// aria-rowcount can lag behind live inserts, so the internal stop threshold
// stretches past the advertised target once it is reached; the advertised
// count itself stays the completeness bar reported to callers, so a fully
// loaded grid always satisfies processed >= target.
type scrollState struct {
	collected map[int]wildweb.GridRow
	target    int
	threshold int
	growth    int
	stagnant  int
}

func newScrollState(target, growth int) *scrollState {
	return &scrollState{
		collected: make(map[int]wildweb.GridRow),
		target:    target,
		threshold: target,
		growth:    growth,
	}
}

// merge folds freshly visible rows into the collected set and returns how
// many were new. Rows without a numeric data-rowindex or without cells are
// skipped. A pass that surfaces nothing new counts toward stagnation.
func (s *scrollState) merge(visible []visibleRow, columns columnMap) int {
	added := 0
	for _, row := range visible {
		idx, err := strconv.Atoi(row.Index)
		if err != nil {
			continue
		}
		if _, ok := s.collected[idx]; ok {
			continue
		}
		if len(row.Cells) == 0 {
			continue
		}
		s.collected[idx] = wildweb.GridRow{
			Index:  idx,
			Fields: columns.rowFields(row.Cells),
		}
		added++
	}
	if added > 0 {
		s.stagnant = 0
	} else {
		s.stagnant++
	}
	return added
}

// extend pushes the stop threshold out once the current one is met and
// reports whether it moved.
func (s *scrollState) extend() bool {
	if len(s.collected) < s.threshold {
		return false
	}
	s.threshold += s.growth
	return true
}

// done reports whether scrolling should stop: close to the threshold with
// sustained stagnation, or stalled outright.
func (s *scrollState) done() bool {
	if len(s.collected)*10 > s.threshold*9 && s.stagnant >= 15 {
		return true
	}
	return s.stagnant >= 20
}

// barren reports a grid that never produced a row despite repeated passes.
func (s *scrollState) barren() bool {
	return len(s.collected) == 0 && s.stagnant >= 15
}

// rows returns the collected rows ordered by grid index.
func (s *scrollState) rows() []wildweb.GridRow {
	rows := make([]wildweb.GridRow, 0, len(s.collected))
	for _, row := range s.collected {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Index < rows[j].Index })
	return rows
}
