/*
merge.go - Pattern merger

PURPOSE:
  Stitches a line's amount patterns into one chronological list of
  occurrences for a query window.

ALGORITHM (per pattern):
  1. Skip it if [start, end or +inf] misses [from, to]
  2. Clip to the intersection of both windows
  3. Expand the pattern's own rule over the clipped window. Daily counts
     from the clipped start; every other grammar is anchored at the
     pattern's start date
  4. Pair every date with the pattern's amount

  Results from all patterns are concatenated and stably sorted by date.
  Same-date occurrences from different patterns are kept: callers sum
  them. Duplicates within one pattern are already gone (recurrence).

ERRORS:
  Only calendar.ErrUnsupportedCountry comes back. A pattern that cannot
  fire contributes nothing.
*/
package budget

import (
	"sort"

	"github.com/warp/cashflow-engine/calendar"
	"github.com/warp/cashflow-engine/recurrence"
)

// Merger expands amount patterns through a recurrence.Expander.
type Merger struct {
	Expander *recurrence.Expander
}

func NewMerger(x *recurrence.Expander) *Merger {
	return &Merger{Expander: x}
}

// Merge returns every occurrence of patterns in [from, to], sorted by date.
func (m *Merger) Merge(patterns []AmountPattern, from, to calendar.Date) ([]Occurrence, error) {
	if to.Before(from) {
		return nil, nil
	}

	var out []Occurrence
	for _, p := range patterns {
		occs, err := m.mergePattern(p, from, to)
		if err != nil {
			return nil, err
		}
		out = append(out, occs...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

// MergeLine is Merge over a line's patterns.
func (m *Merger) MergeLine(line Line, from, to calendar.Date) ([]Occurrence, error) {
	return m.Merge(line.Patterns, from, to)
}

func (m *Merger) mergePattern(p AmountPattern, from, to calendar.Date) ([]Occurrence, error) {
	if p.End().Before(p.StartDate) || !p.Overlaps(from, to) {
		return nil, nil
	}

	clipFrom := calendar.MaxOf(p.StartDate, from)
	clipTo := calendar.MinOf(p.End(), to)

	rule := p.RuleOrOnce()
	anchor := p.StartDate
	if _, ok := rule.(recurrence.Daily); ok {
		anchor = clipFrom
	}

	dates, err := m.Expander.ExpandFrom(rule, anchor, clipFrom, clipTo)
	if err != nil {
		return nil, err
	}

	occs := make([]Occurrence, len(dates))
	for i, d := range dates {
		occs[i] = Occurrence{Date: d, Amount: p.Amount}
	}
	return occs, nil
}
