package report

import "github.com/RohanThakur-Ji/tabular-report-3/internal/revenue"

// Name pseudo-column headers for the three tables.
const (
	PrimaryNameLabel   = ""
	AggregateNameLabel = "Monthly"
	ARRNameLabel       = ""
)

// ColumnSet is the visible window rendered three ways: the contract table,
// the cash-flow summary and the ARR row. Each slice starts with the name
// pseudo-column.
type ColumnSet struct {
	Primary   []revenue.Column
	Aggregate []revenue.Column
	ARR       []revenue.Column
}

// Next moves the window one page forward. It does nothing once the last
// complete page has been reached or while a range is applied.
func (s State) Next() State {
	if !s.canNext || s.window.First < 0 {
		return s
	}
	s.window.First += WindowSize
	s.window.Last += WindowSize
	s.window.Page++
	s.canPrevious = true
	if s.window.Page == s.totalPages {
		s.canNext = false
	}
	return s
}

// Previous moves the window one page back.
func (s State) Previous() State {
	if !s.canPrevious || s.window.First <= 0 {
		return s
	}
	s.window.First -= WindowSize
	s.window.Last -= WindowSize
	s.window.Page--
	if s.window.Page <= 0 {
		s.window.Page = 0
		s.canPrevious = false
	}
	if s.window.Page != s.totalPages {
		s.canNext = true
	}
	return s
}

// Views re-slices the visible window and returns a fresh copy per table.
func (s State) Views() ColumnSet {
	visible := s.VisibleColumns()
	return ColumnSet{
		Primary:   withName(PrimaryNameLabel, visible),
		Aggregate: withName(AggregateNameLabel, visible),
		ARR:       withName(ARRNameLabel, visible),
	}
}

func withName(label string, cols []revenue.Column) []revenue.Column {
	out := make([]revenue.Column, 0, len(cols)+1)
	out = append(out, revenue.NameColumn(label))
	return append(out, cols...)
}
