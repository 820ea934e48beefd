package report

import (
	"time"

	"github.com/RohanThakur-Ji/tabular-report-3/internal/revenue"
	"go.uber.org/zap"
)

// WindowSize is the number of month columns shown per page.
const WindowSize = 12

type Options struct {
	Currency revenue.CurrencyFormat
	Logger   *zap.Logger
}

// Window is the half-open column range [First, Last) currently on screen.
type Window struct {
	First int
	Last  int
	Page  int
}

// State is an immutable snapshot of the report. Every transition returns a
// new value; the receiver is never modified.
type State struct {
	builtAt    time.Time
	columns    []revenue.Column
	rows       []revenue.Row
	aggregates []revenue.AggregateRow

	window     Window
	totalPages int

	canPrevious bool
	canNext     bool
	canReset    bool
	locked      bool
	selection   Selection
}

// Build derives columns, rows and aggregates wholesale from the full contract
// set. Contracts are expected in ascending start order, but the earliest start
// is looked up rather than assumed.
func Build(contracts []revenue.Contract, now time.Time, opts Options) State {
	currency := opts.Currency
	if currency.Code == "" {
		currency = revenue.DefaultCurrency
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := State{builtAt: now}
	if first, ok := revenue.EarliestStart(contracts); ok {
		s.columns = revenue.BuildColumns(first, now, currency)
	}
	s.rows = revenue.ContractRows(contracts, now)
	s.aggregates = revenue.NewAggregator(log.Named("aggregate")).All(s.columns, s.rows)
	s.totalPages = len(s.columns) / WindowSize

	log.Debug("report built",
		zap.Int("contracts", len(contracts)),
		zap.Int("columns", len(s.columns)),
		zap.Int("pages", s.totalPages),
	)
	return s.initialWindow()
}

func (s State) initialWindow() State {
	s.window = Window{First: 0, Last: WindowSize, Page: 0}
	s.canPrevious = false
	s.canNext = s.totalPages > 0
	s.canReset = false
	s.locked = false
	s.selection = Selection{}
	return s
}

func (s State) BuiltAt() time.Time { return s.builtAt }

// Columns returns every month column, oldest first.
func (s State) Columns() []revenue.Column {
	return append([]revenue.Column(nil), s.columns...)
}

func (s State) Rows() []revenue.Row {
	return append([]revenue.Row(nil), s.rows...)
}

func (s State) Aggregates() []revenue.AggregateRow {
	return append([]revenue.AggregateRow(nil), s.aggregates...)
}

func (s State) Window() Window { return s.window }

// TotalPages is the number of complete 12-month pages.
func (s State) TotalPages() int { return s.totalPages }

func (s State) CanPrevious() bool { return s.canPrevious }

func (s State) CanNext() bool { return s.canNext }

func (s State) CanReset() bool { return s.canReset }

// PicklistsLocked reports whether a range is applied and must be reset before
// another can be chosen.
func (s State) PicklistsLocked() bool { return s.locked }

func (s State) Selection() Selection { return s.selection }

// Empty reports whether there is nothing to show.
func (s State) Empty() bool { return len(s.columns) == 0 }

// VisibleColumns returns the month columns inside the window, clamped to the
// columns that exist.
func (s State) VisibleColumns() []revenue.Column {
	first := clamp(s.window.First, 0, len(s.columns))
	last := clamp(s.window.Last, first, len(s.columns))
	return append([]revenue.Column(nil), s.columns[first:last]...)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
