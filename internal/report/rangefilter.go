package report

import (
	"errors"
	"fmt"
	"strings"

	"github.com/RohanThakur-Ji/tabular-report-3/internal/revenue"
	"go.uber.org/multierr"
)

// MaxSpan is the largest allowed end-start index distance (12 months inclusive).
const MaxSpan = WindowSize - 1

var (
	ErrRangeLocked     = errors.New("a range is already applied; reset it first")
	ErrStartUnresolved = errors.New("select a valid start month")
	ErrEndUnresolved   = errors.New("select a valid end month")
	ErrEndBeforeStart  = errors.New("end month must not be before start month")
	ErrSpanTooLong     = errors.New("month count must be between 1 and 12")
)

// Selection holds the four picklist values. Months use the three-letter
// abbreviation, years four digits.
type Selection struct {
	StartMonth string
	StartYear  string
	EndMonth   string
	EndYear    string
}

func (s Selection) StartLabel() string { return s.StartMonth + "-" + s.StartYear }

func (s Selection) EndLabel() string { return s.EndMonth + "-" + s.EndYear }

func (s Selection) IsZero() bool { return s == Selection{} }

// ApplyRange narrows the window to the inclusive range chosen in sel. Every
// violated rule is reported in a single combined error, and on any error the
// returned state is the receiver unchanged. Order and span are only checked
// once both ends resolve to a column, so a month outside the report yields
// just the unresolved error.
func (s State) ApplyRange(sel Selection) (State, error) {
	if s.locked {
		return s, ErrRangeLocked
	}

	start := revenue.IndexOf(s.columns, sel.StartLabel())
	end := revenue.IndexOf(s.columns, sel.EndLabel())

	var err error
	if start < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: %s is outside the report", ErrStartUnresolved, sel.StartLabel()))
	}
	if end < 0 {
		err = multierr.Append(err, fmt.Errorf("%w: %s is outside the report", ErrEndUnresolved, sel.EndLabel()))
	}
	if start >= 0 && end >= 0 {
		if end < start {
			err = multierr.Append(err, fmt.Errorf("%w: %s is after %s", ErrEndBeforeStart, sel.StartLabel(), sel.EndLabel()))
		}
		if end-start > MaxSpan {
			err = multierr.Append(err, fmt.Errorf("%w: %s to %s covers %d months", ErrSpanTooLong, sel.StartLabel(), sel.EndLabel(), end-start+1))
		}
	}
	if err != nil {
		return s, err
	}

	s.window.First = start
	s.window.Last = end + 1
	s.selection = sel
	s.locked = true
	s.canPrevious = false
	s.canNext = false
	s.canReset = true
	return s, nil
}

// Reset restores the first 12-month page and unlocks the picklists.
func (s State) Reset() State {
	return s.initialWindow()
}

// Violations splits a range error into its individual messages.
func Violations(err error) []string {
	errs := multierr.Errors(err)
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Error())
	}
	return out
}

// MonthOptions are the month picklist values.
func MonthOptions() []string {
	return revenue.MonthAbbrevs()
}

// YearOptions lists each year that has at least one column, oldest first.
func YearOptions(columns []revenue.Column) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, c := range columns {
		_, year, ok := strings.Cut(c.FieldName, "-")
		if !ok {
			continue
		}
		if _, dup := seen[year]; dup {
			continue
		}
		seen[year] = struct{}{}
		out = append(out, year)
	}
	return out
}

// RangeHints returns the help lines naming the first and last selectable month.
func RangeHints(columns []revenue.Column) (start, end string) {
	if len(columns) == 0 {
		return "", ""
	}
	return hint("start", columns[0].FieldName), hint("end", columns[len(columns)-1].FieldName)
}

func hint(which, label string) string {
	month, year, _ := strings.Cut(label, "-")
	return fmt.Sprintf("Valid %s month for %s is %s.", which, year, month)
}
