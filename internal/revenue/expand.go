package revenue

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Row is one contract's recognized amounts keyed by month label. A missing
// label means nothing was recognized that month; it is not a zero.
type Row struct {
	Name    string
	ARR     *decimal.Decimal
	Amounts map[string]decimal.Decimal
}

// Value returns the amount recognized under label.
func (r Row) Value(label string) (decimal.Decimal, bool) {
	v, ok := r.Amounts[label]
	return v, ok
}

// Labels returns the populated month labels in chronological order.
func (r Row) Labels() []string {
	type entry struct {
		label string
		at    time.Time
	}
	entries := make([]entry, 0, len(r.Amounts))
	for label := range r.Amounts {
		at, err := ParseLabel(label)
		if err != nil {
			continue
		}
		entries = append(entries, entry{label: label, at: at})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].at.Before(entries[j].at) })
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.label
	}
	return out
}

type ExpandInput struct {
	Name         string
	PeriodAmount decimal.Decimal
	Start        time.Time
	// End is exclusive; nil means the contract runs until now.
	End     *time.Time
	Cadence int
	ARR     *decimal.Decimal
}

// Expand assigns PeriodAmount to every Cadence-th month from Start up to, but
// not including, the end month.
func Expand(in ExpandInput, now time.Time) Row {
	end := now
	if in.End != nil {
		end = *in.End
	}
	row := Row{
		Name:    in.Name,
		ARR:     in.ARR,
		Amounts: map[string]decimal.Decimal{},
	}
	if in.Cadence <= 0 {
		return row
	}

	span := MonthsBetween(in.Start, end)
	start := MonthStart(in.Start)
	for i := 0; i < span; i += in.Cadence {
		row.Amounts[Label(start.AddDate(0, i, 0))] = in.PeriodAmount
	}
	return row
}

// ContractRow derives the per-period amount from the payment term and expands it.
func ContractRow(c Contract, now time.Time) Row {
	arr := c.ARR
	return Expand(ExpandInput{
		Name:         c.Name,
		PeriodAmount: PeriodAmount(c.PaymentTerm, c.AmountARR),
		Start:        c.StartDate,
		End:          c.ChurnDate,
		Cadence:      c.PaymentTerm.Cadence(),
		ARR:          &arr,
	}, now)
}

func ContractRows(contracts []Contract, now time.Time) []Row {
	rows := make([]Row, 0, len(contracts))
	for _, c := range contracts {
		rows = append(rows, ContractRow(c, now))
	}
	return rows
}
