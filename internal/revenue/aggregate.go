package revenue

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	TotalCashFlowName   = "Total Cash Flow"
	AverageCashFlowName = "Average Cash Flow"
	ARRName             = "ARR"
)

// AggregateRow is one metric evaluated per month column.
type AggregateRow struct {
	Name   string
	Values map[string]decimal.Decimal
}

func (r AggregateRow) Value(label string) (decimal.Decimal, bool) {
	v, ok := r.Values[label]
	return v, ok
}

// Aggregator folds expanded contract rows into per-month metrics. A failure
// inside a pass degrades that metric to whatever was computed before it; it is
// never returned to the caller.
type Aggregator struct {
	log *zap.Logger
}

func NewAggregator(log *zap.Logger) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{log: log}
}

// All runs the sum, average and ARR passes in display order.
func (a *Aggregator) All(columns []Column, rows []Row) []AggregateRow {
	return []AggregateRow{
		a.Sum(columns, rows),
		a.Average(columns, rows),
		a.ARR(columns, rows),
	}
}

// Sum totals each month; months whose total is not positive are left out.
func (a *Aggregator) Sum(columns []Column, rows []Row) (out AggregateRow) {
	out = AggregateRow{Values: map[string]decimal.Decimal{}}
	defer a.suppress("sum", false)

	for i, col := range columns {
		total := decimal.Zero
		for _, row := range rows {
			if v, ok := row.Value(col.FieldName); ok {
				total = total.Add(v)
			}
		}
		if nameColumnReached(i, len(columns)) {
			out.Name = TotalCashFlowName
		}
		if total.IsPositive() {
			out.Values[col.FieldName] = total
		}
	}
	return out
}

// Average is the mean over rows that carry the month. Months no row carries are left out.
func (a *Aggregator) Average(columns []Column, rows []Row) (out AggregateRow) {
	out = AggregateRow{Values: map[string]decimal.Decimal{}}
	defer a.suppress("average", false)

	for i, col := range columns {
		total := decimal.Zero
		count := int64(0)
		for _, row := range rows {
			if v, ok := row.Value(col.FieldName); ok {
				total = total.Add(v)
				count++
			}
		}
		if count > 0 {
			out.Values[col.FieldName] = total.Div(decimal.NewFromInt(count))
		}
		if nameColumnReached(i, len(columns)) {
			out.Name = AverageCashFlowName
		}
	}
	return out
}

// ARR is a running total: every distinct contract ARR value is counted once,
// the first time a row carrying it is recognized, and every recognized
// periodic amount is added as it occurs. A month's value is the running total
// after its last contributing row; months before the first contribution are
// left out.
func (a *Aggregator) ARR(columns []Column, rows []Row) (out AggregateRow) {
	out = AggregateRow{Values: map[string]decimal.Decimal{}}
	defer a.suppress("arr", true)

	currentARR := decimal.Zero
	previousMonth := decimal.Zero
	total := decimal.Zero
	seen := map[string]struct{}{}

	for i, col := range columns {
		for _, row := range rows {
			v, ok := row.Value(col.FieldName)
			if !ok {
				continue
			}
			if row.ARR != nil {
				key := row.ARR.String()
				if _, dup := seen[key]; !dup {
					seen[key] = struct{}{}
					currentARR = currentARR.Add(*row.ARR)
				}
			}
			total = v.Add(currentARR).Add(previousMonth)
			previousMonth = previousMonth.Add(v)
		}
		if nameColumnReached(i, len(columns)) {
			out.Name = ARRName
		}
		if total.IsPositive() {
			out.Values[col.FieldName] = total
		}
	}
	return out
}

// nameColumnReached mirrors the one-based counter check `counter == len-1`,
// so fewer than two columns never name the row.
func nameColumnReached(index, columns int) bool {
	return index+1 == columns-1
}

func (a *Aggregator) suppress(pass string, logIt bool) {
	r := recover()
	if r == nil || !logIt {
		return
	}
	a.log.Error("aggregate pass failed",
		zap.String("pass", pass),
		zap.String("panic", fmt.Sprint(r)),
	)
}
