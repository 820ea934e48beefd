package revenue

import "time"

type ColumnType string

const (
	ColumnText     ColumnType = "text"
	ColumnCurrency ColumnType = "currency"
)

// NameField is the field name of the row-label pseudo-column.
const NameField = "name"

// CurrencyFormat carries the display metadata for currency columns.
type CurrencyFormat struct {
	Code              string
	MinFractionDigits int
	MaxFractionDigits int
}

// DefaultCurrency is Canadian dollars with 0-2 fraction digits.
var DefaultCurrency = CurrencyFormat{Code: "CAD", MinFractionDigits: 0, MaxFractionDigits: 2}

type Column struct {
	Label     string
	FieldName string
	Type      ColumnType
	Currency  CurrencyFormat
}

// BuildColumns returns one currency column per month from firstStart's month
// up to, but not including, now's month, in chronological order. It returns
// nil when firstStart does not lie in an earlier month than now.
func BuildColumns(firstStart, now time.Time, currency CurrencyFormat) []Column {
	diff := MonthsBetween(firstStart, now)
	if diff <= 0 {
		return nil
	}
	start := MonthStart(firstStart)
	cols := make([]Column, 0, diff)
	for i := 0; i < diff; i++ {
		label := Label(start.AddDate(0, i, 0))
		cols = append(cols, Column{
			Label:     label,
			FieldName: label,
			Type:      ColumnCurrency,
			Currency:  currency,
		})
	}
	return cols
}

// NameColumn is the pseudo-column prepended to every table view.
func NameColumn(label string) Column {
	return Column{Label: label, FieldName: NameField, Type: ColumnText}
}

// IndexOf returns the position of the column keyed by fieldName, or -1.
func IndexOf(columns []Column, fieldName string) int {
	for i, c := range columns {
		if c.FieldName == fieldName {
			return i
		}
	}
	return -1
}
