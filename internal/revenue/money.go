package revenue

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var amountPrinter = message.NewPrinter(language.English)

// Format renders v with grouping and the configured fraction digits, prefixed
// by the ISO currency code, e.g. "CAD 1,200.5".
func (f CurrencyFormat) Format(v decimal.Decimal) string {
	code := f.Code
	if unit, err := currency.ParseISO(f.Code); err == nil {
		code = unit.String()
	}
	maxDigits := f.MaxFractionDigits
	if maxDigits < f.MinFractionDigits {
		maxDigits = f.MinFractionDigits
	}
	fv, _ := v.Round(int32(maxDigits)).Float64()
	amount := amountPrinter.Sprint(number.Decimal(fv,
		number.MinFractionDigits(f.MinFractionDigits),
		number.MaxFractionDigits(maxDigits),
	))
	if code == "" {
		return amount
	}
	return code + " " + amount
}
