package revenue

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ActiveSentinel is the churn date the backend sends for contracts that are still active.
const ActiveSentinel = "0000-00-00"

// DateLayout is the wire format for contract dates.
const DateLayout = "2006-01-02"

type PaymentTerm string

const (
	TermMonthly   PaymentTerm = "Monthly"
	TermQuarterly PaymentTerm = "Quarterly"
	TermBiAnnual  PaymentTerm = "Bi-Annual"
	TermAnnual    PaymentTerm = "Annual"
)

// ParsePaymentTerm accepts the backend picklist values, case-insensitively.
func ParsePaymentTerm(raw string) (PaymentTerm, error) {
	v := strings.TrimSpace(raw)
	for _, t := range []PaymentTerm{TermMonthly, TermQuarterly, TermBiAnnual, TermAnnual} {
		if strings.EqualFold(v, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown payment term %q", raw)
}

// Cadence is the number of months between two recognized payments.
func (t PaymentTerm) Cadence() int {
	switch t {
	case TermMonthly:
		return 1
	case TermQuarterly:
		return 3
	case TermBiAnnual:
		return 6
	case TermAnnual:
		return 12
	default:
		return 0
	}
}

// Divisor is the number of payments per year.
func (t PaymentTerm) Divisor() int64 {
	switch t {
	case TermMonthly:
		return 12
	case TermQuarterly:
		return 4
	case TermBiAnnual:
		return 2
	case TermAnnual:
		return 1
	default:
		return 0
	}
}

// Contract is one fetched contract record. ChurnDate is nil while the contract is active.
type Contract struct {
	Name        string
	StartDate   time.Time
	ChurnDate   *time.Time
	PaymentTerm PaymentTerm
	AmountARR   decimal.Decimal
	ARR         decimal.Decimal
}

// Active reports whether the contract has no churn date.
func (c Contract) Active() bool {
	return c.ChurnDate == nil
}

// ParseDate parses a YYYY-MM-DD contract date in UTC.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", raw, err)
	}
	return t, nil
}

// ParseChurnDate maps the active sentinel and blank values to nil.
func ParseChurnDate(raw string) (*time.Time, error) {
	v := strings.TrimSpace(raw)
	if v == "" || v == ActiveSentinel {
		return nil, nil
	}
	t, err := ParseDate(v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// FormatChurnDate renders an absent churn date as the active sentinel.
func FormatChurnDate(t *time.Time) string {
	if t == nil {
		return ActiveSentinel
	}
	return t.Format(DateLayout)
}

// PeriodAmount splits the annual amount across the payment term and rounds to cents.
func PeriodAmount(term PaymentTerm, amountARR decimal.Decimal) decimal.Decimal {
	div := term.Divisor()
	if div == 0 {
		return decimal.Zero
	}
	return amountARR.Div(decimal.NewFromInt(div)).Round(2)
}

// EarliestStart returns the smallest start date across contracts.
func EarliestStart(contracts []Contract) (time.Time, bool) {
	if len(contracts) == 0 {
		return time.Time{}, false
	}
	earliest := contracts[0].StartDate
	for _, c := range contracts[1:] {
		if c.StartDate.Before(earliest) {
			earliest = c.StartDate
		}
	}
	return earliest, true
}
