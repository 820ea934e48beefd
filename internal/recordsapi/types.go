package recordsapi

import (
	"fmt"
	"strings"

	"github.com/RohanThakur-Ji/tabular-report-3/internal/revenue"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

// Record is one contract as served by the records service. ChurnDate is
// "0000-00-00" for contracts that are still active.
type Record struct {
	Name              string          `json:"name" validate:"required"`
	ContractStartDate string          `json:"contractStartDate" validate:"required,datetime=2006-01-02"`
	ChurnDate         string          `json:"churnDate"`
	PaymentTerm       string          `json:"paymentTerm" validate:"required,oneof=Monthly Quarterly Bi-Annual Annual"`
	AmountARR         decimal.Decimal `json:"amountARR"`
	ARR               decimal.Decimal `json:"ARR"`
}

// CountResponse is the body of GET /records/count.
type CountResponse struct {
	Total int `json:"total"`
}

// PingResponse is the body of GET /ping.
type PingResponse struct {
	Status string `json:"status"`
}

var validate = validator.New()

// Contract validates the record and converts it to the domain type.
func (r Record) Contract() (revenue.Contract, error) {
	if err := validate.Struct(r); err != nil {
		return revenue.Contract{}, fmt.Errorf("record %q: %w", r.Name, err)
	}
	start, err := revenue.ParseDate(r.ContractStartDate)
	if err != nil {
		return revenue.Contract{}, fmt.Errorf("record %q: %w", r.Name, err)
	}
	churn, err := revenue.ParseChurnDate(r.ChurnDate)
	if err != nil {
		return revenue.Contract{}, fmt.Errorf("record %q: %w", r.Name, err)
	}
	term, err := revenue.ParsePaymentTerm(r.PaymentTerm)
	if err != nil {
		return revenue.Contract{}, fmt.Errorf("record %q: %w", r.Name, err)
	}
	if r.AmountARR.IsNegative() || r.ARR.IsNegative() {
		return revenue.Contract{}, fmt.Errorf("record %q: amounts must not be negative", r.Name)
	}
	return revenue.Contract{
		Name:        strings.TrimSpace(r.Name),
		StartDate:   start,
		ChurnDate:   churn,
		PaymentTerm: term,
		AmountARR:   r.AmountARR,
		ARR:         r.ARR,
	}, nil
}

// FromContract renders c in wire form.
func FromContract(c revenue.Contract) Record {
	return Record{
		Name:              c.Name,
		ContractStartDate: c.StartDate.Format(revenue.DateLayout),
		ChurnDate:         revenue.FormatChurnDate(c.ChurnDate),
		PaymentTerm:       string(c.PaymentTerm),
		AmountARR:         c.AmountARR,
		ARR:               c.ARR,
	}
}

func FromContracts(cs []revenue.Contract) []Record {
	out := make([]Record, len(cs))
	for i, c := range cs {
		out[i] = FromContract(c)
	}
	return out
}

// Contracts converts every record, reporting all invalid ones together.
func Contracts(records []Record) ([]revenue.Contract, error) {
	out := make([]revenue.Contract, 0, len(records))
	var errs error
	for i, r := range records {
		c, err := r.Contract()
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("index %d: %w", i, err))
			continue
		}
		out = append(out, c)
	}
	if errs != nil {
		return nil, errs
	}
	return out, nil
}
