// Package sheets reads contract lists from and writes reports to xlsx
// workbooks.
package sheets

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/RohanThakur-Ji/tabular-report-3/internal/revenue"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/multierr"
)

// Header is the first row expected on the import sheet.
var Header = []string{"Name", "Contract Start Date", "Churn Date", "Payment Term", "Amount ARR", "ARR"}

var ErrBadHeader = errors.New("unexpected header row")

// ImportContracts reads contracts from the first sheet of an xlsx workbook.
// Blank rows are skipped. Every bad row is reported, not only the first.
func ImportContracts(r io.Reader) ([]revenue.Contract, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: sheet is empty", ErrBadHeader)
	}
	if err := checkHeader(rows[0]); err != nil {
		return nil, err
	}

	var (
		out  []revenue.Contract
		errs error
	)
	for i, row := range rows[1:] {
		if blank(row) {
			continue
		}
		c, err := parseRow(row)
		if err != nil {
			// spreadsheet rows are 1-based and the header is row 1
			errs = multierr.Append(errs, fmt.Errorf("row %d: %w", i+2, err))
			continue
		}
		out = append(out, c)
	}
	if errs != nil {
		return nil, errs
	}
	return out, nil
}

func checkHeader(row []string) error {
	if len(row) < len(Header) {
		return fmt.Errorf("%w: want %s", ErrBadHeader, strings.Join(Header, ", "))
	}
	for i, want := range Header {
		if !strings.EqualFold(strings.TrimSpace(row[i]), want) {
			return fmt.Errorf("%w: column %d is %q, want %q", ErrBadHeader, i+1, row[i], want)
		}
	}
	return nil
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func parseRow(row []string) (revenue.Contract, error) {
	var c revenue.Contract
	var errs error

	c.Name = cell(row, 0)
	if c.Name == "" {
		errs = multierr.Append(errs, errors.New("name is required"))
	}

	start, err := revenue.ParseDate(cell(row, 1))
	errs = multierr.Append(errs, err)
	c.StartDate = start

	churn, err := revenue.ParseChurnDate(cell(row, 2))
	errs = multierr.Append(errs, err)
	c.ChurnDate = churn

	term, err := revenue.ParsePaymentTerm(cell(row, 3))
	errs = multierr.Append(errs, err)
	c.PaymentTerm = term

	c.AmountARR, err = parseAmount("amount ARR", cell(row, 4))
	errs = multierr.Append(errs, err)
	c.ARR, err = parseAmount("ARR", cell(row, 5))
	errs = multierr.Append(errs, err)

	return c, errs
}

func parseAmount(field, raw string) (decimal.Decimal, error) {
	raw = strings.ReplaceAll(raw, ",", "")
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s %q is not a number", field, raw)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s %s must not be negative", field, d)
	}
	return d, nil
}
