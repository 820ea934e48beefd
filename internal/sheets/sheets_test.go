package sheets

import (
	"bytes"
	"testing"
	"time"

	"github.com/RohanThakur-Ji/tabular-report-3/internal/report"
	"github.com/RohanThakur-Ji/tabular-report-3/internal/revenue"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/multierr"
)

func workbook(t *testing.T, rows ...[]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, axis, &row))
	}
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	return &buf
}

func header() []any {
	out := make([]any, len(Header))
	for i, h := range Header {
		out[i] = h
	}
	return out
}

func TestImportContracts(t *testing.T) {
	buf := workbook(t,
		header(),
		[]any{"acme", "2021-01-01", "0000-00-00", "Monthly", "1,200", "1200"},
		[]any{},
		[]any{"globex", "2021-03-15", "2021-09-01", "quarterly", "400.50", "400.5"},
	)

	got, err := ImportContracts(buf)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "acme", got[0].Name)
	assert.Nil(t, got[0].ChurnDate)
	assert.Equal(t, revenue.TermMonthly, got[0].PaymentTerm)
	assert.True(t, got[0].AmountARR.Equal(decimal.NewFromInt(1200)))

	require.NotNil(t, got[1].ChurnDate)
	assert.Equal(t, time.Date(2021, 9, 1, 0, 0, 0, 0, time.UTC), *got[1].ChurnDate)
	assert.Equal(t, revenue.TermQuarterly, got[1].PaymentTerm)
	assert.Equal(t, "400.5", got[1].AmountARR.String())
}

func TestImportRejectsHeader(t *testing.T) {
	_, err := ImportContracts(workbook(t, []any{"Customer", "Start"}))
	assert.ErrorIs(t, err, ErrBadHeader)

	_, err = ImportContracts(workbook(t))
	assert.ErrorIs(t, err, ErrBadHeader)
}

func TestImportReportsEveryBadRow(t *testing.T) {
	buf := workbook(t,
		header(),
		[]any{"acme", "01/01/2021", "", "Monthly", "1200", "1200"},
		[]any{"", "2021-01-01", "", "Weekly", "abc", "0"},
	)

	_, err := ImportContracts(buf)
	require.Error(t, err)
	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), "row 2")
	assert.Contains(t, errs[1].Error(), "row 3")
	assert.Contains(t, errs[1].Error(), "Weekly")
	assert.Contains(t, errs[1].Error(), "name is required")
}

func TestImportRejectsNegativeAmounts(t *testing.T) {
	buf := workbook(t,
		header(),
		[]any{"acme", "2021-01-01", "0000-00-00", "Monthly", "-1,200", "1200"},
		[]any{"globex", "2021-01-01", "0000-00-00", "Annual", "500", "-500"},
		[]any{"initech", "2021-01-01", "0000-00-00", "Annual", "500", "500"},
	)

	_, err := ImportContracts(buf)
	require.Error(t, err)
	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), "row 2")
	assert.Contains(t, errs[0].Error(), "amount ARR -1200 must not be negative")
	assert.Contains(t, errs[1].Error(), "row 3")
	assert.Contains(t, errs[1].Error(), "ARR -500 must not be negative")
}

func TestExportReport(t *testing.T) {
	now := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	state := report.Build([]revenue.Contract{
		{
			Name:        "acme",
			StartDate:   time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
			PaymentTerm: revenue.TermAnnual,
			AmountARR:   decimal.NewFromInt(1200),
			ARR:         decimal.NewFromInt(1200),
		},
		{
			Name:        "beta",
			StartDate:   time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
			PaymentTerm: revenue.TermMonthly,
			AmountARR:   decimal.NewFromInt(1200),
			ARR:         decimal.NewFromInt(1200),
		},
	}, now, report.Options{})

	var buf bytes.Buffer
	require.NoError(t, ExportReport(&buf, state))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{MRRSheet, CashFlowSheet}, f.GetSheetList())

	raw := excelize.Options{RawCellValue: true}
	mrr, err := f.GetRows(MRRSheet, raw)
	require.NoError(t, err)
	require.Len(t, mrr, 3)
	assert.Equal(t, []string{"", "Aug-2026", "Sep-2026"}, mrr[0])
	assert.Equal(t, []string{"acme", "1200"}, mrr[1])
	assert.Equal(t, []string{"beta", "", "100"}, mrr[2])

	cash, err := f.GetRows(CashFlowSheet, raw)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(cash), 2)
	assert.Equal(t, "Monthly", cash[0][0])
	assert.Equal(t, []string{revenue.TotalCashFlowName, "1200", "100"}, cash[1])
}

func TestExportEmptyReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportReport(&buf, report.Build(nil, time.Now(), report.Options{})))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{MRRSheet, CashFlowSheet}, f.GetSheetList())
}
