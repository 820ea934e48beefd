package sheets

import (
	"fmt"
	"io"

	"github.com/RohanThakur-Ji/tabular-report-3/internal/report"
	"github.com/RohanThakur-Ji/tabular-report-3/internal/revenue"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	MRRSheet      = "MRR"
	CashFlowSheet = "Cash Flow"
)

// ExportReport writes every month column of state, not just the visible
// window. Months without a value are left blank.
func ExportReport(w io.Writer, state report.State) error {
	f := excelize.NewFile()
	defer f.Close()

	columns := state.Columns()

	if err := renameFirstSheet(f, MRRSheet); err != nil {
		return err
	}
	if err := writeHeader(f, MRRSheet, report.PrimaryNameLabel, columns); err != nil {
		return err
	}
	for i, row := range state.Rows() {
		if err := writeValues(f, MRRSheet, i+2, row.Name, columns, row.Value); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(CashFlowSheet); err != nil {
		return fmt.Errorf("add sheet %q: %w", CashFlowSheet, err)
	}
	if err := writeHeader(f, CashFlowSheet, report.AggregateNameLabel, columns); err != nil {
		return err
	}
	for i, agg := range state.Aggregates() {
		if err := writeValues(f, CashFlowSheet, i+2, agg.Name, columns, agg.Value); err != nil {
			return err
		}
	}

	if err := styleAmounts(f, len(columns), len(state.Rows()), len(state.Aggregates())); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func renameFirstSheet(f *excelize.File, name string) error {
	if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet, nameLabel string, columns []revenue.Column) error {
	header := make([]any, 0, len(columns)+1)
	header = append(header, nameLabel)
	for _, col := range columns {
		header = append(header, col.Label)
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	return nil
}

func writeValues(
	f *excelize.File,
	sheet string,
	rowNum int,
	name string,
	columns []revenue.Column,
	value func(string) (decimal.Decimal, bool),
) error {
	cells := make([]any, 0, len(columns)+1)
	cells = append(cells, name)
	for _, col := range columns {
		v, ok := value(col.FieldName)
		if !ok {
			cells = append(cells, nil)
			continue
		}
		cells = append(cells, v.InexactFloat64())
	}
	axis, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, axis, &cells); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, rowNum, err)
	}
	return nil
}

// amountFormat is the builtin "#,##0.00" number format.
const amountFormat = 4

func styleAmounts(f *excelize.File, columns, mrrRows, cashFlowRows int) error {
	if columns == 0 {
		return nil
	}
	style, err := f.NewStyle(&excelize.Style{NumFmt: amountFormat})
	if err != nil {
		return fmt.Errorf("create amount style: %w", err)
	}
	for sheet, rows := range map[string]int{MRRSheet: mrrRows, CashFlowSheet: cashFlowRows} {
		if rows == 0 {
			continue
		}
		last, err := excelize.CoordinatesToCellName(columns+1, rows+1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, "B2", last, style); err != nil {
			return fmt.Errorf("style %s amounts: %w", sheet, err)
		}
	}
	return nil
}
