package tui

import (
	"fmt"
	"strings"

	"github.com/RohanThakur-Ji/tabular-report-3/internal/report"
	"github.com/RohanThakur-Ji/tabular-report-3/internal/revenue"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"
)

var (
	coral  = lipgloss.Color("#F47A60")
	yellow = lipgloss.Color("#FFD54A")
	blue   = lipgloss.Color("#5FA8FF")
	sky    = lipgloss.Color("#87CEEB")
	green  = lipgloss.Color("#5CCB76")
	red    = lipgloss.Color("#F15B5B")
	grey   = lipgloss.Color("#6C6C6C")

	titleStyle    = lipgloss.NewStyle().Foreground(coral).Bold(true)
	labelStyle    = lipgloss.NewStyle().Foreground(sky).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(grey)
	errorStyle    = lipgloss.NewStyle().Foreground(red).Bold(true)
	noticeStyle   = lipgloss.NewStyle().Foreground(yellow).Bold(true)
	spinnerStyle  = lipgloss.NewStyle().Foreground(coral)
	focusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(coral).Bold(true).Padding(0, 1)
	pickStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Padding(0, 1)
	headerCell    = lipgloss.NewStyle().Foreground(blue).Bold(true).Padding(0, 1)
	nameCell      = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	amountCell    = lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Right)
	sectionHeader = lipgloss.NewStyle().Foreground(yellow).Bold(true).MarginTop(1)
)

func (m model) View() string {
	if m.quitting {
		return ""
	}

	frame := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(coral).
		Padding(0, 1)
	if m.width > 0 {
		frame = frame.Width(max(1, m.width-frame.GetHorizontalBorderSize()))
	}

	sections := []string{
		m.renderHeader(),
		m.renderPicklists(),
		m.renderPager(),
		sectionHeader.Render("MRR"),
		m.renderPrimary(),
		sectionHeader.Render("Cash Flow"),
		m.renderAggregates(),
	}
	if m.notice != "" {
		sections = append(sections, "", noticeStyle.Render(m.notice))
	}
	sections = append(sections, "", m.help.View(m.keys))
	return frame.Render(strings.Join(sections, "\n"))
}

func (m model) renderHeader() string {
	status := lipgloss.NewStyle().Foreground(red).Bold(true).Render("not connected")
	switch m.status {
	case stateChecking:
		status = dimStyle.Render("checking")
	case stateConnected:
		status = lipgloss.NewStyle().Foreground(green).Bold(true).Render("connected")
	}
	parts := []string{
		titleStyle.Render("tabreport"),
		labelStyle.Render("remote: ") + status,
	}
	if m.syncStatus != "" {
		parts = append(parts, labelStyle.Render("sync: ")+m.syncStatus)
	}
	if m.busy() {
		parts = append(parts, m.spinner.View()+dimStyle.Render(" loading"))
	}
	return strings.Join(parts, "   ")
}

func (m model) renderPicklists() string {
	locked := m.report.PicklistsLocked()
	field := func(i int, fallback string) string {
		opts := m.options(i)
		value := fallback
		if len(opts) > 0 {
			value = opts[clampIndex(m.picks[i], len(opts))]
		}
		switch {
		case locked:
			return dimStyle.Padding(0, 1).Render(value)
		case i == m.focus:
			return focusStyle.Render(value)
		default:
			return pickStyle.Render(value)
		}
	}

	line := labelStyle.Render("Start ") + field(fieldStartMonth, "---") + field(fieldStartYear, "----") +
		labelStyle.Render("   End ") + field(fieldEndMonth, "---") + field(fieldEndYear, "----")
	if locked {
		line += dimStyle.Render("   range applied, r to reset")
	}

	startHint, endHint := report.RangeHints(m.report.Columns())
	if startHint == "" {
		return line
	}
	return line + "\n" + dimStyle.Render(startHint+" "+endHint)
}

func (m model) renderPager() string {
	button := func(label string, enabled bool) string {
		if enabled {
			return labelStyle.Render(label)
		}
		return dimStyle.Render(label)
	}
	total := m.report.TotalPages()
	page := fmt.Sprintf("page %d/%d", m.report.Window().Page+1, total+1)
	return button("← previous", m.report.CanPrevious()) + "  " +
		dimStyle.Render(page) + "  " +
		button("next →", m.report.CanNext())
}

func (m model) renderPrimary() string {
	if err := m.feed.Err(); err != nil {
		return errorStyle.Render("could not load contracts: " + err.Error())
	}
	if m.report.Empty() {
		if m.loadingAll || m.pending != nil {
			return dimStyle.Render("loading contracts...")
		}
		return dimStyle.Render("no contracts")
	}

	columns := m.report.Views().Primary
	rows := make([][]string, 0, len(m.feed.Contracts()))
	for _, row := range m.feed.Rows(m.now()) {
		rows = append(rows, renderRow(row.Name, columns, row.Value))
	}
	out := renderTable(columns, rows)

	footer := fmt.Sprintf("%d rows", len(rows))
	if total, ok := m.feed.Total(); ok {
		footer = fmt.Sprintf("%d of %d rows", len(rows), total)
	}
	if !m.feed.Exhausted() {
		footer += ", m for more"
	}
	return out + "\n" + dimStyle.Render(footer)
}

func (m model) renderAggregates() string {
	if m.allErr != "" {
		return errorStyle.Render("could not load contracts: " + m.allErr)
	}
	if m.report.Empty() {
		return ""
	}

	views := m.report.Views()
	var cashFlow, arr [][]string
	for _, agg := range m.report.Aggregates() {
		if agg.Name == revenue.ARRName {
			arr = append(arr, renderRow(agg.Name, views.ARR, agg.Value))
			continue
		}
		cashFlow = append(cashFlow, renderRow(agg.Name, views.Aggregate, agg.Value))
	}
	return renderTable(views.Aggregate, cashFlow) + "\n" + renderTable(views.ARR, arr)
}

// renderRow formats one row against columns, whose first entry is the name
// pseudo-column. Months without a value render blank.
func renderRow(name string, columns []revenue.Column, value func(string) (decimal.Decimal, bool)) []string {
	cells := make([]string, len(columns))
	for i, col := range columns {
		if col.FieldName == revenue.NameField {
			cells[i] = name
			continue
		}
		if v, ok := value(col.FieldName); ok {
			cells[i] = col.Currency.Format(v)
		}
	}
	return cells
}

func renderTable(columns []revenue.Column, rows [][]string) string {
	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = col.Label
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(grey)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerCell
			case col == 0:
				return nameCell
			default:
				return amountCell
			}
		})
	return t.Render()
}
