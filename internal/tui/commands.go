package tui

import (
	"context"
	"errors"
	"time"

	"github.com/RohanThakur-Ji/tabular-report-3/internal/report"
	tea "github.com/charmbracelet/bubbletea"
)

const loadTimeout = 30 * time.Second

// Keys under which the applied range is kept in app_config.
const (
	rangeKeyStartMonth = "report.range.start_month"
	rangeKeyStartYear  = "report.range.start_year"
	rangeKeyEndMonth   = "report.range.end_month"
	rangeKeyEndYear    = "report.range.end_year"
)

var rangeKeys = []string{rangeKeyStartMonth, rangeKeyStartYear, rangeKeyEndMonth, rangeKeyEndYear}

var errNoSource = errors.New("contract source is not configured")

func (m model) checkConnectionCmd() tea.Cmd {
	remote := m.remote
	return func() tea.Msg {
		if remote == nil {
			return checkConnectionMsg{connected: false}
		}
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		err := remote.Ping(ctx)
		return checkConnectionMsg{connected: err == nil, err: err}
	}
}

func (m model) loadTotalCmd(session int) tea.Cmd {
	source := m.source
	return func() tea.Msg {
		if source == nil {
			return totalMsg{session: session, err: errNoSource}
		}
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		total, err := source.TotalRecords(ctx)
		return totalMsg{session: session, total: total, err: err}
	}
}

func (m model) loadPageCmd(session int, req report.PageRequest) tea.Cmd {
	source := m.source
	return func() tea.Msg {
		if source == nil {
			return pageMsg{session: session, err: errNoSource}
		}
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		contracts, err := source.PagedRecords(ctx, req.Limit, req.Offset)
		return pageMsg{session: session, contracts: contracts, err: err}
	}
}

func (m model) loadAllCmd(session int) tea.Cmd {
	source := m.source
	return func() tea.Msg {
		if source == nil {
			return allRecordsMsg{session: session, err: errNoSource}
		}
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		contracts, err := source.AllRecords(ctx)
		return allRecordsMsg{session: session, contracts: contracts, err: err}
	}
}

func (m model) settleCmd(session int) tea.Cmd {
	return tea.Tick(m.renderDelay, func(time.Time) tea.Msg {
		return settledMsg{session: session}
	})
}

func (m model) loadSavedRangeCmd() tea.Cmd {
	store := m.ranges
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		values, err := store.GetMany(context.Background(), rangeKeys...)
		if err != nil {
			return savedRangeMsg{err: err}
		}
		return savedRangeMsg{selection: report.Selection{
			StartMonth: values[rangeKeyStartMonth],
			StartYear:  values[rangeKeyStartYear],
			EndMonth:   values[rangeKeyEndMonth],
			EndYear:    values[rangeKeyEndYear],
		}}
	}
}

func (m model) saveRangeCmd(sel report.Selection) tea.Cmd {
	store := m.ranges
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		return rangeSavedMsg{err: store.UpsertMany(context.Background(), map[string]string{
			rangeKeyStartMonth: sel.StartMonth,
			rangeKeyStartYear:  sel.StartYear,
			rangeKeyEndMonth:   sel.EndMonth,
			rangeKeyEndYear:    sel.EndYear,
		})}
	}
}

func (m model) clearSavedRangeCmd() tea.Cmd {
	store := m.ranges
	if store == nil {
		return nil
	}
	return func() tea.Msg {
		return rangeSavedMsg{err: store.Delete(context.Background(), rangeKeys...)}
	}
}

func (m model) requestSyncCmd() tea.Cmd {
	refresher := m.sync
	return func() tea.Msg {
		return syncRequestedMsg{err: refresher.RefreshContracts()}
	}
}

// waitForSyncEvent blocks on the engine's event channel. It is re-issued
// after every event, and stops once the channel is closed.
func (m model) waitForSyncEvent() tea.Cmd {
	events := m.events
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		evt, ok := <-events
		if !ok {
			return nil
		}
		return syncEventMsg{event: evt}
	}
}
