package tui

import (
	"context"
	"strings"
	"time"

	"github.com/RohanThakur-Ji/tabular-report-3/internal/report"
	"github.com/RohanThakur-Ji/tabular-report-3/internal/revenue"
	"github.com/RohanThakur-Ji/tabular-report-3/internal/syncer"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// Source is the contract cache the report reads from.
type Source interface {
	AllRecords(ctx context.Context) ([]revenue.Contract, error)
	PagedRecords(ctx context.Context, limit, offset int) ([]revenue.Contract, error)
	TotalRecords(ctx context.Context) (int, error)
}

// RangeStore persists the applied range between runs.
type RangeStore interface {
	GetMany(ctx context.Context, keys ...string) (map[string]string, error)
	UpsertMany(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}

type Refresher interface {
	RefreshContracts() error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Source Source
	Ranges RangeStore
	Sync   Refresher
	// SyncEvents, when set, triggers a wholesale reload after each
	// successful sync.
	SyncEvents <-chan syncer.Event
	Remote     Pinger

	Currency    revenue.CurrencyFormat
	PageSize    int
	RenderDelay time.Duration
	Logger      *zap.Logger
	Now         func() time.Time
}

type connectionState int

const (
	stateChecking connectionState = iota
	stateConnected
	stateDisconnected
)

// Picklist fields in tab order.
const (
	fieldStartMonth = iota
	fieldStartYear
	fieldEndMonth
	fieldEndYear
	fieldCount
)

type checkConnectionMsg struct {
	connected bool
	err       error
}

type totalMsg struct {
	session int
	total   int
	err     error
}

type pageMsg struct {
	session   int
	contracts []revenue.Contract
	err       error
}

type allRecordsMsg struct {
	session   int
	contracts []revenue.Contract
	err       error
}

// settledMsg publishes a pending report once the render delay has passed.
type settledMsg struct {
	session int
}

type savedRangeMsg struct {
	selection report.Selection
	err       error
}

type rangeSavedMsg struct {
	err error
}

type syncEventMsg struct {
	event syncer.Event
}

type syncRequestedMsg struct {
	err error
}

type clearNoticeMsg struct {
	id int
}

type model struct {
	source Source
	ranges RangeStore
	sync   Refresher
	events <-chan syncer.Event
	remote Pinger
	log    *zap.Logger
	now    func() time.Time

	currency    revenue.CurrencyFormat
	renderDelay time.Duration

	width  int
	height int

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	report     report.State
	published  bool
	loadingAll bool
	allErr     string

	pending      *report.State
	buildSession int

	feed report.Feed
	// loadSession tags every cache read; replies from an earlier reload are dropped.
	loadSession int
	firstPage   report.PageRequest

	saved report.Selection
	focus int
	picks [fieldCount]int

	status     connectionState
	syncStatus string

	notice   string
	noticeID int

	quitting bool
}

func New(opts Options) tea.Model {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	currency := opts.Currency
	if currency.Code == "" {
		currency = revenue.DefaultCurrency
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	feed, first, _ := report.NewFeed(opts.PageSize).Begin()

	return model{
		source:      opts.Source,
		ranges:      opts.Ranges,
		sync:        opts.Sync,
		events:      opts.SyncEvents,
		remote:      opts.Remote,
		log:         log,
		now:         now,
		currency:    currency,
		renderDelay: opts.RenderDelay,
		keys:        defaultKeyMap(),
		help:        help.New(),
		spinner:     sp,
		report:      report.Build(nil, now(), report.Options{Currency: currency}),
		loadingAll:  true,
		feed:        feed,
		firstPage:   first,
		status:      stateChecking,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.checkConnectionCmd(),
		m.loadTotalCmd(m.loadSession),
		m.loadPageCmd(m.loadSession, m.firstPage),
		m.loadAllCmd(m.loadSession),
		m.loadSavedRangeCmd(),
		m.waitForSyncEvent(),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case checkConnectionMsg:
		if msg.connected {
			m.status = stateConnected
		} else {
			m.status = stateDisconnected
		}
		return m, nil

	case totalMsg:
		if msg.session != m.loadSession {
			return m, nil
		}
		if msg.err != nil {
			m.log.Warn("count contracts", zap.Error(msg.err))
			return m, nil
		}
		m.feed = m.feed.WithTotal(msg.total)
		return m, nil

	case pageMsg:
		if msg.session != m.loadSession {
			return m, nil
		}
		if msg.err != nil {
			m.log.Error("load contract page", zap.Int("offset", m.feed.Offset()), zap.Error(msg.err))
			m.feed = m.feed.Fail(msg.err)
			return m, nil
		}
		m.feed = m.feed.Complete(msg.contracts)
		return m, nil

	case allRecordsMsg:
		if msg.session != m.loadSession {
			return m, nil
		}
		m.loadingAll = false
		if msg.err != nil {
			m.log.Error("load contracts", zap.Error(msg.err))
			m.allErr = msg.err.Error()
			return m, nil
		}
		m.allErr = ""
		next := report.Build(msg.contracts, m.now(), report.Options{
			Currency: m.currency,
			Logger:   m.log,
		})
		return m.stage(next)

	case settledMsg:
		if msg.session != m.buildSession || m.pending == nil {
			return m, nil
		}
		next := *m.pending
		m.pending = nil
		return m.publish(next), nil

	case savedRangeMsg:
		if msg.err != nil {
			m.log.Warn("load saved range", zap.Error(msg.err))
			return m, nil
		}
		m.saved = msg.selection
		if m.published && !m.saved.IsZero() && !m.report.PicklistsLocked() {
			return m.publish(m.report), nil
		}
		return m, nil

	case rangeSavedMsg:
		if msg.err != nil {
			m.log.Warn("persist range", zap.Error(msg.err))
		}
		return m, nil

	case syncEventMsg:
		return m.handleSyncEvent(msg.event)

	case syncRequestedMsg:
		if msg.err != nil {
			return m.withNotice("sync failed to start: " + msg.err.Error())
		}
		return m, nil

	case clearNoticeMsg:
		if msg.id == m.noticeID {
			m.notice = ""
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Next):
		if m.pending != nil || !m.report.CanNext() {
			return m, nil
		}
		return m.stage(m.report.Next())

	case key.Matches(msg, m.keys.Previous):
		if m.pending != nil || !m.report.CanPrevious() {
			return m, nil
		}
		return m.stage(m.report.Previous())

	case key.Matches(msg, m.keys.Field):
		if msg.String() == "shift+tab" {
			m.focus = (m.focus + fieldCount - 1) % fieldCount
		} else {
			m.focus = (m.focus + 1) % fieldCount
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		return m.stepPick(-1)

	case key.Matches(msg, m.keys.Down):
		return m.stepPick(1)

	case key.Matches(msg, m.keys.Apply):
		return m.applyRange()

	case key.Matches(msg, m.keys.Reset):
		if m.pending != nil || !m.report.CanReset() {
			return m, nil
		}
		m.saved = report.Selection{}
		staged, settle := m.stage(m.report.Reset())
		return staged, tea.Batch(staged.clearSavedRangeCmd(), settle)

	case key.Matches(msg, m.keys.More):
		next, req, ok := m.feed.Begin()
		if !ok {
			if m.feed.Exhausted() {
				return m.withNotice("all rows loaded")
			}
			return m, nil
		}
		m.feed = next
		return m, m.loadPageCmd(m.loadSession, req)

	case key.Matches(msg, m.keys.Sync):
		if m.sync == nil {
			return m.withNotice("sync is not configured")
		}
		return m, m.requestSyncCmd()
	}
	return m, nil
}

// stage publishes next after the render delay, or at once when there is none.
// A later stage supersedes one still waiting.
func (m model) stage(next report.State) (model, tea.Cmd) {
	m.buildSession++
	if m.renderDelay <= 0 {
		m.pending = nil
		return m.publish(next), nil
	}
	m.pending = &next
	return m, m.settleCmd(m.buildSession)
}

// publish makes next the visible report, re-applying the saved range when
// one exists.
func (m model) publish(next report.State) model {
	if !m.saved.IsZero() && !next.PicklistsLocked() {
		applied, err := next.ApplyRange(m.saved)
		if err != nil {
			m.log.Info("saved range no longer applies", zap.Strings("violations", report.Violations(err)))
			m.saved = report.Selection{}
		} else {
			next = applied
		}
	}
	m.report = next
	m.published = true
	if next.PicklistsLocked() {
		m.picksFromSelection(next.Selection())
	} else {
		m.resetPicks()
	}
	return m
}

func (m model) applyRange() (tea.Model, tea.Cmd) {
	if m.pending != nil {
		return m, nil
	}
	if m.report.Empty() {
		return m.withNotice("no months to select")
	}
	sel := m.currentSelection()
	next, err := m.report.ApplyRange(sel)
	if err != nil {
		return m.withNotice(strings.Join(report.Violations(err), " "))
	}
	m.saved = sel
	staged, settle := m.stage(next)
	return staged, tea.Batch(staged.saveRangeCmd(sel), settle)
}

func (m model) stepPick(delta int) (tea.Model, tea.Cmd) {
	if m.report.PicklistsLocked() {
		return m.withNotice("reset the range before choosing another")
	}
	n := len(m.options(m.focus))
	if n == 0 {
		return m, nil
	}
	m.picks[m.focus] = (m.picks[m.focus] + delta + n) % n
	return m, nil
}

func (m model) options(field int) []string {
	switch field {
	case fieldStartMonth, fieldEndMonth:
		return report.MonthOptions()
	default:
		return report.YearOptions(m.report.Columns())
	}
}

func (m model) currentSelection() report.Selection {
	value := func(field int) string {
		opts := m.options(field)
		if len(opts) == 0 {
			return ""
		}
		return opts[clampIndex(m.picks[field], len(opts))]
	}
	return report.Selection{
		StartMonth: value(fieldStartMonth),
		StartYear:  value(fieldStartYear),
		EndMonth:   value(fieldEndMonth),
		EndYear:    value(fieldEndYear),
	}
}

// resetPicks points the picklists at the first and last visible month.
func (m *model) resetPicks() {
	visible := m.report.VisibleColumns()
	if len(visible) == 0 {
		m.picks = [fieldCount]int{}
		return
	}
	first, last := visible[0].FieldName, visible[len(visible)-1].FieldName
	m.picksFromSelection(report.Selection{
		StartMonth: first[:3], StartYear: first[4:],
		EndMonth: last[:3], EndYear: last[4:],
	})
}

func (m *model) picksFromSelection(sel report.Selection) {
	months := report.MonthOptions()
	years := report.YearOptions(m.report.Columns())
	m.picks[fieldStartMonth] = indexOf(months, sel.StartMonth)
	m.picks[fieldStartYear] = indexOf(years, sel.StartYear)
	m.picks[fieldEndMonth] = indexOf(months, sel.EndMonth)
	m.picks[fieldEndYear] = indexOf(years, sel.EndYear)
}

func (m model) handleSyncEvent(evt syncer.Event) (tea.Model, tea.Cmd) {
	wait := m.waitForSyncEvent()
	switch evt.Type {
	case syncer.EventSyncStarted:
		m.syncStatus = "syncing"
		return m, wait
	case syncer.EventSyncFailed:
		m.syncStatus = "sync failed"
		if evt.Err != nil {
			m.syncStatus += ": " + evt.Err.Error()
		}
		if evt.RetryIn > 0 {
			m.syncStatus += " (retry in " + evt.RetryIn.String() + ")"
		}
		return m, wait
	case syncer.EventSyncOK:
		m.syncStatus = "synced " + evt.At.Local().Format("15:04:05")
		return m, tea.Batch(wait, m.reload())
	}
	return m, wait
}

// reload refetches everything after the cache changed underneath the view.
func (m *model) reload() tea.Cmd {
	m.loadSession++
	feed, req, _ := report.NewFeed(m.feed.Limit()).Begin()
	m.feed = feed
	m.loadingAll = true
	return tea.Batch(
		m.loadTotalCmd(m.loadSession),
		m.loadPageCmd(m.loadSession, req),
		m.loadAllCmd(m.loadSession),
	)
}

func (m model) withNotice(text string) (tea.Model, tea.Cmd) {
	m.notice = text
	m.noticeID++
	id := m.noticeID
	return m, tea.Tick(4*time.Second, func(time.Time) tea.Msg {
		return clearNoticeMsg{id: id}
	})
}

func (m model) busy() bool {
	return m.loadingAll || m.pending != nil || m.feed.Loading()
}

func indexOf(values []string, v string) int {
	for i, candidate := range values {
		if candidate == v {
			return i
		}
	}
	return 0
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
