package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/smartwake/internal/assets"
	"github.com/desertthunder/smartwake/internal/models"
	"github.com/desertthunder/smartwake/internal/scheduling"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	AlarmListView ViewState = iota
	DetailView
	ConfirmView
)

// Backend is the slice of the orchestrator the dashboard drives.
type Backend interface {
	List(ctx context.Context) ([]*models.Alarm, error)
	NextOccurrences(ctx context.Context, id string, count int) ([]time.Time, error)
	Readiness(ctx context.Context, id string) (assets.Readiness, error)
	SetEnabled(ctx context.Context, id string, enabled bool) (*models.Alarm, error)
	Snooze(ctx context.Context, id string, d time.Duration) (time.Time, error)
	DeleteAlarm(ctx context.Context, id string) error
	Stats() scheduling.Stats
}

var _ Backend = (*scheduling.Orchestrator)(nil)

const (
	detailOccurrences = 5
	defaultRefresh    = 30 * time.Second
)

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	backend  Backend
	refresh  time.Duration
	width    int
	height   int
	alarms   list.Model
	rows     []alarmRow
	selected *detail
	pending  *models.Alarm // awaiting delete confirmation
	status   string
	err      error
	help     help.Model
	keys     keyMap
}

// NewModel creates a dashboard over backend. A non-positive refresh uses 30s.
func NewModel(ctx context.Context, backend Backend, refresh time.Duration) *Model {
	if refresh <= 0 {
		refresh = defaultRefresh
	}
	alarms := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	alarms.Title = "Alarms"
	return &Model{
		ctx:     ctx,
		view:    AlarmListView,
		backend: backend,
		refresh: refresh,
		alarms:  alarms,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init loads the alarms and starts the refresh ticker.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadAlarms(), m.tick())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.alarms.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case AlarmListView:
			return m.handleListKeys(msg)
		case DetailView:
			return m.handleDetailKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	m.alarms, cmd = m.alarms.Update(msg)
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgAlarmsLoaded:
		data := msg.data.(struct {
			rows []alarmRow
			err  error
		})
		m.err = data.err
		if data.err != nil {
			return m, nil
		}
		m.rows = data.rows
		items := make([]list.Item, len(data.rows))
		for i, row := range data.rows {
			items[i] = alarmItem{row: row}
		}
		return m, m.alarms.SetItems(items)

	case MsgDetailLoaded:
		data := msg.data.(struct {
			detail *detail
			err    error
		})
		if data.err != nil {
			m.err = data.err
			m.view = AlarmListView
			return m, nil
		}
		m.err = nil
		m.selected = data.detail
		m.view = DetailView
		return m, nil

	case MsgActionDone:
		data := msg.data.(struct {
			status string
			err    error
		})
		m.err = data.err
		m.status = data.status
		return m, m.loadAlarms()

	case MsgTick:
		return m, tea.Batch(m.loadAlarms(), m.tick())
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case DetailView:
		return m.renderDetail()
	case ConfirmView:
		return m.renderConfirm()
	default:
		return m.renderList()
	}
}

func (m *Model) current() *models.Alarm {
	if item, ok := m.alarms.SelectedItem().(alarmItem); ok {
		return item.row.alarm
	}
	return nil
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.alarms.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.alarms, cmd = m.alarms.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.refresh):
		return m, m.loadAlarms()
	}

	if a := m.current(); a != nil {
		switch {
		case key.Matches(msg, m.keys.enter):
			return m, m.loadDetail(a.ID)
		case key.Matches(msg, m.keys.toggle):
			return m, m.toggle(a)
		case key.Matches(msg, m.keys.snooze):
			return m, m.snooze(a)
		case key.Matches(msg, m.keys.remove):
			m.pending = a
			m.view = ConfirmView
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.alarms, cmd = m.alarms.Update(msg)
	return m, cmd
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = AlarmListView
		m.selected = nil
		return m, nil
	case key.Matches(msg, m.keys.refresh) && m.selected != nil:
		return m, m.loadDetail(m.selected.alarm.ID)
	}
	return m, nil
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes) && m.pending != nil:
		a := m.pending
		m.pending = nil
		m.view = AlarmListView
		return m, m.remove(a)
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
		m.pending = nil
		m.view = AlarmListView
		return m, nil
	}
	return m, nil
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) loadAlarms() tea.Cmd {
	return func() tea.Msg {
		alarms, err := m.backend.List(m.ctx)
		if err != nil {
			return alarmsLoadedMsg(nil, err)
		}
		rows := make([]alarmRow, 0, len(alarms))
		for _, a := range alarms {
			row := alarmRow{alarm: a}
			if a.Enabled {
				if next, err := m.backend.NextOccurrences(m.ctx, a.ID, 1); err == nil && len(next) > 0 {
					row.next = &next[0]
				}
			}
			rows = append(rows, row)
		}
		return alarmsLoadedMsg(rows, nil)
	}
}

func (m *Model) loadDetail(id string) tea.Cmd {
	return func() tea.Msg {
		alarms, err := m.backend.List(m.ctx)
		if err != nil {
			return detailLoadedMsg(nil, err)
		}
		d := &detail{}
		for _, a := range alarms {
			if a.ID == id {
				d.alarm = a
				break
			}
		}
		if d.alarm == nil {
			return detailLoadedMsg(nil, fmt.Errorf("alarm %s no longer exists", id))
		}
		if d.occurrences, err = m.backend.NextOccurrences(m.ctx, id, detailOccurrences); err != nil {
			return detailLoadedMsg(nil, err)
		}
		if d.readiness, err = m.backend.Readiness(m.ctx, id); err != nil {
			return detailLoadedMsg(nil, err)
		}
		return detailLoadedMsg(d, nil)
	}
}

func (m *Model) toggle(a *models.Alarm) tea.Cmd {
	return func() tea.Msg {
		updated, err := m.backend.SetEnabled(m.ctx, a.ID, !a.Enabled)
		if err != nil {
			return actionDoneMsg("", err)
		}
		state := "disabled"
		if updated.Enabled {
			state = "enabled"
		}
		return actionDoneMsg(fmt.Sprintf("%s %s", a.Label, state), nil)
	}
}

func (m *Model) snooze(a *models.Alarm) tea.Cmd {
	return func() tea.Msg {
		until, err := m.backend.Snooze(m.ctx, a.ID, 0)
		if err != nil {
			return actionDoneMsg("", err)
		}
		return actionDoneMsg(fmt.Sprintf("%s snoozed until %s", a.Label, until.Format("15:04")), nil)
	}
}

func (m *Model) remove(a *models.Alarm) tea.Cmd {
	return func() tea.Msg {
		if err := m.backend.DeleteAlarm(m.ctx, a.ID); err != nil {
			return actionDoneMsg("", err)
		}
		return actionDoneMsg(fmt.Sprintf("%s deleted", a.Label), nil)
	}
}

func (m *Model) footer() string {
	var b strings.Builder
	switch {
	case m.err != nil:
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	case m.status != "":
		b.WriteString(styles.ok.Render(m.status))
		b.WriteString("\n")
	}
	s := m.backend.Stats()
	b.WriteString(styles.help.Render(fmt.Sprintf(
		"scheduled %d • fired %d • snoozes %d • adaptations %d",
		s.NotificationsScheduled, s.AlarmsFired, s.Snoozes, s.AdaptationsApplied,
	)))
	return b.String()
}

func (m *Model) renderList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.toggle, m.keys.snooze, m.keys.remove, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s\n%s", m.alarms.View(), m.footer(), helpView)
}

func (m *Model) renderDetail() string {
	if m.selected == nil {
		return m.renderList()
	}
	a := m.selected.alarm
	r := m.selected.readiness

	var b strings.Builder
	b.WriteString(styles.title.Render(fmt.Sprintf("%s at %s", a.Label, a.Time)))
	b.WriteString("\n")
	b.WriteString(styles.row("Enabled", styles.badge(a.Enabled, "yes", "no")) + "\n")
	b.WriteString(styles.row("Adaptive", styles.badge(a.RealTimeAdaptation, "on", "off")) + "\n")
	b.WriteString(styles.row("Snoozes", fmt.Sprintf("%d (lifetime %d)", a.SnoozeCount, a.LifetimeSnoozes)) + "\n")
	if a.LastTriggered != nil {
		b.WriteString(styles.row("Last fired", a.LastTriggered.Format("Mon Jan 2 15:04")) + "\n")
	}

	b.WriteString("\n" + styles.title.Render("Upcoming"))
	b.WriteString("\n")
	if len(m.selected.occurrences) == 0 {
		b.WriteString(styles.warn.Render("no upcoming occurrences") + "\n")
	}
	for _, t := range m.selected.occurrences {
		b.WriteString("  • " + t.Format("Mon Jan 2 2006 15:04") + "\n")
	}

	b.WriteString("\n" + styles.title.Render("Assets"))
	b.WriteString("\n")
	b.WriteString(styles.row("Speech", styles.badge(r.SpeechReady, "ready", "missing")) + "\n")
	b.WriteString(styles.row("Audio", styles.badge(r.AudioReady, "ready", "missing")) + "\n")
	b.WriteString(styles.row("Fallback", styles.badge(r.FallbackReady, "ready", "missing")) + "\n")
	b.WriteString(styles.row("Overall", styles.badge(r.OverallReady, "ready", "not ready")) + "\n")
	if r.Degraded {
		b.WriteString(styles.warn.Render("degraded: a preferred source is not loaded") + "\n")
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.refresh, m.keys.quit})
	return fmt.Sprintf("%s\n%s", b.String(), helpView)
}

func (m *Model) renderConfirm() string {
	if m.pending == nil {
		return m.renderList()
	}
	title := styles.title.Render(fmt.Sprintf("Delete '%s'?", m.pending.Label))
	info := fmt.Sprintf("\nTime: %s\nPending notifications will be cancelled.\n", m.pending.Time)
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}
