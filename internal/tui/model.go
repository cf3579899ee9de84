package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ZehenForever/dpsboard/internal/engine"
	"github.com/ZehenForever/dpsboard/internal/export"
	"github.com/ZehenForever/dpsboard/internal/feed"
	"github.com/ZehenForever/dpsboard/internal/ranking"
)

type View int

const (
	ViewCards View = iota
	ViewTable
)

func ParseView(s string) View {
	if strings.EqualFold(strings.TrimSpace(s), "table") {
		return ViewTable
	}
	return ViewCards
}

func (v View) String() string {
	if v == ViewTable {
		return "table"
	}
	return "card"
}

// RenderMsg is sent when the scheduler's debounced render fires.
type RenderMsg struct{}

// SampleMsg is sent when the scheduler's sampling interval elapses.
type SampleMsg struct{}

type idleTickMsg time.Time

type resetDoneMsg struct {
	auto bool
	err  error
}

type Options struct {
	View      View
	ShowChart bool
	ExportDir string
	IdleCheck time.Duration
	// Status reports the feed connection; nil hides it.
	Status    func() feed.Status
	Clipboard func(string) error
	Now       func() time.Time
}

// Model is the dashboard's Bubble Tea model. All rendering happens on the
// program goroutine; feed and timer goroutines only send messages.
type Model struct {
	eng  *engine.Engine
	opts Options
	keys KeyMap
	help help.Model

	width, height int
	view          View
	showChart     bool

	rows       []ranking.Row
	selected   int
	selectedID int64
	board      string
	renders    int

	chart *trendChart

	detailOpen bool
	detailID   int64
	skill      string
	skillKeys  []string
	detail     string

	notice    string
	noticeErr bool
}

func New(eng *engine.Engine, opts Options) *Model {
	if opts.IdleCheck <= 0 {
		opts.IdleCheck = engine.DefaultIdleCheck
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}
	m := &Model{
		eng:       eng,
		opts:      opts,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		width:     80,
		height:    24,
		view:      opts.View,
		showChart: opts.ShowChart,
		chart:     newTrendChart(78, 8),
	}
	m.board = m.renderBoard()
	return m
}

func (m *Model) Init() tea.Cmd {
	return m.idleTick()
}

func (m *Model) idleTick() tea.Cmd {
	return tea.Tick(m.opts.IdleCheck, func(t time.Time) tea.Msg {
		return idleTickMsg(t)
	})
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.chart = newTrendChart(msg.Width-2, m.chartHeight())
		m.eng.Scheduler().Invalidate()
		m.refresh()
		m.refreshChart()
		return m, nil

	case tea.FocusMsg:
		m.eng.SetVisible(true)
		return m, nil

	case tea.BlurMsg:
		m.eng.SetVisible(false)
		return m, nil

	case RenderMsg:
		m.refresh()
		return m, nil

	case SampleMsg:
		m.eng.Sample()
		m.refreshChart()
		return m, nil

	case idleTickMsg:
		eng, now := m.eng, time.Time(msg)
		check := func() tea.Msg {
			if eng.Tick(now) {
				return resetDoneMsg{auto: true}
			}
			return nil
		}
		return m, tea.Batch(check, m.idleTick())

	case resetDoneMsg:
		switch {
		case msg.err != nil:
			m.setNotice("reset locally; feed not cleared: "+msg.err.Error(), true)
		case msg.auto:
			m.setNotice("idle timeout: session reset", false)
		default:
			m.setNotice("session reset", false)
		}
		m.closeDetail()
		m.eng.Scheduler().Invalidate()
		m.refresh()
		m.refreshChart()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		m.closeDetail()
		return m, nil
	}

	if m.detailOpen {
		switch {
		case key.Matches(msg, m.keys.NextSkill):
			m.cycleSkill(1)
			return m, nil
		case key.Matches(msg, m.keys.PrevSkill):
			m.cycleSkill(-1)
			return m, nil
		// Board navigation stays behind the modal.
		case key.Matches(msg, m.keys.Up, m.keys.Down, m.keys.Enter, m.keys.ToggleView):
			return m, nil
		}
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		m.moveSelection(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveSelection(1)
	case key.Matches(msg, m.keys.Enter):
		m.openDetail()

	case key.Matches(msg, m.keys.ToggleView):
		if m.view == ViewCards {
			m.view = ViewTable
		} else {
			m.view = ViewCards
		}
		m.board = m.renderBoard()
	case key.Matches(msg, m.keys.CycleBoss):
		mode := m.eng.Mode()
		mode.Boss = mode.Boss.Next()
		m.eng.SetMode(mode)
		m.refresh()
	case key.Matches(msg, m.keys.ToggleSingle):
		mode := m.eng.Mode()
		mode.Single = !mode.Single
		m.eng.SetMode(mode)
		m.refresh()
	case key.Matches(msg, m.keys.ToggleChart):
		m.showChart = !m.showChart
		m.refreshChart()

	case key.Matches(msg, m.keys.Reset):
		eng := m.eng
		return m, func() tea.Msg {
			return resetDoneMsg{err: eng.Reset()}
		}
	case key.Matches(msg, m.keys.ExportJSON):
		path, err := export.SaveDocument(m.opts.ExportDir, m.eng.Snapshot(), m.opts.Now())
		m.reportExport("saved", path, err)
	case key.Matches(msg, m.keys.ExportCSV):
		path, err := export.SaveCSV(m.opts.ExportDir, m.eng.Ranking(), m.opts.Now())
		m.reportExport("saved", path, err)
	case key.Matches(msg, m.keys.Copy):
		rows := m.eng.Ranking()
		if len(rows) == 0 {
			m.setNotice("nothing to copy yet", true)
			break
		}
		if err := m.opts.Clipboard(export.Summary(rows, m.eng.Runtime())); err != nil {
			m.setNotice("copy failed: "+err.Error(), true)
			break
		}
		m.setNotice("summary copied to clipboard", false)
	}
	return m, nil
}

func (m *Model) reportExport(verb, path string, err error) {
	if err != nil {
		m.setNotice("export failed: "+err.Error(), true)
		return
	}
	m.setNotice(verb+" "+path, false)
}

func (m *Model) setNotice(s string, isErr bool) {
	m.notice = s
	m.noticeErr = isErr
}

// refresh recomputes the ranking and rebuilds the leaderboard only when its
// fingerprint moved. An open detail view is always rebuilt.
func (m *Model) refresh() {
	rows := m.eng.Ranking()
	if m.eng.Scheduler().ShouldRender(rows) {
		m.rows = rows
		m.followSelection()
		m.board = m.renderBoard()
		m.renders++
	}
	if m.detailOpen {
		m.refreshDetail()
	}
}

func (m *Model) followSelection() {
	if _, idx, ok := ranking.Find(m.rows, m.selectedID); ok {
		m.selected = idx
		return
	}
	m.selected = max(0, min(m.selected, len(m.rows)-1))
	if len(m.rows) > 0 {
		m.selectedID = m.rows[m.selected].EntityID
	} else {
		m.selectedID = 0
	}
}

func (m *Model) moveSelection(delta int) {
	if len(m.rows) == 0 {
		return
	}
	m.selected = (m.selected + delta + len(m.rows)) % len(m.rows)
	m.selectedID = m.rows[m.selected].EntityID
	m.board = m.renderBoard()
	m.refreshChart()
}

func (m *Model) renderBoard() string {
	if m.view == ViewTable {
		return renderTable(m.rows, m.selected)
	}
	return renderCards(m.rows, m.selected, m.width)
}

func (m *Model) chartHeight() int {
	return max(4, min(12, m.height/4))
}

func (m *Model) refreshChart() {
	if !m.showChart {
		return
	}
	lines, avg := m.eng.Series()
	m.chart.Fill(lines, avg, m.selectedID)
}

func (m *Model) openDetail() {
	if len(m.rows) == 0 {
		return
	}
	m.detailOpen = true
	m.detailID = m.rows[m.selected].EntityID
	m.skill = ""
	m.refreshDetail()
}

func (m *Model) closeDetail() {
	m.detailOpen = false
	m.detail = ""
	m.skillKeys = nil
}

func (m *Model) refreshDetail() {
	d, ok := m.eng.Detail(m.detailID, m.skill)
	if !ok {
		m.closeDetail()
		return
	}
	m.skill = d.Skill
	m.skillKeys = d.SkillKeys()
	m.detail = renderDetail(d, m.width)
}

func (m *Model) cycleSkill(delta int) {
	if len(m.skillKeys) == 0 {
		return
	}
	idx := 0
	for i, k := range m.skillKeys {
		if k == m.skill {
			idx = i
			break
		}
	}
	m.skill = m.skillKeys[(idx+delta+len(m.skillKeys))%len(m.skillKeys)]
	m.refreshDetail()
}

func (m *Model) View() string {
	sections := []string{m.headerView()}
	if m.detailOpen {
		sections = append(sections, m.detail)
	} else {
		sections = append(sections, m.board)
		if m.showChart {
			sections = append(sections, titleStyle.Render("DPS trend"), m.chart.String())
		}
	}
	if m.notice != "" {
		style := noticeStyle
		if m.noticeErr {
			style = errStyle
		}
		sections = append(sections, style.Render(m.notice))
	}
	sections = append(sections, m.help.View(m.keys))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) headerView() string {
	mode := m.eng.Mode()
	single := "off"
	if mode.Single {
		single = "on"
	}
	parts := []string{
		titleStyle.Render("dpsboard"),
		fmt.Sprintf("[%s]", m.eng.State()),
		fmt.Sprintf("boss %s", mode.Boss),
		fmt.Sprintf("single %s", single),
		fmt.Sprintf("time %s", export.Clock(m.eng.Runtime())),
	}
	if m.opts.Status != nil {
		parts = append(parts, feedLabel(m.opts.Status()))
	}
	return strings.Join(parts, "  ")
}

func feedLabel(st feed.Status) string {
	switch {
	case !st.Enabled:
		return mutedStyle.Render("feed off")
	case st.Connected:
		return noticeStyle.Render("feed connected")
	case st.ReconnectIn > 0:
		return errStyle.Render(fmt.Sprintf("feed retry %s", st.ReconnectIn.Round(time.Second)))
	}
	return errStyle.Render("feed connecting")
}
