// Package tui renders the dashboard state as a bubbletea program.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"pilgrimwatch/internal/dashboard"
	"pilgrimwatch/internal/telemetry"
)

// Commander issues control requests. dashboard.Dispatcher implements it.
type Commander interface {
	Send(action telemetry.ControlAction, value *int) bool
}

// Poster queues inputs for the session loop. dashboard.Session implements it.
type Poster interface {
	Post(in dashboard.Input)
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("#1f6f50")).Padding(0, 1)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	cardStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).Width(18)
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1)
	modalStyle   = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color(telemetry.AlertBlue.Color())).Padding(1, 4).Align(lipgloss.Center)
)

// Model is the bubbletea model of the dashboard. It only reads State; every
// change to State arrives as an update from the session.
type Model struct {
	state  dashboard.State
	cmd    Commander
	post   Poster
	source string

	keys    KeyMap
	help    help.Model
	spinner spinner.Model
	table   table.Model
	log     viewport.Model

	wrap   bool
	speed  int
	fast   bool
	width  int
	height int
	now    time.Time
}

// NewModel creates the model. cmd and post may be nil, which makes the view
// read-only.
func NewModel(state dashboard.State, cmd Commander, post Poster, source string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = warnStyle

	cols := []table.Column{
		{Title: "Field", Width: 12},
		{Title: "Value", Width: 36},
	}
	t := table.New(table.WithColumns(cols), table.WithRows(telemetryRows(state)), table.WithHeight(7))

	m := Model{
		state:   state,
		cmd:     cmd,
		post:    post,
		source:  source,
		keys:    DefaultKeyMap,
		help:    help.New(),
		spinner: sp,
		table:   t,
		log:     viewport.New(100, 10),
		width:   100,
		height:  40,
		now:     time.Now(),
	}
	m.layout()
	m.refreshLog()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return tea.Batch(m.spinner.Tick, tick()) }

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.layout()
		m.refreshLog()
	case tea.KeyMsg:
		return m.handleKey(msg)
	case updateMsg:
		m.apply(msg.Update)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tickMsg:
		m.now = time.Time(msg)
		return m, tick()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c := m.state.Controls
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Dismiss):
		if m.state.Modal.Visible && m.post != nil {
			post := m.post
			return m, func() tea.Msg {
				post.Post(dashboard.ModalDismissed{})
				return nil
			}
		}
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
	case key.Matches(msg, m.keys.Wrap):
		m.wrap = !m.wrap
		m.refreshLog()
	case key.Matches(msg, m.keys.Start):
		m.control(c.StartEnabled, telemetry.ActionStart)
	case key.Matches(msg, m.keys.Pause):
		m.control(c.PauseEnabled, telemetry.ActionPause)
	case key.Matches(msg, m.keys.Step):
		m.control(c.StepEnabled, telemetry.ActionNextStep)
	case key.Matches(msg, m.keys.Reset):
		m.control(true, telemetry.ActionReset)
	case key.Matches(msg, m.keys.Speed1):
		m.setSpeed(1)
	case key.Matches(msg, m.keys.Speed2):
		m.setSpeed(2)
	case key.Matches(msg, m.keys.Speed4):
		m.setSpeed(4)
	default:
		var cmd tea.Cmd
		m.log, cmd = m.log.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) control(enabled bool, action telemetry.ControlAction) {
	if !enabled || m.cmd == nil {
		return
	}
	m.cmd.Send(action, nil)
}

// setSpeed switches the cards to fast mode right away; the server confirms
// the speed later through a status event.
func (m *Model) setSpeed(n int) {
	m.speed = n
	m.fast = n > 1
	if m.cmd != nil {
		v := n
		m.cmd.Send(telemetry.ActionSpeed, &v)
	}
}

func (m *Model) apply(u dashboard.Update) {
	m.state = u.State
	switch in := u.Input.(type) {
	case dashboard.StatusLoaded:
		m.syncSpeed()
	case dashboard.StatusChanged:
		if in.Event.Speed != nil {
			m.syncSpeed()
		}
	}
	m.table.SetRows(telemetryRows(m.state))
	m.layout()
	m.refreshLog()
}

func (m *Model) syncSpeed() {
	if m.state.Run.Speed > 0 {
		m.speed = m.state.Run.Speed
		m.fast = m.speed > 1
	}
}

func telemetryRows(s dashboard.State) []table.Row {
	d := s.Telemetry
	return []table.Row{
		{"Pilgrim", d.PilgrimID},
		{"Temperature", d.Temp},
		{"Ground", d.Ground},
		{"Nusuk", d.Nusuk},
		{"SOS", d.SOS},
		{"Alert", d.Alert},
	}
}

// layout gives the action log whatever height the other sections leave, so
// the whole view fits the terminal as the bracelet grid grows.
func (m *Model) layout() {
	m.log.Width = m.width
	h := m.height - lipgloss.Height(m.renderTop()) - lipgloss.Height(m.renderBottom()) - 2
	if h < 3 {
		h = 3
	}
	m.log.Height = h
}

func (m *Model) refreshLog() {
	entries := m.state.Log.Entries()
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		line := levelStyle(e.Level).Render(fmt.Sprintf("%s %s", e.Icon, e.Description)) +
			dimStyle.Render(" - "+e.At.Format(time.TimeOnly))
		if m.wrap && m.log.Width > 0 {
			line = wordwrap.String(line, m.log.Width)
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		lines = append(lines, dimStyle.Render("waiting for events…"))
	}
	// Newest entries are on top; follow them unless the user scrolled away.
	follow := m.log.AtTop()
	m.log.SetContent(strings.Join(lines, "\n"))
	if follow {
		m.log.GotoTop()
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.state.Modal.Visible {
		return m.renderModal()
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderTop(),
		sectionStyle.Render(fmt.Sprintf("Action log (%d/%d)", m.state.Log.Len(), m.state.Log.Cap())),
		m.log.View(),
		m.renderBottom(),
	)
}

func (m Model) renderTop() string {
	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), m.renderCards(), m.renderPanels())
}

func (m Model) renderBottom() string {
	return lipgloss.JoinVertical(lipgloss.Left, m.renderBracelets(), m.renderTimelines(), m.help.View(m.keys))
}

func (m Model) renderHeader() string {
	conn := okStyle.Render("● connected")
	if !m.state.Connected {
		conn = m.spinner.View() + warnStyle.Render(" disconnected")
	}
	s := m.state
	if m.speed > 0 {
		s.Run.Speed = m.speed
	}
	parts := []string{titleStyle.Render("Pilgrim Watch"), conn, s.RunLine(), dimStyle.Render(m.now.Format(time.TimeOnly))}
	if m.source != "" {
		parts = append(parts, dimStyle.Render(m.source))
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderCards() string {
	c := m.state.Counters
	cards := []struct {
		label string
		level telemetry.AlertLevel
		n     int
	}{
		{"Route violations", telemetry.AlertRed, c.Red},
		{"SOS calls", telemetry.AlertOrange, c.Orange},
		{"Heat stress", telemetry.AlertYellow, c.Yellow},
		{"Lost persons", telemetry.AlertBlue, c.Blue},
		{"Bracelets", telemetry.AlertGreen, m.state.Markers.Len()},
	}
	out := make([]string, 0, len(cards))
	for _, card := range cards {
		color := lipgloss.Color(card.level.Color())
		style := cardStyle.BorderForeground(color)
		label := card.label
		if m.fast {
			style = style.BorderStyle(lipgloss.ThickBorder())
			label += " »"
		}
		count := lipgloss.NewStyle().Bold(true).Foreground(color).Render(fmt.Sprintf("%d", card.n))
		if f := m.state.Flash; f.Active && f.Level == card.level {
			count = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(color).Render(fmt.Sprintf(" %d ", card.n))
		}
		out = append(out, style.Render(label+"\n"+count))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, out...)
}

func (m Model) renderPanels() string {
	s := m.state
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Counters") + "\n")
	fmt.Fprintf(&b, "Ground  %s\nNusuk   %s\nTime    %s\nTemp    %s\n\n", s.Panel.Ground, s.Panel.Nusuk, s.Panel.Time, s.Panel.Temp)
	b.WriteString(sectionStyle.Render("Temperature") + "\n")
	if s.HaveStatistics {
		fmt.Fprintf(&b, "min %.1f°C  avg %.1f°C  max %.1f°C", s.Temperature.Min, s.Temperature.Avg, s.Temperature.Max)
	} else {
		fmt.Fprintf(&b, "min %s  avg %s  max %s", dashboard.Placeholder, dashboard.Placeholder, dashboard.Placeholder)
	}
	telemetryPanel := panelStyle.BorderForeground(lipgloss.Color(s.Telemetry.Level.Color())).Render(m.table.View())
	return lipgloss.JoinHorizontal(lipgloss.Top, telemetryPanel, panelStyle.Render(b.String()))
}

func (m Model) renderBracelets() string {
	markers := m.state.Markers.Markers()
	perRow := (m.width - 2) / 2
	if perRow < 1 {
		perRow = 1
	}
	var b strings.Builder
	b.WriteString(sectionStyle.Render(fmt.Sprintf("Bracelets (%d/%d)", len(markers), m.state.Markers.Cap())))
	for i, mk := range markers {
		if i%perRow == 0 {
			b.WriteString("\n")
		}
		dot := levelStyle(mk.Level).Render("●")
		if p := m.state.Pulse; p.Active && p.PilgrimID == mk.PilgrimID {
			dot = levelStyle(mk.Level).Bold(true).Render("◉")
		}
		b.WriteString(dot + " ")
	}
	return b.String()
}

func (m Model) renderTimelines() string {
	s := m.state
	width := m.width/2 - 14
	if width < 10 {
		width = 10
	}
	lines := []string{
		sectionStyle.Render("Timelines"),
		"temp max " + levelStyle(telemetry.AlertRed).Render(sparkline(s.TempTimeline.MaxTemps, width)),
		"temp avg " + levelStyle(telemetry.AlertYellow).Render(sparkline(s.TempTimeline.AvgTemps, width)),
		"red      " + levelStyle(telemetry.AlertRed).Render(sparkline(intsToFloats(s.AlertsTimeline.Red), width)),
		"orange   " + levelStyle(telemetry.AlertOrange).Render(sparkline(intsToFloats(s.AlertsTimeline.Orange), width)),
		"yellow   " + levelStyle(telemetry.AlertYellow).Render(sparkline(intsToFloats(s.AlertsTimeline.Yellow), width)),
	}
	most := 0
	for _, n := range s.Locations {
		most = max(most, n)
	}
	locs := []string{sectionStyle.Render("Locations")}
	for _, name := range telemetry.Locations {
		n := s.Locations[name]
		locs = append(locs, fmt.Sprintf("%-11s %4d %s", name, n, okStyle.Render(bar(n, most, width))))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(m.width/2).Render(strings.Join(lines, "\n")),
		strings.Join(locs, "\n"),
	)
}

func (m Model) renderModal() string {
	body := fmt.Sprintf("%s\n\nA lost person was reported\n\n%s\n\n%s",
		levelStyle(telemetry.AlertBlue).Bold(true).Render("🔵 LOST PERSON"),
		lipgloss.NewStyle().Bold(true).Render(m.state.Modal.LostID),
		dimStyle.Render("esc to close"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modalStyle.Render(body))
}
