package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dexter-bot/dexter/pkg/ui/components"
)

// Program is the running Bubble Tea program, set by Run.
var Program *tea.Program

// OnStartModules is invoked once the welcome screen is dismissed. The
// application wires module startup here so heavy work happens off the
// UI goroutine.
var OnStartModules func()

// Send delivers a message to the running program. Safe to call from any
// goroutine; a nil program drops the message.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
}

type phase int

const (
	phaseWelcome phase = iota
	phaseStartup
	phaseDashboard
)

type startupStep struct {
	name    string
	status  string
	message string
}

// Model is the root TUI model.
type Model struct {
	phase  phase
	keys   KeyMap
	width  int
	height int
	paused bool

	steps []startupStep

	quotes        *components.QuotesComponent
	opportunities *components.OpportunitiesComponent
	stats         *components.StatsComponent
	status        *components.StatusComponent

	lastBlock uint64
	lastScan  string
	lastError string
	logs      []string
}

// NewModel creates the root model with all startup steps pending.
func NewModel() Model {
	return Model{
		phase: phaseWelcome,
		keys:  DefaultKeyMap(),
		steps: []startupStep{
			{name: "config", status: "pending"},
			{name: "ethereum", status: "pending"},
			{name: "venues", status: "pending"},
		},
		quotes:        components.NewQuotesComponent(),
		opportunities: components.NewOpportunitiesComponent(100),
		stats:         components.NewStatsComponent(),
		status:        components.NewStatusComponent(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case TickMsg:
		return m, tickCmd()

	case StartModulesMsg:
		m.phase = phaseStartup
		if OnStartModules != nil {
			go OnStartModules()
		}
		return m, nil

	case StartupMsg:
		for i := range m.steps {
			if m.steps[i].name == msg.Step {
				m.steps[i].status = msg.Status
				m.steps[i].message = msg.Message
			}
		}
		if m.allStepsDone() {
			m.phase = phaseDashboard
		}
		return m, nil

	case QuotesMsg:
		if !m.paused {
			m.quotes.SetQuotes(msg.Pair, msg.Rows)
		}
		return m, nil

	case ScanMsg:
		m.stats.RecordScan()
		m.lastScan = fmt.Sprintf("%s across %d venues in %s", msg.Pair, msg.Venues, msg.Duration.Round(time.Millisecond))
		return m, nil

	case OpportunityMsg:
		if !m.paused {
			m.opportunities.Add(msg.Row)
		}
		m.stats.RecordOpportunity(msg.Row.NetPct)
		return m, nil

	case ConnectionStatusMsg:
		m.status.Update(components.ConnectionStatus{
			Name:       msg.Name,
			Connected:  msg.Connected,
			Latency:    msg.Latency,
			LastUpdate: time.Now(),
		})
		return m, nil

	case BlockMsg:
		m.lastBlock = msg.Number
		m.stats.RecordBlock()
		return m, nil

	case GasPriceMsg:
		m.stats.SetGasPrice(msg.Gwei)
		return m, nil

	case ErrorMsg:
		m.stats.RecordError()
		m.lastError = fmt.Sprintf("[%s] %v", msg.Component, msg.Err)
		return m, nil

	case ValidationMsg:
		verdict := "REJECTED"
		if msg.Finalized {
			verdict = "FINALIZED"
		}
		line := fmt.Sprintf("%s draft %s %s after %d round(s)",
			time.Now().Format("15:04:05"), msg.Route, verdict, msg.Rounds)
		if len(msg.Reasons) > 0 {
			line += ": " + msg.Reasons[0]
		}
		m.logs = append(m.logs, line)
		if len(m.logs) > 5 {
			m.logs = m.logs[len(m.logs)-5:]
		}
		return m, nil

	case LogMsg:
		line := fmt.Sprintf("%s %-5s %s", msg.Time.Format("15:04:05"), msg.Level, msg.Message)
		m.logs = append(m.logs, line)
		if len(m.logs) > 5 {
			m.logs = m.logs[len(m.logs)-5:]
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.phase == phaseWelcome {
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "enter", " ":
			return m.Update(StartModulesMsg{})
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.opportunities.ScrollUp()
	case key.Matches(msg, m.keys.Down):
		m.opportunities.ScrollDown(m.visibleOpportunityRows())
	case key.Matches(msg, m.keys.Clear):
		m.opportunities.Clear()
	case key.Matches(msg, m.keys.Pause):
		m.paused = !m.paused
	}
	return m, nil
}

func (m Model) allStepsDone() bool {
	for _, s := range m.steps {
		if s.status != "done" {
			return false
		}
	}
	return true
}

func (m Model) visibleOpportunityRows() int {
	rows := m.height - 20
	if rows < 5 {
		rows = 5
	}
	return rows
}

// View implements tea.Model.
func (m Model) View() string {
	switch m.phase {
	case phaseWelcome:
		return m.welcomeView()
	case phaseStartup:
		return m.startupView()
	default:
		return m.dashboardView()
	}
}

func (m Model) welcomeView() string {
	title := TitleStyle.Render(" DEXTER ")
	body := lipgloss.JoinVertical(lipgloss.Center,
		title,
		"",
		"Multi-venue DEX arbitrage scanner",
		"",
		MutedValue.Render("Press Enter to start, q to quit"),
	)
	if m.width == 0 {
		return body
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, body)
}

func (m Model) startupView() string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render("Starting up"))
	b.WriteString("\n\n")
	for _, step := range m.steps {
		marker := "○"
		style := MutedValue
		switch step.status {
		case "running":
			marker = "◐"
			style = StatusReconnecting
		case "done":
			marker = "●"
			style = StatusConnected
		case "failed":
			marker = "✗"
			style = StatusDisconnected
		}
		line := fmt.Sprintf("%s %s", marker, step.name)
		if step.message != "" {
			line += "  " + MutedValue.Render(step.message)
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	return BoxStyle.Render(b.String())
}

func (m Model) dashboardView() string {
	header := TitleStyle.Render(" DEXTER ") + "  " +
		MutedValue.Render(fmt.Sprintf("block %d", m.lastBlock))
	if m.paused {
		header += "  " + StatusReconnecting.Render("PAUSED")
	}

	left := BoxStyle.Render(
		HeaderStyle.Render("Venue Quotes") + "\n" + m.quotes.View(),
	)
	right := BoxStyle.Render(
		HeaderStyle.Render("Session") + "\n" + m.stats.View(),
	)
	top := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	opps := BoxStyle.Render(
		HeaderStyle.Render("Opportunities") + "\n" +
			m.opportunities.View(m.visibleOpportunityRows()),
	)

	var footer strings.Builder
	footer.WriteString(m.status.View())
	if m.lastScan != "" {
		footer.WriteString(MutedValue.Render("last scan: " + m.lastScan))
		footer.WriteString("\n")
	}
	if m.lastError != "" {
		footer.WriteString(NegativeValue.Render(m.lastError))
		footer.WriteString("\n")
	}
	for _, line := range m.logs {
		footer.WriteString(MutedValue.Render(line))
		footer.WriteString("\n")
	}
	footer.WriteString(HelpStyle.Render("↑/↓ scroll · c clear · p pause · q quit"))

	return lipgloss.JoinVertical(lipgloss.Left, header, top, opps, footer.String())
}

// Run starts the TUI and blocks until it exits.
func Run() error {
	Program = tea.NewProgram(NewModel(), tea.WithAltScreen())
	_, err := Program.Run()
	return err
}
