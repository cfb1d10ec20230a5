// Package tui implements the operator's SSH console: a DQM/alert health
// header over a chat transcript for the advisor service's Q&A surface, so
// an operator can see whether the pipeline is degraded and ask "what's
// going on with BTC" without curling the §6 read API by hand. Grounded on
// aristath-sentinel's bubbletea layout (model/update/view split, viewport
// content pane, key bindings, periodic tea.Tick refresh) but adapted from
// that project's read-only portfolio dashboard into an interactive
// input/response console, since the advisor is conversational rather than
// a pure polling display.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// AdvisorQuerier is the subset of internal/advisor.AdvisorService the
// console needs, narrowed so the model can be tested without a live LLM.
type AdvisorQuerier interface {
	Ask(ctx context.Context, chatID int64, text string) (string, error)
}

// Services bundles everything one SSH session's model needs. Advisor is
// nil when no LLM_API_KEY is configured (spec's optional-dependency
// pattern): the console still renders, but refuses to answer. Status is
// nil in tests that don't care about the health header.
type Services struct {
	Advisor  AdvisorQuerier
	Status   StatusProvider
	Alerts   AlertCounters
	UserID   int64
	Username string
}

var keys = struct {
	Quit  key.Binding
	Send  key.Binding
	Clear key.Binding
}{
	Quit:  key.NewBinding(key.WithKeys("ctrl+c", "ctrl+d"), key.WithHelp("ctrl+c", "quit")),
	Send:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "ask")),
	Clear: key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "clear")),
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#6B50FF"))
	userStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00CED1"))
	advisorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#DFDBDD"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#E94090"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#858392"))
	borderStyle  = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#4D4C57"))
)

// Model is the SSH session's bubbletea program state: one transcript
// viewport plus one single-line input, matching aristath-sentinel's
// header+viewport+footer layout.
type Model struct {
	svc Services

	input    textinput.Model
	viewport viewport.Model
	ready    bool
	width    int
	height   int
	waiting  bool

	transcript []string
	statusLine string
}

// askResultMsg carries the advisor's reply (or failure) back into Update.
type askResultMsg struct {
	reply string
	err   error
}

// NewAppModel builds the console's root model for one SSH session.
func NewAppModel(svc Services) Model {
	ti := textinput.New()
	ti.Placeholder = "ask about an asset, e.g. \"what's going on with BTC\""
	ti.Focus()
	ti.CharLimit = 500
	ti.Prompt = "> "

	greeting := fmt.Sprintf("connected as %s", svc.Username)
	if svc.Advisor == nil {
		greeting += " (advisor offline: no LLM_API_KEY configured)"
	}

	return Model{
		svc:        svc,
		input:      ti,
		transcript: []string{helpStyle.Render(greeting)},
		statusLine: "dqm: awaiting first refresh",
	}
}

func (m Model) Init() tea.Cmd {
	if m.svc.Status == nil {
		return textinput.Blink
	}
	return tea.Batch(textinput.Blink, m.refreshStatus(), scheduleStatusTick())
}

// SetSize applies the SSH session's pty window dimensions, called once
// before the bubbletea program starts (wish.bubbletea.Middleware hands
// us the pty size outside the Update loop).
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if !m.ready {
		m.viewport = viewport.New(width, height-5)
		m.ready = true
	} else {
		m.viewport.Width = width
		m.viewport.Height = height - 5
	}
	m.input.Width = width - 4
	m.viewport.SetContent(m.renderTranscript())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Clear):
			m.transcript = nil
			m.viewport.SetContent("")
			return m, nil
		case key.Matches(msg, keys.Send):
			return m.submit()
		}

	case askResultMsg:
		m.waiting = false
		if msg.err != nil {
			m.transcript = append(m.transcript, errStyle.Render("error: "+msg.err.Error()))
		} else {
			m.transcript = append(m.transcript, advisorStyle.Render("advisor: "+msg.reply))
		}
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil

	case statusTickMsg:
		return m, tea.Batch(m.refreshStatus(), scheduleStatusTick())

	case statusResultMsg:
		if msg.err != nil {
			m.statusLine = helpStyle.Render("dqm: status refresh failed: " + msg.err.Error())
		} else {
			m.statusLine = renderStatus(msg.quality, msg.alerts)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends the input line to the advisor as a tea.Cmd so the UI
// keeps rendering while the LLM call is in flight.
func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.waiting {
		return m, nil
	}
	m.input.SetValue("")
	m.transcript = append(m.transcript, userStyle.Render("you: "+text))
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
	m.waiting = true

	if m.svc.Advisor == nil {
		m.waiting = false
		m.transcript = append(m.transcript, errStyle.Render("advisor offline: no LLM_API_KEY configured"))
		m.viewport.SetContent(m.renderTranscript())
		return m, nil
	}

	advisor := m.svc.Advisor
	chatID := m.svc.UserID
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		reply, err := advisor.Ask(ctx, chatID, text)
		return askResultMsg{reply: reply, err: err}
	}
}

func (m Model) renderTranscript() string {
	return strings.Join(m.transcript, "\n\n")
}

func (m Model) View() string {
	if !m.ready {
		return "initializing..."
	}

	header := headerStyle.Render("social context console") + "  " + helpStyle.Render(m.svc.Username)
	status := ""
	if m.waiting {
		status = helpStyle.Render(" (thinking...)")
	}
	footer := borderStyle.Width(m.width - 2).Render(m.input.View()) + status
	help := helpStyle.Render("enter: ask  ctrl+l: clear  ctrl+c: quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		helpStyle.Render(m.statusLine),
		borderStyle.Width(m.width-2).Height(m.height-5).Render(m.viewport.View()),
		footer,
		help,
	)
}
