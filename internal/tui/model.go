package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"dormguide/internal/service"
)

// ChatPort is the TUI-facing subset of the DormGuide service.
type ChatPort interface {
	Ask(ctx context.Context, req service.AskRequest) (*service.AskResponse, error)
}

type entry struct {
	question string
	answer   string
	sources  []string
	failed   bool
}

type answerMsg struct {
	resp *service.AskResponse
	err  error
}

// Model is the Bubble Tea model for the chat.
type Model struct {
	port      ChatPort
	input     textinput.Model
	viewport  viewport.Model
	entries   []entry
	sessionID string
	expand    bool
	pending   bool
	status    string
	subtitle  string
	timeout   time.Duration
	ready     bool
}

// New creates a chat model. subtitle is shown under the header.
func New(port ChatPort, subtitle string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about dorms and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		port:     port,
		input:    ti,
		viewport: vp,
		subtitle: subtitle,
		status:   "Ready. ctrl+e toggles detailed answers, ctrl+c quits.",
		timeout:  90 * time.Second,
	}
}

// SessionID returns the conversation id, empty before the first answer.
func (m Model) SessionID() string { return m.sessionID }

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around transcript and input boxes
		_, th := transcriptBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + 1 + ih + 1 // header + subtitle, status, spacer
		vh := msg.Height - reserved
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-th)
		m.refresh()
		return m, nil
	case answerMsg:
		m.pending = false
		last := &m.entries[len(m.entries)-1]
		if msg.err != nil {
			last.answer = "Error: " + msg.err.Error()
			last.failed = true
			m.status = "Request failed."
		} else {
			last.answer = msg.resp.Answer
			last.sources = msg.resp.Sources
			m.sessionID = msg.resp.SessionID
			m.status = "Session " + shortID(m.sessionID)
		}
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.pending {
				return m, nil
			}
			m.input.SetValue("")
			m.entries = append(m.entries, entry{question: q})
			m.pending = true
			m.status = "Thinking..."
			m.refresh()
			return m, m.ask(q)
		case "ctrl+e":
			m.expand = !m.expand
			if m.expand {
				m.status = "Detailed answers on."
			} else {
				m.status = "Short answers on."
			}
			return m, nil
		case "up", "down", "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(q string) tea.Cmd {
	port, sessionID, expand, timeout := m.port, m.sessionID, m.expand, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		resp, err := port.Ask(ctx, service.AskRequest{Question: q, SessionID: sessionID, Expand: expand})
		return answerMsg{resp: resp, err: err}
	}
}

// View renders the header, transcript, input and status.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("DormGuide")
	subtitle := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.subtitle)
	mode := "short"
	if m.expand {
		mode = "detailed"
	}
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(fmt.Sprintf("[%s] %s", mode, m.status))
	return header + "\n" + subtitle + "\n" +
		transcriptBoxStyle.Render(m.viewport.View()) + "\n" +
		inputBoxStyle.Render(m.input.View()) + "\n" + status
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	if len(m.entries) == 0 {
		return "No questions yet."
	}
	var b strings.Builder
	for i, e := range m.entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(userStyle.Render("You: "))
		b.WriteString(e.question)
		b.WriteString("\n")
		switch {
		case e.answer == "":
			b.WriteString(sourceStyle.Render("..."))
		case e.failed:
			b.WriteString(errorStyle.Render(e.answer))
		default:
			b.WriteString(botStyle.Render("DormGuide: "))
			b.WriteString(e.answer)
			if len(e.sources) > 0 {
				b.WriteString("\n")
				b.WriteString(sourceStyle.Render(strings.Join(e.sources, " | ")))
			}
		}
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	sourceStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)
