// Package tui renders a conversation in the terminal and forwards user intents into it. It holds
// no conversation state of its own: everything shown is read from the conversation.
package tui

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/cchalm/chat-console/internal/ai"
)

const (
	headerHeight = 1
	inputHeight  = 3
	footerHeight = 1
)

// exportDoneMsg reports the result of a transcript export
type exportDoneMsg struct {
	path string
	err  error
}

// Model is the bubbletea model of the chat console
type Model struct {
	ctx       context.Context
	conv      *ai.Conversation
	notifier  *Notifier
	state     ai.ConversationState
	exportDir string
	mdStyle   string

	input      textinput.Model
	transcript viewport.Model
	spinner    spinner.Model
	theme      theme

	renderer *glamour.TermRenderer
	rendered map[string]string // Rendered assistant replies, keyed by message ID

	width      int
	height     int
	statusLine string
}

type Option func(*Model)

// WithExportDir sets the directory transcripts are exported to
func WithExportDir(dir string) Option {
	return func(m *Model) {
		m.exportDir = dir
	}
}

// WithMarkdownStyle sets the glamour style replies are rendered with
func WithMarkdownStyle(style string) Option {
	return func(m *Model) {
		m.mdStyle = style
	}
}

// New creates a model for conv. notifier must be registered as an observer of conv.
func New(ctx context.Context, conv *ai.Conversation, notifier *Notifier, opts ...Option) Model {
	input := textinput.New()
	input.Prompt = "❯ "
	input.CharLimit = 4000
	input.Placeholder = "Type your question..."
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#05ffa1"))

	m := Model{
		ctx:        ctx,
		conv:       conv,
		notifier:   notifier,
		state:      conv.State(),
		exportDir:  ".",
		mdStyle:    "dark",
		input:      input,
		transcript: viewport.New(0, 0),
		spinner:    sp,
		theme:      newTheme(),
		rendered:   map[string]string{},
		statusLine: "ready",
	}
	m.transcript.MouseWheelEnabled = true
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		m.notifier.wait(),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.renderTranscript()
	case conversationChangedMsg:
		m.state = m.conv.State()
		if !m.state.IsBusy {
			m.input.Focus()
			if strings.HasPrefix(m.statusLine, "waiting") {
				m.statusLine = "ready"
			}
		}
		m.renderTranscript()
		cmds = append(cmds, m.notifier.wait())
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.state.IsBusy {
			m.renderTranscript()
		}
		cmds = append(cmds, cmd)
	case exportDoneMsg:
		if msg.err != nil {
			log.Printf("Failed to export transcript: %v", msg.err)
			m.statusLine = "export failed: " + msg.err.Error()
		} else {
			m.statusLine = "transcript saved to " + msg.path
		}
	case tea.MouseMsg:
		var cmd tea.Cmd
		m.transcript, cmd = m.transcript.Update(msg)
		cmds = append(cmds, cmd)
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			m.submit()
			return m, tea.Batch(cmds...)
		case "tab":
			m.toggleMode()
			return m, tea.Batch(cmds...)
		case "ctrl+s":
			cmds = append(cmds, m.exportCmd())
			return m, tea.Batch(cmds...)
		case "pgup", "pgdown", "ctrl+u", "ctrl+d":
			var cmd tea.Cmd
			m.transcript, cmd = m.transcript.Update(msg)
			return m, tea.Batch(append(cmds, cmd)...)
		}
		if m.state.IsBusy {
			// The input is disabled while a reply is outstanding
			return m, tea.Batch(cmds...)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.conv.SetPendingInput(m.input.Value())
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) submit() {
	if m.state.IsBusy {
		return
	}
	if !m.conv.Submit(m.ctx, m.input.Value()) {
		return
	}
	m.input.Reset()
	m.input.Blur()
	m.state = m.conv.State()
	m.statusLine = "waiting for " + m.state.BackendMode
	m.renderTranscript()
}

func (m *Model) toggleMode() {
	if m.state.IsBusy {
		return
	}
	next := m.conv.NextMode()
	if m.conv.ToggleBackendMode(next) {
		m.state = m.conv.State()
		m.statusLine = "backend: " + m.state.BackendMode
	}
}

func (m Model) exportCmd() tea.Cmd {
	state := m.conv.State()
	dir := m.exportDir
	return func() tea.Msg {
		now := time.Now()
		md, err := ai.Transcript(state, now)
		if err != nil {
			return exportDoneMsg{err: err}
		}
		id := state.ConversationID
		if len(id) > 8 {
			id = id[:8]
		}
		path := filepath.Join(dir, fmt.Sprintf("transcript-%s-%s.md", id, now.Format("20060102-150405")))
		if err := os.WriteFile(path, []byte(md), 0644); err != nil {
			return exportDoneMsg{err: fmt.Errorf("failed to write transcript: %w", err)}
		}
		return exportDoneMsg{path: path}
	}
}

func (m *Model) resize() {
	m.input.Width = max(m.width-8, 10)
	m.transcript.Width = m.width
	m.transcript.Height = max(m.height-headerHeight-inputHeight-footerHeight, 1)

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.mdStyle),
		glamour.WithWordWrap(max(m.width-4, 20)),
	)
	if err != nil {
		log.Printf("Failed to create markdown renderer, replies will be shown as plain text: %v", err)
	}
	m.renderer = renderer
	// Rendered replies depend on the wrap width
	m.rendered = map[string]string{}
}

func (m *Model) renderTranscript() {
	atBottom := m.transcript.AtBottom() || m.transcript.TotalLineCount() == 0
	var b strings.Builder
	for i, msg := range m.state.History {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}
	m.transcript.SetContent(b.String())
	if atBottom || m.state.IsBusy {
		m.transcript.GotoBottom()
	}
}

func (m *Model) renderMessage(msg ai.Message) string {
	if msg.Origin == ai.OriginUser {
		return m.theme.userLabel.Render("You") + "\n" + m.theme.userText.Render(msg.Text)
	}

	label := m.theme.botLabel.Render("Assistant")
	if msg.IsPlaceholder {
		return label + "\n" + m.theme.placeholder.Render(m.spinner.View()+" "+msg.Text)
	}
	return label + "\n" + m.renderMarkdown(msg)
}

func (m *Model) renderMarkdown(msg ai.Message) string {
	if m.renderer == nil {
		return "  " + msg.Text
	}
	if out, ok := m.rendered[msg.ID]; ok {
		return out
	}
	out, err := m.renderer.Render(msg.Text)
	if err != nil {
		log.Printf("Failed to render reply as markdown: %v", err)
		out = "  " + msg.Text
	}
	out = strings.Trim(out, "\n")
	m.rendered[msg.ID] = out
	return out
}

func (m Model) View() string {
	mode := m.theme.mode.Render(m.state.BackendMode)
	if m.state.IsBusy {
		mode = m.theme.modeBusy.Render(m.state.BackendMode)
	}
	header := m.theme.title.Render("Chat Console") + "  " + mode

	var inputLine string
	if m.state.IsBusy {
		inputLine = m.spinner.View() + " waiting for reply..."
	} else {
		inputLine = m.input.View()
	}
	box := m.theme.inputBox.Width(max(m.width-2, 10)).Render(inputLine)

	help := "enter send · tab switch backend · ctrl+s save transcript · esc quit"
	if m.state.IsBusy {
		help = "pgup/pgdown scroll · esc quit"
	}
	footer := m.theme.status.Render(m.statusLine) + "  " + m.theme.help.Render(help)

	return lipgloss.JoinVertical(lipgloss.Left, header, m.transcript.View(), box, footer)
}
