package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"vision-rag/internal/chathistory"
	"vision-rag/internal/models"
)

// Asker is the TUI-facing subset of the RAG pipeline.
type Asker interface {
	Query(ctx context.Context, query string, topK int) (*models.PromptResponse, error)
}

type answerMsg struct {
	resp *models.PromptResponse
	err  error
}

// Model is the Bubble Tea model for an interactive chat session.
type Model struct {
	ctx       context.Context
	service   Asker
	store     *chathistory.Store
	sessionID string
	history   []chathistory.Message
	topK      int
	input     textinput.Model
	viewport  viewport.Model
	status    string
	busy      bool
	ready     bool
}

// New creates a chat model that continues the given session history.
func New(ctx context.Context, service Asker, store *chathistory.Store, sessionID string, history []chathistory.Message, topK int) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the reports and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		ctx:       ctx,
		service:   service,
		store:     store,
		sessionID: sessionID,
		history:   history,
		topK:      topK,
		input:     ti,
		viewport:  vp,
		status:    fmt.Sprintf("Session %s. Ctrl+C to quit.", sessionID),
	}
}

// History returns the transcript collected so far.
func (m Model) History() []chathistory.Message { return m.history }

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		tw, th := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header, status, spacer
		m.viewport.Width = max(20, msg.Width-tw)
		m.viewport.Height = max(3, msg.Height-reserved-th)
		m.refresh()
		return m, nil
	case answerMsg:
		m.busy = false
		m.history = append(m.history, assistantMessage(msg.resp, msg.err))
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("Answered in %s", msg.resp.Elapsed.Round(time.Millisecond))
		}
		if err := m.store.Save(m.sessionID, m.history); err != nil {
			log.Error().Err(err).Str("session", m.sessionID).Msg("Failed to save chat history")
			m.status = "Error saving session: " + err.Error()
		}
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.String() == "enter" {
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy {
				return m, nil
			}
			m.input.SetValue("")
			m.busy = true
			m.status = "Thinking..."
			m.history = append(m.history, chathistory.Message{Role: chathistory.RoleUser, Content: q, Time: time.Now()})
			m.refresh()
			return m, m.ask(q)
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(q string) tea.Cmd {
	ctx, service, topK := m.ctx, m.service, m.topK
	return func() tea.Msg {
		resp, err := service.Query(ctx, q, topK)
		return answerMsg{resp: resp, err: err}
	}
}

func assistantMessage(resp *models.PromptResponse, err error) chathistory.Message {
	msg := chathistory.Message{Role: chathistory.RoleAssistant, Content: models.FailureSentinel, Time: time.Now()}
	if resp != nil {
		msg.Content = resp.Content
		msg.Images = resp.Sources
	}
	if err != nil && msg.Content == "" {
		msg.Content = models.FailureSentinel
	}
	return msg
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Report Chat")
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

func (m *Model) refresh() {
	m.viewport.SetContent(renderTranscript(m.history))
	m.viewport.GotoBottom()
}

func renderTranscript(history []chathistory.Message) string {
	if len(history) == 0 {
		return "No messages yet."
	}
	var b strings.Builder
	for i, msg := range history {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch msg.Role {
		case chathistory.RoleUser:
			b.WriteString(userStyle.Render("You: "))
		default:
			b.WriteString(assistantStyle.Render("Assistant: "))
		}
		b.WriteString(msg.Content)
		for _, img := range msg.Images {
			b.WriteString("\n")
			b.WriteString(sourceStyle.Render("  source: " + filepath.Base(img)))
		}
	}
	return b.String()
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	sourceStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)
