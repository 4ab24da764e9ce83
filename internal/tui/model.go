package tui

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"justify/internal/conversation"
	"justify/internal/domain"
	"justify/internal/glossary"
	"justify/internal/service"
	"justify/internal/textutil"
)

// DefaultTranscriptPath is where Ctrl+S writes the chat history.
const DefaultTranscriptPath = "legal_chat_history.txt"

// AskPort is the TUI-facing subset of the document session.
type AskPort interface {
	Ask(ctx context.Context, question string, memory []domain.Turn) (string, []domain.SearchResult, error)
}

type exchange struct {
	question string
	answer   string
	sources  []conversation.Source
}

type answerMsg struct {
	question string
	answer   string
	results  []domain.SearchResult
	err      error
}

// Model is the Bubble Tea model for the chat application.
type Model struct {
	ctx            context.Context
	session        AskPort
	snapshot       *service.Snapshot
	input          textinput.Model
	viewport       viewport.Model
	memory         []domain.Turn
	history        []exchange
	suggestion     int
	showGlossary   bool
	pending        bool
	ready          bool
	status         string
	transcriptPath string
}

// New creates a chat model over a built session snapshot.
func New(ctx context.Context, session AskPort, snapshot *service.Snapshot) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about your documents and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	if snapshot == nil {
		snapshot = &service.Snapshot{}
	}
	return Model{
		ctx:            ctx,
		session:        session,
		snapshot:       snapshot,
		input:          ti,
		viewport:       vp,
		suggestion:     -1,
		status:         "Tab: suggestion  Ctrl+G: glossary  Ctrl+S: save chat  Ctrl+C: quit",
		transcriptPath: DefaultTranscriptPath,
	}
}

// WithTranscriptPath overrides where Ctrl+S saves the transcript.
func (m Model) WithTranscriptPath(path string) Model {
	m.transcriptPath = path
	return m
}

// Memory returns the turns asked so far.
func (m Model) Memory() []domain.Turn { return m.memory }

func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, bh := bodyBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header and summary, status, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-bh)
		m.refresh()
		return m, nil
	case answerMsg:
		m.pending = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.refresh()
			return m, nil
		}
		m.memory = append(m.memory, domain.Turn{Question: msg.question, Answer: msg.answer})
		m.history = append(m.history, exchange{
			question: msg.question,
			answer:   msg.answer,
			sources:  conversation.Sources(msg.results),
		})
		m.status = fmt.Sprintf("Answered %d question(s)", len(m.memory))
		m.showGlossary = false
		m.refresh()
		m.viewport.GotoBottom()
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
			m.pending = true
			m.input.SetValue("")
			m.suggestion = -1
			m.status = "Thinking..."
			return m, m.ask(q)
		case "tab":
			if n := len(m.snapshot.Suggestions); n > 0 {
				m.suggestion = (m.suggestion + 1) % n
				m.input.SetValue(m.snapshot.Suggestions[m.suggestion])
				m.input.CursorEnd()
			}
			return m, nil
		case "ctrl+g":
			m.showGlossary = !m.showGlossary
			m.refresh()
			return m, nil
		case "ctrl+s":
			m.status = m.saveTranscript()
			return m, nil
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(question string) tea.Cmd {
	memory := append([]domain.Turn(nil), m.memory...)
	return func() tea.Msg {
		answer, results, err := m.session.Ask(m.ctx, question, memory)
		return answerMsg{question: question, answer: answer, results: results, err: err}
	}
}

func (m Model) saveTranscript() string {
	if len(m.memory) == 0 {
		return "Nothing to save yet."
	}
	f, err := os.Create(m.transcriptPath)
	if err != nil {
		return "Error: " + err.Error()
	}
	defer f.Close()
	if err := conversation.WriteTranscript(f, m.memory); err != nil {
		return "Error: " + err.Error()
	}
	return "Saved chat to " + m.transcriptPath
}

func (m *Model) refresh() {
	if m.showGlossary {
		m.viewport.SetContent(renderGlossary(m.snapshot.Glossary))
		return
	}
	m.viewport.SetContent(m.renderConversation())
}

// View renders the layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	title := "Justify: Legal Document Assistant"
	if m.showGlossary {
		title += " / Glossary"
	}
	header := lipgloss.NewStyle().Bold(true).Render(title)
	summary := summaryStyle.Render(textutil.Truncate(textutil.CollapseSpace(m.snapshot.Summary), max(20, m.viewport.Width-4)))
	body := bodyBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + summary + "\n" + body + "\n" + input + "\n" + status
}

func (m Model) renderConversation() string {
	if len(m.history) == 0 {
		var b strings.Builder
		b.WriteString("No questions yet.")
		if len(m.snapshot.Suggestions) > 0 {
			b.WriteString(" Try one of these (Tab to use):\n\n")
			for _, s := range m.snapshot.Suggestions {
				b.WriteString("  • " + s + "\n")
			}
		}
		return b.String()
	}
	var b strings.Builder
	for i, ex := range m.history {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(userStyle.Render("You: ") + ex.question + "\n")
		b.WriteString(assistantStyle.Render("Assistant: ") + ex.answer + "\n")
		for _, s := range ex.sources {
			b.WriteString(sourceStyle.Render(fmt.Sprintf("  [%s, page %s] ", s.Source, s.Page)))
			b.WriteString(highlightBestSentence(s.Snippet, ex.question) + "\n")
		}
	}
	return b.String()
}

func renderGlossary(entries []glossary.Entry) string {
	if len(entries) == 0 {
		return "No glossary terms were found."
	}
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(lipgloss.NewStyle().Bold(true).Render(e.Source) + "\n")
		for _, cat := range glossary.Categories {
			terms := e.Terms[cat]
			if len(terms) == 0 {
				continue
			}
			b.WriteString("  " + sourceStyle.Render(cat+": ") + strings.Join(terms, ", ") + "\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

var (
	bodyBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	summaryStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	sourceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// highlightBestSentence emphasises the snippet sentence sharing the most
// terms with the question.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := textutil.Sentences(text)
	if len(sentences) == 0 {
		return text
	}
	qTokens := textutil.TokenSet(query)
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx, bestScore := 0, -1
	for i, s := range sentences {
		if score := overlap(qTokens, s); score > bestScore {
			bestIdx, bestScore = i, score
		}
	}
	out := make([]string, len(sentences))
	for i, s := range sentences {
		if i == bestIdx && bestScore > 0 {
			out[i] = highlightStyle.Render(s)
		} else {
			out[i] = s
		}
	}
	return strings.Join(out, " ")
}

func overlap(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	for t := range textutil.TokenSet(sentence) {
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
