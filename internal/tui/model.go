package tui

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ytchat/internal/client"
	"ytchat/internal/service"
)

// ChatPort is the TUI-facing subset of the API client.
type ChatPort interface {
	ProcessVideo(ctx context.Context, videoURL string) (client.Response, error)
	AskQuestion(ctx context.Context, videoURL, question string) (client.Response, error)
}

type speaker int

const (
	speakerUser speaker = iota
	speakerBot
	speakerSystem
)

type entry struct {
	who      speaker
	text     string
	question string
}

type processedMsg struct {
	resp client.Response
	err  error
}

type answerMsg struct {
	question string
	resp     client.Response
	err      error
}

// Model is the Bubble Tea model for the chat client.
type Model struct {
	port     ChatPort
	videoURL string
	videoID  string
	timeout  time.Duration

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	entries []entry
	status  string
	busy    bool
	ready   bool
}

// New creates a chat model for one video. The video is processed on Init.
func New(port ChatPort, videoURL, videoID string, timeout time.Duration) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask about the video and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return Model{
		port:     port,
		videoURL: videoURL,
		videoID:  videoID,
		timeout:  timeout,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		status:   "Processing video...",
		busy:     true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.processCmd())
}

func (m Model) processCmd() tea.Cmd {
	port, url, timeout := m.port, m.videoURL, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		resp, err := port.ProcessVideo(ctx, url)
		return processedMsg{resp: resp, err: err}
	}
}

func (m Model) askCmd(question string) tea.Cmd {
	port, url, timeout := m.port, m.videoURL, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		resp, err := port.AskQuestion(ctx, url, question)
		return answerMsg{question: question, resp: resp, err: err}
	}
}

var quickActions = map[string]string{
	"ctrl+s": service.SummaryQuestion,
	"ctrl+k": service.KeyMomentsQuestion,
	"ctrl+t": service.TranscriptQuestion,
}

// Update handles key, window and response events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, bh := chatBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 1 + 1 + 1 + qh + bh // header, status, input line, frames
		m.viewport.Width = max(20, msg.Width-chatBoxStyle.GetHorizontalFrameSize())
		m.viewport.Height = max(3, msg.Height-reserved)
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case processedMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.entries = append(m.entries, entry{who: speakerSystem, text: "Could not process video: " + msg.err.Error()})
		} else {
			m.status = msg.resp.Message
			text := msg.resp.Response
			if msg.resp.Degraded {
				text += " (embeddings degraded, answers may be less relevant)"
			}
			m.entries = append(m.entries, entry{who: speakerSystem, text: text})
		}
		m.refresh()
		return m, nil

	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.entries = append(m.entries, entry{who: speakerSystem, text: "Error: " + msg.err.Error()})
		} else {
			m.status = "Ready"
			m.entries = append(m.entries, entry{who: speakerBot, text: msg.resp.Response, question: msg.question})
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		key := msg.String()
		if q, ok := quickActions[key]; ok {
			return m.ask(q)
		}
		switch key {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				return m, nil
			}
			m.input.SetValue("")
			return m.ask(q)
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

func (m Model) ask(question string) (tea.Model, tea.Cmd) {
	if m.busy {
		m.status = "Still waiting for the previous answer..."
		return m, nil
	}
	m.busy = true
	m.status = "Thinking..."
	m.entries = append(m.entries, entry{who: speakerUser, text: question})
	m.refresh()
	return m, tea.Batch(m.askCmd(question), m.spinner.Tick)
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}

// View renders the header, conversation, input and status line.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("YouTube Chat") +
		lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("  "+m.videoID+"  ctrl+s summary · ctrl+k key moments · ctrl+t transcript")
	status := m.status
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" +
		chatBoxStyle.Render(m.viewport.View()) + "\n" +
		queryBoxStyle.Render(m.input.View()) + "\n" +
		statusStyle.Render(status)
}

func (m Model) renderConversation() string {
	if len(m.entries) == 0 {
		return "No messages yet."
	}
	wrap := lipgloss.NewStyle().Width(max(20, m.viewport.Width-2))
	parts := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		switch e.who {
		case speakerUser:
			parts = append(parts, userStyle.Render("You: ")+wrap.Render(e.text))
		case speakerBot:
			parts = append(parts, botStyle.Render("Bot: ")+wrap.Render(highlightBestSentence(e.text, e.question)))
		default:
			parts = append(parts, systemStyle.Render(wrap.Render(e.text)))
		}
	}
	return strings.Join(parts, "\n\n")
}

var (
	chatBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	systemStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

// highlightBestSentence emphasizes the sentence of an answer that shares the
// most words with the question. Answers without a sentence match are returned as is.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return text
	}
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) < 2 {
		return text
	}
	bestIdx := 0
	bestScore := 0
	for i, s := range sentences {
		if score := tokenOverlapScore(qTokens, s); score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	if bestScore == 0 {
		return text
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
	}
	return strings.Join(sentences, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
