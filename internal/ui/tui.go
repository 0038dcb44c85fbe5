// Package ui provides the terminal chat interface.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/nibzard/astrotask/internal/session"
	"github.com/nibzard/astrotask/internal/task"
)

const (
	minPaneWidth  = 30
	inputHeight   = 3
	headerHeight  = 2
	defaultWidth  = 100
	defaultHeight = 30
)

const greeting = "Welcome, stargazer! ✨ Tell me what you need to do, or type /help."

// RunTUI starts the chat UI on the terminal and blocks until the user quits
// or ctx is cancelled.
func RunTUI(ctx context.Context, sess *session.Session) error {
	if !IsTTY(os.Stdout) {
		return fmt.Errorf("tui requires a TTY")
	}
	style := "light"
	if lipgloss.HasDarkBackground() {
		style = "dark"
	}
	model := NewModel(ctx, sess, WithGlamourStyle(style))
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// ModelOption configures a Model.
type ModelOption func(*Model)

// WithGlamourStyle selects the markdown style for assistant replies
// ("dark", "light", "notty", ...).
func WithGlamourStyle(style string) ModelOption {
	return func(m *Model) {
		m.glamourStyle = style
	}
}

type speaker int

const (
	speakerUser speaker = iota
	speakerAssistant
	speakerSystem
	speakerError
)

type entry struct {
	who      speaker
	text     string
	markdown bool
}

// Model is the bubbletea model of the chat UI.
type Model struct {
	ctx  context.Context
	sess *session.Session

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	glamourStyle string
	entries      []entry
	pending      bool
	width        int
	height       int
}

// replyMsg carries the result of Session.Ask back to Update.
type replyMsg struct {
	raw string
	err error
}

// NewModel creates a chat model around sess.
func NewModel(ctx context.Context, sess *session.Session, opts ...ModelOption) *Model {
	ti := textinput.New()
	ti.Placeholder = "Ask the cosmos..."
	ti.CharLimit = 500
	ti.Prompt = "✦ "
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Moon

	m := &Model{
		ctx:          ctx,
		sess:         sess,
		input:        ti,
		spinner:      sp,
		viewport:     viewport.New(defaultWidth, defaultHeight),
		glamourStyle: "dark",
		entries:      []entry{{who: speakerAssistant, text: greeting}},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.resize(defaultWidth, defaultHeight)
	return m
}

func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m, m.submit()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		if m.pending {
			return m, nil
		}

	case replyMsg:
		m.pending = false
		m.input.Focus()
		m.handleReply(msg)
		return m, textinput.Blink

	case spinner.TickMsg:
		if !m.pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit handles the input line. Slash commands run immediately; anything
// else is sent to the assistant unless a reply is already pending.
func (m *Model) submit() tea.Cmd {
	if m.pending {
		return nil
	}
	line := strings.TrimSpace(m.input.Value())
	if line == "" {
		return nil
	}
	m.input.Reset()

	switch strings.ToLower(line) {
	case "/quit", "/exit":
		return tea.Quit
	}
	if reply, ok := RunSlash(m.sess, line); ok {
		m.push(entry{who: speakerUser, text: line})
		m.push(entry{who: speakerSystem, text: reply})
		return nil
	}

	m.push(entry{who: speakerUser, text: line})
	m.pending = true
	m.input.Blur()
	sess, ctx := m.sess, m.ctx
	ask := func() tea.Msg {
		raw, err := sess.Ask(ctx, line)
		return replyMsg{raw: raw, err: err}
	}
	return tea.Batch(ask, m.spinner.Tick)
}

func (m *Model) handleReply(msg replyMsg) {
	if msg.err != nil {
		switch {
		case errors.Is(msg.err, session.ErrEmpty):
			return
		case errors.Is(msg.err, session.ErrBusy):
			m.push(entry{who: speakerError, text: "Still waiting for the stars to answer the last message."})
			return
		}
		r := m.sess.Fail(msg.err)
		m.push(entry{who: speakerError, text: r.Text})
		return
	}
	r := m.sess.Apply(msg.raw)
	if r.Text == "" {
		return
	}
	m.push(entry{who: speakerAssistant, text: r.Text, markdown: r.Kind == session.KindChat})
}

func (m *Model) push(e entry) {
	m.entries = append(m.entries, e)
	m.refresh()
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	chatWidth := m.chatWidth()
	m.viewport.Width = chatWidth
	m.viewport.Height = max(3, height-inputHeight-headerHeight)
	m.input.Width = max(10, chatWidth-4)

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.glamourStyle),
		glamour.WithWordWrap(max(20, chatWidth-4)),
	)
	if err == nil {
		m.renderer = r
	}
	m.refresh()
}

func (m *Model) chatWidth() int {
	pane := m.paneWidth()
	return max(20, m.width-pane-1)
}

func (m *Model) paneWidth() int {
	return max(minPaneWidth, m.width*2/5)
}

// refresh re-renders the scrollback and keeps it pinned to the bottom.
func (m *Model) refresh() {
	var b strings.Builder
	for i, e := range m.entries {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderEntry(e))
		b.WriteString("\n")
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m *Model) renderEntry(e entry) string {
	switch e.who {
	case speakerUser:
		return userStyle.Render("You") + "\n" + e.text
	case speakerSystem:
		return mutedStyle.Render(e.text)
	case speakerError:
		return errorStyle.Render(e.text)
	}
	text := e.text
	if e.markdown && m.renderer != nil {
		if out, err := m.renderer.Render(text); err == nil {
			text = strings.Trim(out, "\n")
		}
	}
	return assistantStyle.Render("Astro") + "\n" + text
}

func (m *Model) View() string {
	var left strings.Builder
	left.WriteString(titleStyle.Render("astrotask") + "  " + mutedStyle.Render("session "+m.sess.ID) + "\n\n")
	left.WriteString(m.viewport.View())
	left.WriteString("\n")
	if m.pending {
		left.WriteString(m.spinner.View() + " " + mutedStyle.Render("Consulting the stars..."))
	} else {
		left.WriteString(m.input.View())
	}
	left.WriteString("\n" + mutedStyle.Render("enter send · pgup/pgdn scroll · /help commands · esc quit"))

	var roots []task.Task
	m.sess.View(func(store *task.Store) { roots = store.Roots() })
	pane := paneStyle.
		Width(m.paneWidth() - 4).
		Height(max(3, m.height-2)).
		Render(RenderTaskList(roots, m.sess.Location(), true))

	return lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(m.chatWidth()).Render(left.String()),
		" ",
		pane,
	)
}

// IsTTY returns true if w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
