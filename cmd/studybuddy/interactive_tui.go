package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/studybuddy/studybuddy/internal/conversation"
	"github.com/studybuddy/studybuddy/internal/markdown"
	"github.com/studybuddy/studybuddy/internal/study"
)

// Chrome colours; message bodies use the markdown theme.
var (
	accentColor = lipgloss.AdaptiveColor{Light: "#4F46E5", Dark: "#818CF8"}
	mutedColor  = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
)

// keyHelp is the default status line.
const keyHelp = "Enter: send | Alt+Enter: newline | F1-F3: mode | Alt+1-4: template | Ctrl+N: new session | Ctrl+Q: quit"

// streamSnapshotMsg carries a controller snapshot into the TUI event loop.
type streamSnapshotMsg struct {
	// Snapshot is the state after a change.
	Snapshot conversation.Snapshot
}

// streamDoneMsg signals that Submit returned.
type streamDoneMsg struct {
	// Message is the final reply.
	Message conversation.Message
	// Err is set when the turn never started.
	Err error
}

// tuiModel drives the full-screen study chat.
type tuiModel struct {
	// controller owns mode, draft and conversation.
	controller *conversation.Controller
	// providerName and model label the header.
	providerName string
	model        string
	// snapshot is the last rendered controller state.
	snapshot conversation.Snapshot
	// chatView renders the conversation.
	chatView viewport.Model
	// input collects the draft.
	input textarea.Model
	// spinner animates the typing indicator.
	spinner spinner.Model
	// renderer formats model replies.
	renderer *markdown.TerminalRenderer
	// statusText overrides the key help when set.
	statusText string
	// chatAutoScroll keeps the chat viewport pinned to the bottom.
	chatAutoScroll bool
	// width tracks the terminal width.
	width int
	// height tracks the terminal height.
	height int
	// streamCh delivers stream messages into the update loop.
	streamCh chan tea.Msg
	// quitting indicates a user-requested exit.
	quitting bool
}

// runInteractiveTUI starts the full-screen terminal UI.
func runInteractiveTUI(rt *runtime) error {
	modelState := newTUIModel(rt.controller, rt.provider.Name(), rt.model)
	program := tea.NewProgram(modelState, tea.WithAltScreen())
	_, err := program.Run()
	return err
}

// newTUIModel constructs the initial TUI model state.
func newTUIModel(controller *conversation.Controller, providerName string, model string) *tuiModel {
	input := textarea.New()
	input.Focus()
	input.CharLimit = 0
	input.Prompt = "> "
	input.ShowLineNumbers = false
	input.SetHeight(3)
	input.SetWidth(20)

	indicator := spinner.New()
	indicator.Spinner = spinner.Dot

	modelState := &tuiModel{
		controller:     controller,
		providerName:   providerName,
		model:          model,
		chatView:       viewport.New(20, 10),
		input:          input,
		spinner:        indicator,
		renderer:       markdown.NewTerminalRenderer(0),
		chatAutoScroll: true,
	}
	if draft := controller.Draft(); draft != "" {
		modelState.input.SetValue(draft)
	}
	modelState.sync()
	return modelState
}

// Init starts the cursor blink and the spinner.
func (m *tuiModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

// Update handles UI events and streaming updates.
func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.applyWindowSize(typed)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(typed)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(typed)
		if m.awaitingFirstFragment() {
			m.refreshChat()
		}
		return m, cmd
	case streamSnapshotMsg:
		m.snapshot = typed.Snapshot
		m.refreshChat()
		return m, m.listenStream()
	case streamDoneMsg:
		m.streamCh = nil
		if typed.Err != nil {
			m.statusText = formatInteractiveError(typed.Err)
		}
		m.sync()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.controller.SetDraft(m.input.Value())
	return m, cmd
}

// View renders the full UI layout.
func (m *tuiModel) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Initializing..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.chatView.View(),
		m.renderInput(),
		m.renderStatus(),
		m.renderFooter(),
	)
}

// handleKey routes keyboard input and command submission.
func (m *tuiModel) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "ctrl+c", "ctrl+q":
		m.quitting = true
		return m, tea.Quit
	case "f1", "f2", "f3":
		m.selectMode(study.Modes()[key.Type-tea.KeyF1])
		return m, nil
	case "alt+1", "alt+2", "alt+3", "alt+4":
		m.applyTemplate(int(key.Runes[0] - '1'))
		return m, nil
	case "ctrl+n":
		m.newSession()
		return m, nil
	case "pgup":
		m.chatAutoScroll = false
		m.chatView.LineUp(m.chatView.Height / 2)
		return m, nil
	case "pgdown":
		m.chatView.LineDown(m.chatView.Height / 2)
		m.chatAutoScroll = m.chatView.AtBottom()
		return m, nil
	case "ctrl+j":
		m.input.InsertString("\n")
		m.controller.SetDraft(m.input.Value())
		return m, nil
	}

	if key.Type == tea.KeyEnter {
		if key.Alt {
			m.input.InsertString("\n")
			m.controller.SetDraft(m.input.Value())
			return m, nil
		}
		return m.submitInput()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(key)
	m.controller.SetDraft(m.input.Value())
	return m, cmd
}

// selectMode switches modes and updates the placeholder.
func (m *tuiModel) selectMode(mode study.Mode) {
	if err := m.controller.SetMode(mode); err != nil {
		m.statusText = formatInteractiveError(err)
		return
	}
	m.statusText = ""
	m.sync()
}

// applyTemplate replaces the draft with a template of the current mode.
func (m *tuiModel) applyTemplate(index int) {
	template, err := m.controller.ApplyTemplate(index)
	if err != nil {
		m.statusText = formatInteractiveError(err)
		return
	}
	m.input.SetValue(template)
	m.input.CursorEnd()
	m.statusText = ""
}

// newSession clears the chat unless a reply is streaming.
func (m *tuiModel) newSession() {
	if err := m.controller.NewSession(); err != nil {
		m.statusText = formatInteractiveError(err)
		return
	}
	m.statusText = "Started a new session."
	m.sync()
}

// submitInput sends the draft as a new turn.
func (m *tuiModel) submitInput() (tea.Model, tea.Cmd) {
	m.controller.SetDraft(m.input.Value())
	if !m.controller.CanSubmit() {
		if m.controller.State() == conversation.Generating {
			m.statusText = formatInteractiveError(conversation.ErrBusy)
		}
		return m, nil
	}
	text := m.input.Value()
	m.input.Reset()
	m.statusText = ""
	m.chatAutoScroll = true

	m.streamCh = make(chan tea.Msg, 128)
	go runTurn(context.Background(), m.controller, text, m.streamCh)
	return m, m.listenStream()
}

// runTurn submits text and forwards every change to streamCh.
func runTurn(ctx context.Context, controller *conversation.Controller, text string, streamCh chan<- tea.Msg) {
	defer close(streamCh)
	final, err := controller.Submit(ctx, text, func(snapshot conversation.Snapshot) {
		streamCh <- streamSnapshotMsg{Snapshot: snapshot}
	})
	streamCh <- streamDoneMsg{Message: final, Err: err}
}

// listenStream waits for the next streaming message.
func (m *tuiModel) listenStream() tea.Cmd {
	streamCh := m.streamCh
	if streamCh == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-streamCh
		if !ok {
			return nil
		}
		return msg
	}
}

// sync reloads the snapshot and everything derived from the mode.
func (m *tuiModel) sync() {
	m.snapshot = m.controller.Snapshot()
	m.input.Placeholder = m.snapshot.Mode.Placeholder()
	m.refreshChat()
}

// awaitingFirstFragment reports whether the typing indicator is visible.
func (m *tuiModel) awaitingFirstFragment() bool {
	reply, ok := inFlightReply(m.snapshot)
	return ok && reply.Text == ""
}

// refreshChat rebuilds the chat viewport content.
func (m *tuiModel) refreshChat() {
	if len(m.snapshot.Messages) == 0 {
		m.chatView.SetContent(m.renderEmptyState())
		m.chatView.GotoTop()
		return
	}
	var builder strings.Builder
	for _, message := range m.snapshot.Messages {
		builder.WriteString(m.renderMessage(message))
		builder.WriteString("\n\n")
	}
	m.chatView.SetContent(builder.String())
	if m.chatAutoScroll {
		m.chatView.GotoBottom()
	}
}

// renderEmptyState shows the mode headline and welcome text.
func (m *tuiModel) renderEmptyState() string {
	width := maxInt(m.chatView.Width, 20)
	headline := m.renderer.Theme.Headings[0].Width(width).Align(lipgloss.Center).Render(m.snapshot.Mode.Headline())
	welcome := lipgloss.NewStyle().Width(width).Align(lipgloss.Center).Render(m.snapshot.Mode.Welcome())
	return "\n" + headline + "\n\n" + welcome
}

// renderMessage formats one chat bubble.
func (m *tuiModel) renderMessage(message conversation.Message) string {
	switch {
	case message.Role == conversation.RoleUser:
		label := lipgloss.NewStyle().Foreground(accentColor).Bold(true).Render("You:")
		return label + "\n" + lipgloss.NewStyle().Width(maxInt(m.chatView.Width, 20)).Render(message.Text)
	case message.IsError:
		label := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true).Render("Study Buddy:")
		return label + "\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render(message.Text)
	}
	label := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true).Render("Study Buddy:")
	if message.Text == "" && message.ID == m.snapshot.InFlightID {
		return label + "\n" + m.spinner.View() + " Thinking..."
	}
	return label + "\n" + m.renderer.RenderString(message.Text)
}

// applyWindowSize recalculates the layout for a new window size.
func (m *tuiModel) applyWindowSize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height

	headerHeight := 1
	statusHeight := 1
	footerHeight := 1
	inputHeight := m.input.Height() + 2
	bodyHeight := m.height - headerHeight - statusHeight - footerHeight - inputHeight
	if bodyHeight < 4 {
		bodyHeight = 4
	}

	m.chatView.Width = maxInt(m.width, 20)
	m.chatView.Height = bodyHeight
	m.renderer.Width = maxInt(m.width-2, 18)
	m.input.SetWidth(maxInt(m.width-4, 16))
	m.refreshChat()
}

// renderHeader shows the mode tabs and the backend.
func (m *tuiModel) renderHeader() string {
	tabs := make([]string, 0, len(study.Modes()))
	for i, mode := range study.Modes() {
		label := fmt.Sprintf(" F%d %s ", i+1, mode.Label())
		style := lipgloss.NewStyle().Foreground(mutedColor)
		if mode == m.snapshot.Mode {
			style = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(accentColor).Bold(true)
		}
		tabs = append(tabs, style.Render(label))
	}
	info := fmt.Sprintf(" %s | %s", m.providerName, m.model)
	if m.snapshot.State == conversation.Generating {
		info += " | generating"
	}
	header := lipgloss.JoinHorizontal(lipgloss.Top, tabs...) + lipgloss.NewStyle().Foreground(mutedColor).Render(info)
	return padRight(header, m.width)
}

// renderInput returns the input box rendering.
func (m *tuiModel) renderInput() string {
	style := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(accentColor).Padding(0, 1)
	return style.Render(m.input.View())
}

// renderStatus returns the bottom status line.
func (m *tuiModel) renderStatus() string {
	text := m.statusText
	if text == "" {
		text = keyHelp
	}
	return lipgloss.NewStyle().Foreground(mutedColor).Render(padRight(text, m.width))
}

// renderFooter returns the attribution line.
func (m *tuiModel) renderFooter() string {
	return lipgloss.NewStyle().Foreground(mutedColor).Width(maxInt(m.width, 1)).Align(lipgloss.Center).Render(study.FooterText)
}

// padRight pads a string with spaces to the target width.
func padRight(value string, width int) string {
	visible := lipgloss.Width(value)
	if visible >= width {
		return value
	}
	return value + strings.Repeat(" ", width-visible)
}

// maxInt returns the maximum of two integers.
func maxInt(left int, right int) int {
	if left > right {
		return left
	}
	return right
}
