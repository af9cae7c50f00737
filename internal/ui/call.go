package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/thesujaljaiswal/Voice-Chat-Application/internal/call"
	"github.com/thesujaljaiswal/Voice-Chat-Application/internal/protocol"
)

// Messages delivered into the call screen from outside.
type (
	// PresenceMsg updates the per-role occupancy line.
	PresenceMsg protocol.Presence
	// InfoMsg replaces the info line (ready text, statuses, errors).
	InfoMsg string
	// ChatMsg appends one chat line.
	ChatMsg protocol.ChatDeliver
	// DisconnectedMsg reports signaling transport loss.
	DisconnectedMsg struct{}
	// TickMsg refreshes the duration display.
	TickMsg time.Time
)

// Controller is the surface the call screen drives. Suspending
// operations must return promptly (run their work elsewhere).
type Controller interface {
	StartCall()
	EndCall()
	ToggleMute() bool
	SendChat(text string)
	StateLabel() string
	DurationSeconds() int
}

const chatWindow = 12

// CallModel is the interactive call screen: status bar, presence,
// info line, a scrolling chat tail, and a chat input.
type CallModel struct {
	room string
	role protocol.Role
	ctrl Controller

	events <-chan tea.Msg

	input   textinput.Model
	spin    spinner.Model
	chat    []protocol.ChatDeliver
	present protocol.Presence
	info    string
	muted   bool
	gone    bool
	width   int
}

// NewCallModel builds the screen. events feeds server-driven updates.
func NewCallModel(room string, role protocol.Role, ctrl Controller, events <-chan tea.Msg) *CallModel {
	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.CharLimit = 500
	input.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return &CallModel{
		room:   room,
		role:   role,
		ctrl:   ctrl,
		events: events,
		input:  input,
		spin:   s,
		info:   "Waiting for the other participant...",
		width:  80,
	}
}

func (m *CallModel) Init() tea.Cmd {
	return tea.Batch(
		m.spin.Tick,
		m.listen(),
		tickCmd(),
		textinput.Blink,
	)
}

func (m *CallModel) listen() tea.Cmd {
	return func() tea.Msg {
		return <-m.events
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m *CallModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.ctrl.EndCall()
			return m, tea.Quit
		case "ctrl+s":
			m.ctrl.StartCall()
		case "ctrl+t":
			m.muted = m.ctrl.ToggleMute()
		case "ctrl+e":
			m.ctrl.EndCall()
		case "enter":
			if text := strings.TrimSpace(m.input.Value()); text != "" {
				m.ctrl.SendChat(text)
				m.input.Reset()
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case PresenceMsg:
		m.present = protocol.Presence(msg)
		cmds = append(cmds, m.listen())

	case InfoMsg:
		m.info = string(msg)
		cmds = append(cmds, m.listen())

	case ChatMsg:
		m.chat = append(m.chat, protocol.ChatDeliver(msg))
		if len(m.chat) > chatWindow {
			m.chat = m.chat[len(m.chat)-chatWindow:]
		}
		cmds = append(cmds, m.listen())

	case DisconnectedMsg:
		m.gone = true
		m.info = "Disconnected from server"
		return m, tea.Quit

	case TickMsg:
		cmds = append(cmds, tickCmd())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *CallModel) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(fmt.Sprintf("%s Voice Call — room %s", IconCall, m.room)))
	b.WriteString("\n")

	state := m.ctrl.StateLabel()
	status := fmt.Sprintf("Status: %s", state)
	if state == "connecting" {
		status = fmt.Sprintf("Status: %s %s", m.spin.View(), state)
	}
	mic := IconLive
	if m.muted {
		mic = IconMuted
	}
	b.WriteString(fmt.Sprintf("%s  %s  %s %s  %s\n",
		StatusStyle.Render(status),
		MutedStyle.Render(fmt.Sprintf("Connected with: %s", m.role.Counterpart())),
		IconTime,
		BoldStyle.Render(call.FormatDuration(m.ctrl.DurationSeconds())),
		mic,
	))

	b.WriteString(fmt.Sprintf("%s Customer: %s  Agent: %s\n",
		IconPeer,
		onlineMark(m.present.CustomerOnline),
		onlineMark(m.present.AgentOnline),
	))

	b.WriteString(InfoBoxStyle.Render(m.info))
	b.WriteString("\n\n")

	b.WriteString(BoldStyle.Render(fmt.Sprintf("%s Live Chat", IconChat)))
	b.WriteString("\n")
	if len(m.chat) == 0 {
		b.WriteString(MutedStyle.Render("No messages yet."))
		b.WriteString("\n")
	}
	for _, line := range m.chat {
		b.WriteString(fmt.Sprintf("%s %s %s\n",
			ChatRoleStyle.Render(line.Role),
			MutedStyle.Render(clockFromISO(line.Timestamp)),
			line.Text,
		))
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(FooterStyle.Render("ctrl+s start call · ctrl+t mute · ctrl+e end call · esc quit"))
	b.WriteString("\n")

	return b.String()
}

func onlineMark(online bool) string {
	if online {
		return IconSuccess
	}
	return IconError
}

func clockFromISO(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("15:04:05")
}
