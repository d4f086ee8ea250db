package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	appevents "github.com/rescp17/secureBackup/internal/app_events"
	"github.com/rescp17/secureBackup/internal/util"
)

// Model renders the progress of one backup session. It is display-only: the
// session needs no decisions from the user, so the only input it accepts is
// an interrupt.
type Model struct {
	spinner  spinner.Model
	messages <-chan appevents.AppUIMessage

	lines     []string
	done      bool
	failed    bool
	cancelled bool
	summary   string
}

// sessionMsg wraps one controller message for the bubbletea loop.
type sessionMsg struct {
	inner appevents.AppUIMessage
}

// sessionClosedMsg reports that the controller is finished and the channel is
// drained.
type sessionClosedMsg struct{}

func NewModel(messages <-chan appevents.AppUIMessage) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = titleStyle
	return Model{
		spinner:  s,
		messages: messages,
	}
}

// Cancelled reports whether the user interrupted the session.
func (m Model) Cancelled() bool {
	return m.cancelled
}

func (m Model) waitForMessage() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.messages
		if !ok {
			return sessionClosedMsg{}
		}
		return sessionMsg{inner: msg}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForMessage())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancelled = true
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case sessionMsg:
		m.apply(msg.inner)
		if m.done {
			return m, tea.Quit
		}
		return m, m.waitForMessage()

	case sessionClosedMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

// apply folds one controller message into the displayed state.
func (m *Model) apply(msg appevents.AppUIMessage) {
	switch msg := msg.(type) {
	case appevents.StatusUpdateMsg:
		m.lines = append(m.lines, stepStyle.Render(msg.Message))

	case appevents.DiscoveredMsg:
		m.lines = append(m.lines, stepStyle.Render(fmt.Sprintf("Discovered %s at %s", msg.Name, msg.Addr)))

	case appevents.ConnectedMsg:
		m.lines = append(m.lines, stepStyle.Render("Connected to "+msg.Addr))

	case appevents.RegisteredMsg:
		m.lines = append(m.lines, stepStyle.Render("Registered, client id "+msg.ClientID))

	case appevents.ReconnectedMsg:
		m.lines = append(m.lines, stepStyle.Render("Reconnected, client id "+msg.ClientID))

	case appevents.KeyExchangedMsg:
		m.lines = append(m.lines, stepStyle.Render("Session key established"))

	case appevents.UploadAttemptMsg:
		m.lines = append(m.lines, stepStyle.Render(fmt.Sprintf("Uploading %s (%s, %s), attempt %d/%d",
			msg.FileName, util.FormatSize(msg.Plaintext), msg.MimeType, msg.Attempt, msg.MaxAttempts)))

	case appevents.ChecksumMsg:
		if msg.Match {
			m.lines = append(m.lines, successStyle.Render(fmt.Sprintf("Checksum verified (%08x)", msg.Local)))
		} else {
			m.lines = append(m.lines, warnStyle.Render(fmt.Sprintf("Checksum mismatch: local %08x, server %08x", msg.Local, msg.Remote)))
		}

	case appevents.SessionCompleteMsg:
		m.done = true
		m.summary = successStyle.Render("Backup complete") + "\n" +
			dimStyle.Render("  "+util.PadRight("File", 10)+msg.FileName) + "\n" +
			dimStyle.Render("  "+util.PadRight("Size", 10)+util.FormatSize(msg.Bytes)) + "\n" +
			dimStyle.Render("  "+util.PadRight("Attempts", 10)+fmt.Sprintf("%d", msg.Attempts))

	case appevents.SessionFailedMsg:
		m.done = true
		m.failed = true
		m.summary = errorStyle.Render("Backup failed: " + msg.Err.Error())

	case appevents.Error:
		m.done = true
		m.failed = true
		m.summary = errorStyle.Render("Backup failed: " + msg.Err.Error())
	}
}

func (m Model) View() string {
	view := titleStyle.Render("Secure Backup") + "\n\n"
	for _, line := range m.lines {
		view += "  " + line + "\n"
	}

	switch {
	case m.done && m.summary != "":
		view += "\n" + m.summary + "\n"
	case !m.done:
		view += "\n  " + m.spinner.View() + dimStyle.Render("working...") + "\n"
	}
	return view
}
