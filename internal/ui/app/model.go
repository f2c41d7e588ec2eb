package app

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	trackerdto "witar/internal/modules/tracker/dto"
	"witar/internal/ui/theme"
)

// trackerPort is the minimal surface this view needs; the display consumes
// ElapsedMs and never does time arithmetic of its own.
type trackerPort interface {
	ClockIn(ctx context.Context) (trackerdto.SessionOutput, error)
	ClockOut(ctx context.Context) (trackerdto.ClockOutOutput, error)
	Pause(ctx context.Context) (trackerdto.SessionOutput, error)
	Resume(ctx context.Context) (trackerdto.SessionOutput, error)
	Status(ctx context.Context) (trackerdto.SessionOutput, error)
	Sync(ctx context.Context) (trackerdto.SyncOutput, error)
}

type tickMsg time.Time

type sessionMsg struct {
	session trackerdto.SessionOutput
	verb    string
	err     error
}

type clockedOutMsg struct {
	out trackerdto.ClockOutOutput
	err error
}

type syncedMsg struct {
	out trackerdto.SyncOutput
	err error
}

type Model struct {
	tracker trackerPort
	session trackerdto.SessionOutput

	notice      string
	noticeWarn  bool
	noticeUntil time.Time

	width  int
	height int
}

func NewModel(tracker trackerPort) Model {
	return Model{tracker: tracker}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) refresh() tea.Cmd {
	return func() tea.Msg {
		session, err := m.tracker.Status(context.Background())
		return sessionMsg{session: session, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.refresh(), tick())

	case sessionMsg:
		if msg.err != nil {
			m.setNotice(msg.err.Error(), true)
			return m, nil
		}
		m.session = msg.session
		if msg.verb != "" {
			m.setNotice(msg.verb, false)
		}
		return m, nil

	case clockedOutMsg:
		if msg.err != nil {
			m.setNotice(msg.err.Error(), true)
			return m, nil
		}
		m.setNotice(fmt.Sprintf("clocked out, %s worked", formatElapsed(msg.out.DurationMs)), false)
		return m, m.refresh()

	case syncedMsg:
		if msg.err != nil {
			m.setNotice(msg.err.Error(), true)
			return m, nil
		}
		switch {
		case msg.out.Restored:
			m.setNotice("synced, restored remote entry", false)
		case msg.out.Corrected:
			m.setNotice("synced, corrected start time", false)
		default:
			m.setNotice("synced", false)
		}
		return m, m.refresh()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "i":
		return m, m.transition("clocked in", func(ctx context.Context) (trackerdto.SessionOutput, error) {
			return m.tracker.ClockIn(ctx)
		})
	case "o":
		tracker := m.tracker
		return m, func() tea.Msg {
			out, err := tracker.ClockOut(context.Background())
			return clockedOutMsg{out: out, err: err}
		}
	case "p":
		return m, m.transition("paused", func(ctx context.Context) (trackerdto.SessionOutput, error) {
			return m.tracker.Pause(ctx)
		})
	case "r":
		return m, m.transition("resumed", func(ctx context.Context) (trackerdto.SessionOutput, error) {
			return m.tracker.Resume(ctx)
		})
	case "s":
		tracker := m.tracker
		return m, func() tea.Msg {
			out, err := tracker.Sync(context.Background())
			return syncedMsg{out: out, err: err}
		}
	}
	return m, nil
}

func (m Model) transition(verb string, op func(ctx context.Context) (trackerdto.SessionOutput, error)) tea.Cmd {
	return func() tea.Msg {
		session, err := op(context.Background())
		return sessionMsg{session: session, verb: verb, err: err}
	}
}

func (m *Model) setNotice(text string, warn bool) {
	m.notice = text
	m.noticeWarn = warn
	m.noticeUntil = time.Now().Add(4 * time.Second)
}

func (m Model) View() string {
	timer := formatElapsed(m.session.ElapsedMs)
	var timerStyle lipgloss.Style
	var state string
	switch {
	case m.session.Active && m.session.Paused:
		timerStyle, state = theme.TimerPaused, "on break"
	case m.session.Active:
		timerStyle, state = theme.TimerActive, "clocked in"
	default:
		timerStyle, state = theme.TimerOut, "clocked out"
	}

	lines := []string{
		theme.Title.Render("witar"),
		"",
		timerStyle.Render(timer),
		theme.Muted.Render(state),
		"",
		m.badges(),
	}
	if m.notice != "" && time.Now().Before(m.noticeUntil) {
		style := theme.Notice
		if m.noticeWarn {
			style = theme.Warn
		}
		lines = append(lines, "", style.Render(m.notice))
	}
	lines = append(lines, "", theme.Muted.Render("i clock in · o clock out · p pause · r resume · s sync · q quit"))

	pane := theme.Pane.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
	if m.width == 0 {
		return pane
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, pane)
}

func (m Model) badges() string {
	online := theme.BadgeOnline.Render("online")
	if !m.session.Online {
		online = theme.BadgeOffline.Render("offline")
	}
	sync := "never synced"
	if m.session.LastSyncAt != nil {
		sync = "synced " + m.session.LastSyncAt.Local().Format("15:04:05")
	}
	loc := "no location"
	if m.session.Location != nil {
		loc = fmt.Sprintf("%.3f, %.3f", m.session.Location.Lat, m.session.Location.Lng)
	}
	return theme.Muted.Render(loc+" · ") + online + theme.Muted.Render(" · "+sync)
}

func formatElapsed(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
