// ABOUTME: Bubbletea model for the listener TUI
// ABOUTME: Live status, volume, forced stop and the archive list with filter and sort
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Resonate-Protocol/onair-go/pkg/archive"
	"github.com/Resonate-Protocol/onair-go/pkg/onair"
	"github.com/Resonate-Protocol/onair-go/pkg/relay"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	volumeStep  = 5
	archiveRows = 10
)

// Controller is the listener surface the TUI drives
type Controller interface {
	Status() onair.Status
	Stats() relay.Stats
	ForceStop()
	SetVolume(volume int) error
	SetMuted(muted bool) error
}

// Archive is the archive browser surface the TUI drives
type Archive interface {
	SetQuery(query string)
	SetSort(sort archive.SortKey)
	Refresh()
}

// StatusMsg carries a listener status update
type StatusMsg onair.Status

// ArchiveMsg carries an archive view update
type ArchiveMsg archive.View

type tickMsg time.Time

type errMsg struct{ err error }

type inputMode int

const (
	modeNormal inputMode = iota
	modeFilter
	modeConfirmStop
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	liveStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	listStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	cursorStyle = lipgloss.NewStyle().Reverse(true)
	faintStyle  = lipgloss.NewStyle().Faint(true)
)

// Model represents the TUI state
type Model struct {
	ctrl         Controller
	archive      Archive
	recordingURL func(filename string) string

	status onair.Status
	stats  relay.Stats

	// Playback
	volume          int
	muted           bool
	volumeSupported bool

	// Archive
	view   archive.View
	cursor int
	offset int

	mode   inputMode
	filter string
	err    error

	width    int
	height   int
	quitting bool
}

// Init starts the stats ticker
func (m Model) Init() tea.Cmd {
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case StatusMsg:
		m.status = onair.Status(msg)

	case ArchiveMsg:
		m.view = archive.View(msg)
		m.clampCursor()

	case tickMsg:
		m.status = m.ctrl.Status()
		m.stats = m.ctrl.Stats()
		return m, tickEvery()

	case errMsg:
		m.err = msg.err
	}

	return m, nil
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	switch m.mode {
	case modeFilter:
		return m.handleFilterKey(msg)
	case modeConfirmStop:
		m.mode = modeNormal
		if msg.String() == "y" {
			return m, m.forceStop()
		}
		return m, nil
	}

	m.err = nil

	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "up", "+":
		return m.setVolume(m.volume + volumeStep)

	case "down", "-":
		return m.setVolume(m.volume - volumeStep)

	case "m":
		if !m.volumeSupported {
			return m, nil
		}
		m.muted = !m.muted
		muted := m.muted
		return m, m.run(func() error { return m.ctrl.SetMuted(muted) })

	case "x":
		if m.status.Live {
			m.mode = modeConfirmStop
		}

	case "/":
		if m.archive != nil {
			m.mode = modeFilter
			m.filter = m.view.Query
		}

	case "s":
		if m.archive != nil {
			next := m.view.Sort.Next()
			m.view.Sort = next
			return m, m.archiveCmd(func(a Archive) { a.SetSort(next) })
		}

	case "r":
		if m.archive != nil {
			return m, m.archiveCmd(Archive.Refresh)
		}

	case "j":
		m.cursor++
		m.clampCursor()

	case "k":
		m.cursor--
		m.clampCursor()
	}

	return m, nil
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.mode = modeNormal
		query := strings.TrimSpace(m.filter)
		m.view.Query = query
		return m, m.archiveCmd(func(a Archive) { a.SetQuery(query) })

	case tea.KeyEsc:
		m.mode = modeNormal

	case tea.KeyBackspace:
		if r := []rune(m.filter); len(r) > 0 {
			m.filter = string(r[:len(r)-1])
		}

	case tea.KeySpace:
		m.filter += " "

	case tea.KeyRunes:
		m.filter += string(msg.Runes)
	}

	return m, nil
}

func (m Model) setVolume(volume int) (tea.Model, tea.Cmd) {
	if !m.volumeSupported {
		return m, nil
	}
	m.volume = max(0, min(100, volume))
	v := m.volume
	return m, m.run(func() error { return m.ctrl.SetVolume(v) })
}

func (m Model) forceStop() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctrl.ForceStop()
		return nil
	}
}

// run performs a controller call off the update loop
func (m Model) run(fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

// archiveCmd performs a blocking archive call off the update loop; results
// arrive later as ArchiveMsg
func (m Model) archiveCmd(fn func(Archive)) tea.Cmd {
	a := m.archive
	return func() tea.Msg {
		fn(a)
		return nil
	}
}

func (m *Model) clampCursor() {
	n := len(m.view.Records)
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+archiveRows {
		m.offset = m.cursor - archiveRows + 1
	}
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Disconnecting...\n"
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("On Air"))
	b.WriteString("\n\n")

	m.renderStatus(&b)
	b.WriteString("\n")
	m.renderArchive(&b)
	b.WriteString("\n")
	b.WriteString(m.renderFooter())

	return b.String()
}

func (m Model) renderStatus(b *strings.Builder) {
	conn := "Disconnected"
	if m.status.Connected {
		conn = "Connected to " + m.status.Server
	}
	field(b, "Server: ", conn)

	if m.status.Live {
		b.WriteString(headerStyle.Render("Live:   "))
		b.WriteString(liveStyle.Render("● ON AIR "))
		b.WriteString(valueStyle.Render(m.status.Title))
		b.WriteString("\n")
	} else {
		field(b, "Live:   ", "No broadcast")
	}

	field(b, "Sink:   ", m.status.SinkState.String())

	if m.volumeSupported {
		vol := fmt.Sprintf("[%s] %d%%", renderBar(m.volume, 100, 10), m.volume)
		if m.muted {
			vol += " (muted)"
		}
		field(b, "Volume: ", vol)
	}

	field(b, "Stats:  ", fmt.Sprintf("RX: %d  Written: %d  Queued: %d  Dropped: %d",
		m.stats.Received, m.stats.Written, m.stats.Queued, m.stats.Dropped))

	if m.status.Message != "" {
		b.WriteString(warnStyle.Render(m.status.Message))
		b.WriteString("\n")
	}
}

func (m Model) renderArchive(b *strings.Builder) {
	if m.archive == nil {
		return
	}

	header := fmt.Sprintf("Archive (%d, %s)", len(m.view.Records), m.view.Sort.Label())
	if m.view.Query != "" {
		header += fmt.Sprintf(" filter: %q", m.view.Query)
	}
	b.WriteString(listStyle.Render(header))
	b.WriteString("\n")

	switch {
	case m.view.Err != nil:
		b.WriteString(warnStyle.Render("  Archive unavailable: " + m.view.Err.Error()))
		b.WriteString("\n")
	case m.view.Loading && len(m.view.Records) == 0:
		b.WriteString(faintStyle.Render("  Loading..."))
		b.WriteString("\n")
	case len(m.view.Records) == 0:
		b.WriteString(faintStyle.Render("  No recordings"))
		b.WriteString("\n")
	}

	end := min(len(m.view.Records), m.offset+archiveRows)
	for i := m.offset; i < end; i++ {
		r := m.view.Records[i]
		line := fmt.Sprintf("  %s %s  %-32s %5s", r.Date, r.StartTime, truncate(r.Title, 32), archive.FormatDuration(r.Duration))
		if i == m.cursor {
			line = cursorStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if m.recordingURL != nil && m.cursor < len(m.view.Records) {
		b.WriteString(faintStyle.Render("  " + m.recordingURL(m.view.Records[m.cursor].Filename)))
		b.WriteString("\n")
	}
}

func (m Model) renderFooter() string {
	switch m.mode {
	case modeFilter:
		return headerStyle.Render("Filter: ") + m.filter + "█\n" +
			faintStyle.Render("enter:apply  esc:cancel")
	case modeConfirmStop:
		return warnStyle.Render(fmt.Sprintf("End broadcast %q for everyone? (y/N)", m.status.Title))
	}

	var b strings.Builder
	if m.err != nil {
		b.WriteString(warnStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}

	help := "↑/↓:Volume  m:Mute  x:Force stop  q:Quit"
	if m.archive != nil {
		help = "↑/↓:Volume  m:Mute  x:Force stop  /:Filter  s:Sort  r:Refresh  j/k:Move  q:Quit"
	}
	b.WriteString(faintStyle.Render(help))
	return b.String()
}

func field(b *strings.Builder, name, value string) {
	b.WriteString(headerStyle.Render(name))
	b.WriteString(valueStyle.Render(value))
	b.WriteString("\n")
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := (value * width) / max
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	r := []rune(s)
	if len(r) <= length {
		return s
	}
	return string(r[:length-3]) + "..."
}
