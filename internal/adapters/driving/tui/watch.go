// Package tui provides the live ingestion status view, following the
// Elm architecture via Bubbletea.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aquillm/aquillm/internal/core/domain"
)

// maxVisibleEvents bounds the rolling event list on screen.
const maxVisibleEvents = 20

// eventMsg wraps a status event for the update loop.
type eventMsg domain.StatusEvent

// streamClosedMsg signals that the event channel was closed.
type streamClosedMsg struct{}

// Styles holds the lipgloss styles for the status view.
type Styles struct {
	Title   lipgloss.Style
	Info    lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Muted   lipgloss.Style
}

// DefaultStyles returns the default status view styles.
func DefaultStyles() *Styles {
	return &Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")),
		Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("#CDD6F4")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086")),
	}
}

// WatchModel displays a live stream of ingestion status events.
// It implements tea.Model for use with Bubbletea.
type WatchModel struct {
	events  <-chan domain.StatusEvent
	cancel  func()
	styles  *Styles
	spinner spinner.Model

	lines  []string
	closed bool
}

// NewWatchModel creates a status watcher over an event channel. The
// cancel function is invoked when the view quits.
func NewWatchModel(events <-chan domain.StatusEvent, cancel func()) *WatchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4"))

	return &WatchModel{
		events:  events,
		cancel:  cancel,
		styles:  DefaultStyles(),
		spinner: sp,
	}
}

// Init starts the spinner and the event listener.
func (m *WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForEvent())
}

// waitForEvent blocks on the next event from the channel.
func (m *WatchModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg(ev)
	}
}

// Update handles messages.
func (m *WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}

	case eventMsg:
		m.lines = append(m.lines, m.renderEvent(domain.StatusEvent(msg)))
		if len(m.lines) > maxVisibleEvents {
			m.lines = m.lines[len(m.lines)-maxVisibleEvents:]
		}
		return m, m.waitForEvent()

	case streamClosedMsg:
		m.closed = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the event list with a header.
func (m *WatchModel) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("Ingestion status"))
	b.WriteString("\n\n")

	if len(m.lines) == 0 {
		b.WriteString(m.spinner.View())
		b.WriteString(m.styles.Muted.Render(" waiting for events..."))
		b.WriteString("\n")
	} else {
		for _, line := range m.lines {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	if m.closed {
		b.WriteString(m.styles.Muted.Render("stream closed"))
	} else {
		b.WriteString(m.spinner.View())
		b.WriteString(m.styles.Muted.Render(" watching  (q to quit)"))
	}
	b.WriteString("\n")

	return b.String()
}

// renderEvent formats one event line.
func (m *WatchModel) renderEvent(ev domain.StatusEvent) string {
	style := m.styles.Info
	switch ev.Severity {
	case domain.SeveritySuccess:
		style = m.styles.Success
	case domain.SeverityError:
		style = m.styles.Error
	}

	ts := ev.Timestamp.Local().Format(time.TimeOnly)
	return fmt.Sprintf("%s %s %s",
		m.styles.Muted.Render(ts),
		m.styles.Muted.Render(shortID(ev.SourceID)),
		style.Render(ev.Message),
	)
}

// shortID truncates a uuid for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
