// Package ui renders task progress in the terminal.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"juvixmode/internal/tasks"
)

type progressModel struct {
	title   string
	events  <-chan tasks.Event
	spinner spinner.Model
	prog    progress.Model
	items   []fileItem
	index   map[string]int
	failed  int
	width   int
	done    bool
	// interrupt is called on ctrl+c; the model keeps draining events
	// until the run reports completion.
	interrupt   func()
	interrupted bool
}

type fileItem struct {
	path     string
	status   string
	progress float64
}

type eventMsg tasks.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders task progress
// for files. A task run without files shows a single row labelled title.
func NewProgressModel(title string, files []string, events <-chan tasks.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	if len(files) == 0 {
		files = []string{""}
	}
	items := make([]fileItem, 0, len(files))
	index := make(map[string]int, len(files))
	for i, file := range files {
		label := file
		if label == "" {
			label = title
		}
		items = append(items, fileItem{path: label, status: string(tasks.StatusQueued)})
		index[file] = i
	}
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		width:   80,
	}
}

// OnInterrupt registers fn to be called when the user presses ctrl+c.
// Without it ctrl+c quits the view immediately.
func OnInterrupt(m tea.Model, fn func()) {
	if pm, ok := m.(*progressModel); ok {
		pm.interrupt = fn
	}
}

// Failed reports how many rows ended in error. m must come from
// NewProgressModel.
func Failed(m tea.Model) int {
	if pm, ok := m.(*progressModel); ok {
		return pm.failed
	}
	return 0
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(tasks.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type != tea.KeyCtrlC {
			return m, nil
		}
		if m.interrupt == nil {
			return m, tea.Quit
		}
		if !m.interrupted {
			m.interrupted = true
			m.title += " (cancelling)"
			m.interrupt()
		}
		return m, nil
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		progressModel, cmd := m.prog.Update(msg)
		m.prog = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.items) == 0 {
		return ""
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.done {
		header = fmt.Sprintf("done: %s", header)
		if m.failed > 0 {
			header = fmt.Sprintf("%s (%d failed)", header, m.failed)
		}
	} else {
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	statusWidth := 12
	nameWidth := m.width - statusWidth - 4
	if nameWidth < 20 {
		nameWidth = 20
	}

	for _, item := range m.items {
		name := truncate(item.path, nameWidth)
		statusStyled := styleStatus(item.status).Render(fmt.Sprintf("%12s", truncate(item.status, statusWidth)))
		fmt.Fprintf(&b, "  %s %s\n", statusStyled, name)
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")

	return b.String()
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev tasks.Event) tea.Cmd {
	idx, ok := m.index[ev.File]
	if !ok {
		return nil
	}
	label := statusLabel(ev)
	if label == "" {
		return nil
	}
	item := &m.items[idx]
	if item.status == string(tasks.StatusError) {
		return nil
	}
	item.status = label
	item.progress = ev.Progress()
	if ev.Status == tasks.StatusError {
		m.failed++
	}

	total := 0.0
	for _, it := range m.items {
		total += it.progress
	}
	return m.prog.SetPercent(total / float64(len(m.items)))
}

func statusLabel(ev tasks.Event) string {
	switch ev.Status {
	case tasks.StatusQueued, tasks.StatusDone, tasks.StatusError:
		return string(ev.Status)
	case tasks.StatusWorking:
		if ev.Steps > 1 {
			return fmt.Sprintf("%s %d/%d", ev.Step, ev.StepIndex, ev.Steps)
		}
		return ev.Step
	default:
		return ""
	}
}

func styleStatus(status string) lipgloss.Style {
	switch status {
	case string(tasks.StatusDone):
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case string(tasks.StatusError):
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case string(tasks.StatusQueued):
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
