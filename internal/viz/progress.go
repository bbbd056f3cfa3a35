package viz

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/ibi/internal/ibi"
	"github.com/san-kum/ibi/internal/pairtable"
)

const logLines = 8

type TickMsg time.Time

// EventMsg carries a controller event into the program.
type EventMsg ibi.Event

// DoneMsg ends the program once the controller returns.
type DoneMsg struct{ Err error }

// Progress follows a running controller. The table is read concurrently
// with the controller; Table hands out copies so this is safe.
type Progress struct {
	total      int
	iteration  int
	state      ibi.State
	deviations []float64
	log        []string
	table      *pairtable.Table
	showEnergy bool
	frame      int
	done       bool
	err        error
	cancel     context.CancelFunc
}

func NewProgress(total int, table *pairtable.Table, cancel context.CancelFunc) Progress {
	return Progress{total: total, table: table, cancel: cancel, state: ibi.Idle}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/10, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Progress) Init() tea.Cmd {
	return tick()
}

func (m Progress) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case "f":
			m.showEnergy = !m.showEnergy
		}
	case EventMsg:
		m.apply(ibi.Event(msg))
	case DoneMsg:
		m.done = true
		if msg.Err != nil {
			m.err = msg.Err
		}
		return m, tea.Quit
	case TickMsg:
		m.frame++
		if !m.done {
			return m, tick()
		}
	}
	return m, nil
}

func (m *Progress) apply(ev ibi.Event) {
	m.state = ev.State
	line := fmt.Sprintf("%s %-12s", ibi.Tag(ev.Iteration), ev.State)
	switch {
	case ev.Err != nil:
		m.err = ev.Err
		line += " " + StatusFailed.Render(ev.Err.Error())
	case ev.State == ibi.MaybeSimulate && ev.Skipped:
		line += " " + StatusSkipped.Render("trajectory exists, skipped")
	case ev.State == ibi.Advance && ev.CompareFailed:
		m.iteration = ev.Iteration + 1
		line += " " + StatusSkipped.Render("comparison failed")
	case ev.State == ibi.Advance:
		m.iteration = ev.Iteration + 1
		m.deviations = append(m.deviations, ev.Deviation)
		line += fmt.Sprintf(" deviation %.4g", ev.Deviation)
	}
	m.log = append(m.log, line)
	if len(m.log) > logLines {
		m.log = m.log[len(m.log)-logLines:]
	}
}

func (m Progress) Err() error { return m.err }

func (m Progress) View() string {
	var s strings.Builder

	s.WriteString(HeaderStyle.Render("iterative Boltzmann inversion") + "\n\n")

	status := StatusRunning.Render(AnimatedSpinner(m.frame) + " " + m.state.String())
	if m.err != nil {
		status = StatusFailed.Render("✗ failed")
	} else if m.done {
		status = StatusRunning.Render("✓ done")
	}
	s.WriteString(MetricLabel.Render("status") + status + "\n")
	s.WriteString(MetricLabel.Render("iterations") +
		ProgressBar(m.iteration, m.total, 30) +
		MetricValue.Render(fmt.Sprintf(" %d/%d", m.iteration, m.total)) + "\n")

	if n := len(m.deviations); n > 0 {
		s.WriteString(MetricLabel.Render("deviation") + Sparkline(m.deviations, 30) +
			MetricValue.Render(fmt.Sprintf(" %.4g", m.deviations[n-1])) + "\n")
	}

	if m.table != nil {
		if e, err := m.table.Latest(); err == nil {
			opts := ChartOptions{Width: 60, Height: 8, Clip: 5}
			if m.showEnergy {
				s.WriteString(GraphStyle.Render(EnergyPlot(e, opts)) + "\n")
			} else {
				s.WriteString(GraphStyle.Render(ForcePlot(e, opts)) + "\n")
			}
		}
	}

	s.WriteString(Separator(60) + "\n")
	for _, line := range m.log {
		s.WriteString(Subtle.Render(line) + "\n")
	}
	s.WriteString("\n" + KeyHint.Render("q quit • f force/energy") + "\n")
	return GlassPanel.Render(s.String())
}

// Observer forwards controller events to a running program.
type Observer struct {
	p *tea.Program
}

func NewObserver(p *tea.Program) Observer { return Observer{p: p} }

func (o Observer) OnEvent(ev ibi.Event) { o.p.Send(EventMsg(ev)) }
