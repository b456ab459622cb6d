package tui

import (
	"fmt"
	"math"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"

	"github.com/helio-sim/driftsim/internal/stabilize"
)

// IterationMsg delivers one controller iteration to the live view.
type IterationMsg stabilize.Iteration

// DoneMsg ends the run; the view stays up until a key is pressed.
type DoneMsg struct {
	Err error
}

type liveModel struct {
	iterations []stabilize.Iteration
	horizons   []float64
	done       bool
	err        error
	width      int
}

func NewLive() tea.Model {
	return liveModel{width: 80}
}

func (m liveModel) Init() tea.Cmd { return nil }

func (m liveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			if m.done {
				return m, tea.Quit
			}
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case IterationMsg:
		m.iterations = append(m.iterations, stabilize.Iteration(msg))
		m.horizons = append(m.horizons, math.Log10(msg.TMax))
	case DoneMsg:
		m.done = true
		m.err = msg.Err
	}
	return m, nil
}

func (m liveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("driftsim · stabilizing"))
	b.WriteString("\n\n")

	if len(m.horizons) > 1 {
		graph := asciigraph.Plot(m.horizons,
			asciigraph.Height(8),
			asciigraph.Width(max(20, min(m.width-10, 70))),
			asciigraph.Caption("log10(tmax) per iteration"),
		)
		b.WriteString(graph)
		b.WriteString("\n\n")
	}

	start := 0
	if len(m.iterations) > 12 {
		start = len(m.iterations) - 12
	}
	for _, it := range m.iterations[start:] {
		line := fmt.Sprintf("  #%-3d tmax=%-10.4g rows=%-3d vapp=%.2f  %s",
			it.N, it.TMax, it.Rows, it.AppliedVoltage, renderOutcome(it.Outcome))
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case !m.done:
		b.WriteString(runningStyle.Render("running") + dimStyle.Render("  ·  q to abort view"))
	case m.err != nil:
		b.WriteString(failStyle.Render("error: "+m.err.Error()) + dimStyle.Render("  ·  q to exit"))
	default:
		b.WriteString(settledStyle.Render("settled") + dimStyle.Render("  ·  q to exit"))
	}
	b.WriteString("\n")

	return b.String()
}

func renderOutcome(o stabilize.Outcome) string {
	switch o {
	case stabilize.OutcomeFailed:
		return failStyle.Render(o.String())
	case stabilize.OutcomeUnderrun:
		return underrunStyle.Render(o.String())
	default:
		return settledStyle.Render(o.String())
	}
}
