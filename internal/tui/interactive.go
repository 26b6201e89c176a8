package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/vortexsim/internal/filament"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	statStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	borderStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Frame carries one snapshot from the solver goroutine to the UI.
type Frame struct {
	Filaments []*filament.Filament
	Time      float64
	Step      int
	Length    float64
	Energy    float64
	Done      bool
}

// Model is the bubbletea program state for the interactive viewer.
type Model struct {
	frames <-chan Frame
	last   Frame
	canvas [][]rune
	quit   bool
}

// NewModel wires the viewer to a frame channel fed by the solver loop.
func NewModel(frames <-chan Frame) Model {
	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
	}
	return Model{frames: frames, canvas: canvas}
}

type frameMsg Frame

func waitForFrame(frames <-chan Frame) tea.Cmd {
	return func() tea.Msg {
		f, ok := <-frames
		if !ok {
			return frameMsg(Frame{Done: true})
		}
		return frameMsg(f)
	}
}

func (m Model) Init() tea.Cmd {
	return waitForFrame(m.frames)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quit = true
			return m, tea.Quit
		}
	case frameMsg:
		m.last = Frame(msg)
		if m.last.Done {
			return m, tea.Quit
		}
		return m, waitForFrame(m.frames)
	}
	return m, nil
}

func (m Model) View() string {
	if m.last.Filaments == nil {
		return titleStyle.Render("vortexsim") + "\n waiting for first step...\n"
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("vortexsim"))
	b.WriteByte('\n')
	b.WriteString(borderStyle.Render(RenderFrame(m.last.Filaments, m.canvas)))
	b.WriteByte('\n')
	b.WriteString(statStyle.Render(fmt.Sprintf(
		" t=%.5f  step=%d  filaments=%d  length=%.4f  energy=%.4g   [q quits]",
		m.last.Time, m.last.Step, len(m.last.Filaments), m.last.Length, m.last.Energy)))
	b.WriteByte('\n')
	return b.String()
}

// Run starts the interactive viewer and blocks until it exits.
func Run(frames <-chan Frame) error {
	p := tea.NewProgram(NewModel(frames))
	_, err := p.Run()
	return err
}
