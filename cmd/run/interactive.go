package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/mir-machine/errors"
	"github.com/wippyai/mir-machine/eval"
	"github.com/wippyai/mir-machine/memory"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateSelectProgram modelState = iota
	stateStepping
	stateDone
)

type stepperModel struct {
	err      error
	machine  *eval.Machine
	opts     []eval.Option
	memPane  viewport.Model
	result   string
	selected int
	state    modelState
}

func newStepperModel(opts []eval.Option) *stepperModel {
	return &stepperModel{
		opts:    opts,
		memPane: viewport.New(80, 12),
		state:   stateSelectProgram,
	}
}

func (m *stepperModel) Init() tea.Cmd {
	return nil
}

func (m *stepperModel) startProgram() {
	d := demos[m.selected]
	m.machine = eval.New(d.build(), m.opts...)
	m.err = m.machine.Start("main")
	m.result = ""
	if m.err != nil {
		m.state = stateDone
		return
	}
	m.state = stateStepping
}

func (m *stepperModel) stepOnce() {
	if err := m.machine.Step(context.Background()); err != nil {
		m.err = err
		m.state = stateDone
		return
	}
	if m.machine.Halted() {
		m.finish()
	}
}

func (m *stepperModel) runToEnd() {
	ctx := context.Background()
	for !m.machine.Halted() {
		if err := m.machine.Step(ctx); err != nil {
			m.err = err
			m.state = stateDone
			return
		}
	}
	m.finish()
}

func (m *stepperModel) finish() {
	out, err := m.machine.Finish()
	if err != nil {
		m.err = err
	} else if out.HasReturn {
		m.result = out.Return.String()
	} else {
		m.result = "()"
	}
	m.state = stateDone
}

func (m *stepperModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		m.memPane.Width = size.Width
		if h := size.Height - 14; h > 4 {
			m.memPane.Height = h
		}
		return m, nil
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "up", "k":
		if m.state == stateSelectProgram && m.selected > 0 {
			m.selected--
		}

	case "down", "j":
		if m.state == stateSelectProgram && m.selected < len(demos)-1 {
			m.selected++
		}

	case "enter":
		switch m.state {
		case stateSelectProgram:
			m.startProgram()
		case stateDone:
			m.state = stateSelectProgram
			m.machine = nil
			m.err = nil
			m.result = ""
		}

	case "n", " ":
		if m.state == stateStepping {
			m.stepOnce()
		}

	case "r":
		if m.state == stateStepping {
			m.runToEnd()
		}

	case "esc":
		if m.state == stateStepping || m.state == stateDone {
			m.state = stateSelectProgram
			m.machine = nil
			m.err = nil
			m.result = ""
		}

	default:
		if m.state == stateStepping || m.state == stateDone {
			var cmd tea.Cmd
			m.memPane, cmd = m.memPane.Update(msg)
			return m, cmd
		}
	}

	if m.machine != nil {
		m.memPane.SetContent(m.allocPane())
	}
	return m, nil
}

func (m *stepperModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("MIR Machine"))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectProgram:
		b.WriteString("Select a program to step through:\n\n")
		for i, d := range demos {
			line := fmt.Sprintf("%-16s %s", funcStyle.Render(fmt.Sprintf("%-16s", d.name)), dimStyle.Render(d.desc))
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> "))
				b.WriteString(line)
			} else {
				b.WriteString("  ")
				b.WriteString(line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter start • q quit"))

	case stateStepping:
		b.WriteString(fmt.Sprintf("Program %s, step %d\n\n", funcStyle.Render(demos[m.selected].name), m.machine.Steps()))
		b.WriteString(m.framePane())
		b.WriteString("\n")
		b.WriteString(m.memPane.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("space/n step • r run to end • pgup/pgdn scroll • esc back • q quit"))

	case stateDone:
		b.WriteString(fmt.Sprintf("Program %s finished after %d steps\n\n", funcStyle.Render(demos[m.selected].name), m.machine.Steps()))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
			b.WriteString("\n")
			var machineErr *errors.Error
			if stderrors.As(m.err, &machineErr) && len(machineErr.Frames) > 0 {
				for _, f := range machineErr.Frames {
					b.WriteString(dimStyle.Render("  at " + f.String()))
					b.WriteString("\n")
				}
			}
		} else {
			b.WriteString(resultStyle.Render("Result: " + m.result))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(m.memPane.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter another program • q quit"))
	}

	return b.String()
}

// framePane renders the call stack, innermost frame first.
func (m *stepperModel) framePane() string {
	frames := m.machine.Frames()
	if len(frames) == 0 {
		return dimStyle.Render("(no frames)") + "\n"
	}

	var b strings.Builder
	b.WriteString("Call stack:\n")
	for i := len(frames) - 1; i >= 0; i-- {
		f := frames[i]
		marker := "  "
		line := fmt.Sprintf("%s bb%d[%d]", f.Func().Name, f.Block(), f.Stmt())
		if i == len(frames)-1 {
			marker = "> "
			line = funcStyle.Render(line)
		}
		b.WriteString(marker + line + "\n")
	}
	return b.String()
}

// allocPane renders live allocations, locals of dead frames excluded.
func (m *stepperModel) allocPane() string {
	mem := m.machine.Memory()
	stats := mem.Stats()

	var b strings.Builder
	fmt.Fprintf(&b, "Memory: %d bytes in %d allocations\n", stats.BytesLive, stats.LiveAllocs)

	shown := 0
	for id := memory.AllocID(1); id < stats.NextID && shown < 64; id++ {
		alloc, ok := mem.Get(id)
		if !ok || !alloc.Live() {
			continue
		}
		b.WriteString(dimStyle.Render(mem.Dump(id)))
		b.WriteString("\n")
		shown++
	}
	if stats.LiveAllocs > shown {
		b.WriteString(helpStyle.Render(fmt.Sprintf("… and %d more", stats.LiveAllocs-shown)))
		b.WriteString("\n")
	}
	return b.String()
}

func runInteractive(opts []eval.Option) error {
	p := tea.NewProgram(newStepperModel(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
