package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/freeeve/blockfall/pkg/tetris"
)

// frame is one placement to draw.
type frame struct {
	Pos   tetris.Position
	Ply   int
	Move  string
	Eval  float64
	Nodes int
}

// doneMsg ends the feed; Err is nil when the game simply finished.
type doneMsg struct {
	Err error
}

type viewModel struct {
	title   string
	frames  <-chan frame
	done    <-chan doneMsg
	current frame
	started time.Time
	paused  bool
	waiting bool
	over    bool
	err     error
}

func newViewModel(title string, frames <-chan frame, done <-chan doneMsg) viewModel {
	return viewModel{title: title, frames: frames, done: done, started: time.Now(), waiting: true}
}

func waitForFrame(frames <-chan frame, done <-chan doneMsg) tea.Cmd {
	return func() tea.Msg {
		select {
		case f, ok := <-frames:
			if !ok {
				return <-done
			}
			return f
		case d := <-done:
			return d
		}
	}
}

func (m viewModel) Init() tea.Cmd {
	return waitForFrame(m.frames, m.done)
}

// next asks for the following frame unless a request is already pending.
func (m viewModel) next() (viewModel, tea.Cmd) {
	if m.waiting || m.over {
		return m, nil
	}
	m.waiting = true
	return m, waitForFrame(m.frames, m.done)
}

func (m viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
			if !m.paused {
				return m.next()
			}
		}
	case frame:
		m.current = msg
		m.waiting = false
		if m.paused {
			return m, nil
		}
		return m.next()
	case doneMsg:
		m.waiting = false
		m.over = true
		m.err = msg.Err
	}
	return m, nil
}

func (m viewModel) View() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n\n", m.title)
	board := renderBoard(&m.current.Pos)
	side := []string{
		fmt.Sprintf("Ply:     %d", m.current.Ply),
		fmt.Sprintf("Score:   %d", m.current.Pos.Score),
		fmt.Sprintf("Lines:   %d", m.current.Pos.Lines),
		fmt.Sprintf("Next:    %s", m.current.Pos.Current),
		fmt.Sprintf("Move:    %s", m.current.Move),
		fmt.Sprintf("Eval:    %.3f", m.current.Eval),
		fmt.Sprintf("Nodes:   %d", m.current.Nodes),
		fmt.Sprintf("Elapsed: %s", time.Since(m.started).Round(time.Second)),
	}
	for i, row := range board {
		sb.WriteString(row)
		if i < len(side) {
			sb.WriteString("   " + side[i])
		}
		sb.WriteByte('\n')
	}

	switch {
	case m.err != nil:
		fmt.Fprintf(&sb, "\nError: %v\n", m.err)
	case m.over:
		sb.WriteString("\nGame over.\n")
	case m.paused:
		sb.WriteString("\nPaused.\n")
	}
	sb.WriteString("\nspace pause, q quit\n")
	return sb.String()
}

// renderBoard draws the board one string per row, filled cells as their
// piece letter.
func renderBoard(p *tetris.Position) []string {
	rows := make([]string, 0, tetris.Height+1)
	for y := 0; y < tetris.Height; y++ {
		var sb strings.Builder
		sb.WriteByte('|')
		for x := 0; x < tetris.Width; x++ {
			if k := p.Board[y][x]; k != tetris.None {
				sb.WriteString(k.String() + k.String())
			} else {
				sb.WriteString(" .")
			}
		}
		sb.WriteByte('|')
		rows = append(rows, sb.String())
	}
	rows = append(rows, "+"+strings.Repeat("--", tetris.Width)+"+")
	return rows
}
