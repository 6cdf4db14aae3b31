package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"pilgrimwatch/internal/dashboard"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// updateMsg carries a session update into the program.
type updateMsg struct{ dashboard.Update }

// Writer forwards session updates to a running bubbletea program.
type Writer struct {
	program teaProgram
}

// NewWriter wraps a program, usually the one returned by NewProgram.
func NewWriter(p teaProgram) *Writer {
	return &Writer{program: p}
}

// NewProgram builds the full-screen program for m.
func NewProgram(m Model, opts ...tea.ProgramOption) *tea.Program {
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	return tea.NewProgram(m, opts...)
}

// Observe implements dashboard.Observer.
func (w *Writer) Observe(u dashboard.Update) {
	w.program.Send(updateMsg{u})
}

// Close asks the program to quit.
func (w *Writer) Close() {
	w.program.Send(tea.Quit())
}
