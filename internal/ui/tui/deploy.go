package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hearthlab/hearth/internal/orchestration"
)

// RunDeployTUI wraps a deployment run with a Bubble Tea dashboard.
// run executes on a background goroutine and reports through the observer
// it receives; component failures arrive as events and keep the display
// alive, only run-level errors tear it down. Quitting the dashboard does
// not stop the run, cancel its context for that.
func RunDeployTUI(m Model, run func(observer orchestration.Observer) error) error {
	p := tea.NewProgram(m, tea.WithAltScreen())

	done := make(chan error, 1)
	go func() {
		err := run(&programObserver{program: p})
		done <- err
		if err != nil {
			p.Send(ErrMsg{Err: err})
			return
		}
		p.Send(DoneMsg{})
	}()

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	if fm := finalModel.(Model); fm.Err != nil {
		return fm.Err
	}
	return <-done
}

// programObserver forwards orchestration output into a running program.
type programObserver struct {
	program *tea.Program
	fields  map[string]string
}

// Printf implements orchestration.Observer.
func (o *programObserver) Printf(format string, v ...interface{}) {
	o.program.Send(LogMsg{Line: fmt.Sprintf(format, v...)})
}

// Event implements orchestration.Observer.
func (o *programObserver) Event(event orchestration.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if event.Fields == nil {
		event.Fields = make(map[string]string)
	}
	for k, v := range o.fields {
		if _, exists := event.Fields[k]; !exists {
			event.Fields[k] = v
		}
	}

	o.program.Send(EventMsg{Event: event})
}

// Progress implements orchestration.Observer.
func (o *programObserver) Progress(phase string, current, total int) {
	o.program.Send(ProgressMsg{Phase: phase, Current: current, Total: total})
}

// WithFields implements orchestration.Observer.
func (o *programObserver) WithFields(fields map[string]string) orchestration.Observer {
	newFields := make(map[string]string, len(o.fields)+len(fields))
	for k, v := range o.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}
	return &programObserver{program: o.program, fields: newFields}
}
