// Package tui provides a Bubble Tea terminal dashboard for deployment runs.
package tui

import "github.com/hearthlab/hearth/internal/orchestration"

// EventMsg carries one orchestration event into the dashboard.
type EventMsg struct {
	Event orchestration.Event
}

// ProgressMsg reports completed-of-total progress for the run.
type ProgressMsg struct {
	Phase   string
	Current int
	Total   int
}

// LogMsg carries a free-form log line.
type LogMsg struct {
	Line string
}

// TickMsg is sent periodically to refresh the display.
type TickMsg struct{}

// ErrMsg carries an error.
type ErrMsg struct{ Err error }

// DoneMsg signals that the run is complete.
type DoneMsg struct{}
