package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hearthlab/hearth/internal/orchestration"
	"github.com/hearthlab/hearth/internal/ui/benchmarks"
)

// RowState classifies a component row for display.
type RowState string

// Row states.
const (
	RowPending    RowState = "pending"
	RowActive     RowState = "active"
	RowReady      RowState = "ready"
	RowFailed     RowState = "failed"
	RowSkipped    RowState = "skipped"
	RowBlocked    RowState = "blocked"
	RowRolledBack RowState = "rolled-back"
)

// ComponentRow is one planned component's display state.
type ComponentRow struct {
	Name      string
	State     RowState
	Detail    string
	StartedAt time.Time
	Duration  time.Duration
}

// Model is the Bubble Tea model for the deployment dashboard.
type Model struct {
	ClusterName string
	Environment string
	Mode        string // "deploy", "dry-run"

	// One row per planned component, plan order
	Components []ComponentRow
	Current    int
	Total      int

	// ETA
	EstimatedRemaining time.Duration
	PerformanceScale   float64
	StartTime          time.Time

	// Animation
	SpinnerFrame int

	// UI state
	Width  int
	Height int
	Err    error
	Done   bool

	LastLog string
	Errors  []string
	Summary string // run completion message
}

// NewDeployModel creates a dashboard model with one row per planned
// component, in plan order.
func NewDeployModel(clusterName, environment, mode string, components []string) Model {
	rows := make([]ComponentRow, len(components))
	for i, name := range components {
		rows[i] = ComponentRow{Name: name, State: RowPending}
	}
	return Model{
		ClusterName:      clusterName,
		Environment:      environment,
		Mode:             mode,
		Components:       rows,
		Total:            len(rows),
		StartTime:        time.Now(),
		PerformanceScale: 1.0,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case EventMsg:
		m.applyEvent(msg.Event)

	case ProgressMsg:
		m.Current = msg.Current
		if msg.Total > 0 {
			m.Total = msg.Total
		}

	case LogMsg:
		m.LastLog = msg.Line

	case TickMsg:
		m.SpinnerFrame++
		m.updateETA()
		return m, tickCmd()

	case ErrMsg:
		m.Err = msg.Err
		return m, tea.Quit

	case DoneMsg:
		m.Done = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) applyEvent(event orchestration.Event) {
	switch event.Type {
	case orchestration.EventRunStarted:
		return
	case orchestration.EventRunCompleted:
		m.Summary = event.Message
		return
	}

	row := m.row(event.Component)
	if row == nil {
		return
	}

	switch event.Type {
	case orchestration.EventComponentStarted:
		row.State = RowActive
		row.StartedAt = time.Now()
		row.Detail = ""
	case orchestration.EventComponentReady:
		row.State = RowReady
		if !row.StartedAt.IsZero() {
			row.Duration = time.Since(row.StartedAt)
		}
		row.Detail = ""
	case orchestration.EventComponentFailed:
		row.State = RowFailed
		row.Detail = event.Message
		m.Errors = append(m.Errors, fmt.Sprintf("[%s] %s", event.Component, event.Message))
	case orchestration.EventComponentSkipped:
		row.State = RowSkipped
		row.Detail = event.Message
	case orchestration.EventComponentBlocked:
		row.State = RowBlocked
		row.Detail = event.Message
		m.Errors = append(m.Errors, fmt.Sprintf("[%s] %s", event.Component, event.Message))
	case orchestration.EventComponentRolledBack:
		row.State = RowRolledBack
		row.Detail = "rolled back"
	case orchestration.EventHookStarted, orchestration.EventHookFailed:
		row.Detail = event.Message
	}
}

func (m *Model) row(name string) *ComponentRow {
	for i := range m.Components {
		if m.Components[i].Name == name {
			return &m.Components[i]
		}
	}
	return nil
}

func (m *Model) updateETA() {
	active := make(map[string]time.Duration)
	var pendingNames []string
	var completed []benchmarks.Sample
	for _, row := range m.Components {
		switch row.State {
		case RowActive:
			active[row.Name] = time.Since(row.StartedAt)
		case RowPending:
			pendingNames = append(pendingNames, row.Name)
		case RowReady:
			if row.Duration > 0 {
				completed = append(completed, benchmarks.Sample{Component: row.Name, Duration: row.Duration})
			}
		}
	}
	m.PerformanceScale = benchmarks.PerformanceScale(active, completed)
	m.EstimatedRemaining = benchmarks.EstimateRemaining(active, pendingNames, completed)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	return renderView(m)
}
