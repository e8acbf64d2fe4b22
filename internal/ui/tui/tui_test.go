package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/hearthlab/hearth/internal/orchestration"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{30 * time.Second, "30s"},
		{90 * time.Second, "1m30s"},
		{3600 * time.Second, "1h0m"},
		{3661 * time.Second, "1h1m"},
	}
	for _, tt := range tests {
		got := formatDuration(tt.d)
		if got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestCalculateProgress_Done(t *testing.T) {
	m := Model{Done: true}
	p := calculateProgress(m)
	if p != 1.0 {
		t.Errorf("expected 1.0, got %v", p)
	}
}

func TestCalculateProgress_Counts(t *testing.T) {
	m := Model{Current: 2, Total: 4}
	p := calculateProgress(m)
	if p != 0.5 {
		t.Errorf("expected 0.5, got %v", p)
	}

	m = Model{}
	if p := calculateProgress(m); p != 0 {
		t.Errorf("expected 0 with no total, got %v", p)
	}
}

func TestNewDeployModel(t *testing.T) {
	m := NewDeployModel("homelab", "prod", "apply", []string{"metallb", "cert_manager"})

	if len(m.Components) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(m.Components))
	}
	if m.Components[0].Name != "metallb" || m.Components[1].Name != "cert_manager" {
		t.Errorf("rows out of plan order: %v", m.Components)
	}
	if m.Components[0].State != RowPending {
		t.Errorf("expected pending row, got %v", m.Components[0].State)
	}
	if m.Total != 2 {
		t.Errorf("expected Total 2, got %d", m.Total)
	}
	if m.PerformanceScale != 1.0 {
		t.Errorf("expected neutral performance scale, got %v", m.PerformanceScale)
	}
}

func TestApplyEvent_ComponentLifecycle(t *testing.T) {
	m := NewDeployModel("homelab", "prod", "apply", []string{"metallb", "ingress_nginx"})

	m.applyEvent(orchestration.Event{Type: orchestration.EventComponentStarted, Component: "metallb"})
	if m.Components[0].State != RowActive {
		t.Errorf("expected active after start, got %v", m.Components[0].State)
	}
	if m.Components[0].StartedAt.IsZero() {
		t.Error("expected StartedAt to be set")
	}

	// Backdate the start so the recorded duration is visible.
	m.Components[0].StartedAt = time.Now().Add(-45 * time.Second)
	m.applyEvent(orchestration.Event{Type: orchestration.EventComponentReady, Component: "metallb"})
	if m.Components[0].State != RowReady {
		t.Errorf("expected ready, got %v", m.Components[0].State)
	}
	if m.Components[0].Duration < 45*time.Second {
		t.Errorf("expected duration >= 45s, got %v", m.Components[0].Duration)
	}

	m.applyEvent(orchestration.Event{
		Type:      orchestration.EventComponentFailed,
		Component: "ingress_nginx",
		Message:   "failed: probe timeout",
	})
	if m.Components[1].State != RowFailed {
		t.Errorf("expected failed, got %v", m.Components[1].State)
	}
	if len(m.Errors) != 1 || !strings.Contains(m.Errors[0], "ingress_nginx") {
		t.Errorf("expected recorded error, got %v", m.Errors)
	}
}

func TestApplyEvent_BlockedAndSkipped(t *testing.T) {
	m := NewDeployModel("homelab", "", "apply", []string{"node-tuning", "keycloak"})

	m.applyEvent(orchestration.Event{
		Type:      orchestration.EventComponentBlocked,
		Component: "node-tuning",
		Message:   "blocked: requires elevated system access",
	})
	if m.Components[0].State != RowBlocked {
		t.Errorf("expected blocked, got %v", m.Components[0].State)
	}
	if len(m.Errors) != 1 {
		t.Errorf("expected blocked component recorded as error, got %v", m.Errors)
	}

	m.applyEvent(orchestration.Event{
		Type:      orchestration.EventComponentSkipped,
		Component: "keycloak",
		Message:   "dependency node-tuning was not deployed",
	})
	if m.Components[1].State != RowSkipped {
		t.Errorf("expected skipped, got %v", m.Components[1].State)
	}
	if m.Components[1].Detail == "" {
		t.Error("expected skip reason in detail")
	}
}

func TestApplyEvent_RolledBack(t *testing.T) {
	m := NewDeployModel("homelab", "", "apply", []string{"metallb"})

	m.applyEvent(orchestration.Event{Type: orchestration.EventComponentStarted, Component: "metallb"})
	m.applyEvent(orchestration.Event{Type: orchestration.EventComponentRolledBack, Component: "metallb"})

	if m.Components[0].State != RowRolledBack {
		t.Errorf("expected rolled-back, got %v", m.Components[0].State)
	}
}

func TestApplyEvent_RunCompleted(t *testing.T) {
	m := NewDeployModel("homelab", "", "apply", []string{"metallb"})
	m.applyEvent(orchestration.Event{
		Type:    orchestration.EventRunCompleted,
		Message: "run finished: success",
	})
	if m.Summary != "run finished: success" {
		t.Errorf("expected summary from completion event, got %q", m.Summary)
	}
}

func TestApplyEvent_UnknownComponentIgnored(t *testing.T) {
	m := NewDeployModel("homelab", "", "apply", []string{"metallb"})
	m.applyEvent(orchestration.Event{Type: orchestration.EventComponentStarted, Component: "ghost"})
	if m.Components[0].State != RowPending {
		t.Errorf("expected untouched rows, got %v", m.Components[0].State)
	}
}

func TestUpdate_Messages(t *testing.T) {
	m := NewDeployModel("homelab", "prod", "apply", []string{"metallb"})

	next, _ := m.Update(ProgressMsg{Phase: "deploy", Current: 1, Total: 3})
	m = next.(Model)
	if m.Current != 1 || m.Total != 3 {
		t.Errorf("expected progress 1/3, got %d/%d", m.Current, m.Total)
	}

	next, _ = m.Update(LogMsg{Line: "applying manifests"})
	m = next.(Model)
	if m.LastLog != "applying manifests" {
		t.Errorf("expected log line, got %q", m.LastLog)
	}

	next, cmd := m.Update(DoneMsg{})
	m = next.(Model)
	if !m.Done {
		t.Error("expected done after DoneMsg")
	}
	if cmd == nil {
		t.Error("expected quit command after DoneMsg")
	}
}

func TestRenderView_Header(t *testing.T) {
	m := NewDeployModel("homelab", "prod", "apply", []string{"metallb"})
	m.StartTime = time.Now()

	output := renderView(m)

	if !strings.Contains(output, "homelab") {
		t.Error("expected cluster name in output")
	}
	if !strings.Contains(output, "prod") {
		t.Error("expected environment in output")
	}
}

func TestRenderView_ComponentStates(t *testing.T) {
	m := NewDeployModel("homelab", "", "apply", []string{"metallb", "cert_manager", "keycloak"})
	m.StartTime = time.Now()
	m.Components[0].State = RowReady
	m.Components[0].Duration = 45 * time.Second
	m.Components[1].State = RowActive
	m.Components[1].StartedAt = time.Now()
	m.Components[2].State = RowSkipped
	m.Components[2].Detail = "dependency cert_manager was not deployed"

	output := renderView(m)

	if !strings.Contains(output, "Components") {
		t.Error("expected components section in output")
	}
	if !strings.Contains(output, "metallb") || !strings.Contains(output, "45s") {
		t.Error("expected ready component with duration in output")
	}
	if !strings.Contains(output, "deploying") {
		t.Error("expected active component marker in output")
	}
	if !strings.Contains(output, "dependency cert_manager was not deployed") {
		t.Error("expected skip reason in output")
	}
}

func TestRenderView_Errors(t *testing.T) {
	m := NewDeployModel("homelab", "", "apply", []string{"metallb"})
	m.StartTime = time.Now()
	m.Errors = []string{"[metallb] failed: connection refused"}

	output := renderView(m)

	if !strings.Contains(output, "Recent Errors") {
		t.Error("expected errors section in output")
	}
	if !strings.Contains(output, "connection refused") {
		t.Error("expected error message in output")
	}
}

func TestRenderView_ErrorsTruncatedToLastThree(t *testing.T) {
	m := NewDeployModel("homelab", "", "apply", []string{"metallb"})
	m.StartTime = time.Now()
	m.Errors = []string{"[a] one", "[b] two", "[c] three", "[d] four"}

	output := renderView(m)

	if strings.Contains(output, "[a] one") {
		t.Error("expected oldest error to be dropped from output")
	}
	if !strings.Contains(output, "[d] four") {
		t.Error("expected newest error in output")
	}
}

func TestRenderView_ProgressBar(t *testing.T) {
	m := NewDeployModel("homelab", "", "apply", []string{"metallb", "cert_manager"})
	m.StartTime = time.Now()
	m.Current = 1

	output := renderView(m)

	if !strings.Contains(output, "░") && !strings.Contains(output, "█") {
		t.Error("expected progress bar in output")
	}
	if !strings.Contains(output, "50%") {
		t.Error("expected percentage in output")
	}
}

func TestCurrentSpinner(t *testing.T) {
	seen := make(map[string]bool)
	for frame := 0; frame < len(spinnerFrames); frame++ {
		seen[currentSpinner(frame)] = true
	}
	if len(seen) != len(spinnerFrames) {
		t.Errorf("expected %d distinct frames, got %d", len(spinnerFrames), len(seen))
	}
	if got := currentSpinner(-1); got == "" {
		t.Error("expected a frame for negative input")
	}
}
