// Package health classifies component health from cluster and service
// signals. Each check produces one Record per component; overall health
// is the worst individual status, never an average, so a single critical
// failure cannot hide behind healthy neighbors.
package health

import "time"

// Status classifies one component's health.
type Status string

// Statuses, worst first.
const (
	StatusCritical Status = "critical"
	StatusDegraded Status = "degraded"
	StatusUnknown  Status = "unknown"
	StatusHealthy  Status = "healthy"
)

// severity orders statuses for aggregation: critical > degraded >
// unknown > healthy.
var severity = map[Status]int{
	StatusHealthy:  0,
	StatusUnknown:  1,
	StatusDegraded: 2,
	StatusCritical: 3,
}

// Severity returns the numeric rank of a status, higher meaning worse.
func Severity(status Status) int { return severity[status] }

// Worse reports whether a outranks b in severity.
func Worse(a, b Status) bool { return severity[a] > severity[b] }

// CheckResult is one contributing check within a Record.
type CheckResult struct {
	Name    string `json:"name"`
	Pass    bool   `json:"pass"`
	Message string `json:"message,omitempty"`
}

// Record is one component's classified health at a point in time.
type Record struct {
	Component string        `json:"component"`
	Status    Status        `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	Checks    []CheckResult `json:"checks,omitempty"`
}

// Failures returns the failed checks as "name: message" strings.
func (r Record) Failures() []string {
	var failures []string
	for _, check := range r.Checks {
		if !check.Pass {
			failures = append(failures, check.Name+": "+check.Message)
		}
	}
	return failures
}

// Aggregate returns the worst status across records. An empty set is
// unknown, since nothing was actually observed.
func Aggregate(records []Record) Status {
	if len(records) == 0 {
		return StatusUnknown
	}
	worst := StatusHealthy
	for _, record := range records {
		if Worse(record.Status, worst) {
			worst = record.Status
		}
	}
	return worst
}

// recordBuilder accumulates checks and tracks the worst failure status.
type recordBuilder struct {
	record Record
	worst  Status
}

func newRecord(component string) *recordBuilder {
	return &recordBuilder{
		record: Record{Component: component, Timestamp: time.Now()},
		worst:  StatusHealthy,
	}
}

// add appends a check. failStatus is the status the record degrades to
// when this check fails; it is ignored for passing checks.
func (b *recordBuilder) add(name string, pass bool, message string, failStatus Status) {
	b.record.Checks = append(b.record.Checks, CheckResult{Name: name, Pass: pass, Message: message})
	if !pass && Worse(failStatus, b.worst) {
		b.worst = failStatus
	}
}

func (b *recordBuilder) build() Record {
	b.record.Status = b.worst
	return b.record
}
