package certs

import (
	"sync"
	"time"
)

// AuditRecord is one lifecycle transition of a certificate request.
type AuditRecord struct {
	Time    time.Time `json:"time"`
	Domains []string  `json:"domains"`
	From    State     `json:"from,omitempty"`
	To      State     `json:"to"`
	Issuer  string    `json:"issuer,omitempty"`
	Detail  string    `json:"detail,omitempty"`
}

// AuditTrail collects transition records in memory and optionally forwards
// each one to a sink for persistence.
type AuditTrail struct {
	mu      sync.Mutex
	records []AuditRecord
	sink    func(AuditRecord)
}

// NewAuditTrail creates a trail. sink may be nil.
func NewAuditTrail(sink func(AuditRecord)) *AuditTrail {
	return &AuditTrail{sink: sink}
}

// Append records one transition.
func (t *AuditTrail) Append(record AuditRecord) {
	t.mu.Lock()
	t.records = append(t.records, record)
	sink := t.sink
	t.mu.Unlock()

	if sink != nil {
		sink(record)
	}
}

// Records returns a copy of all recorded transitions in order.
func (t *AuditTrail) Records() []AuditRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]AuditRecord, len(t.records))
	copy(out, t.records)
	return out
}
