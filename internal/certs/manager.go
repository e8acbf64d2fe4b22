package certs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hearthlab/hearth/internal/config"
	"github.com/hearthlab/hearth/internal/orchestration"
)

// DefaultAttemptTimeout bounds a single issuer attempt.
const DefaultAttemptTimeout = 2 * time.Minute

// SecretStore persists issued certificate material. kube.Client satisfies
// it; tests substitute a recording fake.
type SecretStore interface {
	UpsertTLSSecret(ctx context.Context, namespace, name string, certPEM, keyPEM []byte) error
}

// issuance tracks one in-flight issuance shared by coalesced callers.
type issuance struct {
	done chan struct{}
	req  *Request
	err  error
}

// Manager owns all certificate requests and serializes their lifecycle
// transitions. It is the only mutable state shared between concurrently
// deploying components.
type Manager struct {
	issuers          map[string]Issuer
	store            SecretStore
	observer         orchestration.Observer
	audit            *AuditTrail
	renewalThreshold time.Duration
	attemptTimeout   time.Duration

	mu       sync.Mutex
	requests map[string]*Request
	inflight map[string]*issuance
}

// Option configures a Manager.
type Option func(*Manager)

// WithStore persists issued material through the given store.
func WithStore(store SecretStore) Option {
	return func(m *Manager) { m.store = store }
}

// WithObserver emits lifecycle events to the given observer.
func WithObserver(observer orchestration.Observer) Option {
	return func(m *Manager) { m.observer = observer }
}

// WithAuditSink forwards every audit record to sink as it is appended.
func WithAuditSink(sink func(AuditRecord)) Option {
	return func(m *Manager) { m.audit = NewAuditTrail(sink) }
}

// WithAttemptTimeout bounds each issuer attempt.
func WithAttemptTimeout(timeout time.Duration) Option {
	return func(m *Manager) {
		if timeout > 0 {
			m.attemptTimeout = timeout
		}
	}
}

// WithIssuer registers an extra issuer, overriding any config-built issuer
// with the same name. Tests use it to inject scripted issuers.
func WithIssuer(issuer Issuer) Option {
	return func(m *Manager) { m.issuers[issuer.Name()] = issuer }
}

// NewManager builds a manager from the certificates config section.
// stateDir holds issuer state such as ACME account keys.
func NewManager(cfg config.CertificatesConfig, stateDir string, opts ...Option) (*Manager, error) {
	m := &Manager{
		issuers:          make(map[string]Issuer),
		audit:            NewAuditTrail(nil),
		renewalThreshold: config.DefaultRenewalThreshold,
		attemptTimeout:   DefaultAttemptTimeout,
		requests:         make(map[string]*Request),
		inflight:         make(map[string]*issuance),
	}
	if cfg.RenewalThreshold > 0 {
		m.renewalThreshold = time.Duration(cfg.RenewalThreshold)
	}

	defaults := issuerDefaults{email: cfg.Email, stateDir: stateDir}
	names := make([]string, 0, len(cfg.Issuers))
	for name := range cfg.Issuers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		issuerCfg := cfg.Issuers[name]
		if !issuerCfg.IsEnabled() {
			continue
		}
		issuer, err := newIssuer(name, issuerCfg, defaults)
		if err != nil {
			return nil, err
		}
		m.issuers[name] = issuer
	}

	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Audit returns the manager's audit trail.
func (m *Manager) Audit() *AuditTrail { return m.audit }

// RenewalThreshold returns the configured renewal threshold.
func (m *Manager) RenewalThreshold() time.Duration { return m.renewalThreshold }

// IssuerNames lists the enabled issuers in sorted order.
func (m *Manager) IssuerNames() []string {
	names := make([]string, 0, len(m.issuers))
	for name := range m.issuers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Requests returns the known requests sorted by domain key.
func (m *Manager) Requests() []*Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.requests))
	for key := range m.requests {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	result := make([]*Request, 0, len(keys))
	for _, key := range keys {
		result = append(result, m.requests[key])
	}
	return result
}

// Request obtains a certificate for the domain set, trying primary and
// then fallback. A request whose certificate is already issued and not yet
// due for renewal is returned as-is. Concurrent calls for the same domain
// set coalesce into a single issuance.
func (m *Manager) Request(ctx context.Context, domains []string, primary, fallback string) (*Request, error) {
	canonical := canonicalDomains(domains)
	if len(canonical) == 0 {
		return nil, fmt.Errorf("certificate request needs at least one domain")
	}
	if primary == "" {
		return nil, fmt.Errorf("certificate request for %s needs a primary issuer", strings.Join(canonical, ", "))
	}
	key := strings.Join(canonical, ",")

	m.mu.Lock()
	if existing, ok := m.requests[key]; ok && existing.State == StateIssued && time.Until(existing.Expiry) > m.renewalThreshold {
		m.mu.Unlock()
		return existing, nil
	}
	if inflight, ok := m.inflight[key]; ok {
		m.mu.Unlock()
		select {
		case <-inflight.done:
			return inflight.req, inflight.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	flight := &issuance{done: make(chan struct{})}
	m.inflight[key] = flight
	req, ok := m.requests[key]
	if !ok {
		req = &Request{Domains: canonical}
		m.requests[key] = req
	}
	req.Primary = primary
	req.Fallback = fallback
	m.mu.Unlock()

	flight.req = req
	flight.err = m.issue(ctx, req)

	m.mu.Lock()
	delete(m.inflight, key)
	m.mu.Unlock()
	close(flight.done)

	return flight.req, flight.err
}

// Deploy issues the certificate for one configured request and stores the
// material as a TLS secret.
func (m *Manager) Deploy(ctx context.Context, rc config.CertificateRequestConfig) (*Request, error) {
	req, err := m.Request(ctx, rc.Domains, rc.Issuer, rc.Fallback)
	if err != nil {
		return req, err
	}
	if m.store == nil || rc.Secret == "" {
		return req, nil
	}

	namespace := rc.Namespace
	if namespace == "" {
		namespace = "default"
	}
	m.mu.Lock()
	bundle := req.Bundle
	m.mu.Unlock()
	if bundle == nil {
		return req, fmt.Errorf("certificate for %s has no issued material", req.Key())
	}
	if err := m.store.UpsertTLSSecret(ctx, namespace, rc.Secret, bundle.CertPEM, bundle.KeyPEM); err != nil {
		return req, fmt.Errorf("failed to store certificate secret %s/%s: %w", namespace, rc.Secret, err)
	}
	return req, nil
}

// CheckExpiry returns the requests whose certificates expire within the
// threshold (the manager's renewal threshold when zero), moving issued ones
// to renewal-pending.
func (m *Manager) CheckExpiry(threshold time.Duration) []*Request {
	if threshold <= 0 {
		threshold = m.renewalThreshold
	}

	m.mu.Lock()
	keys := make([]string, 0, len(m.requests))
	for key := range m.requests {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var atRisk, toMark []*Request
	for _, key := range keys {
		req := m.requests[key]
		if req.State != StateIssued && req.State != StateRenewalPending {
			continue
		}
		if time.Until(req.Expiry) > threshold {
			continue
		}
		atRisk = append(atRisk, req)
		if req.State == StateIssued {
			toMark = append(toMark, req)
		}
	}
	m.mu.Unlock()

	for _, req := range toMark {
		m.transition(req, StateRenewalPending, "", fmt.Sprintf("expires %s", req.Expiry.Format(time.RFC3339)))
	}
	return atRisk
}

// Renew re-runs issuance for a request using its recorded issuer policy.
func (m *Manager) Renew(ctx context.Context, req *Request) (*Request, error) {
	return m.Request(ctx, req.Domains, req.Primary, req.Fallback)
}

// issue drives the request through the issuer-then-fallback lifecycle.
func (m *Manager) issue(ctx context.Context, req *Request) error {
	m.mu.Lock()
	fresh := req.State == ""
	m.mu.Unlock()
	if fresh {
		m.transition(req, StateRequested, "", "submitted")
		m.emit(orchestration.EventCertificateRequested, req, fmt.Sprintf("requesting certificate for %s", strings.Join(req.Domains, ", ")))
	}

	attempts := []string{req.Primary}
	if req.Fallback != "" && req.Fallback != req.Primary {
		attempts = append(attempts, req.Fallback)
	}

	var attemptErrs []AttemptError
	for i, issuerName := range attempts {
		if i > 0 {
			m.emit(orchestration.EventCertificateFallback, req,
				fmt.Sprintf("issuer %s failed, falling back to %s", attempts[i-1], issuerName))
		}
		m.transition(req, StateIssuerAttempt, issuerName, fmt.Sprintf("attempting issuance via %s", issuerName))

		issuer, ok := m.issuers[issuerName]
		if !ok {
			attemptErrs = append(attemptErrs, AttemptError{
				Issuer: issuerName,
				Err:    fmt.Errorf("issuer %q is not configured or not enabled", issuerName),
			})
			continue
		}

		attemptCtx, cancel := context.WithTimeout(ctx, m.attemptTimeout)
		bundle, err := issuer.Issue(attemptCtx, req.Domains)
		cancel()
		if err == nil {
			m.mu.Lock()
			req.Bundle = bundle
			req.LastIssued = time.Now()
			req.Expiry = bundle.Expiry
			m.mu.Unlock()
			detail := fmt.Sprintf("issued by %s, expires %s", issuerName, bundle.Expiry.Format(time.RFC3339))
			m.transition(req, StateIssued, issuerName, detail)
			m.emit(orchestration.EventCertificateIssued, req, detail)
			return nil
		}

		attemptErrs = append(attemptErrs, AttemptError{Issuer: issuerName, Err: err})
		if ctx.Err() != nil {
			break
		}
	}

	issueErr := &IssuanceError{Domains: req.Domains, Attempts: attemptErrs}
	m.transition(req, StateFailed, "", issueErr.Error())
	m.emit(orchestration.EventCertificateFailed, req, issueErr.Error())
	return issueErr
}

// transition moves a request to a new state and records it on the audit
// trail.
func (m *Manager) transition(req *Request, to State, issuer, detail string) {
	m.mu.Lock()
	from := req.State
	req.State = to
	m.mu.Unlock()

	m.audit.Append(AuditRecord{
		Time:    time.Now(),
		Domains: req.Domains,
		From:    from,
		To:      to,
		Issuer:  issuer,
		Detail:  detail,
	})
}

func (m *Manager) emit(eventType orchestration.EventType, req *Request, message string) {
	if m.observer == nil {
		return
	}
	m.observer.Event(orchestration.Event{
		Type:      eventType,
		Phase:     "certificates",
		Component: req.Key(),
		Message:   message,
		Timestamp: time.Now(),
	})
}
