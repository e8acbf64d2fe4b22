package certs

import (
	"sort"
	"strings"
	"time"
)

// State is one position in the certificate request lifecycle.
type State string

// Request lifecycle states.
const (
	StateRequested      State = "requested"
	StateIssuerAttempt  State = "issuer-attempt"
	StateIssued         State = "issued"
	StateRenewalPending State = "renewal-pending"
	StateFailed         State = "failed"
)

// Request is one standing certificate request. Fields are mutated only by
// the Manager, which serializes all transitions.
type Request struct {
	Domains    []string
	Primary    string
	Fallback   string
	State      State
	LastIssued time.Time
	Expiry     time.Time
	Bundle     *Bundle
}

// Key returns the canonical identity of the request's domain set.
func (r *Request) Key() string {
	return domainKey(r.Domains)
}

// canonicalDomains lowercases, deduplicates, and sorts a domain set.
func canonicalDomains(domains []string) []string {
	seen := make(map[string]bool, len(domains))
	result := make([]string, 0, len(domains))
	for _, domain := range domains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain == "" || seen[domain] {
			continue
		}
		seen[domain] = true
		result = append(result, domain)
	}
	sort.Strings(result)
	return result
}

func domainKey(domains []string) string {
	return strings.Join(canonicalDomains(domains), ",")
}
