package certs

import (
	"context"
	"fmt"

	"github.com/hearthlab/hearth/internal/config"
)

// Issuer produces certificate material for a domain set.
type Issuer interface {
	// Name returns the configured issuer name.
	Name() string

	// Kind returns the issuer kind, one of the config.Issuer* constants.
	Kind() string

	// Issue obtains a certificate covering the canonical domain set. The
	// context bounds the whole attempt.
	Issue(ctx context.Context, domains []string) (*Bundle, error)
}

// issuerDefaults carries cross-issuer settings from the certificates
// config section.
type issuerDefaults struct {
	email    string
	stateDir string
}

// newIssuer builds the issuer implementation for one config entry.
func newIssuer(name string, cfg config.IssuerConfig, defaults issuerDefaults) (Issuer, error) {
	switch cfg.Kind {
	case config.IssuerSelfSigned:
		return &SelfSignedIssuer{name: name}, nil
	case config.IssuerACMEStaging, config.IssuerACMEProduction:
		email := cfg.Email
		if email == "" {
			email = defaults.email
		}
		if cfg.DirectoryURL == "" {
			return nil, fmt.Errorf("issuer %s: directory_url is required for ACME issuers", name)
		}
		listen := cfg.HTTP01Listen
		if listen == "" {
			listen = ":80"
		}
		return &ACMEIssuer{
			name:         name,
			kind:         cfg.Kind,
			directoryURL: cfg.DirectoryURL,
			email:        email,
			listenAddr:   listen,
			stateDir:     defaults.stateDir,
		}, nil
	case config.IssuerCustomCA:
		return &CustomCAIssuer{
			name:     name,
			certPath: cfg.CertPath,
			keyPath:  cfg.KeyPath,
		}, nil
	default:
		return nil, fmt.Errorf("issuer %s: unknown kind %q", name, cfg.Kind)
	}
}
