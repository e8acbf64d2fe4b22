package certs

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"time"

	"github.com/hearthlab/hearth/internal/config"
)

// selfSignedValidity is one year, a sensible ceiling for lab-internal
// certificates that renew automatically anyway.
const selfSignedValidity = 365 * 24 * time.Hour

// SelfSignedIssuer generates self-signed certificates with ed25519 keys.
// It needs no external reachability, which makes it the usual fallback for
// homelab domains that public CAs cannot validate.
type SelfSignedIssuer struct {
	name string
}

func (s *SelfSignedIssuer) Name() string { return s.name }

func (s *SelfSignedIssuer) Kind() string { return config.IssuerSelfSigned }

// Issue generates a fresh key pair and self-signed certificate covering the
// domain set.
func (s *SelfSignedIssuer) Issue(ctx context.Context, domains []string) (*Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(domains) == 0 {
		return nil, fmt.Errorf("self-signed issuance needs at least one domain")
	}

	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: domains[0]},
		// Backdated slightly so fresh certificates survive clock skew
		// between the issuing host and cluster nodes.
		NotBefore:             now.Add(-5 * time.Minute),
		NotAfter:              now.Add(selfSignedValidity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	for _, domain := range domains {
		if ip := net.ParseIP(domain); ip != nil {
			template.IPAddresses = append(template.IPAddresses, ip)
			continue
		}
		template.DNSNames = append(template.DNSNames, domain)
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, publicKey, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}

	return &Bundle{
		CertPEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		KeyPEM:  pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}),
		Issuer:  s.name,
		Expiry:  template.NotAfter,
	}, nil
}
