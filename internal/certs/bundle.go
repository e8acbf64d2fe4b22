package certs

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"time"
)

// Bundle holds issued certificate material in PEM form, leaf first.
type Bundle struct {
	CertPEM []byte
	KeyPEM  []byte
	Issuer  string
	Expiry  time.Time
}

// Leaf parses and returns the bundle's leaf certificate.
func (b *Bundle) Leaf() (*x509.Certificate, error) {
	block, _ := pem.Decode(b.CertPEM)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, errors.New("bundle does not start with a PEM certificate block")
	}
	return x509.ParseCertificate(block.Bytes)
}
