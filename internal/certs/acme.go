package certs

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/acme"
)

// ACMEIssuer obtains certificates from an ACME directory (Let's Encrypt
// staging or production, or any RFC 8555 CA) using the http-01 challenge.
// The challenge listener binds listenAddr for the duration of one issuance.
//
// Wildcard domains are rejected up front: http-01 cannot validate them, and
// failing fast here lets the fallback issuer take over instead of burning an
// ACME rate-limit slot.
type ACMEIssuer struct {
	name         string
	kind         string
	directoryURL string
	email        string
	listenAddr   string
	stateDir     string
}

func (a *ACMEIssuer) Name() string { return a.name }

func (a *ACMEIssuer) Kind() string { return a.kind }

// Issue runs one ACME order for the domain set.
func (a *ACMEIssuer) Issue(ctx context.Context, domains []string) (*Bundle, error) {
	if len(domains) == 0 {
		return nil, fmt.Errorf("ACME issuance needs at least one domain")
	}
	for _, domain := range domains {
		if strings.HasPrefix(domain, "*.") {
			return nil, fmt.Errorf("wildcard domain %q cannot be validated with http-01; use a self-signed or custom-ca issuer for wildcards", domain)
		}
	}

	accountKey, err := a.accountKey()
	if err != nil {
		return nil, err
	}

	client := &acme.Client{
		Key:          accountKey,
		DirectoryURL: a.directoryURL,
		UserAgent:    "hearth",
	}

	if _, err := client.Discover(ctx); err != nil {
		return nil, fmt.Errorf("failed to reach ACME directory %s: %w", a.directoryURL, err)
	}
	if err := a.register(ctx, client); err != nil {
		return nil, err
	}

	order, err := client.AuthorizeOrder(ctx, acme.DomainIDs(domains...))
	if err != nil {
		return nil, fmt.Errorf("failed to create ACME order: %w", err)
	}

	if order.Status != acme.StatusReady {
		order, err = a.solveAuthorizations(ctx, client, order)
		if err != nil {
			return nil, err
		}
	}

	leafKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate leaf key: %w", err)
	}
	csr, err := x509.CreateCertificateRequest(rand.Reader, &x509.CertificateRequest{
		Subject:  pkix.Name{CommonName: domains[0]},
		DNSNames: domains,
	}, leafKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSR: %w", err)
	}

	chainDER, _, err := client.CreateOrderCert(ctx, order.FinalizeURL, csr, true)
	if err != nil {
		return nil, fmt.Errorf("failed to finalize ACME order: %w", err)
	}
	if len(chainDER) == 0 {
		return nil, fmt.Errorf("ACME CA returned an empty certificate chain")
	}

	leaf, err := x509.ParseCertificate(chainDER[0])
	if err != nil {
		return nil, fmt.Errorf("failed to parse issued certificate: %w", err)
	}

	var certPEM []byte
	for _, der := range chainDER {
		certPEM = append(certPEM, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})...)
	}
	keyDER, err := x509.MarshalPKCS8PrivateKey(leafKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal leaf key: %w", err)
	}

	return &Bundle{
		CertPEM: certPEM,
		KeyPEM:  pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}),
		Issuer:  a.name,
		Expiry:  leaf.NotAfter,
	}, nil
}

// solveAuthorizations answers every pending http-01 challenge on the order,
// serving key authorizations from a listener on listenAddr.
func (a *ACMEIssuer) solveAuthorizations(ctx context.Context, client *acme.Client, order *acme.Order) (*acme.Order, error) {
	handler := newHTTP01Handler()

	listener, err := net.Listen("tcp", a.listenAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s for http-01 challenges: %w", a.listenAddr, err)
	}
	server := &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = server.Serve(listener) }()
	defer func() { _ = server.Close() }()

	for _, authzURL := range order.AuthzURLs {
		authz, err := client.GetAuthorization(ctx, authzURL)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch authorization: %w", err)
		}
		if authz.Status == acme.StatusValid {
			continue
		}

		var challenge *acme.Challenge
		for _, ch := range authz.Challenges {
			if ch.Type == "http-01" {
				challenge = ch
				break
			}
		}
		if challenge == nil {
			return nil, fmt.Errorf("no http-01 challenge offered for %s", authz.Identifier.Value)
		}

		keyAuth, err := client.HTTP01ChallengeResponse(challenge.Token)
		if err != nil {
			return nil, fmt.Errorf("failed to compute challenge response: %w", err)
		}
		handler.set(challenge.Token, keyAuth)

		if _, err := client.Accept(ctx, challenge); err != nil {
			return nil, fmt.Errorf("failed to accept challenge for %s: %w", authz.Identifier.Value, err)
		}
		if _, err := client.WaitAuthorization(ctx, authz.URI); err != nil {
			return nil, fmt.Errorf("authorization failed for %s: %w", authz.Identifier.Value, err)
		}
	}

	order, err = client.WaitOrder(ctx, order.URI)
	if err != nil {
		return nil, fmt.Errorf("ACME order did not become ready: %w", err)
	}
	return order, nil
}

// register creates the ACME account on first use. An existing account under
// the same key is fine.
func (a *ACMEIssuer) register(ctx context.Context, client *acme.Client) error {
	account := &acme.Account{}
	if a.email != "" {
		account.Contact = []string{"mailto:" + a.email}
	}
	_, err := client.Register(ctx, account, acme.AcceptTOS)
	if err != nil && !errors.Is(err, acme.ErrAccountAlreadyExists) {
		return fmt.Errorf("failed to register ACME account: %w", err)
	}
	return nil
}

// accountKey loads the persisted account key, generating one on first use.
// Reusing the key across runs keeps the CA-side account stable and avoids
// duplicate-registration rate limits.
func (a *ACMEIssuer) accountKey() (crypto.Signer, error) {
	dir := filepath.Join(a.stateDir, "acme")
	keyPath := filepath.Join(dir, a.name+".key")

	if data, err := os.ReadFile(keyPath); err == nil {
		block, _ := pem.Decode(data)
		if block != nil {
			if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
				return key, nil
			}
		}
		return nil, fmt.Errorf("account key %s is corrupt; remove it to re-register", keyPath)
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate account key: %w", err)
	}
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal account key: %w", err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create ACME state dir: %w", err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})
	if err := os.WriteFile(keyPath, pemBytes, 0o600); err != nil {
		return nil, fmt.Errorf("failed to save account key: %w", err)
	}
	return key, nil
}

const http01Prefix = "/.well-known/acme-challenge/"

// http01Handler serves key authorizations for pending challenges.
type http01Handler struct {
	mu        sync.Mutex
	responses map[string]string
}

func newHTTP01Handler() *http01Handler {
	return &http01Handler{responses: make(map[string]string)}
}

func (h *http01Handler) set(token, keyAuth string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.responses[token] = keyAuth
}

func (h *http01Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, http01Prefix) {
		http.NotFound(w, r)
		return
	}
	token := path.Base(r.URL.Path)

	h.mu.Lock()
	keyAuth, ok := h.responses[token]
	h.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	_, _ = io.WriteString(w, keyAuth)
}
