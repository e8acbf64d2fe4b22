package handlers

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/hearthlab/hearth/internal/certs"
	"github.com/hearthlab/hearth/internal/config"
	"github.com/hearthlab/hearth/internal/runlog"
)

// Factory function variables for certificates - can be replaced in tests.
var (
	// newCertManager creates the certificate manager.
	newCertManager = certs.NewManager

	// openCertificateAudit opens the certificate audit log.
	openCertificateAudit = runlog.OpenCertificateAudit

	// fetchServedLeaf retrieves the leaf certificate served at an address.
	fetchServedLeaf = func(ctx context.Context, serverName, address string) (*x509.Certificate, error) {
		dialer := &tls.Dialer{
			NetDialer: &net.Dialer{Timeout: 10 * time.Second},
			Config: &tls.Config{
				ServerName:         serverName,
				InsecureSkipVerify: true, // #nosec G402 -- expiry is read from the chain, not trusted
			},
		}
		conn, err := dialer.DialContext(ctx, "tcp", address)
		if err != nil {
			return nil, err
		}
		defer conn.Close() //nolint:errcheck
		tlsConn, ok := conn.(*tls.Conn)
		if !ok {
			return nil, fmt.Errorf("connection to %s did not negotiate TLS", address)
		}
		peers := tlsConn.ConnectionState().PeerCertificates
		if len(peers) == 0 {
			return nil, fmt.Errorf("%s presented no certificate", address)
		}
		return peers[0], nil
	}
)

// CertificatesOptions carries the certificate commands' flags.
type CertificatesOptions struct {
	ConfigDir   string
	Environment string
	Threshold   time.Duration
}

// CertificatesDeploy issues every configured certificate request and
// stores the resulting bundles as TLS secrets in the cluster.
//
// Issuance tries the request's primary issuer first and falls back to the
// configured fallback issuer when the primary keeps failing. Every attempt
// lands in the certificate audit log under the state directory. One
// request failing does not stop the others; the handler reports the tally
// and returns an error when any request failed.
func CertificatesDeploy(ctx context.Context, opts CertificatesOptions) error {
	snapshot, configDir, err := loadSnapshot(opts.ConfigDir, opts.Environment)
	if err != nil {
		return err
	}
	cfg := snapshot.Config()

	if len(cfg.Certificates.Requests) == 0 {
		fmt.Println("No certificate requests configured.")
		return nil
	}

	cluster, err := newCluster(cfg.Cluster.Kubeconfig, cfg.Cluster.Context)
	if err != nil {
		return fmt.Errorf("failed to connect to cluster: %w", err)
	}

	sd := stateDir(cfg, configDir)
	audit, err := openCertificateAudit(sd)
	if err != nil {
		return fmt.Errorf("failed to open certificate audit log: %w", err)
	}

	manager, err := newCertManager(cfg.Certificates, sd,
		certs.WithStore(cluster),
		certs.WithAuditSink(func(record certs.AuditRecord) {
			if err := audit.Append(record); err != nil {
				log.Printf("Failed to record certificate audit entry: %v", err)
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize certificate manager: %w", err)
	}

	fmt.Println()
	printHeader("Certificates")

	failed := 0
	for _, rc := range cfg.Certificates.Requests {
		name := strings.Join(rc.Domains, ", ")
		req, err := manager.Deploy(ctx, rc)
		if err != nil {
			failed++
			printRow(name, false, err.Error())
			continue
		}
		printRow(name, true, fmt.Sprintf("expires %s", req.Expiry.Format("2006-01-02")))
	}

	fmt.Println()
	fmt.Printf("Audit log: %s\n", audit.Path())

	if failed > 0 {
		return fmt.Errorf("%d of %d certificate requests failed", failed, len(cfg.Certificates.Requests))
	}
	return nil
}

// CertificatesValidate probes the endpoint behind each configured request
// and verifies the served chain: reachability, hostname coverage including
// wildcards, and the validity window.
//
// Validation inspects what the server actually serves, so it catches
// certificates that were issued correctly but wired to the wrong service.
func CertificatesValidate(ctx context.Context, opts CertificatesOptions) error {
	snapshot, configDir, err := loadSnapshot(opts.ConfigDir, opts.Environment)
	if err != nil {
		return err
	}
	cfg := snapshot.Config()

	if len(cfg.Certificates.Requests) == 0 {
		fmt.Println("No certificate requests configured.")
		return nil
	}

	manager, err := newCertManager(cfg.Certificates, stateDir(cfg, configDir))
	if err != nil {
		return fmt.Errorf("failed to initialize certificate manager: %w", err)
	}

	failed := 0
	for _, rc := range cfg.Certificates.Requests {
		if len(rc.Domains) == 0 {
			continue
		}

		fmt.Println()
		printHeader(strings.Join(rc.Domains, ", "))

		report, _ := manager.Validate(ctx, &certs.Request{Domains: rc.Domains})
		for _, check := range report.Checks {
			printRow(check.Name, check.Pass, check.Message)
		}
		if !report.Passed() {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("certificate validation failed for %d of %d requests", failed, len(cfg.Certificates.Requests))
	}

	fmt.Println()
	fmt.Println("All certificates valid.")
	return nil
}

// CertificatesCheckExpiry reports, for each configured request, when the
// certificate actually served at its endpoint expires, and flags the ones
// inside the renewal window.
//
// Expiry is read from the live endpoint rather than local state, so the
// verdict reflects what clients see even when the secret was rotated by
// something else. Returns an error when any certificate is unreachable or
// inside the window, so cron wrappers get a non-zero exit to alert on.
func CertificatesCheckExpiry(ctx context.Context, opts CertificatesOptions) error {
	snapshot, _, err := loadSnapshot(opts.ConfigDir, opts.Environment)
	if err != nil {
		return err
	}
	cfg := snapshot.Config()

	if len(cfg.Certificates.Requests) == 0 {
		fmt.Println("No certificate requests configured.")
		return nil
	}

	threshold := renewalThreshold(opts, cfg)

	fmt.Println()
	printHeader(fmt.Sprintf("Certificate Expiry (threshold %s)", threshold))

	atRisk := 0
	for _, rc := range cfg.Certificates.Requests {
		if len(rc.Domains) == 0 {
			continue
		}
		name := strings.Join(rc.Domains, ", ")

		host := strings.TrimPrefix(rc.Domains[0], "*.")
		leaf, err := fetchServedLeaf(ctx, host, net.JoinHostPort(host, "443"))
		if err != nil {
			atRisk++
			printRow(name, false, fmt.Sprintf("unreachable: %v", err))
			continue
		}

		remaining := time.Until(leaf.NotAfter)
		expiring := remaining <= threshold
		if expiring {
			atRisk++
		}
		printRow(name, !expiring, fmt.Sprintf("expires %s (%s left)",
			leaf.NotAfter.Format("2006-01-02"), formatRemaining(remaining)))
	}

	fmt.Println()
	if atRisk > 0 {
		return fmt.Errorf("%d of %d certificates need renewal", atRisk, len(cfg.Certificates.Requests))
	}
	fmt.Println("No certificates within the renewal window.")
	return nil
}

// renewalThreshold resolves the expiry window: the flag wins, then the
// configuration, then the built-in default.
func renewalThreshold(opts CertificatesOptions, cfg *config.Config) time.Duration {
	if opts.Threshold > 0 {
		return opts.Threshold
	}
	if cfg.Certificates.RenewalThreshold > 0 {
		return cfg.Certificates.RenewalThreshold.Std()
	}
	return config.DefaultRenewalThreshold
}

// formatRemaining renders a remaining lifetime in days, or hours when
// under a day. Negative values read as "expired".
func formatRemaining(remaining time.Duration) string {
	switch {
	case remaining <= 0:
		return "expired"
	case remaining < 24*time.Hour:
		return fmt.Sprintf("%dh", int(remaining.Hours()))
	default:
		return fmt.Sprintf("%dd", int(remaining.Hours()/24))
	}
}
