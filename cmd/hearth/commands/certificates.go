package commands

import (
	"github.com/spf13/cobra"

	"github.com/hearthlab/hearth/cmd/hearth/handlers"
)

// Certificates returns the parent command for certificate operations.
func Certificates() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "certificates",
		Short: "Issue and inspect TLS certificates",
	}

	cmd.AddCommand(certificatesDeploy())
	cmd.AddCommand(certificatesValidate())
	cmd.AddCommand(certificatesCheckExpiry())

	return cmd
}

// certificatesDeploy returns the command that issues the configured
// certificates and stores them as cluster secrets.
//
// Optional flags:
//
//	--config, -c: Directory containing hearth.yaml
//	--environment, -e: Environment overlay to merge
func certificatesDeploy() *cobra.Command {
	var opts handlers.CertificatesOptions

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Issue configured certificates and store them as secrets",
		Long: `Issue every certificate request in hearth.yaml and store the
resulting bundles as TLS secrets in the cluster.

Issuance tries the request's primary issuer first and falls back to the
configured fallback issuer when the primary keeps failing. Every attempt
is appended to the certificate audit log under the state directory.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.CertificatesDeploy(cmd.Context(), opts)
		},
	}

	bindCertificateFlags(cmd, &opts)

	return cmd
}

// certificatesValidate returns the command that probes the live TLS
// endpoints for each configured certificate request.
func certificatesValidate() *cobra.Command {
	var opts handlers.CertificatesOptions

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Probe live endpoints and verify the served certificates",
		Long: `Connect to the endpoint behind each configured certificate request
and verify the served chain: hostname coverage (including wildcards),
expiry, and chain integrity.

Validation inspects what the server actually serves, so it catches
certificates that were issued correctly but wired to the wrong service.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.CertificatesValidate(cmd.Context(), opts)
		},
	}

	bindCertificateFlags(cmd, &opts)

	return cmd
}

// certificatesCheckExpiry returns the command that reports certificates
// expiring within the renewal threshold.
//
// Optional flags:
//
//	--threshold: Report certificates expiring within this window (default: certificates.renewal_threshold)
func certificatesCheckExpiry() *cobra.Command {
	var opts handlers.CertificatesOptions

	cmd := &cobra.Command{
		Use:   "check-expiry",
		Short: "Report certificates expiring within the renewal window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.CertificatesCheckExpiry(cmd.Context(), opts)
		},
	}

	bindCertificateFlags(cmd, &opts)
	cmd.Flags().DurationVar(&opts.Threshold, "threshold", 0, "Report certificates expiring within this window (default: certificates.renewal_threshold)")

	return cmd
}

func bindCertificateFlags(cmd *cobra.Command, opts *handlers.CertificatesOptions) {
	cmd.Flags().StringVarP(&opts.ConfigDir, "config", "c", "", "Directory containing hearth.yaml (default: walk up from the current directory)")
	cmd.Flags().StringVarP(&opts.Environment, "environment", "e", "", "Environment overlay to merge")
}
