package config

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/hearthlab/hearth/internal/util/ptr"
)

// IssuerChoice is the wizard's certificate issuer selection.
type IssuerChoice string

// Wizard issuer choices.
const (
	ChoiceACMEProduction IssuerChoice = "acme-production"
	ChoiceACMEStaging    IssuerChoice = "acme-staging"
	ChoiceSelfSigned     IssuerChoice = "self-signed"
)

// ACME directory endpoints offered by the wizard.
const (
	LetsEncryptProductionURL = "https://acme-v02.api.letsencrypt.org/directory"
	LetsEncryptStagingURL    = "https://acme-staging-v02.api.letsencrypt.org/directory"
)

// WizardResult holds the user's choices from the configuration wizard.
type WizardResult struct {
	ClusterName string
	Environment string
	Domain      string
	Email       string
	Issuer      IssuerChoice
	AddressPool string
	Monitoring  bool
	Storage     bool
	DevTools    bool
}

// RunWizard runs the interactive configuration wizard.
func RunWizard(ctx context.Context) (*WizardResult, error) {
	result := &WizardResult{
		Environment: "dev",
		Issuer:      ChoiceSelfSigned,
		AddressPool: "192.168.1.240/28",
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Cluster name").
				Description("A unique name for your homelab cluster (DNS-safe, lowercase)").
				Placeholder("homelab").
				Value(&result.ClusterName).
				Validate(validateClusterName),
		),

		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Environment").
				Description("dev: relaxed policies | prod: strict policies, production issuers").
				Options(
					huh.NewOption("Development", "dev"),
					huh.NewOption("Production", "prod"),
				).
				Value(&result.Environment),
		),

		huh.NewGroup(
			huh.NewInput().
				Title("Cluster domain").
				Description("Services are exposed as <name>.<domain>").
				Placeholder("home.example.net").
				Value(&result.Domain).
				Validate(validateWizardDomain),

			huh.NewInput().
				Title("Load balancer address pool").
				Description("CIDR handed to the load balancer for service IPs").
				Value(&result.AddressPool).
				Validate(validateAddressPool),
		),

		huh.NewGroup(
			huh.NewSelect[IssuerChoice]().
				Title("Certificate issuer").
				Description("Primary TLS issuer; self-signed is always kept as fallback").
				Options(
					huh.NewOption("Let's Encrypt production", ChoiceACMEProduction),
					huh.NewOption("Let's Encrypt staging", ChoiceACMEStaging),
					huh.NewOption("Self-signed only", ChoiceSelfSigned),
				).
				Value(&result.Issuer),

			huh.NewInput().
				Title("Contact email").
				Description("Used for ACME registration. Leave empty for self-signed only.").
				Placeholder("admin@example.net").
				Value(&result.Email).
				Validate(validateWizardEmail),
		),

		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable monitoring stack?").
				Description("Prometheus operator and Grafana dashboards").
				Value(&result.Monitoring),

			huh.NewConfirm().
				Title("Enable persistent storage?").
				Description("Longhorn distributed block storage").
				Value(&result.Storage),

			huh.NewConfirm().
				Title("Enable dev tooling?").
				Description("Gitea and a container registry").
				Value(&result.DevTools),
		),
	)

	if err := form.RunWithContext(ctx); err != nil {
		return nil, fmt.Errorf("wizard canceled: %w", err)
	}

	return result, nil
}

// ToConfig converts the wizard result to a base configuration.
func (r *WizardResult) ToConfig() *Config {
	cfg := &Config{
		Cluster: ClusterConfig{Name: r.ClusterName},
		Network: NetworkConfig{
			Domain:      r.Domain,
			AddressPool: r.AddressPool,
		},
		Namespaces: map[string]string{
			"infra":      "hearth-system",
			"identity":   "identity",
			"monitoring": "monitoring",
			"storage":    "storage",
			"dev":        "dev-tools",
		},
		Security: SecurityConfig{PodSecurity: "baseline"},
		Certificates: CertificatesConfig{
			Email:   r.Email,
			Issuers: map[string]IssuerConfig{"self_signed": {Kind: IssuerSelfSigned}},
		},
		Components: map[string]ComponentConfig{
			"monitoring": {Enabled: ptr.Bool(r.Monitoring)},
			"longhorn":   {Enabled: ptr.Bool(r.Storage)},
			"gitea":      {Enabled: ptr.Bool(r.DevTools)},
			"registry":   {Enabled: ptr.Bool(r.DevTools)},
		},
	}

	switch r.Issuer {
	case ChoiceACMEProduction:
		cfg.Certificates.Issuers["acme_production"] = IssuerConfig{
			Kind:         IssuerACMEProduction,
			DirectoryURL: LetsEncryptProductionURL,
		}
	case ChoiceACMEStaging:
		cfg.Certificates.Issuers["acme_staging"] = IssuerConfig{
			Kind:         IssuerACMEStaging,
			DirectoryURL: LetsEncryptStagingURL,
		}
	}

	if r.Issuer != ChoiceSelfSigned {
		cfg.Certificates.Requests = []CertificateRequestConfig{{
			Domains:  []string{"*." + r.Domain},
			Issuer:   issuerKeyForChoice(r.Issuer),
			Fallback: "self_signed",
			Secret:   "wildcard-tls",
		}}
	}

	return cfg
}

func issuerKeyForChoice(choice IssuerChoice) string {
	if choice == ChoiceACMEProduction {
		return "acme_production"
	}
	return "acme_staging"
}

// validateClusterName validates the cluster name.
func validateClusterName(s string) error {
	if s == "" {
		return fmt.Errorf("cluster name is required")
	}
	s = strings.ToLower(s)
	if len(s) > 63 {
		return fmt.Errorf("cluster name must be 63 characters or less")
	}
	for _, c := range s {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' {
			return fmt.Errorf("cluster name can only contain lowercase letters, numbers, and hyphens")
		}
	}
	if s[0] == '-' || s[len(s)-1] == '-' {
		return fmt.Errorf("cluster name cannot start or end with a hyphen")
	}
	return nil
}

// validateWizardDomain validates the cluster domain.
func validateWizardDomain(s string) error {
	if s == "" {
		return fmt.Errorf("domain is required")
	}
	parts := strings.Split(s, ".")
	if len(parts) < 2 {
		return fmt.Errorf("invalid domain format (expected example.com)")
	}
	return nil
}

// validateAddressPool validates the load balancer CIDR.
func validateAddressPool(s string) error {
	if s == "" {
		return fmt.Errorf("address pool is required")
	}
	if _, _, err := net.ParseCIDR(s); err != nil {
		return fmt.Errorf("invalid CIDR (expected something like 192.168.1.240/28)")
	}
	return nil
}

// validateWizardEmail validates the optional contact email.
func validateWizardEmail(s string) error {
	if s == "" {
		return nil
	}
	if !strings.Contains(s, "@") {
		return fmt.Errorf("invalid email address")
	}
	return nil
}
