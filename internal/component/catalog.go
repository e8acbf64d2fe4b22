package component

import "github.com/hearthlab/hearth/internal/config"

// Catalog component names. Configuration entries under components: use
// these keys to override catalog defaults.
const (
	NameMetalLB      = "metallb"
	NameCertManager  = "cert_manager"
	NameIngressNginx = "ingress_nginx"
	NameKeycloak     = "keycloak"
	NameMonitoring   = "monitoring"
	NameLonghorn     = "longhorn"
	NameGitea        = "gitea"
	NameRegistry     = "registry"
)

// Chart repositories for the built-in components.
const (
	metalLBRepo      = "https://metallb.github.io/metallb"
	jetstackRepo     = "https://charts.jetstack.io"
	ingressNginxRepo = "https://kubernetes.github.io/ingress-nginx"
	bitnamiRepo      = "https://charts.bitnami.com/bitnami"
	prometheusRepo   = "https://prometheus-community.github.io/helm-charts"
	longhornRepo     = "https://charts.longhorn.io"
	giteaRepo        = "https://dl.gitea.com/charts/"
	twuniRepo        = "https://helm.twun.io"
)

// Catalog returns the built-in components in deployment declaration order.
// Each call returns a fresh copy so callers can overlay configuration
// without touching shared state.
func Catalog() []Spec {
	return []Spec{
		{
			Name:      NameMetalLB,
			Namespace: "metallb-system",
			Enabled:   true,
			Tool: Tool{Helm: &HelmRelease{
				RepoURL: metalLBRepo,
				Chart:   "metallb",
				Release: "metallb",
				Values:  metalLBValues(),
			}},
			Probe: rolloutProbe("metallb-controller"),
		},
		{
			Name:      NameCertManager,
			Namespace: "cert-manager",
			Enabled:   true,
			Tool: Tool{Helm: &HelmRelease{
				RepoURL: jetstackRepo,
				Chart:   "cert-manager",
				Release: "cert-manager",
				Values:  certManagerValues(),
			}},
			// The webhook gates all certificate objects; the controller
			// being up is not enough.
			Probe: rolloutProbe("cert-manager-webhook"),
		},
		{
			Name:         NameIngressNginx,
			Dependencies: []string{NameMetalLB},
			Namespace:    "ingress-nginx",
			Enabled:      true,
			Tool: Tool{Helm: &HelmRelease{
				RepoURL: ingressNginxRepo,
				Chart:   "ingress-nginx",
				Release: "ingress-nginx",
				Values:  ingressNginxValues(),
			}},
			Probe: rolloutProbe("ingress-nginx-controller"),
		},
		{
			Name:         NameKeycloak,
			Dependencies: []string{NameMetalLB, NameCertManager, NameIngressNginx},
			Namespace:    "identity",
			Enabled:      true,
			Tool: Tool{Helm: &HelmRelease{
				RepoURL: bitnamiRepo,
				Chart:   "keycloak",
				Release: "keycloak",
				Values:  keycloakValues(),
			}},
			Probe: rolloutProbe("keycloak"),
		},
		{
			Name:         NameMonitoring,
			Dependencies: []string{NameIngressNginx},
			Namespace:    "monitoring",
			Tool: Tool{Helm: &HelmRelease{
				RepoURL: prometheusRepo,
				Chart:   "kube-prometheus-stack",
				Release: "monitoring",
				Values:  monitoringValues(),
			}},
			Probe: rolloutProbe("monitoring-grafana"),
		},
		{
			Name:      NameLonghorn,
			Namespace: "longhorn-system",
			Tool: Tool{Helm: &HelmRelease{
				RepoURL: longhornRepo,
				Chart:   "longhorn",
				Release: "longhorn",
				Values:  longhornValues(),
			}},
			Probe: rolloutProbe("longhorn-driver-deployer"),
		},
		{
			Name:         NameGitea,
			Dependencies: []string{NameIngressNginx},
			Namespace:    "dev-tools",
			Tool: Tool{Helm: &HelmRelease{
				RepoURL: giteaRepo,
				Chart:   "gitea",
				Release: "gitea",
				Values:  giteaValues(),
			}},
			Probe: rolloutProbe("gitea"),
		},
		{
			Name:         NameRegistry,
			Dependencies: []string{NameIngressNginx},
			Namespace:    "dev-tools",
			Tool: Tool{Helm: &HelmRelease{
				RepoURL: twuniRepo,
				Chart:   "docker-registry",
				Release: "registry",
				Values:  registryValues(),
			}},
			Probe: rolloutProbe("registry-docker-registry"),
		},
	}
}

func rolloutProbe(workload string) Probe {
	return Probe{
		Type:     ProbeRollout,
		Target:   workload,
		Timeout:  config.DefaultProbeTimeout,
		Interval: config.DefaultProbeInterval,
	}
}

func metalLBValues() map[string]any {
	// Plain L2 announcement setup; FRR adds nothing on a flat home network.
	return map[string]any{
		"speaker": map[string]any{
			"frr": map[string]any{
				"enabled": false,
			},
		},
	}
}

func certManagerValues() map[string]any {
	return map[string]any{
		"crds": map[string]any{
			"enabled": true,
		},
	}
}

func ingressNginxValues() map[string]any {
	// Admission webhooks are disabled: their certgen jobs are helm hooks
	// that do not run under plain manifest application, and the controller
	// validates nothing critical for a single-tenant cluster.
	return map[string]any{
		"controller": map[string]any{
			"service": map[string]any{
				"type": "LoadBalancer",
			},
			"admissionWebhooks": map[string]any{
				"enabled": false,
			},
			"watchIngressWithoutClass": true,
		},
	}
}

func keycloakValues() map[string]any {
	return map[string]any{
		"production": false,
		"proxy":      "edge",
		"ingress": map[string]any{
			"enabled":          true,
			"ingressClassName": "nginx",
		},
	}
}

func monitoringValues() map[string]any {
	return map[string]any{
		"grafana": map[string]any{
			"defaultDashboardsEnabled": true,
		},
		"prometheus": map[string]any{
			"prometheusSpec": map[string]any{
				"retention": "7d",
			},
		},
	}
}

func longhornValues() map[string]any {
	return map[string]any{
		"persistence": map[string]any{
			"defaultClass": true,
		},
		"preUpgradeChecker": map[string]any{
			"upgradeVersionCheck": false,
		},
		"defaultSettings": map[string]any{
			"allowCollectingLonghornUsageMetrics": false,
			"upgradeChecker":                      false,
		},
	}
}

func giteaValues() map[string]any {
	return map[string]any{
		"ingress": map[string]any{
			"enabled":   true,
			"className": "nginx",
		},
	}
}

func registryValues() map[string]any {
	return map[string]any{
		"persistence": map[string]any{
			"enabled": true,
		},
	}
}
