// Package privilege gates operations that need elevated system access.
//
// The gate is consulted before a privileged operation starts. A denial is
// final for that operation: the caller aborts before mutating anything,
// so a denied operation never leaves partial state behind and never needs
// a rollback.
package privilege

import (
	"fmt"
	"os"
	"strconv"
)

// RootlessEnv forces rootless mode when set to a boolean true value,
// regardless of the effective uid. It lets sandboxed runs that happen to
// execute as root exercise the rootless path.
const RootlessEnv = "HEARTH_ROOTLESS"

// Operation is an action the gate can be asked about.
type Operation struct {
	Name        string
	Privileged  bool   // needs elevated system access
	Remediation string // how to proceed when denied
}

// Operations with fixed classifications.
var (
	// ClusterBootstrap provisions the cluster itself: node setup, the
	// container runtime, the kubelet.
	ClusterBootstrap = Operation{
		Name:        "cluster bootstrap",
		Privileged:  true,
		Remediation: "re-run as root, or point kubeconfig at an already-running cluster",
	}

	// SystemPackageInstall installs packages through the host package
	// manager.
	SystemPackageInstall = Operation{
		Name:        "system package install",
		Privileged:  true,
		Remediation: "re-run as root, or install the packages reported by hearth doctor manually",
	}
)

// ComponentDeploy classifies deploying one component. Command components
// marked privileged in configuration need elevation; helm and manifest
// components go through the Kubernetes API and never do.
func ComponentDeploy(name string, privileged bool) Operation {
	return Operation{
		Name:        fmt.Sprintf("deploy component %s", name),
		Privileged:  privileged,
		Remediation: fmt.Sprintf("re-run as root, or disable the component with components.%s.enabled: false", name),
	}
}

// Actor is the identity asking for an operation.
type Actor struct {
	EUID     int
	Rootless bool // rootless mode forced by configuration or environment
}

// CurrentActor inspects the running process. Rootless mode comes from
// configuration, overridden by HEARTH_ROOTLESS when it parses as a
// boolean.
func CurrentActor(rootless bool) Actor {
	actor := Actor{EUID: os.Geteuid(), Rootless: rootless}
	if val := os.Getenv(RootlessEnv); val != "" {
		if forced, err := strconv.ParseBool(val); err == nil {
			actor.Rootless = forced
		}
	}
	return actor
}

// Elevated reports whether the actor may perform privileged operations.
// Forced rootless mode wins over an effective uid of 0.
func (a Actor) Elevated() bool {
	return a.EUID == 0 && !a.Rootless
}

// Decision is the gate's verdict on one operation.
type Decision struct {
	Allowed     bool
	Reason      string
	Remediation string
}

// Authorize decides whether the actor may perform the operation.
func Authorize(op Operation, actor Actor) Decision {
	if !op.Privileged || actor.Elevated() {
		return Decision{Allowed: true}
	}
	reason := fmt.Sprintf("%s requires elevated system access and the effective uid is %d", op.Name, actor.EUID)
	if actor.Rootless && actor.EUID == 0 {
		reason = fmt.Sprintf("%s requires elevated system access and rootless mode is forced", op.Name)
	}
	return Decision{
		Allowed:     false,
		Reason:      reason,
		Remediation: op.Remediation,
	}
}

// Gate authorizes operations for a fixed actor.
type Gate struct {
	actor Actor
}

// NewGate returns a gate deciding for the given actor.
func NewGate(actor Actor) *Gate {
	return &Gate{actor: actor}
}

// Actor returns the identity the gate decides for.
func (g *Gate) Actor() Actor {
	return g.actor
}

// Authorize decides whether the gate's actor may perform the operation.
func (g *Gate) Authorize(op Operation) Decision {
	return Authorize(op, g.actor)
}

// Check authorizes the operation and converts a denial into a
// *DeniedError. Callers must return the error without attempting the
// operation.
func (g *Gate) Check(op Operation) error {
	decision := g.Authorize(op)
	if decision.Allowed {
		return nil
	}
	return &DeniedError{
		Operation:   op.Name,
		Reason:      decision.Reason,
		Remediation: decision.Remediation,
	}
}

// DeniedError reports a privileged operation the current actor may not
// perform.
type DeniedError struct {
	Operation   string
	Reason      string
	Remediation string
}

func (e *DeniedError) Error() string {
	if e.Remediation != "" {
		return fmt.Sprintf("permission denied: %s (%s)", e.Reason, e.Remediation)
	}
	return fmt.Sprintf("permission denied: %s", e.Reason)
}
