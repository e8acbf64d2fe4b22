package privilege

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name    string
		op      Operation
		actor   Actor
		allowed bool
	}{
		{
			name:    "unprivileged operation always allowed",
			op:      ComponentDeploy("grafana", false),
			actor:   Actor{EUID: 1000},
			allowed: true,
		},
		{
			name:    "privileged operation allowed for root",
			op:      ClusterBootstrap,
			actor:   Actor{EUID: 0},
			allowed: true,
		},
		{
			name:    "privileged operation denied for non-root",
			op:      ClusterBootstrap,
			actor:   Actor{EUID: 1000},
			allowed: false,
		},
		{
			name:    "forced rootless denies even root",
			op:      SystemPackageInstall,
			actor:   Actor{EUID: 0, Rootless: true},
			allowed: false,
		},
		{
			name:    "unprivileged operation allowed in rootless mode",
			op:      ComponentDeploy("monitoring", false),
			actor:   Actor{EUID: 1000, Rootless: true},
			allowed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := Authorize(tt.op, tt.actor)
			assert.Equal(t, tt.allowed, decision.Allowed)
			if !tt.allowed {
				assert.NotEmpty(t, decision.Reason)
				assert.NotEmpty(t, decision.Remediation)
			}
		})
	}
}

func TestAuthorizeReasons(t *testing.T) {
	denied := Authorize(ClusterBootstrap, Actor{EUID: 1000})
	require.False(t, denied.Allowed)
	assert.Contains(t, denied.Reason, "effective uid is 1000")

	forced := Authorize(ClusterBootstrap, Actor{EUID: 0, Rootless: true})
	require.False(t, forced.Allowed)
	assert.Contains(t, forced.Reason, "rootless mode is forced")
}

func TestGateCheck(t *testing.T) {
	gate := NewGate(Actor{EUID: 1000})

	require.NoError(t, gate.Check(ComponentDeploy("gitea", false)))

	err := gate.Check(SystemPackageInstall)
	require.Error(t, err)

	var denied *DeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "system package install", denied.Operation)
	assert.Contains(t, denied.Remediation, "hearth doctor")
}

func TestDeniedErrorMessage(t *testing.T) {
	err := &DeniedError{
		Reason:      "cluster bootstrap requires elevated system access and the effective uid is 1000",
		Remediation: "re-run as root",
	}
	assert.Equal(t, "permission denied: cluster bootstrap requires elevated system access and the effective uid is 1000 (re-run as root)", err.Error())

	bare := &DeniedError{Reason: "rootless mode is forced"}
	assert.Equal(t, "permission denied: rootless mode is forced", bare.Error())
}

func TestCurrentActor(t *testing.T) {
	t.Run("uses process euid", func(t *testing.T) {
		t.Setenv(RootlessEnv, "")
		actor := CurrentActor(false)
		assert.Equal(t, os.Geteuid(), actor.EUID)
		assert.False(t, actor.Rootless)
	})

	t.Run("configuration enables rootless", func(t *testing.T) {
		t.Setenv(RootlessEnv, "")
		actor := CurrentActor(true)
		assert.True(t, actor.Rootless)
	})

	t.Run("environment overrides configuration", func(t *testing.T) {
		t.Setenv(RootlessEnv, "true")
		assert.True(t, CurrentActor(false).Rootless)

		t.Setenv(RootlessEnv, "false")
		assert.False(t, CurrentActor(true).Rootless)
	})

	t.Run("unparseable value keeps configuration", func(t *testing.T) {
		t.Setenv(RootlessEnv, "maybe")
		assert.True(t, CurrentActor(true).Rootless)
	})
}

func TestComponentDeployOperation(t *testing.T) {
	op := ComponentDeploy("node-tuning", true)
	assert.Equal(t, "deploy component node-tuning", op.Name)
	assert.True(t, op.Privileged)
	assert.Contains(t, op.Remediation, "components.node-tuning.enabled")
}
