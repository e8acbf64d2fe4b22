package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCertificates(t *testing.T) {
	cmd := Certificates()

	require.NotNil(t, cmd)
	assert.Equal(t, "certificates", cmd.Use)
	assert.Equal(t, "Issue and inspect TLS certificates", cmd.Short)
}

func TestCertificates_HasSubcommands(t *testing.T) {
	cmd := Certificates()

	expectedSubcommands := []string{"deploy", "validate", "check-expiry"}

	subcommands := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subcommands[sub.Name()] = true
	}

	for _, expected := range expectedSubcommands {
		assert.True(t, subcommands[expected], "Expected subcommand %s not found", expected)
	}
}

func TestCertificatesDeploy_ConfigFlag(t *testing.T) {
	cmd := certificatesDeploy()

	flag := cmd.Flags().Lookup("config")
	require.NotNil(t, flag, "config flag should exist")
	assert.Equal(t, "c", flag.Shorthand)
}

func TestCertificatesDeploy_RunE(t *testing.T) {
	cmd := certificatesDeploy()
	assert.NotNil(t, cmd.RunE, "deploy command should have RunE function")
}

func TestCertificatesValidate_RunE(t *testing.T) {
	cmd := certificatesValidate()
	assert.NotNil(t, cmd.RunE, "validate command should have RunE function")
}

func TestCertificatesCheckExpiry_ThresholdFlag(t *testing.T) {
	cmd := certificatesCheckExpiry()

	flag := cmd.Flags().Lookup("threshold")
	require.NotNil(t, flag, "threshold flag should exist")
	assert.Equal(t, "0s", flag.DefValue)
}

func TestCertificatesCheckExpiry_RunE(t *testing.T) {
	cmd := certificatesCheckExpiry()
	assert.NotNil(t, cmd.RunE, "check-expiry command should have RunE function")
}
