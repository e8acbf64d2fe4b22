package handlers

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthlab/hearth/internal/config"
)

func TestConfigValidate_OK(t *testing.T) {
	dir := writeTestConfig(t, minimalConfigYAML)

	err := ConfigValidate(context.Background(), ConfigOptions{ConfigDir: dir})
	require.NoError(t, err)
}

func TestConfigValidate_ReportsFindings(t *testing.T) {
	dir := writeTestConfig(t, `
network:
  domain: lab.example.net
  address_pool: 192.168.1.240/28
namespaces:
  infra: hearth-system
certificates:
  issuers:
    self_signed:
      kind: self-signed
`)

	err := ConfigValidate(context.Background(), ConfigOptions{ConfigDir: dir})
	require.Error(t, err)

	var validationErr *config.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Contains(t, err.Error(), "cluster.name")
}

func TestConfigShow_KeepsPlaceholdersUnresolved(t *testing.T) {
	saveAndRestoreFactories(t)

	dir := writeTestConfig(t, minimalConfigYAML+`
state:
  backup:
    endpoint: https://s3.example.net
    bucket: hearth
    access_key: ${HEARTH_TEST_MISSING_ACCESS_KEY}
    secret_key: ${HEARTH_TEST_MISSING_SECRET_KEY}
`)

	// An empty environment would make placeholder resolution fail, so a
	// clean show proves the handler never resolves them.
	envTable = func() map[string]string { return map[string]string{} }

	err := ConfigShow(context.Background(), ConfigOptions{ConfigDir: dir})
	require.NoError(t, err)
}

func TestConfigShow_NoConfigFound(t *testing.T) {
	saveAndRestoreFactories(t)

	findConfigFile = func() (string, error) {
		return "", errors.New("config file hearth.yaml not found")
	}

	err := ConfigShow(context.Background(), ConfigOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hearth config init")
}

func TestConfigInit_RefusesExistingFile(t *testing.T) {
	saveAndRestoreFactories(t)

	fileExists = func(_ string) bool { return true }

	err := ConfigInit(context.Background(), ConfigInitOptions{Path: "hearth.yaml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestConfigInit_WritesWizardResult(t *testing.T) {
	saveAndRestoreFactories(t)

	outPath := filepath.Join(t.TempDir(), "hearth.yaml")

	runWizard = func(_ context.Context) (*config.WizardResult, error) {
		return &config.WizardResult{
			ClusterName: "homelab",
			Environment: "dev",
			Domain:      "lab.example.net",
			Email:       "admin@lab.example.net",
			Issuer:      config.ChoiceSelfSigned,
			AddressPool: "192.168.1.240/28",
			Monitoring:  true,
		}, nil
	}

	var savedPath string
	var savedCfg *config.Config
	saveConfig = func(cfg *config.Config, path string) error {
		savedCfg = cfg
		savedPath = path
		return nil
	}

	err := ConfigInit(context.Background(), ConfigInitOptions{Path: outPath})
	require.NoError(t, err)

	assert.Equal(t, outPath, savedPath)
	require.NotNil(t, savedCfg)
	assert.Equal(t, "homelab", savedCfg.Cluster.Name)
	assert.Equal(t, "lab.example.net", savedCfg.Network.Domain)
}

func TestConfigInit_WizardCanceled(t *testing.T) {
	saveAndRestoreFactories(t)

	fileExists = func(_ string) bool { return false }
	runWizard = func(_ context.Context) (*config.WizardResult, error) {
		return nil, errors.New("user aborted")
	}

	err := ConfigInit(context.Background(), ConfigInitOptions{Path: "hearth.yaml"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wizard canceled")
}
