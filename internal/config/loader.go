package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFilename is the base configuration filename.
const DefaultConfigFilename = "hearth.yaml"

// PrivateOverlayFilename is the optional machine-local overlay, merged last.
const PrivateOverlayFilename = "hearth.private.yaml"

// EnvOverlayFilename returns the overlay filename for an environment.
func EnvOverlayFilename(environment string) string {
	return fmt.Sprintf("hearth.%s.yaml", environment)
}

// Load reads the layered configuration from dir for the given environment.
// The base layer is required; the environment and private overlays are
// merged on top when present.
func Load(dir, environment string) (*Snapshot, error) {
	basePath := filepath.Join(dir, DefaultConfigFilename)
	baseData, err := os.ReadFile(basePath)
	if err != nil {
		return nil, &LoadError{Layer: "base", Path: basePath, Err: err}
	}

	layers := []Layer{{Name: "base", Path: basePath, Data: baseData}}

	if environment != "" {
		envPath := filepath.Join(dir, EnvOverlayFilename(environment))
		if data, err := os.ReadFile(envPath); err == nil {
			layers = append(layers, Layer{Name: "env:" + environment, Path: envPath, Data: data})
		} else if !os.IsNotExist(err) {
			return nil, &LoadError{Layer: "env:" + environment, Path: envPath, Err: err}
		}
	}

	privatePath := filepath.Join(dir, PrivateOverlayFilename)
	if data, err := os.ReadFile(privatePath); err == nil {
		layers = append(layers, Layer{Name: "private", Path: privatePath, Data: data})
	} else if !os.IsNotExist(err) {
		return nil, &LoadError{Layer: "private", Path: privatePath, Err: err}
	}

	snapshot, err := LoadLayers(layers)
	if err != nil {
		return nil, err
	}
	if environment != "" {
		snapshot.cfg.Environment = environment
	}
	return snapshot, nil
}

// FindConfigFile searches for the base config file in the current directory,
// then walks up the directory tree.
func FindConfigFile() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	path := filepath.Join(cwd, DefaultConfigFilename)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	dir := cwd
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent

		path := filepath.Join(dir, DefaultConfigFilename)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("config file %s not found", DefaultConfigFilename)
}

// Save writes a configuration to a file with owner-only permissions, since
// overlays may carry secret references.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
