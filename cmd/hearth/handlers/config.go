package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hearthlab/hearth/internal/config"
)

// Factory function variables for config - can be replaced in tests.
var (
	// fileExists checks if a file exists.
	fileExists = func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	}

	// runWizard runs the interactive configuration wizard.
	runWizard = config.RunWizard

	// saveConfig writes the configuration to a file.
	saveConfig = config.Save
)

// ConfigOptions carries the config validate and show commands' flags.
type ConfigOptions struct {
	ConfigDir   string
	Environment string
}

// ConfigInitOptions carries the config init command's flags.
type ConfigInitOptions struct {
	Path string
}

// ConfigValidate loads the layered configuration, resolves placeholders,
// and runs every validation rule. The loader collects all findings before
// reporting, so one invocation surfaces every problem at once.
func ConfigValidate(ctx context.Context, opts ConfigOptions) error {
	snapshot, _, err := loadSnapshot(opts.ConfigDir, opts.Environment)
	if err != nil {
		return err
	}

	fmt.Println("Configuration OK")
	fmt.Println()
	fmt.Println("Layers:")
	for _, layer := range snapshot.Layers() {
		fmt.Printf("  %s\n", layer)
	}
	fmt.Println()
	fmt.Printf("Fingerprint: %s\n", snapshot.Fingerprint())

	return nil
}

// ConfigShow prints the merged configuration as YAML. Placeholders are
// printed unresolved so secret values never reach the terminal or a shell
// history.
func ConfigShow(ctx context.Context, opts ConfigOptions) error {
	configDir := opts.ConfigDir
	if configDir == "" {
		path, err := findConfigFile()
		if err != nil {
			return &config.LoadError{
				Layer: "base",
				Err:   fmt.Errorf("%v; run 'hearth config init' to create one", err),
			}
		}
		configDir = filepath.Dir(path)
	}

	snapshot, err := loadConfig(configDir, opts.Environment)
	if err != nil {
		return err
	}

	data, err := snapshot.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	fmt.Print(string(data))
	return nil
}

// ConfigInit runs the configuration wizard and writes a starter
// hearth.yaml. Refuses to overwrite an existing file; move it aside or
// point --output somewhere else.
func ConfigInit(ctx context.Context, opts ConfigInitOptions) error {
	if fileExists(opts.Path) {
		return fmt.Errorf("%s already exists; move it aside or pass --output", opts.Path)
	}

	printWelcome()

	result, err := runWizard(ctx)
	if err != nil {
		return fmt.Errorf("wizard canceled: %w", err)
	}

	cfg := result.ToConfig()

	if err := saveConfig(cfg, opts.Path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	printInitSuccess(opts.Path, result)

	return nil
}

// printWelcome prints the welcome message.
func printWelcome() {
	fmt.Println()
	fmt.Println("hearth - Homelab Cluster Deployment")
	fmt.Println("===================================")
	fmt.Println()
	fmt.Println("This wizard creates a cluster configuration with sensible defaults.")
	fmt.Println("Secrets are referenced as ${VAR} placeholders and resolved from the")
	fmt.Println("environment at deploy time, so the file is safe to commit.")
	fmt.Println()
}

// printInitSuccess prints the success message with summary and next steps.
func printInitSuccess(outputPath string, result *config.WizardResult) {
	fmt.Println()
	fmt.Println("Configuration saved!")
	fmt.Println()
	fmt.Printf("  File: %s\n", outputPath)
	fmt.Println()

	fmt.Println("Cluster Summary")
	fmt.Println("---------------")
	fmt.Printf("  Name:        %s\n", result.ClusterName)
	fmt.Printf("  Environment: %s\n", result.Environment)
	if result.Domain != "" {
		fmt.Printf("  Domain:      %s\n", result.Domain)
	}
	fmt.Printf("  Issuer:      %s\n", result.Issuer)
	fmt.Printf("  Monitoring:  %t\n", result.Monitoring)
	fmt.Printf("  Storage:     %t\n", result.Storage)
	fmt.Printf("  Dev tools:   %t\n", result.DevTools)
	fmt.Println()

	fmt.Println("Next Steps")
	fmt.Println("----------")
	fmt.Printf("  1. Review %s and adjust components as needed\n", outputPath)
	fmt.Println()
	fmt.Println("  2. Check your setup:")
	fmt.Println("     hearth doctor")
	fmt.Println()
	fmt.Println("  3. Deploy:")
	fmt.Println("     hearth deploy infrastructure")
	fmt.Println()
}
