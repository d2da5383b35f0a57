// api/cli/root.go

// Package cli implements the consentgate command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dev-mohitbeniwal/consentgate/api/config"
	logger "github.com/dev-mohitbeniwal/consentgate/api/logging"
)

var (
	// Version is set at build time
	Version = "0.1.0"

	configFile   string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "consentgate",
	Short: "Consent-aware access decisions for patient data",
	Long: `consentgate decides whether a requester may view, edit, export or share
categories of a patient's data, combining role and permission checks with
the patient's recorded consent. Every decision is audited.`,
	Version:      Version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default: config/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json, yaml")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads configuration into the process-wide instance that the
// db package reads from, and starts file logging.
func loadConfig() (*config.Configuration, error) {
	if err := config.InitConfig(configFile); err != nil {
		return nil, fmt.Errorf("failed to initialize config: %w", err)
	}
	cfg := config.GetConfig()
	logger.InitLogger(cfg.Log.Dir)
	return cfg, nil
}

func writeStructured(w io.Writer, data interface{}) error {
	switch outputFormat {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(data)
	case "yaml":
		out, err := yaml.Marshal(data)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	default:
		return fmt.Errorf("unsupported output format %q", outputFormat)
	}
}
