package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/tickmcp/internal/config"
)

// loadConfig resolves the configuration for cmd. Flags the user set
// explicitly override the file and the environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	stringFlags := map[string]*string{
		"log-level":     &cfg.LogLevel,
		"access-token":  &cfg.AccessToken,
		"base-url":      &cfg.BaseURL,
		"token-file":    &cfg.TokenFile,
		"metrics-addr":  &cfg.MetricsAddr,
		"client-id":     &cfg.ClientID,
		"client-secret": &cfg.ClientSecret,
		"redirect-uri":  &cfg.RedirectURI,
	}
	for name, dst := range stringFlags {
		if flags.Lookup(name) == nil || !flags.Changed(name) {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read --%s: %w", name, err)
		}
		*dst = v
	}

	if flags.Lookup("metrics") != nil && flags.Changed("metrics") {
		cfg.MetricsEnabled, _ = flags.GetBool("metrics")
	}
	if flags.Lookup("timeout") != nil && flags.Changed("timeout") {
		cfg.AuthTimeout, _ = flags.GetDuration("timeout")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
