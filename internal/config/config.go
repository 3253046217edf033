package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/teemow/tickmcp/internal/logging"
	"github.com/teemow/tickmcp/internal/ticktick"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "TICKMCP"

const (
	// DefaultConfigFile is read when it exists and no other file is named.
	DefaultConfigFile = "~/.config/tickmcp/config.yaml"

	// DefaultRedirectURI must match the redirect URI of the registered
	// TickTick OAuth application.
	DefaultRedirectURI = "http://localhost:8000/callback"

	// DefaultAuthTimeout bounds how long the auth command waits for the
	// browser callback.
	DefaultAuthTimeout = 5 * time.Minute

	// DefaultMetricsAddr is where /metrics listens when enabled.
	DefaultMetricsAddr = "127.0.0.1:9090"
)

// Config holds the settings of the tickmcp binary. Values are resolved from
// defaults, then the YAML file, then TICKMCP_* environment variables; the
// command line overrides all of them.
type Config struct {
	// ConfigFile is the YAML file that was loaded, if any.
	ConfigFile string `envconfig:"CONFIG_FILE" yaml:"-"`

	ClientID     string `envconfig:"CLIENT_ID" yaml:"client_id"`
	ClientSecret string `envconfig:"CLIENT_SECRET" yaml:"client_secret"`
	RedirectURI  string `envconfig:"REDIRECT_URI" yaml:"redirect_uri"`

	// AccessToken takes precedence over the stored token.
	AccessToken string `envconfig:"ACCESS_TOKEN" yaml:"access_token"`
	TokenFile   string `envconfig:"TOKEN_FILE" yaml:"token_file"`

	BaseURL  string `envconfig:"BASE_URL" yaml:"base_url"`
	LogLevel string `envconfig:"LOG_LEVEL" yaml:"log_level"`

	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" yaml:"metrics_enabled"`
	MetricsAddr    string `envconfig:"METRICS_ADDR" yaml:"metrics_addr"`

	AuthTimeout time.Duration `envconfig:"AUTH_TIMEOUT" yaml:"auth_timeout"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		RedirectURI: DefaultRedirectURI,
		BaseURL:     ticktick.DefaultBaseURL,
		LogLevel:    "info",
		MetricsAddr: DefaultMetricsAddr,
		AuthTimeout: DefaultAuthTimeout,
	}
}

// Load resolves the configuration. An explicitly named file (path or
// TICKMCP_CONFIG_FILE) must exist; the default file is optional.
func Load(path string) (*Config, error) {
	// Only the file location is needed before reading the file
	var locator struct {
		ConfigFile string `envconfig:"CONFIG_FILE"`
	}
	if err := envconfig.Process(EnvPrefix, &locator); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	explicit := true
	if path == "" {
		path = locator.ConfigFile
	}
	if path == "" {
		path = DefaultConfigFile
		explicit = false
	}

	cfg := Default()

	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand config path %q: %w", path, err)
	}

	loaded := ""
	data, err := os.ReadFile(expanded)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %q: %w", expanded, err)
		}
		loaded = expanded
		slog.Debug("loaded configuration file", "path", expanded)
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// No default file, defaults and environment only
	default:
		return nil, fmt.Errorf("failed to read config file %q: %w", expanded, err)
	}

	// Environment overrides the file. No envconfig defaults are declared, so
	// unset variables leave file values alone.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	cfg.ConfigFile = loaded

	return cfg, nil
}

// Validate checks settings that every command relies on.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	if err := validateHTTPURL("base URL", c.BaseURL); err != nil {
		return err
	}

	if c.MetricsEnabled && c.MetricsAddr == "" {
		return fmt.Errorf("metrics address must be set when metrics are enabled")
	}

	return nil
}

// ValidateAuth checks the settings needed by the OAuth flow.
func (c *Config) ValidateAuth() error {
	if c.ClientID == "" {
		return fmt.Errorf("client ID is required (--client-id or %s_CLIENT_ID)", EnvPrefix)
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("client secret is required (--client-secret or %s_CLIENT_SECRET)", EnvPrefix)
	}
	if err := validateHTTPURL("redirect URI", c.RedirectURI); err != nil {
		return err
	}
	if c.AuthTimeout <= 0 {
		return fmt.Errorf("auth timeout must be positive, got %s", c.AuthTimeout)
	}
	return nil
}

func validateHTTPURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s must not be empty", name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid %s %q: scheme must be http or https", name, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid %s %q: missing host", name, raw)
	}
	return nil
}
