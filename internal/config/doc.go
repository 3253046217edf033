// Package config loads tickmcp settings from a YAML file and TICKMCP_*
// environment variables.
//
// Precedence, lowest first: built-in defaults, the config file
// (~/.config/tickmcp/config.yaml unless another is named), environment
// variables, then command-line flags applied by the caller.
package config
