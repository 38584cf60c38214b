// Package config handles configuration loading for lattice-mcp.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable
// expansion. The package provides validation with clear error messages.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from LATTICE_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/lattice/config.yaml
//  3. ~/.config/lattice/config.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  enabled: true
//	  strategy: bearer_token
//	  token: ${LATTICE_AUTH_TOKEN}
//
// Unset variables expand to empty strings, which validation then rejects
// for required fields.
package config
