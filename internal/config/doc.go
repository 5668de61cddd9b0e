// Package config handles configuration loading for boltd.
//
// # Overview
//
// Configuration is loaded from YAML or TOML files with environment variable
// expansion. The package provides validation and sensible defaults.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from BOLTD_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/boltd/config.yaml
//  3. ~/.config/boltd/config.yaml
//
// A missing file is not an error for LoadOrDefault; Default() is used.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	store:
//	  path: "${STATE_DIRECTORY}"
//
// Syntax: ${VAR_NAME}. Unset variables expand to the empty string.
//
// # Configuration Sections
//
// Store:
//
//	store:
//	  path: "/var/lib/boltd"   # required
//
// Entropy:
//
//	random:
//	  device: "/dev/urandom"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// The same file in TOML:
//
//	[store]
//	path = "/var/lib/boltd"
//
//	[logging]
//	level = "debug"
//
// # Usage
//
//	cfg, err := config.LoadOrDefault(config.DefaultPath())
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
