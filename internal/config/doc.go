// ABOUTME: Package documentation for configuration loading
// ABOUTME: Describes file formats, env expansion and defaults

// Package config handles configuration loading for the FPL chat gateway and
// its terminal client.
//
// # Configuration File
//
// Files ending in .toml are parsed as TOML; anything else is parsed as YAML.
// Both formats use the same snake_case keys.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	anthropic:
//	  api_key: "${ANTHROPIC_API_KEY}"
//
// Unset variables expand to the empty string. When anthropic.api_key is
// still empty after expansion, ANTHROPIC_API_KEY is read directly.
//
// # Durations
//
// fpl.cache_ttl, fpl.bootstrap_ttl and tools.timeout accept Go duration
// strings such as "30s" or "5m".
//
// # Defaults
//
// Default returns a fully populated Config. Load applies the same defaults
// to any field the file leaves unset, then validates the result.
package config
