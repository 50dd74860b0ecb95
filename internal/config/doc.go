// Package config loads the service's runtime configuration from multiple
// sources (YAML files, environment variables, CLI flags) with precedence:
// CLI flags > Environment variables > YAML config > Defaults. It is distinct
// from the host configuration that settings are resolved from.
package config
