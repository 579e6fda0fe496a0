// Package config loads syncd configuration from a YAML file with
// ${VAR} environment expansion, applies defaults, and validates.
package config
