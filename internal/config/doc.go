// Package config loads, validates, and normalizes briefcast configuration.
//
// Configuration comes from a TOML file (default ~/.config/briefcast/config.toml,
// falling back to ./briefcast.toml) with environment-variable overrides applied
// on top. Path fields are tilde-expanded and made absolute during load.
package config
