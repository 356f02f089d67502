// Package config loads, normalizes, and validates ytdesk configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, merges an optional .env file, and honours
// YTDESK_* environment overrides. The Config type centralizes every knob the
// host, the backend supervisor, and the CLI need, so interpreter resolution,
// restart policy, and the window content source are decided in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
