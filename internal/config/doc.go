// Package config loads, normalizes, and validates goldmap configuration.
//
// It supplies defaults for the strict and extended matching variants, expands
// user paths (including tilde shortcuts), reads TOML files, loads a .env file
// from the working directory, and applies GOLDMAP_* environment overrides.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, resolved variant thresholds, and clear validation errors.
package config
