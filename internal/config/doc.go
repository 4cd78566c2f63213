// Package config loads, normalizes, and validates tacreview configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TACREVIEW_API_KEY and OPENROUTER_API_KEY. A Config value is built once by the
// CLI and passed explicitly into every component; nothing reads settings from
// package-level state.
package config
