// Package config loads, normalizes, and validates talespin configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TALESPIN_TTS_COMMAND. The Config type centralizes every knob the CLI needs,
// from the library and staging directories to the external renderer command.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
