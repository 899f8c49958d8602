// Package config loads, normalizes, and validates trawl configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and derives every on-disk location the crawler
// touches: catalog snapshot, cursor file, asset root, run journal, and lock
// file all hang off the configured data directory.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, validated enumeration ranges, and
// clear validation errors.
package config
