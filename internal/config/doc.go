// Package config loads, normalizes, and validates EquipQR sync configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// EQUIPQR_ACCESS_TOKEN and EQUIPQR_API_KEY. The Config type centralizes every
// knob the daemon and CLI need: the session scope (organization and user),
// backend connection settings, queue retry policy, connectivity probing, and
// logging.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
