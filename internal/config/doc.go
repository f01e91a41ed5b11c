// Package config loads and validates the TOML configuration for the
// syndication daemon. Components never read environment state directly;
// everything they need arrives through an injected Config.
package config
