// Package asset defines the data model shared across the syndication
// pipeline: assets and their manifest, per-task processing results, and
// per-partner terminal results.
package asset
