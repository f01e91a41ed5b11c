// Package logging wires log/slog for the syndication daemon: console and
// JSON handlers, standardized field names, and context-derived attributes so
// every record produced inside an execution carries its identity.
package logging
