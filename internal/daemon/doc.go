// Package daemon runs the long-lived process: it holds the single-instance
// lock, polls the intake bucket for completed deliveries, and pumps
// transcoder events into the callback bridge.
package daemon
