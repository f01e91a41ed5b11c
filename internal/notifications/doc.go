// Package notifications pushes workflow lifecycle events to an ntfy topic.
// When no topic is configured the service degrades to a noop so callers
// never have to branch on whether notifications are enabled.
package notifications
