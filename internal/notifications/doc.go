// Package notifications delivers render outcomes via ntfy.
//
// NewService publishes to the topic configured under [notifications] and
// degrades to a no-op when no topic is set or an event type is switched off.
// Listener adapts the service to the render lifecycle so the workflow never
// deals with HTTP glue: it announces each finished job and a batch summary
// when the queue drains.
package notifications
