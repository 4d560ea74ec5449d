// Package events fans render lifecycle notifications out to listeners.
//
// The Hub implements Listener itself, so a workflow processor only ever
// talks to one target. Registered listeners (history, notifications, the
// logging listener) are called synchronously in registration order. Every
// event is also appended to a bounded, sequence-numbered buffer that HTTP
// and websocket clients read with Fetch.
package events
