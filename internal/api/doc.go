// Package api exposes the lapse daemon over HTTP.
//
// NewRouter mounts the chi routes served by the daemon:
//
//	GET  /api/status   processor state, pending jobs, dependency checks
//	POST /api/jobs     build a descriptor from print metadata and enqueue it
//	GET  /api/history  most recent render outcomes, newest first
//	GET  /api/events   lifecycle events; a websocket upgrade streams them live,
//	                   a plain GET returns the buffered events after ?since=
//
// Client is the matching consumer used by the CLI. Wire types use snake_case
// JSON tags like the event payloads they carry, and timestamps are RFC3339.
package api
