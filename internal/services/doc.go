// Package services defines shared utilities consumed by the render pipeline,
// the queue processor, and the external integrations around them.
//
// Key responsibilities:
//   - Context helpers that stamp job identifiers, pipeline stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures raised by
//     external processes and configuration checks carry consistent context.
//
// Use these helpers when wiring new pipeline stages so operational behaviour
// (error handling, observability) stays uniform across the renderer.
package services
