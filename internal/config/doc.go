// Package config loads, normalizes, and validates lapse configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// LAPSE_FFMPEG_PATH. The Config type centralizes every knob the renderer,
// daemon, and CLI need: data and synchronization directories, the ffmpeg
// binary, the active rendering profile, and the camera roster.
//
// Render jobs never hold a pointer into a live Config. They take a deep copy
// of the rendering profile via Rendering.Clone so later edits cannot leak into
// an in-flight job.
package config
