// Package render turns a camera's captured snapshots into a timelapse video.
//
// A Descriptor is built once when a job is submitted; it snapshots the
// rendering profile, validates both templates and derives the output tokens.
// A Pipeline then runs the job through frame discovery, frame rate
// calculation, output naming, overlay text, pre/post roll padding, the ffmpeg
// encode and the optional move into the sync directory. Every transition is
// reported to an Observer, and every terminal failure is an *Error carrying a
// stable Kind.
package render
