// Command lapse renders timelapse jobs from captured snapshot directories.
//
// It runs one-shot renders from job files, hosts the long-running daemon that
// accepts jobs over HTTP, and offers inspection helpers for status, history,
// dependencies and overlay previews.
package main
