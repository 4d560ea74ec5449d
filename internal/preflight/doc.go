// Package preflight checks the filesystem locations a render depends on
// before any job runs: the data, log and timelapse directories, the sync
// target when synchronization is on, and the overlay font and watermark
// files the rendering profile names.
//
// The daemon logs failed checks at startup and `lapse deps` prints them
// beside the binary dependency report.
package preflight
