// Package logs reads the daemon log file for `lapse logs`: the last N lines,
// then optionally every line appended afterwards until the context ends.
package logs
