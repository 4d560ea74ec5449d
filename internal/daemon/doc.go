// Package daemon runs the long-lived lapse service.
//
// A Daemon holds an flock-based single-instance lock in the log directory,
// then runs the queue processor and the HTTP API side by side under an
// errgroup. Either one failing stops the other; a processor fatal error is
// returned from Run so the process exits non-zero.
package daemon
