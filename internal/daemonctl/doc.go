// Package daemonctl starts and stops a detached lapse daemon from the CLI by
// way of its HTTP API and pid file.
package daemonctl
