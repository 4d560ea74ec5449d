// Package procrun launches external programs with captured output and a
// bounded run time.
//
// Render hook scripts and the encoder both go through Runner so tests can
// substitute a fake and so timeouts tear down the whole child process group.
package procrun
