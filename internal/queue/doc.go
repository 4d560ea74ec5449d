// Package queue holds submitted render jobs until the workflow processor
// takes them.
//
// The Queue is a FIFO of render descriptors with task accounting: Get hands
// out the oldest entry and TaskDone marks it finished, so Join can wait for
// every submitted job to complete. Producers (API handlers, the CLI) and the
// single consumer may call it concurrently. Contents are not persisted; a
// restart drops pending jobs and the render history records what finished.
package queue
