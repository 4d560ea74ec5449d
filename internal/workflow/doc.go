// Package workflow drains the render queue one job at a time.
//
// The Processor blocks on the shared queue with a bounded wait, stamps each
// dequeued descriptor with its job number and the remaining queue depth, runs
// a render pipeline synchronously, and forwards every lifecycle callback to a
// single events.Listener. When the queue empties after a job it clears the
// processing flag and fires RenderEnd. A panic while running a job is not
// swallowed: Run marks the job done and returns a *FatalError so the daemon can
// exit.
package workflow
