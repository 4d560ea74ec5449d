// Package daemonrun assembles the lapse runtime.
//
// Assemble builds the queue, event hub, listeners and processor shared by the
// long-running daemon (Run) and one-shot batch renders (RenderBatch).
package daemonrun
