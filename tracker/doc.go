// Package tracker owns job lifecycle outside the graph: submission,
// status polling, cancellation, and the per-gene report cache.
//
// Each submitted job runs on its own goroutine; the tracker keeps the
// authoritative job table and answers polls from runner snapshots. A
// fresh cached report short-circuits the pipeline entirely.
package tracker
