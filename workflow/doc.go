// Package workflow implements the pipeline's task graph and its
// state-machine runner.
//
// A Graph declares the stages of one job and their dependencies; the
// Runner executes it: ready stages are dispatched concurrently, failed
// stages retry with backoff up to their attempt cap, auditor verdicts
// route back into bounded report-revision rounds, and every job reaches a
// terminal state within the global timeout.
//
// Stage records are mutated only by the owning runner. External pollers
// read consistent snapshots and never the live structures.
package workflow
