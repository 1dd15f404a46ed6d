// Package agent implements the pipeline's agent variants behind the
// types.Agent contract: the three retrieval agents (literature, web,
// commercial), the report agent, and the two auditors.
//
// Agents are independently testable units. Each one reports progress
// through its RunContext, honors context cancellation at its suspension
// points, and is idempotent under retry.
package agent
