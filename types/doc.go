// Package types defines the shared leaf types of the genagent pipeline:
// the error taxonomy, citation and report payloads, audit verdicts, and
// the agent execution contract.
//
// The types package is the lowest-level package with no internal
// dependencies, so placing the shared contracts here avoids circular
// imports between the agent, workflow, and tracker packages.
package types
