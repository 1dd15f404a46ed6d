// Package api exposes the job tracker over HTTP: submission, status
// polling, cancellation, and health probes. All responses share one JSON
// envelope with structured error codes.
package api
