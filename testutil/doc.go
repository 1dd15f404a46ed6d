// Package testutil provides shared fake capability implementations for the
// pipeline's tests: scripted generators, canned search results, and
// error-injecting sources. All fakes are safe for concurrent use and count
// their calls so tests can assert on idempotence and retry behavior.
package testutil
