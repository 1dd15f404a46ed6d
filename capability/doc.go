// Package capability provides thin adapters to the external data and
// generation sources the pipeline depends on: the text-generation backend,
// the literature index, web search, the commercial-data source, and the
// document exporter.
//
// Every client exposes a single call-and-result contract with uniform
// timeout, retry, and rate-limit knobs and holds no pipeline state. Fake
// implementations live next to the tests that need them; the workflow and
// agent packages depend only on the interfaces defined here.
package capability
