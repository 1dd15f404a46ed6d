// Package rag implements the retrieval tool: an embedding-indexed corpus
// of passages gathered during a job, with top-K cosine-similarity search.
//
// The index is owned by a single job and is append-only for that job's
// lifetime. Appends are safe under concurrent reads; a search observes
// every document indexed before the call returned.
package rag
