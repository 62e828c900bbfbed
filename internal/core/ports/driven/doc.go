// Package driven provides interfaces for infrastructure adapters
// (secondary/outbound ports): the stage backend, text extraction,
// embeddings, completion, the vector index and the persistence stores.
package driven
