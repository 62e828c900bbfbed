// Package driving provides interfaces consumed by presentation
// adapters (primary/inbound ports): the chat, indexing and catalog
// operations the engine exposes upward.
package driving
