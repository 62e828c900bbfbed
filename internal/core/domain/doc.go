// Package domain contains the core business entities for stagechat.
// These types have no dependencies on infrastructure and represent
// the vocabulary of the retrieval-augmented chat engine: stage objects,
// documents, passages, sessions and answers.
package domain
