// Package domain defines the core business entities for AquiLLM.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Collection: A named node in the tree used to scope documents
//   - Document: An ingested source with its processing state
//   - Chunk: A retrieval unit within a document
//   - Conversation: An ordered sequence of chat turns with citations
//   - StatusEvent: A progress event emitted during ingestion
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
