// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - FormatAdapter: Parses one source kind into normalised text
//   - AdapterRegistry: Selects the adapter for a source kind
//   - PostProcessorPipeline: Turns normalised text into chunks
//   - EmbeddingService: Generates vector embeddings
//   - CompletionService: Produces grounded chat completions
//   - VectorIndex: Stores and searches chunk vectors
//   - CollectionStore, DocumentStore, ConversationStore: Persistence
//   - EventLog: Durable bounded status event history
//   - BlobStore: Raw source bytes by reference
//
// # Optional Interfaces
//
//   - OCRService: Handwritten-note recognition. Without it, the notes
//     source kind is rejected at ingest time.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or format package
package driven
