// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Tokenizer: Counts tokens for the chunk budget
//   - Extractor: Converts PDFs and docling JSON into structured documents
//   - PostProcessor: Turns structured documents into chunks
//   - ChunkCache: Persists chunks between pipeline runs
//   - VectorStore: Vector table build, swap and similarity search
//   - IndexLock: Exclusive access for index builds
//   - EmbeddingService: Generates vector embeddings
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Answer generation. Without it, only search is available.
//   - LexicalScorer: Auxiliary score for reranking. Without it, results keep vector order.
//   - Metrics: Operational counters. Without it, nothing is recorded.
//   - PromptStore: Editable prompts. Without it, embedded defaults are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, extractor, or postprocessor package
package driven
