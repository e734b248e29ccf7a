// Package domain defines the core entities of the GDPR question-answering
// pipeline.
//
// This package is the innermost layer of the hexagon. It has NO external
// dependencies and defines the fundamental types:
//
//   - StructuredDocument: extracted content items with page provenance
//   - Chunk: a bounded span of document text, the unit of retrieval
//   - ChunkMetadata: filename, page numbers and title derived from a chunk
//   - IndexRecord: a chunk's text, embedding vector and metadata
//   - SearchResult: a ranked hit returned by the retriever
//   - Message: one turn of a conversation
//
// It also owns the citation text format shared by the context assembler
// and the presentation layers.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
