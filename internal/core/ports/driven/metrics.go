package driven

import "time"

// Metrics records operational counters.
type Metrics interface {
	DocumentExtracted(ok bool)
	ChunksProduced(n int)
	BatchIndexed(size int, took time.Duration)
	SearchServed(results int, took time.Duration)
	TurnCompleted(outcome string)
}

// Turn outcomes reported to Metrics.
const (
	TurnAnswered      = "answered"
	TurnGenerationErr = "generation_error"
	TurnRejected      = "rejected"
)
