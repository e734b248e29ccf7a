// Package services implements the driving port interfaces.
// Services contain the retrieval-augmented QA logic and orchestrate
// calls to driven ports (adapters).
//
// Services depend only on ports; the one exception is pipeline input
// discovery, which globs the input directory with doublestar.
package services
