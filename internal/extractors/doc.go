// Package extractors provides implementations of the Extractor interface
// for the supported input formats. Each extractor converts one file type
// into a domain.StructuredDocument with page provenance per item.
//
// Extractors are registered with the Registry at startup; the first
// registered extractor that supports a path handles it.
package extractors
