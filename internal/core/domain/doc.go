// Package domain defines the core business entities for Manualkit.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Chunk: A bounded unit of manual content (text or image) with metadata
//   - ProductIndex: The in-memory vector index for one product's chunks
//   - Session: A stateful guided-installation interaction
//   - AnswerResult / DetectionResult: Typed replies returned to callers
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
