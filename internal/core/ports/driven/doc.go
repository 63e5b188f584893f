// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - ProductStore: persistence for ingested product indexes and feedback
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingProvider: generates vector embeddings. Without it, similarity
//     search degrades to zero-score ranking.
//   - GenerativeResponder: produces answers and image analyses. Without it,
//     queries return fixed low-confidence fallbacks.
//   - Transcriber: converts audio to text. Without it, audio turns are
//     rejected as unavailable.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
