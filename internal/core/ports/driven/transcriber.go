package driven

import "context"

// Transcriber converts user audio to text. It is an external collaborator;
// the core never inspects audio bytes itself.
type Transcriber interface {
	// ToText transcribes audio. An empty string with nil error means the
	// audio carried no recognisable speech.
	ToText(ctx context.Context, audio []byte) (string, error)

	// Close releases resources.
	Close() error
}
