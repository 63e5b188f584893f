package domain

import (
	"fmt"
	"time"
)

// SessionStatus is the lifecycle state of a guided-installation session.
type SessionStatus string

const (
	// SessionActive accepts frame, audio and end operations.
	SessionActive SessionStatus = "active"
	// SessionEnded is terminal.
	SessionEnded SessionStatus = "ended"
)

// ComponentStatus classifies a detected component in a frame or image.
type ComponentStatus string

const (
	ComponentCorrect   ComponentStatus = "correct"
	ComponentIncorrect ComponentStatus = "incorrect"
	ComponentMissing   ComponentStatus = "missing"
	ComponentUnknown   ComponentStatus = "unknown"
)

// DetectedComponent is one component identified in an installation image.
type DetectedComponent struct {
	// Name is the component name (e.g. "surge protector").
	Name string `json:"name"`

	// Confidence is the detection confidence in [0, 1].
	Confidence float64 `json:"confidence"`

	// Status is the installation verdict for this component.
	Status ComponentStatus `json:"status"`

	// Issues lists problems found with this component, if any.
	Issues []string `json:"issues"`
}

// ConversationTurn is one append-only entry in a session's history.
// Turns are never mutated or reordered after insertion.
type ConversationTurn struct {
	// Timestamp records when the turn was appended.
	Timestamp time.Time `json:"timestamp"`

	// FrameAnalyzed is true when the turn came from a video frame.
	FrameAnalyzed bool `json:"frame_analyzed"`

	// AudioTranscript is the transcribed user speech, empty if none.
	AudioTranscript string `json:"audio_transcript,omitempty"`

	// AIResponse is the assistant's reply for this turn.
	AIResponse string `json:"ai_response"`

	// DetectedObjects are the components identified in the frame.
	DetectedObjects []DetectedComponent `json:"detected_objects"`
}

// StepProgress tracks completion of one installation step.
type StepProgress struct {
	// Completed is OR-ed across turns: once true it stays true.
	Completed bool `json:"completed"`

	// DetectedCount is the component count from the latest analysis.
	DetectedCount int `json:"components_detected"`

	// Timestamp is the last progress update.
	Timestamp time.Time `json:"timestamp"`
}

// Session holds the state of one ongoing guided-installation conversation.
// Exactly one Session exists per id; it is owned by the session manager and
// mutated only under the manager's per-session serialization.
type Session struct {
	// ID is the opaque unique session token.
	ID string

	// ProductID binds the session to exactly one product context.
	ProductID string

	// ProductName is the bound product's display name.
	ProductName string

	// CreatedAt is the session creation time.
	CreatedAt time.Time

	// EndedAt is set when the session terminates.
	EndedAt time.Time

	// Status is Active or Ended.
	Status SessionStatus

	// History is the append-only conversation record.
	History []ConversationTurn

	// CurrentStep is the installation step the user is on, >= 1 and
	// monotonically non-decreasing for the session's lifetime.
	CurrentStep int

	// Progress maps step keys ("step_1", ...) to their completion state.
	Progress map[string]StepProgress

	// LastActivity is used by the idle-timeout sweep.
	LastActivity time.Time
}

// NewSession creates an Active session bound to one product.
func NewSession(id, productID, productName string) (*Session, error) {
	if id == "" || productID == "" {
		return nil, fmt.Errorf("%w: session requires id and product id", ErrInvalidInput)
	}
	now := time.Now()
	return &Session{
		ID:           id,
		ProductID:    productID,
		ProductName:  productName,
		CreatedAt:    now,
		Status:       SessionActive,
		CurrentStep:  1,
		Progress:     make(map[string]StepProgress),
		LastActivity: now,
	}, nil
}

// AppendTurn adds a turn to the history. History is append-only; there is
// no operation to remove or reorder turns.
func (s *Session) AppendTurn(turn ConversationTurn) {
	s.History = append(s.History, turn)
	s.LastActivity = turn.Timestamp
}

// StepKey formats the progress map key for a step number.
func StepKey(step int) string {
	return fmt.Sprintf("step_%d", step)
}

// RecordProgress updates the current step's progress. Completion is OR-ed:
// a step that was completed never becomes incomplete again.
func (s *Session) RecordProgress(detectedCount int, at time.Time) {
	key := StepKey(s.CurrentStep)
	prev := s.Progress[key]
	s.Progress[key] = StepProgress{
		Completed:     prev.Completed || detectedCount > 0,
		DetectedCount: detectedCount,
		Timestamp:     at,
	}
}

// AdvanceStep moves to the given step if it is ahead of the current one.
// CurrentStep never decreases.
func (s *Session) AdvanceStep(step int) {
	if step > s.CurrentStep {
		s.CurrentStep = step
	}
}

// End transitions the session to the terminal state. Ending an already
// ended session is a no-op, making EndSession idempotent.
func (s *Session) End(at time.Time) {
	if s.Status == SessionEnded {
		return
	}
	s.Status = SessionEnded
	s.EndedAt = at
}
