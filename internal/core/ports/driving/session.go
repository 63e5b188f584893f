package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/manualkit/internal/core/domain"
)

// SessionInfo is the external view of a session.
type SessionInfo struct {
	ID          string               `json:"id"`
	ProductID   string               `json:"product_id"`
	ProductName string               `json:"product_name"`
	CreatedAt   time.Time            `json:"created_at"`
	Status      domain.SessionStatus `json:"status"`
}

// FrameResult is the reply to one analysed video frame.
type FrameResult struct {
	SessionID string                         `json:"session_id"`
	Timestamp time.Time                      `json:"timestamp"`
	Analysis  domain.DetectionResult         `json:"analysis"`
	Response  string                         `json:"ai_response"`
	Progress  map[string]domain.StepProgress `json:"installation_progress"`
	NextSteps []string                       `json:"next_steps"`
}

// AudioResult is the reply to one audio-only turn.
type AudioResult struct {
	SessionID  string              `json:"session_id"`
	Transcript string              `json:"transcript"`
	Response   domain.AnswerResult `json:"response"`
	Timestamp  time.Time           `json:"timestamp"`
}

// SessionService owns the lifecycle of interactive sessions.
//
// All operations against one session id are serialized by the
// implementation; callers may invoke them concurrently.
type SessionService interface {
	// CreateSession allocates a fresh Active session bound to one product.
	// Fails with domain.ErrProductNotFound when no index exists.
	CreateSession(ctx context.Context, productID string) (*SessionInfo, error)

	// SubmitFrame analyses a video frame (with optional audio) within an
	// Active session, appends a conversation turn and updates progress.
	SubmitFrame(ctx context.Context, sessionID string, frame, audio []byte) (*FrameResult, error)

	// SubmitAudio transcribes audio and answers it against the bound
	// product's most relevant chunks.
	SubmitAudio(ctx context.Context, sessionID string, audio []byte) (*AudioResult, error)

	// AdvanceStep moves the session to a later installation step.
	// Steps never move backwards.
	AdvanceStep(ctx context.Context, sessionID string, step int) error

	// EndSession terminates a session. Idempotent on already-ended sessions.
	EndSession(ctx context.Context, sessionID string) error

	// Session returns the external view of a session.
	Session(ctx context.Context, sessionID string) (*SessionInfo, error)

	// Sweep ends-and-removes sessions idle for longer than maxIdle and
	// removes sessions that ended before the cutoff. It returns the number
	// of sessions removed. Garbage collection is explicit: nothing is
	// dropped outside this call or EndSession.
	Sweep(maxIdle time.Duration) int
}
