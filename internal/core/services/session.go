package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/manualkit/internal/core/domain"
	"github.com/custodia-labs/manualkit/internal/core/ports/driven"
	"github.com/custodia-labs/manualkit/internal/core/ports/driving"
	"github.com/custodia-labs/manualkit/internal/logger"
)

// Ensure SessionManager implements the interface.
var _ driving.SessionService = (*SessionManager)(nil)

// Sweep cadence defaults used by the composition root.
const (
	DefaultSweepInterval = 5 * time.Minute
	DefaultSessionIdle   = 30 * time.Minute
)

// sessionState pairs a session with its serialization lock. Turn append and
// progress update are neither commutative nor idempotent, so all operations
// on one session run under this mutex.
type sessionState struct {
	mu      sync.Mutex
	session *domain.Session
}

// SessionManager owns the lifecycle of guided-installation sessions.
// Sessions across different ids are fully independent; within one id all
// calls are serialized.
type SessionManager struct {
	registry    *ProductRegistry
	embedder    driven.EmbeddingProvider
	synthesizer *ResponseSynthesizer
	ranker      *Ranker
	transcriber driven.Transcriber

	// mu guards the session table itself; per-session locks live in the
	// entries.
	mu       sync.RWMutex
	sessions map[string]*sessionState
}

// NewSessionManager creates the session manager. Transcriber and embedder
// are optional; the corresponding operations degrade or fail loudly per the
// error taxonomy.
func NewSessionManager(
	registry *ProductRegistry,
	embedder driven.EmbeddingProvider,
	synthesizer *ResponseSynthesizer,
	ranker *Ranker,
	transcriber driven.Transcriber,
) *SessionManager {
	return &SessionManager{
		registry:    registry,
		embedder:    embedder,
		synthesizer: synthesizer,
		ranker:      ranker,
		transcriber: transcriber,
		sessions:    make(map[string]*sessionState),
	}
}

// CreateSession allocates a fresh Active session bound to one product.
func (m *SessionManager) CreateSession(_ context.Context, productID string) (*driving.SessionInfo, error) {
	idx, err := m.registry.Get(productID)
	if err != nil {
		return nil, err
	}

	session, err := domain.NewSession(uuid.New().String(), productID, idx.Name)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[session.ID] = &sessionState{session: session}
	m.mu.Unlock()

	logger.Info("Created session %s for product %s", session.ID, productID)
	return sessionInfo(session), nil
}

// SubmitFrame analyses a video frame within an Active session. The frame
// analysis runs before anything touches session state: a failed or
// cancelled analysis discards all partial work and appends nothing.
func (m *SessionManager) SubmitFrame(
	ctx context.Context, sessionID string, frame, audio []byte,
) (*driving.FrameResult, error) {
	st, err := m.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	s := st.session
	if s.Status == domain.SessionEnded {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionEnded, sessionID)
	}

	idx, err := m.registry.Get(s.ProductID)
	if err != nil {
		return nil, err
	}

	var transcript string
	if len(audio) > 0 && m.transcriber != nil {
		transcript, err = m.transcriber.ToText(ctx, audio)
		if err != nil {
			logger.Warn("Session %s: transcription failed: %v", sessionID, err)
			transcript = ""
		}
	}

	analysis, err := m.synthesizer.AnalyzeFrame(ctx, buildSystemPrompt(idx.Name), frame, transcript)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	s.AppendTurn(domain.ConversationTurn{
		Timestamp:       now,
		FrameAnalyzed:   true,
		AudioTranscript: transcript,
		AIResponse:      analysis.AIResponse,
		DetectedObjects: analysis.DetectedObjects,
	})
	s.RecordProgress(len(analysis.DetectedObjects), now)

	return &driving.FrameResult{
		SessionID: sessionID,
		Timestamp: now,
		Analysis: domain.DetectionResult{
			DetectedComponents: analysis.DetectedObjects,
			OverallStatus:      overallStatus(analysis),
			Suggestions:        analysis.InstallationGuidance,
			SafetyAlerts:       analysis.SafetyAlerts,
			Confidence:         averageConfidence(analysis.DetectedObjects),
		},
		Response:  analysis.AIResponse,
		Progress:  progressSnapshot(s),
		NextSteps: nextSteps(s),
	}, nil
}

// SubmitAudio transcribes audio and answers it against the bound product's
// top chunks.
func (m *SessionManager) SubmitAudio(
	ctx context.Context, sessionID string, audio []byte,
) (*driving.AudioResult, error) {
	st, err := m.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	s := st.session
	if s.Status == domain.SessionEnded {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionEnded, sessionID)
	}

	if m.transcriber == nil {
		return nil, domain.ErrTranscriberUnavailable
	}
	transcript, err := m.transcriber.ToText(ctx, audio)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTranscriberUnavailable, err)
	}
	if transcript == "" {
		return nil, fmt.Errorf("%w: no speech recognised", domain.ErrInvalidInput)
	}

	idx, err := m.registry.Get(s.ProductID)
	if err != nil {
		return nil, err
	}

	var queryVec []float32
	if m.embedder != nil {
		if vec, embedErr := m.embedder.EmbedText(ctx, transcript); embedErr == nil {
			queryVec = vec
		} else {
			logger.Warn("Session %s: query embedding failed: %v", sessionID, embedErr)
		}
	}

	results := m.ranker.Rank(idx.Search(queryVec, DefaultTopK), transcript, false)
	answer, err := m.synthesizer.Synthesize(ctx, transcript, idx.Name, "en", results)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	s.AppendTurn(domain.ConversationTurn{
		Timestamp:       now,
		FrameAnalyzed:   false,
		AudioTranscript: transcript,
		AIResponse:      answer.Answer,
	})

	return &driving.AudioResult{
		SessionID:  sessionID,
		Transcript: transcript,
		Response:   *answer,
		Timestamp:  now,
	}, nil
}

// AdvanceStep moves the session forward. Steps never decrease: advancing to
// an earlier step is a silent no-op by contract.
func (m *SessionManager) AdvanceStep(_ context.Context, sessionID string, step int) error {
	st, err := m.lookup(sessionID)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.session.Status == domain.SessionEnded {
		return fmt.Errorf("%w: %s", domain.ErrSessionEnded, sessionID)
	}
	st.session.AdvanceStep(step)
	return nil
}

// EndSession terminates a session. Calling it on an already-ended session
// is a no-op, not an error.
func (m *SessionManager) EndSession(_ context.Context, sessionID string) error {
	st, err := m.lookup(sessionID)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	st.session.End(time.Now())
	logger.Info("Ended session %s", sessionID)
	return nil
}

// Session returns the external view of a session.
func (m *SessionManager) Session(_ context.Context, sessionID string) (*driving.SessionInfo, error) {
	st, err := m.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return sessionInfo(st.session), nil
}

// Sweep is the explicit garbage-collection policy: Active sessions idle
// longer than maxIdle are ended and removed, and sessions already Ended are
// removed. Nothing is dropped outside this call.
func (m *SessionManager) Sweep(maxIdle time.Duration) int {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, st := range m.sessions {
		st.mu.Lock()
		s := st.session
		switch {
		case s.Status == domain.SessionEnded:
			delete(m.sessions, id)
			removed++
		case now.Sub(s.LastActivity) > maxIdle:
			s.End(now)
			delete(m.sessions, id)
			removed++
			logger.Info("Swept idle session %s", id)
		}
		st.mu.Unlock()
	}
	return removed
}

// RunSweeper applies the Sweep policy on a fixed cadence until the context
// is cancelled. The composition root runs this in its own goroutine so
// abandoned sessions do not accumulate for the life of the process.
func (m *SessionManager) RunSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := m.Sweep(maxIdle); removed > 0 {
				logger.Info("Sweeper removed %d stale sessions", removed)
			}
		}
	}
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *SessionManager) lookup(sessionID string) (*sessionState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}
	return st, nil
}

func sessionInfo(s *domain.Session) *driving.SessionInfo {
	return &driving.SessionInfo{
		ID:          s.ID,
		ProductID:   s.ProductID,
		ProductName: s.ProductName,
		CreatedAt:   s.CreatedAt,
		Status:      s.Status,
	}
}

// progressSnapshot copies the progress map so callers never observe later
// mutations.
func progressSnapshot(s *domain.Session) map[string]domain.StepProgress {
	snapshot := make(map[string]domain.StepProgress, len(s.Progress))
	for k, v := range s.Progress {
		snapshot[k] = v
	}
	return snapshot
}

// nextSteps derives suggestions from the current session state. It is a
// pure function: nothing here mutates or stores anything.
func nextSteps(s *domain.Session) []string {
	steps := []string{
		fmt.Sprintf("Continue with installation step %d", s.CurrentStep),
		"Verify all connections are secure",
		"Check safety requirements",
	}
	if p, ok := s.Progress[domain.StepKey(s.CurrentStep)]; ok && p.Completed {
		steps[0] = fmt.Sprintf("Step %d looks complete, proceed to step %d", s.CurrentStep, s.CurrentStep+1)
	}
	return steps
}

func overallStatus(analysis *domain.FrameAnalysis) string {
	if len(analysis.DetectedObjects) == 0 {
		return domain.StatusIncomplete
	}
	for _, c := range analysis.DetectedObjects {
		if c.Status != domain.ComponentCorrect {
			return domain.StatusIncomplete
		}
	}
	return domain.StatusComplete
}

// buildSystemPrompt frames the live-frame analysis around the product.
func buildSystemPrompt(productName string) string {
	return fmt.Sprintf(`You are an expert electrical installation assistant analyzing a live video feed.

Product: %s
Context: You are helping a user install this electrical protection device.

Your tasks:
1. Identify electrical components in the video
2. Check installation correctness
3. Provide real-time guidance
4. Alert about safety issues immediately
5. Guide through installation steps

Always prioritize safety and provide clear, actionable guidance.`, productName)
}
