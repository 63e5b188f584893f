package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/manualkit/internal/core/domain"
	"github.com/custodia-labs/manualkit/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockResponder implements driven.GenerativeResponder for testing.
type mockResponder struct {
	reply     string
	err       error
	calls     int
	lastParts []driven.PromptPart
}

func (m *mockResponder) Complete(_ context.Context, parts []driven.PromptPart, _ driven.CompleteOptions) (string, error) {
	m.calls++
	m.lastParts = parts
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func (m *mockResponder) ModelName() string { return "mock-responder" }

func (m *mockResponder) Ping(_ context.Context) error { return nil }

func (m *mockResponder) Close() error { return nil }

// mockEmbedder implements driven.EmbeddingProvider for testing.
type mockEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
	embedErr error
	imageErr error
}

func (m *mockEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return m.fallback, nil
}

func (m *mockEmbedder) EmbedImage(_ context.Context, _ []byte) ([]float32, error) {
	if m.imageErr != nil {
		return nil, m.imageErr
	}
	return m.fallback, nil
}

func (m *mockEmbedder) EmbedTextBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.EmbedText(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int { return len(m.fallback) }

func (m *mockEmbedder) ModelName() string { return "mock-embedder" }

func (m *mockEmbedder) Ping(_ context.Context) error { return nil }

func (m *mockEmbedder) Close() error { return nil }

// mockTranscriber implements driven.Transcriber for testing.
type mockTranscriber struct {
	transcript string
	err        error
}

func (m *mockTranscriber) ToText(_ context.Context, _ []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.transcript, nil
}

func (m *mockTranscriber) Close() error { return nil }

// --- Tests ---

func TestParseReply(t *testing.T) {
	t.Run("structured reply parses", func(t *testing.T) {
		raw := `{"answer":"Connect L1 first.","sources":[{"page":4,"section":"wiring","relevance":0.9}],"confidence":0.85,"safety_warnings":["Disconnect power first"]}`
		outcome := ParseReply(raw)
		require.NotNil(t, outcome.Parsed)
		assert.Empty(t, outcome.Raw)
		assert.Equal(t, "Connect L1 first.", outcome.Parsed.Answer)
		assert.Equal(t, "4", outcome.Parsed.Sources[0].Page)
	})

	t.Run("code fence is tolerated", func(t *testing.T) {
		raw := "```json\n{\"answer\":\"ok\",\"confidence\":0.9}\n```"
		outcome := ParseReply(raw)
		require.NotNil(t, outcome.Parsed)
		assert.Equal(t, "ok", outcome.Parsed.Answer)
		assert.NotNil(t, outcome.Parsed.Sources)
		assert.NotNil(t, outcome.Parsed.SafetyWarnings)
	})

	t.Run("plain text becomes raw variant", func(t *testing.T) {
		outcome := ParseReply("Just use the manual on page 3.")
		assert.Nil(t, outcome.Parsed)
		assert.Equal(t, "Just use the manual on page 3.", outcome.Raw)
	})

	t.Run("broken json becomes raw variant", func(t *testing.T) {
		outcome := ParseReply(`{"answer": "truncated`)
		assert.Nil(t, outcome.Parsed)
		assert.Equal(t, `{"answer": "truncated`, outcome.Raw)
	})
}

func TestReplyOutcome_Answer(t *testing.T) {
	t.Run("raw variant applies the fixed fallback", func(t *testing.T) {
		answer := ReplyOutcome{Raw: "Just use the manual on page 3."}.Answer()
		assert.Equal(t, "Just use the manual on page 3.", answer.Answer)
		require.Len(t, answer.Sources, 1)
		assert.Equal(t, "Multiple", answer.Sources[0].Page)
		assert.Equal(t, "General", answer.Sources[0].Section)
		assert.Equal(t, 0.8, answer.Sources[0].Relevance)
		assert.Equal(t, 0.7, answer.Confidence)
		assert.Equal(t, []string{}, answer.SafetyWarnings)
	})

	t.Run("parsed variant passes through", func(t *testing.T) {
		parsed := &domain.AnswerResult{Answer: "ok", Confidence: 0.95}
		assert.Equal(t, *parsed, ReplyOutcome{Parsed: parsed}.Answer())
	})
}

func TestSynthesizer_BuildContext(t *testing.T) {
	chunk := func(page int, content string) domain.SearchResult {
		c, err := domain.NewTextChunk("dehnguard", page, 0, content)
		require.NoError(t, err)
		return domain.SearchResult{Chunk: c}
	}

	t.Run("joins entries with page references", func(t *testing.T) {
		s := NewResponseSynthesizer(nil)
		ctx := s.BuildContext([]domain.SearchResult{
			chunk(1, "mount the base"),
			chunk(2, "connect the wires"),
		})
		assert.Equal(t, "[Page 1]: mount the base\n\n[Page 2]: connect the wires", ctx)
	})

	t.Run("truncates at the token budget", func(t *testing.T) {
		s := NewResponseSynthesizer(nil, WithTokenBudget(5))
		ctx := s.BuildContext([]domain.SearchResult{
			chunk(1, "one two three four five six seven"),
			chunk(2, "never reached"),
		})
		assert.Equal(t, 5, len(strings.Fields(ctx)))
		assert.NotContains(t, ctx, "never reached")
	})

	t.Run("empty results build empty context", func(t *testing.T) {
		s := NewResponseSynthesizer(nil)
		assert.Empty(t, s.BuildContext(nil))
	})
}

func TestSynthesizer_Synthesize(t *testing.T) {
	t.Run("parsed reply becomes the answer", func(t *testing.T) {
		responder := &mockResponder{reply: `{"answer":"Torque to 2 Nm.","sources":[],"confidence":0.9,"safety_warnings":[]}`}
		s := NewResponseSynthesizer(responder)

		answer, err := s.Synthesize(context.Background(), "what torque", "dehnguard", "en", nil)
		require.NoError(t, err)
		assert.Equal(t, "Torque to 2 Nm.", answer.Answer)
		assert.Equal(t, 0.9, answer.Confidence)
		assert.Equal(t, 1, responder.calls)
	})

	t.Run("prompt carries query, context and product name", func(t *testing.T) {
		responder := &mockResponder{reply: `{"answer":"ok","confidence":1}`}
		s := NewResponseSynthesizer(responder)

		c, err := domain.NewTextChunk("dehnguard", 7, 0, "use the upper rail")
		require.NoError(t, err)
		_, err = s.Synthesize(context.Background(), "where does it mount", "DEHNguard M TT", "de",
			[]domain.SearchResult{{Chunk: c}})
		require.NoError(t, err)

		require.Len(t, responder.lastParts, 1)
		prompt := responder.lastParts[0].Text
		assert.Contains(t, prompt, "where does it mount")
		assert.Contains(t, prompt, "[Page 7]: use the upper rail")
		assert.Contains(t, prompt, "Language: de")
		assert.Contains(t, prompt, "Product: DEHNguard M TT")
	})

	t.Run("unparseable reply uses the fixed fallback", func(t *testing.T) {
		responder := &mockResponder{reply: "Check page 12 of the manual."}
		s := NewResponseSynthesizer(responder)

		answer, err := s.Synthesize(context.Background(), "q", "dehnguard", "en", nil)
		require.NoError(t, err)
		assert.Equal(t, "Check page 12 of the manual.", answer.Answer)
		assert.Equal(t, 0.7, answer.Confidence)
		require.Len(t, answer.Sources, 1)
		assert.Equal(t, "Multiple", answer.Sources[0].Page)
	})

	t.Run("responder failure degrades to error answer", func(t *testing.T) {
		responder := &mockResponder{err: errors.New("upstream 500")}
		s := NewResponseSynthesizer(responder)

		answer, err := s.Synthesize(context.Background(), "q", "dehnguard", "en", nil)
		require.NoError(t, err)
		assert.Equal(t, "I apologize, but I encountered an error processing your question. Please try again.", answer.Answer)
		assert.Equal(t, 0.0, answer.Confidence)
		assert.Empty(t, answer.Sources)
		assert.Empty(t, answer.SafetyWarnings)
	})

	t.Run("nil responder degrades the same way", func(t *testing.T) {
		s := NewResponseSynthesizer(nil)

		answer, err := s.Synthesize(context.Background(), "q", "dehnguard", "en", nil)
		require.NoError(t, err)
		assert.Equal(t, 0.0, answer.Confidence)
	})
}

func TestSynthesizer_DetectComponents(t *testing.T) {
	expected := []string{"surge protector", "terminal block", "ground wire", "live wire"}

	t.Run("parsed detection passes through", func(t *testing.T) {
		responder := &mockResponder{reply: `{
			"detected_components": [
				{"name": "surge protector", "confidence": 0.9, "status": "correct", "issues": []},
				{"name": "ground wire", "confidence": 0.7, "status": "incorrect", "issues": ["loose"]}
			],
			"overall_status": "incomplete",
			"suggestions": ["tighten the ground wire"],
			"safety_alerts": []
		}`}
		s := NewResponseSynthesizer(responder)

		result, err := s.DetectComponents(context.Background(), []byte{0xFF}, "dehnguard", 2, expected)
		require.NoError(t, err)
		require.Len(t, result.DetectedComponents, 2)
		assert.Equal(t, domain.StatusIncomplete, result.OverallStatus)
		assert.InDelta(t, 0.8, result.Confidence, 1e-9)

		// Prompt combines text and the image bytes.
		require.Len(t, responder.lastParts, 2)
		assert.Contains(t, responder.lastParts[0].Text, "step 2")
		assert.Equal(t, []byte{0xFF}, responder.lastParts[1].Image)
	})

	t.Run("unparseable reply falls back to unknown detections", func(t *testing.T) {
		responder := &mockResponder{reply: "I see some components."}
		s := NewResponseSynthesizer(responder)

		result, err := s.DetectComponents(context.Background(), []byte{0xFF}, "dehnguard", 1, expected)
		require.NoError(t, err)
		require.Len(t, result.DetectedComponents, 3)
		assert.Equal(t, "surge protector", result.DetectedComponents[0].Name)
		assert.Equal(t, domain.ComponentUnknown, result.DetectedComponents[0].Status)
		assert.Equal(t, 0.5, result.DetectedComponents[0].Confidence)
		assert.Equal(t, domain.StatusIncomplete, result.OverallStatus)
		assert.Equal(t, []string{"Please ensure all components are visible and properly positioned"}, result.Suggestions)
		assert.Equal(t, 0.5, result.Confidence)
	})

	t.Run("responder failure reports error status", func(t *testing.T) {
		responder := &mockResponder{err: errors.New("timeout")}
		s := NewResponseSynthesizer(responder)

		result, err := s.DetectComponents(context.Background(), []byte{0xFF}, "dehnguard", 1, expected)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusError, result.OverallStatus)
		assert.Empty(t, result.DetectedComponents)
		assert.Equal(t, 0.0, result.Confidence)
	})
}

func TestSynthesizer_AnalyzeFrame(t *testing.T) {
	t.Run("structured analysis parses", func(t *testing.T) {
		responder := &mockResponder{reply: `{
			"ai_response": "Looking good.",
			"detected_objects": [{"name": "terminal block", "confidence": 0.8, "status": "correct", "issues": []}],
			"installation_guidance": ["insert the wire fully"],
			"safety_alerts": []
		}`}
		s := NewResponseSynthesizer(responder)

		analysis, err := s.AnalyzeFrame(context.Background(), "system prompt", []byte{0xFF}, "is this right")
		require.NoError(t, err)
		assert.Equal(t, "Looking good.", analysis.AIResponse)
		require.Len(t, analysis.DetectedObjects, 1)

		// Transcript rides along as an extra prompt part.
		require.Len(t, responder.lastParts, 3)
		assert.Equal(t, "User said: is this right", responder.lastParts[2].Text)
	})

	t.Run("plain text becomes guidance without detections", func(t *testing.T) {
		responder := &mockResponder{reply: "Move the camera closer."}
		s := NewResponseSynthesizer(responder)

		analysis, err := s.AnalyzeFrame(context.Background(), "system prompt", []byte{0xFF}, "")
		require.NoError(t, err)
		assert.Equal(t, "Move the camera closer.", analysis.AIResponse)
		assert.Empty(t, analysis.DetectedObjects)

		require.Len(t, responder.lastParts, 2)
	})

	t.Run("responder failure propagates", func(t *testing.T) {
		responder := &mockResponder{err: errors.New("timeout")}
		s := NewResponseSynthesizer(responder)

		_, err := s.AnalyzeFrame(context.Background(), "system prompt", []byte{0xFF}, "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrResponderUnavailable), fmt.Sprintf("got %v", err))
	})
}
