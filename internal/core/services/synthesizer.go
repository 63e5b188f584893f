package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/manualkit/internal/core/domain"
	"github.com/custodia-labs/manualkit/internal/core/ports/driven"
	"github.com/custodia-labs/manualkit/internal/logger"
)

// DefaultTokenBudget bounds the context assembled from ranked chunks.
// Tokens are approximated as whitespace-delimited words.
const DefaultTokenBudget = 2000

// Fixed fallback values for unparseable responder replies. Golden-output
// tests depend on these exact constants; do not compute them.
const (
	fallbackSourcePage    = "Multiple"
	fallbackSourceSection = "General"
	fallbackRelevance     = 0.8
	fallbackConfidence    = 0.7
)

// errorAnswer is returned when the responder itself is unreachable.
const errorAnswer = "I apologize, but I encountered an error processing your question. Please try again."

// ReplyOutcome is the two-variant result of parsing a responder reply:
// either the structured answer parsed, or the raw text is carried for the
// fixed fallback. Exactly one variant is populated.
type ReplyOutcome struct {
	// Parsed is set when the reply decoded as a structured answer.
	Parsed *domain.AnswerResult

	// Raw is set when the reply was not parseable.
	Raw string
}

// Answer consumes the outcome exhaustively, applying the fixed fallback
// policy for the raw variant.
func (o ReplyOutcome) Answer() domain.AnswerResult {
	if o.Parsed != nil {
		return *o.Parsed
	}
	return domain.AnswerResult{
		Answer:         o.Raw,
		Sources:        []domain.Source{{Page: fallbackSourcePage, Section: fallbackSourceSection, Relevance: fallbackRelevance}},
		Confidence:     fallbackConfidence,
		SafetyWarnings: []string{},
	}
}

// ParseReply decodes a responder reply into the two-variant outcome.
// Markdown code fences around the JSON are tolerated; anything else that
// fails to decode becomes the raw variant.
func ParseReply(raw string) ReplyOutcome {
	trimmed := stripCodeFence(strings.TrimSpace(raw))
	if !strings.HasPrefix(trimmed, "{") {
		return ReplyOutcome{Raw: raw}
	}

	var result domain.AnswerResult
	if err := json.Unmarshal([]byte(trimmed), &result); err != nil {
		logger.Debug("Synthesizer: reply not parseable (%v), using fallback", err)
		return ReplyOutcome{Raw: raw}
	}
	if result.Sources == nil {
		result.Sources = []domain.Source{}
	}
	if result.SafetyWarnings == nil {
		result.SafetyWarnings = []string{}
	}
	return ReplyOutcome{Parsed: &result}
}

// ResponseSynthesizer assembles retrieval context, calls the external
// generative responder and turns its possibly-malformed reply into typed
// results.
type ResponseSynthesizer struct {
	responder   driven.GenerativeResponder
	tokenBudget int
}

// SynthesizerOption configures the synthesizer.
type SynthesizerOption func(*ResponseSynthesizer)

// WithTokenBudget bounds the assembled context in approximate tokens.
func WithTokenBudget(budget int) SynthesizerOption {
	return func(s *ResponseSynthesizer) {
		if budget > 0 {
			s.tokenBudget = budget
		}
	}
}

// NewResponseSynthesizer creates a synthesizer. The responder may be nil;
// every call then degrades to the zero-confidence error answer.
func NewResponseSynthesizer(responder driven.GenerativeResponder, opts ...SynthesizerOption) *ResponseSynthesizer {
	s := &ResponseSynthesizer{
		responder:   responder,
		tokenBudget: DefaultTokenBudget,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuildContext concatenates ranked chunk content with page references, most
// relevant first, truncated to the token budget.
func (s *ResponseSynthesizer) BuildContext(results []domain.SearchResult) string {
	var b strings.Builder
	used := 0
	for _, r := range results {
		entry := fmt.Sprintf("[Page %d]: %s", r.Chunk.PageNumber, r.Chunk.Content)
		words := strings.Fields(entry)
		if used+len(words) > s.tokenBudget {
			remaining := s.tokenBudget - used
			if remaining <= 0 {
				break
			}
			entry = strings.Join(words[:remaining], " ")
			words = words[:remaining]
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(entry)
		used += len(words)
		if used >= s.tokenBudget {
			break
		}
	}
	return b.String()
}

// Synthesize answers a question from ranked chunks. The product is named
// by its display name, matching the session prompts. Responder failures
// are recovered locally: the caller always receives a structured result,
// with the degradation reflected in the confidence field and logged.
func (s *ResponseSynthesizer) Synthesize(
	ctx context.Context, query, productName, language string, results []domain.SearchResult,
) (*domain.AnswerResult, error) {
	if language == "" {
		language = "en"
	}

	prompt := fmt.Sprintf(`You are an electrical installation expert assistant. Answer the user's question using ONLY the provided manual content.

Product: %s
Language: %s

Manual Content:
%s

User Question: %s

Instructions:
1. Answer only based on the provided manual content
2. Include specific page references
3. Highlight any safety warnings
4. Be precise and technical
5. If information is not in the manual, say so clearly

Respond in JSON format:
{
    "answer": "detailed answer",
    "sources": [
        {"page": 1, "section": "Installation", "relevance": 0.95}
    ],
    "confidence": 0.9,
    "safety_warnings": ["warning 1", "warning 2"]
}`, productName, language, s.BuildContext(results), query)

	raw, err := s.complete(ctx, []driven.PromptPart{driven.TextPart(prompt)})
	if err != nil {
		logger.Warn("Synthesizer: responder failed: %v", err)
		return &domain.AnswerResult{
			Answer:         errorAnswer,
			Sources:        []domain.Source{},
			Confidence:     0.0,
			SafetyWarnings: []string{},
		}, nil
	}

	answer := ParseReply(raw).Answer()
	return &answer, nil
}

// DetectComponents analyses an installation image against the expected
// components for a step. Malformed replies fall back to unknown-status
// detections over the first expected components.
func (s *ResponseSynthesizer) DetectComponents(
	ctx context.Context, image []byte, productID string, stepNumber int, expected []string,
) (*domain.DetectionResult, error) {
	prompt := fmt.Sprintf(`Analyze this electrical installation image for step %d of product %s.

Expected components for this step: %s

For each component, determine:
1. Is it present and correctly positioned?
2. Are there any installation errors?
3. Any safety concerns?
4. Confidence level (0.0-1.0)

Respond in JSON format:
{
    "detected_components": [
        {
            "name": "component_name",
            "confidence": 0.95,
            "status": "correct|incorrect|missing",
            "issues": ["list of issues if any"]
        }
    ],
    "overall_status": "complete|incomplete|error",
    "suggestions": ["improvement suggestions"],
    "safety_alerts": ["critical safety issues"]
}`, stepNumber, productID, strings.Join(expected, ", "))

	raw, err := s.complete(ctx, []driven.PromptPart{
		driven.TextPart(prompt),
		driven.ImagePart(image, "image/jpeg"),
	})
	if err != nil {
		logger.Warn("Synthesizer: detection failed: %v", err)
		return &domain.DetectionResult{
			DetectedComponents: []domain.DetectedComponent{},
			OverallStatus:      domain.StatusError,
			Suggestions:        []string{"Error analyzing image. Please try again."},
			SafetyAlerts:       []string{},
			Confidence:         0.0,
		}, nil
	}

	return parseDetection(raw, expected), nil
}

// AnalyzeFrame runs a live-frame analysis. An error here means nothing was
// appended anywhere: the caller discards the turn entirely.
func (s *ResponseSynthesizer) AnalyzeFrame(
	ctx context.Context, systemPrompt string, frame []byte, audioTranscript string,
) (*domain.FrameAnalysis, error) {
	parts := []driven.PromptPart{
		driven.TextPart(systemPrompt),
		driven.ImagePart(frame, "image/jpeg"),
	}
	if audioTranscript != "" {
		parts = append(parts, driven.TextPart("User said: "+audioTranscript))
	}

	raw, err := s.complete(ctx, parts)
	if err != nil {
		return nil, fmt.Errorf("analyze frame: %w", err)
	}

	return parseFrameAnalysis(raw), nil
}

func (s *ResponseSynthesizer) complete(ctx context.Context, parts []driven.PromptPart) (string, error) {
	if s.responder == nil {
		return "", domain.ErrResponderUnavailable
	}
	raw, err := s.responder.Complete(ctx, parts, driven.CompleteOptions{
		MaxTokens:   1000,
		Temperature: 0.1,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrResponderUnavailable, err)
	}
	return raw, nil
}

// parseDetection decodes a detection reply, applying the fallback policy:
// the first three expected components at half confidence, status unknown.
func parseDetection(raw string, expected []string) *domain.DetectionResult {
	trimmed := stripCodeFence(strings.TrimSpace(raw))

	var result domain.DetectionResult
	if strings.HasPrefix(trimmed, "{") && json.Unmarshal([]byte(trimmed), &result) == nil {
		if result.SafetyAlerts == nil {
			result.SafetyAlerts = []string{}
		}
		if result.Suggestions == nil {
			result.Suggestions = []string{}
		}
		result.Confidence = averageConfidence(result.DetectedComponents)
		return &result
	}

	logger.Debug("Synthesizer: detection reply not parseable, using fallback")
	n := len(expected)
	if n > 3 {
		n = 3
	}
	components := make([]domain.DetectedComponent, 0, n)
	for _, name := range expected[:n] {
		components = append(components, domain.DetectedComponent{
			Name:       name,
			Confidence: 0.5,
			Status:     domain.ComponentUnknown,
			Issues:     []string{},
		})
	}
	return &domain.DetectionResult{
		DetectedComponents: components,
		OverallStatus:      domain.StatusIncomplete,
		Suggestions:        []string{"Please ensure all components are visible and properly positioned"},
		SafetyAlerts:       []string{},
		Confidence:         0.5,
	}
}

// parseFrameAnalysis decodes a frame reply; non-JSON replies become plain
// guidance with no detections.
func parseFrameAnalysis(raw string) *domain.FrameAnalysis {
	trimmed := stripCodeFence(strings.TrimSpace(raw))

	var analysis domain.FrameAnalysis
	if strings.HasPrefix(trimmed, "{") && json.Unmarshal([]byte(trimmed), &analysis) == nil {
		return &analysis
	}

	return &domain.FrameAnalysis{
		AIResponse:           raw,
		DetectedObjects:      []domain.DetectedComponent{},
		InstallationGuidance: []string{},
		SafetyAlerts:         []string{},
	}
}

func averageConfidence(components []domain.DetectedComponent) float64 {
	if len(components) == 0 {
		return 0.0
	}
	var sum float64
	for _, c := range components {
		sum += c.Confidence
	}
	return sum / float64(len(components))
}

// stripCodeFence removes a surrounding ```json fence if present.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
