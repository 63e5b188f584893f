// Package openai provides an audio transcriber using the OpenAI
// Whisper API.
package openai

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/custodia-labs/manualkit/internal/core/domain"
	"github.com/custodia-labs/manualkit/internal/core/ports/driven"
)

// Ensure Transcriber implements the interface.
var _ driven.Transcriber = (*Transcriber)(nil)

// DefaultModel is the Whisper model used when none is configured.
const DefaultModel = goopenai.Whisper1

// Config holds configuration for the OpenAI transcriber.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL overrides the API base URL. Empty uses the default.
	BaseURL string

	// Model is the transcription model to use (default: whisper-1).
	Model string

	// Language is an optional ISO-639-1 language hint.
	Language string
}

// Transcriber converts audio clips to text using the OpenAI
// transcription endpoint.
type Transcriber struct {
	client   *goopenai.Client
	model    string
	language string
}

// NewTranscriber creates a new OpenAI transcriber.
func NewTranscriber(cfg Config) (*Transcriber, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Transcriber{
		client:   goopenai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		language: cfg.Language,
	}, nil
}

// ToText transcribes the audio clip. Whisper returns an empty string
// for clips without recognisable speech; that is passed through as-is.
func (t *Transcriber) ToText(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", nil
	}

	resp, err := t.client.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    t.model,
		FilePath: "clip.wav",
		Reader:   bytes.NewReader(audio),
		Language: t.language,
	})
	if err != nil {
		return "", fmt.Errorf("openai: transcribe: %w: %v", domain.ErrTranscriberUnavailable, err)
	}

	return strings.TrimSpace(resp.Text), nil
}

// Close releases resources.
func (t *Transcriber) Close() error {
	// The API client doesn't need explicit cleanup
	return nil
}
