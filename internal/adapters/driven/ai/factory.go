// Package ai builds the external model adapters from configuration and
// validates their connectivity at startup.
package ai

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/custodia-labs/manualkit/internal/adapters/driven/embedding/described"
	ollamaembed "github.com/custodia-labs/manualkit/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/manualkit/internal/adapters/driven/embedding/openai"
	anthropicresp "github.com/custodia-labs/manualkit/internal/adapters/driven/responder/anthropic"
	geminiresp "github.com/custodia-labs/manualkit/internal/adapters/driven/responder/gemini"
	ollamaresp "github.com/custodia-labs/manualkit/internal/adapters/driven/responder/ollama"
	openairesp "github.com/custodia-labs/manualkit/internal/adapters/driven/responder/openai"
	openaitranscribe "github.com/custodia-labs/manualkit/internal/adapters/driven/transcriber/openai"
	"github.com/custodia-labs/manualkit/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for provider connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the result of model provider initialisation.
// Any provider may be nil; the core degrades to its documented
// low-confidence fallbacks when one is missing.
type InitResult struct {
	Responder   driven.GenerativeResponder
	Embedder    driven.EmbeddingProvider
	Transcriber driven.Transcriber
	Warnings    []string // Non-fatal issues that caused a provider to be dropped.
	FellBack    bool     // True if any configured provider was unreachable.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.Responder != nil {
		r.Responder.Close()
	}
	if r.Embedder != nil {
		r.Embedder.Close()
	}
	if r.Transcriber != nil {
		r.Transcriber.Close()
	}
}

// Init builds all configured providers and validates connectivity.
// An unreachable provider is dropped with a warning rather than
// failing startup; a misconfigured one is a hard error.
func Init(cfg driven.ConfigStore) (*InitResult, error) {
	result := &InitResult{}

	responder, err := CreateResponder(cfg)
	if err != nil {
		return nil, err
	}
	if responder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		err := responder.Ping(ctx)
		cancel()
		if err != nil {
			responder.Close()
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("responder unreachable, answers will degrade: %v", err))
			result.FellBack = true
			responder = nil
		}
	}
	result.Responder = responder

	embedder, err := CreateEmbedder(cfg, responder)
	if err != nil {
		result.Close()
		return nil, err
	}
	if embedder != nil {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		err := embedder.Ping(ctx)
		cancel()
		if err != nil {
			embedder.Close()
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("embedding provider unreachable, search will degrade: %v", err))
			result.FellBack = true
			embedder = nil
		}
	}
	result.Embedder = embedder

	transcriber, err := CreateTranscriber(cfg)
	if err != nil {
		result.Close()
		return nil, err
	}
	result.Transcriber = transcriber

	return result, nil
}

// CreateResponder creates the generative responder selected by the
// responder.backend config key. Returns nil when no key is configured.
func CreateResponder(cfg driven.ConfigStore) (driven.GenerativeResponder, error) {
	switch backend := cfg.GetString("responder.backend"); backend {
	case "", "gemini":
		key := firstNonEmpty(os.Getenv("GEMINI_API_KEY"), cfg.GetString("responder.api_key"))
		if key == "" {
			return nil, nil
		}
		return geminiresp.NewResponder(geminiresp.Config{
			APIKey:  key,
			BaseURL: cfg.GetString("responder.base_url"),
			Model:   cfg.GetString("responder.model"),
		})

	case "openai":
		key := firstNonEmpty(os.Getenv("OPENAI_API_KEY"), cfg.GetString("responder.api_key"))
		if key == "" {
			return nil, nil
		}
		return openairesp.NewResponder(openairesp.Config{
			APIKey:  key,
			BaseURL: cfg.GetString("responder.base_url"),
			Model:   cfg.GetString("responder.model"),
		})

	case "anthropic":
		key := firstNonEmpty(os.Getenv("ANTHROPIC_API_KEY"), cfg.GetString("responder.api_key"))
		if key == "" {
			return nil, nil
		}
		return anthropicresp.NewResponder(anthropicresp.Config{
			APIKey:  key,
			BaseURL: cfg.GetString("responder.base_url"),
			Model:   cfg.GetString("responder.model"),
		})

	case "ollama":
		return ollamaresp.NewResponder(ollamaresp.Config{
			BaseURL: cfg.GetString("responder.base_url"),
			Model:   cfg.GetString("responder.model"),
		}), nil

	default:
		return nil, fmt.Errorf("unknown responder backend %q", backend)
	}
}

// CreateEmbedder creates the embedding provider selected by the
// embedding.backend config key. When a responder is available the
// provider is wrapped so page images are described by the vision
// model and embedded as text. Returns nil when no key is configured.
func CreateEmbedder(cfg driven.ConfigStore, responder driven.GenerativeResponder) (driven.EmbeddingProvider, error) {
	var inner driven.EmbeddingProvider

	switch backend := cfg.GetString("embedding.backend"); backend {
	case "", "openai":
		key := firstNonEmpty(os.Getenv("OPENAI_API_KEY"), cfg.GetString("embedding.api_key"))
		if key == "" {
			// No key configured: searches degrade to zero-score ranking.
			return nil, nil
		}
		provider, err := openaiembed.NewProvider(openaiembed.Config{
			APIKey:            key,
			Model:             cfg.GetString("embedding.model"),
			Dimensions:        cfg.GetInt("embedding.dimensions"),
			RequestsPerSecond: float64(cfg.GetInt("embedding.requests_per_second")),
		})
		if err != nil {
			return nil, err
		}
		inner = provider

	case "ollama":
		inner = ollamaembed.NewProvider(ollamaembed.Config{
			BaseURL:    cfg.GetString("embedding.base_url"),
			Model:      cfg.GetString("embedding.model"),
			Dimensions: cfg.GetInt("embedding.dimensions"),
		})

	default:
		return nil, fmt.Errorf("unknown embedding backend %q", backend)
	}

	if responder == nil {
		return inner, nil
	}
	return described.NewProvider(inner, responder), nil
}

// CreateTranscriber creates the audio transcriber. Returns nil when no
// key is configured; voice turns then fail with a typed error.
func CreateTranscriber(cfg driven.ConfigStore) (driven.Transcriber, error) {
	key := firstNonEmpty(os.Getenv("OPENAI_API_KEY"), cfg.GetString("transcriber.api_key"))
	if key == "" {
		return nil, nil
	}
	return openaitranscribe.NewTranscriber(openaitranscribe.Config{
		APIKey:   key,
		Language: cfg.GetString("transcriber.language"),
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
