// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package embedding generates vector embeddings for paper text. Two
// providers are supported: a local Ollama server (the default) and
// any OpenAI-compatible embeddings endpoint.
package embedding

import (
	"context"
	"fmt"

	"github.com/pdiddy/journal-engine/pkg/types"
)

// Provider generates embeddings from text.
type Provider interface {
	// Embed generates an embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// ModelName returns the name of the embedding model.
	ModelName() string

	// Dimensions returns the expected vector dimensions.
	Dimensions() int
}

// New builds the provider named by cfg.Provider. An empty name
// selects Ollama.
func New(cfg types.EmbeddingConfig) (Provider, error) {
	switch cfg.Provider {
	case "", "ollama":
		return NewOllama(cfg), nil
	case "openai":
		return NewOpenAI(cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
