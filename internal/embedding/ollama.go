// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/pdiddy/journal-engine/pkg/types"
)

const (
	// DefaultOllamaURL is the default Ollama API endpoint.
	DefaultOllamaURL = "http://localhost:11434"

	// DefaultModel is the default embedding model, a sentence
	// transformer small enough to run locally.
	DefaultModel = "all-minilm:l6-v2"

	// DefaultDimensions is the output dimensionality of all-minilm.
	DefaultDimensions = 384
)

// OllamaProvider generates embeddings through a local Ollama server.
type OllamaProvider struct {
	client *resty.Client
	model  string
	dims   int
}

// NewOllama builds an OllamaProvider from config, falling back to the
// local-server defaults for anything unset.
func NewOllama(cfg types.EmbeddingConfig) *OllamaProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = DefaultDimensions
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &OllamaProvider{
		client: resty.New().SetBaseURL(baseURL).SetTimeout(timeout),
		model:  model,
		dims:   dims,
	}
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed generates an embedding for the given text.
func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	var result ollamaEmbedResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(ollamaEmbedRequest{Model: p.model, Prompt: text}).
		SetResult(&result).
		Post("/api/embeddings")
	if err != nil {
		return nil, fmt.Errorf("calling ollama: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("ollama returned HTTP %d: %s", resp.StatusCode(), resp.String())
	}
	if len(result.Embedding) != p.dims {
		return nil, fmt.Errorf("unexpected embedding dimensions: got %d, want %d", len(result.Embedding), p.dims)
	}
	return result.Embedding, nil
}

// ModelName returns the name of the embedding model.
func (p *OllamaProvider) ModelName() string { return p.model }

// Dimensions returns the expected vector dimensions.
func (p *OllamaProvider) Dimensions() int { return p.dims }

// Ping checks that the Ollama server is reachable, so an index build
// can fail before any records are read rather than midway through.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	resp, err := p.client.R().SetContext(ctx).Get("/api/tags")
	if err != nil {
		return fmt.Errorf("ollama is not reachable: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("ollama returned HTTP %d", resp.StatusCode())
	}
	return nil
}
