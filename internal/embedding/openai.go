// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/pdiddy/journal-engine/pkg/types"
)

const (
	// DefaultOpenAIURL is the OpenAI embeddings API base.
	DefaultOpenAIURL = "https://api.openai.com/v1"

	// DefaultOpenAIModel is the default hosted embedding model.
	DefaultOpenAIModel = "text-embedding-3-small"

	// DefaultOpenAIDimensions is the output dimensionality of
	// text-embedding-3-small.
	DefaultOpenAIDimensions = 1536
)

// OpenAIProvider generates embeddings through an OpenAI-compatible
// endpoint.
type OpenAIProvider struct {
	client *resty.Client
	model  string
	dims   int
}

// NewOpenAI builds an OpenAIProvider from config. The API key is
// required; base URL, model, and dimensions fall back to the OpenAI
// defaults, so a compatible self-hosted endpoint only needs BaseURL
// and its model's dimensions set.
func NewOpenAI(cfg types.EmbeddingConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai embedding provider requires an API key")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultOpenAIURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = DefaultOpenAIDimensions
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Authorization", "Bearer "+cfg.APIKey)

	return &OpenAIProvider{client: client, model: model, dims: dims}, nil
}

type openaiEmbedRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type openaiEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Embed generates an embedding for the given text.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	req := openaiEmbedRequest{Model: p.model, Input: []string{text}}
	if p.dims != DefaultOpenAIDimensions {
		req.Dimensions = p.dims
	}

	var result openaiEmbedResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		SetError(&result).
		Post("/embeddings")
	if err != nil {
		return nil, fmt.Errorf("calling embeddings endpoint: %w", err)
	}
	if resp.IsError() {
		if result.Error.Message != "" {
			return nil, fmt.Errorf("embeddings endpoint: %s", result.Error.Message)
		}
		return nil, fmt.Errorf("embeddings endpoint returned HTTP %d", resp.StatusCode())
	}
	if len(result.Data) == 0 {
		return nil, errors.New("no embedding returned")
	}

	vec := result.Data[0].Embedding
	if len(vec) != p.dims {
		return nil, fmt.Errorf("unexpected embedding dimensions: got %d, want %d", len(vec), p.dims)
	}
	return vec, nil
}

// ModelName returns the name of the embedding model.
func (p *OpenAIProvider) ModelName() string { return p.model }

// Dimensions returns the expected vector dimensions.
func (p *OpenAIProvider) Dimensions() int { return p.dims }
