// Package embed provides sentence-embedding clients and the persistent
// content-addressed embedding cache behind the semantic analysis stages.
//
// Two providers are supported:
//   - Ollama: local open-source models (paraphrase-multilingual, nomic-embed-text)
//   - OpenAI: hosted API (text-embedding-3-small, text-embedding-3-large)
//
// The rest of the engine only sees the Embedder interface, so tests inject
// mocks and the semantic stages stay model-agnostic.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// ErrUnavailable marks the embedding model as unreachable or unconfigured.
// Callers use it to skip semantic analysis instead of failing the audit.
var ErrUnavailable = errors.New("embed: model unavailable")

// Embedder generates vector embeddings from text.
//
// Implementations must be safe for concurrent use. EmbedBatch is the
// primary entry point: providers with true batch support answer a whole
// miss set in one round trip.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector dimension.
	Dimensions() int

	// Model returns the model name.
	Model() string
}

// Config holds embedding provider configuration.
type Config struct {
	Provider   string        // ollama, openai
	APIURL     string        // e.g. http://localhost:11434
	APIPath    string        // e.g. /api/embeddings or /v1/embeddings
	APIKey     string        // OpenAI only
	Model      string        // e.g. paraphrase-multilingual
	Dimensions int           // expected vector size
	Timeout    time.Duration // per-request timeout

	// RequestsPerSecond throttles API calls. 0 disables throttling.
	RequestsPerSecond float64
}

// DefaultOllamaConfig returns configuration for a local Ollama instance
// running a multilingual sentence model, which handles French anchor text
// well.
func DefaultOllamaConfig() *Config {
	return &Config{
		Provider:   "ollama",
		APIURL:     "http://localhost:11434",
		APIPath:    "/api/embeddings",
		Model:      "paraphrase-multilingual",
		Dimensions: 768,
		Timeout:    30 * time.Second,
	}
}

// DefaultOpenAIConfig returns configuration for OpenAI's
// text-embedding-3-small.
func DefaultOpenAIConfig(apiKey string) *Config {
	return &Config{
		Provider:   "openai",
		APIURL:     "https://api.openai.com",
		APIPath:    "/v1/embeddings",
		APIKey:     apiKey,
		Model:      "text-embedding-3-small",
		Dimensions: 1536,
		Timeout:    30 * time.Second,
	}
}

func newLimiter(c *Config) *rate.Limiter {
	if c.RequestsPerSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(c.RequestsPerSecond), 1)
}

// OllamaEmbedder implements Embedder against a local Ollama server.
// Thread-safe.
type OllamaEmbedder struct {
	config  *Config
	client  *http.Client
	limiter *rate.Limiter
}

// NewOllama creates an Ollama embedder. A nil config uses defaults.
func NewOllama(config *Config) *OllamaEmbedder {
	if config == nil {
		config = DefaultOllamaConfig()
	}
	return &OllamaEmbedder{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		limiter: newLimiter(config),
	}
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed generates an embedding for one text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	body, err := json.Marshal(ollamaRequest{Model: e.config.Model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := e.config.APIURL + e.config.APIPath
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama returned %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var ollamaResp ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return ollamaResp.Embedding, nil
}

// EmbedBatch generates embeddings for multiple texts. Ollama's embeddings
// endpoint is single-text, so this iterates; the rate limiter paces the
// calls.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	for i, text := range texts {
		embedding, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed text %d: %w", i, err)
		}
		results[i] = embedding
	}
	return results, nil
}

// Dimensions returns the expected embedding dimensions.
func (e *OllamaEmbedder) Dimensions() int { return e.config.Dimensions }

// Model returns the model name.
func (e *OllamaEmbedder) Model() string { return e.config.Model }

// OpenAIEmbedder implements Embedder against OpenAI's embedding API.
// Thread-safe.
type OpenAIEmbedder struct {
	config  *Config
	client  *http.Client
	limiter *rate.Limiter
}

// NewOpenAI creates an OpenAI embedder. A nil config uses defaults
// (and will fail without an API key).
func NewOpenAI(config *Config) *OpenAIEmbedder {
	if config == nil {
		config = DefaultOpenAIConfig("")
	}
	return &OpenAIEmbedder{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		limiter: newLimiter(config),
	}
}

type openaiRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openaiResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Embed generates an embedding for one text via a single-element batch.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return embeddings[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one API call.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	body, err := json.Marshal(openaiRequest{Model: e.config.Model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := e.config.APIURL + e.config.APIPath
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.config.APIKey)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("openai returned %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var openaiResp openaiResponse
	if err := json.NewDecoder(resp.Body).Decode(&openaiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	results := make([][]float32, len(texts))
	for _, data := range openaiResp.Data {
		if data.Index >= 0 && data.Index < len(results) {
			results[data.Index] = data.Embedding
		}
	}
	return results, nil
}

// Dimensions returns the expected embedding dimensions.
func (e *OpenAIEmbedder) Dimensions() int { return e.config.Dimensions }

// Model returns the model name.
func (e *OpenAIEmbedder) Model() string { return e.config.Model }

// NewEmbedder creates an embedder for the provider named in config.
// Returns ErrUnavailable for "none" or an empty provider so callers treat
// an unconfigured model the same way as an unreachable one.
func NewEmbedder(config *Config) (Embedder, error) {
	switch config.Provider {
	case "ollama":
		return NewOllama(config), nil
	case "openai":
		if config.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key")
		}
		return NewOpenAI(config), nil
	case "", "none":
		return nil, ErrUnavailable
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", config.Provider)
	}
}
