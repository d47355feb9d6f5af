package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrMissingAPIKey is returned when no Voyage API key is configured. It fails
// the run before any work is done.
var ErrMissingAPIKey = errors.New("voyage api key not set (set VOYAGE_API_KEY)")

const (
	// DefaultBaseURL is the Voyage AI API endpoint.
	DefaultBaseURL = "https://api.voyageai.com"
	// DefaultModel embeds code into 1024-dimension vectors.
	DefaultModel = "voyage-code-3"

	maxAttempts    = 3
	retryBaseDelay = 500 * time.Millisecond
)

// Embedder turns a batch of texts into fixed-dimension vectors. The returned
// slice has the same length and order as the input, so vectors can be zipped
// back to their source texts by position.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// VoyageEmbedder calls the Voyage AI embeddings endpoint.
type VoyageEmbedder struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewVoyageEmbedder creates an embedder for the given model. An empty baseURL
// or model falls back to the defaults; a missing API key is a configuration
// error surfaced immediately.
func NewVoyageEmbedder(baseURL, apiKey, model string) (*VoyageEmbedder, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &VoyageEmbedder{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// Model returns the configured model name.
func (e *VoyageEmbedder) Model() string { return e.model }

type embedRequest struct {
	Input     []string `json:"input"`
	Model     string   `json:"model"`
	InputType string   `json:"input_type"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

// Embed sends one batch of texts to Voyage and returns their embeddings in
// input order. Transient failures (network errors, 429, 5xx) are retried with
// bounded exponential backoff; other HTTP errors are terminal.
func (e *VoyageEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(embedRequest{
		Input:     texts,
		Model:     e.model,
		InputType: "document",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		vecs, retryable, err := e.doEmbed(ctx, body, len(texts))
		if err == nil {
			return vecs, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}
	return nil, fmt.Errorf("embed batch after %d attempts: %w", maxAttempts, lastErr)
}

func (e *VoyageEmbedder) doEmbed(ctx context.Context, body []byte, want int) ([][]float32, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("voyage embed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retryable, fmt.Errorf("voyage embed returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, false, fmt.Errorf("decode embed response: %w", err)
	}
	if len(result.Data) != want {
		return nil, false, fmt.Errorf("expected %d embeddings, got %d", want, len(result.Data))
	}

	vecs := make([][]float32, want)
	for _, d := range result.Data {
		if d.Index < 0 || d.Index >= want {
			return nil, false, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		vecs[d.Index] = d.Embedding
	}
	return vecs, false, nil
}
