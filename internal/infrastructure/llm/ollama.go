package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"NewsForge/internal/config"
	"NewsForge/internal/domain"
	"NewsForge/internal/ports"
)

// OllamaClient implements ports.ModelBackend against an Ollama-compatible
// HTTP API. Transient failures (connection errors, 5xx) are retried with
// exponential backoff; exhausting the configured attempts surfaces
// domain.ErrBackendUnavailable.
type OllamaClient struct {
	endpoint    string
	model       string
	maxAttempts int
	httpClient  *http.Client

	// initialInterval is shortened in tests.
	initialInterval time.Duration
}

var _ ports.ModelBackend = (*OllamaClient)(nil)

// NewOllamaClient builds a client from configuration.
func NewOllamaClient(cfg config.OllamaConfig) *OllamaClient {
	return &OllamaClient{
		endpoint:    strings.TrimSuffix(cfg.Endpoint, "/"),
		model:       cfg.Model,
		maxAttempts: cfg.MaxAttempts,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		initialInterval: 500 * time.Millisecond,
	}
}

type generateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Complete posts the prompt and returns the raw model text.
func (c *OllamaClient) Complete(ctx context.Context, prompt string, opts domain.CompletionOptions) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
		Options: map[string]any{
			"temperature": opts.Temperature,
			"num_predict": opts.MaxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal generate payload: %w", err)
	}

	var out generateResponse
	if err := c.postWithRetry(ctx, "/api/generate", body, &out); err != nil {
		return "", err
	}
	return out.Response, nil
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ListModels queries the backend for its loaded models; used as a preflight
// availability check.
func (c *OllamaClient) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list models: %v: %w", err, domain.ErrBackendUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list models: %s: %w", resp.Status, domain.ErrBackendUnavailable)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

func (c *OllamaClient) postWithRetry(ctx context.Context, path string, body []byte, v any) error {
	operation := func() error {
		return c.post(ctx, path, body, v)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialInterval

	retries := uint64(0)
	if c.maxAttempts > 1 {
		retries = uint64(c.maxAttempts - 1)
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, retries), ctx))
	if err == nil {
		return nil
	}
	if errors.Is(err, errTransient) {
		return fmt.Errorf("%v: %w", err, domain.ErrBackendUnavailable)
	}
	return err
}

// errTransient marks failures worth retrying: connection errors and 5xx.
var errTransient = errors.New("transient backend failure")

func (c *OllamaClient) post(ctx context.Context, path string, body []byte, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("new request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %v: %w", err, errTransient)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("backend error %s: %w", resp.Status, errTransient)
	}
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return backoff.Permanent(fmt.Errorf("backend rejected request %s: %s", resp.Status, strings.TrimSpace(string(payload))))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return nil
}
