package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// embeddingFlag marks a request as targeting the embedding endpoint. It is
// orchestration metadata, not a backend parameter, and never leaves the
// process.
const embeddingFlag = "embedding"

// HTTPAdapter talks to Ollama-compatible servers over HTTP:
// POST {base}/api/generate and POST {base}/api/embeddings, both with
// stream disabled.
type HTTPAdapter struct {
	client *http.Client
}

// NewHTTPAdapter constructs an adapter with the given connect timeout.
// Per-call deadlines come from the caller's context; the client itself has
// no overall timeout.
func NewHTTPAdapter(connectTimeout time.Duration) *HTTPAdapter {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &HTTPAdapter{client: &http.Client{Transport: tr, Timeout: 0}}
}

// generateResponse is the subset of the backend's /api/generate body we use.
type generateResponse struct {
	Response string `json:"response"`
}

// embeddingsResponse is the subset of the backend's /api/embeddings body we use.
type embeddingsResponse struct {
	Embedding []float64 `json:"embedding"`
}

func (a *HTTPAdapter) Generate(ctx context.Context, baseURL string, req GenerateRequest) (GenerateResult, error) {
	body, err := a.post(ctx, baseURL, "/api/generate", req.Model, req.Prompt, req.Options)
	if err != nil {
		return GenerateResult{}, err
	}
	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return GenerateResult{}, fmt.Errorf("decode generate response: %w", err)
	}
	return GenerateResult{Response: out.Response}, nil
}

func (a *HTTPAdapter) Embeddings(ctx context.Context, baseURL string, req EmbeddingsRequest) (EmbeddingsResult, error) {
	body, err := a.post(ctx, baseURL, "/api/embeddings", req.Model, req.Prompt, req.Options)
	if err != nil {
		return EmbeddingsResult{}, err
	}
	var out embeddingsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return EmbeddingsResult{}, fmt.Errorf("decode embeddings response: %w", err)
	}
	return EmbeddingsResult{Embedding: out.Embedding}, nil
}

func (a *HTTPAdapter) post(ctx context.Context, baseURL, path, model, prompt string, options map[string]any) ([]byte, error) {
	payload := map[string]any{
		"model":  model,
		"prompt": prompt,
		"stream": false,
	}
	for k, v := range options {
		if k == embeddingFlag {
			continue
		}
		payload[k] = v
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	url := strings.TrimRight(baseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("backend %s: %s: %s", path, resp.Status, strings.TrimSpace(string(snippet)))
	}
	return io.ReadAll(resp.Body)
}
