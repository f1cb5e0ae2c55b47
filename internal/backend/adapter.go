package backend

import "context"

// GenerateRequest is one completion call against a chosen server.
type GenerateRequest struct {
	Model  string
	Prompt string
	// Options are forwarded verbatim to the backend, except orchestration
	// metadata (the "embedding" routing flag), which is stripped.
	Options map[string]any
}

// GenerateResult is the parsed completion response.
type GenerateResult struct {
	Response string
}

// EmbeddingsRequest is one embedding call against a chosen server.
type EmbeddingsRequest struct {
	Model   string
	Prompt  string
	Options map[string]any
}

// EmbeddingsResult is the parsed embedding response.
type EmbeddingsResult struct {
	Embedding []float64
}

// Adapter performs the actual network call to a chosen server's generation
// or embedding endpoint. Implementations must honor context cancellation.
type Adapter interface {
	Generate(ctx context.Context, baseURL string, req GenerateRequest) (GenerateResult, error)
	Embeddings(ctx context.Context, baseURL string, req EmbeddingsRequest) (EmbeddingsResult, error)
}
