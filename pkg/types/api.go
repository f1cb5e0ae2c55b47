package types

import "time"

// PromptRequest is the payload accepted by POST /api/prompt and
// POST /api/embeddings.
type PromptRequest struct {
	// Model to run, e.g. "llama3" or "llama3:8b". A missing tag means ":latest".
	Model string `json:"model"`
	// Prompt text to complete (or to embed).
	Prompt string `json:"prompt"`
	// Target server name, or "any" (default) to let the dispatcher choose.
	Server string `json:"server,omitempty"`
	// Extra generation parameters forwarded verbatim to the backend
	// (temperature, top_p, num_predict, ...).
	Options map[string]any `json:"options,omitempty"`
}

// PromptResponse is returned by POST /api/prompt.
type PromptResponse struct {
	Response   string    `json:"response"`
	Server     string    `json:"server"`
	Model      string    `json:"model"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// EmbeddingsResponse is returned by POST /api/embeddings.
type EmbeddingsResponse struct {
	Embedding  []float64 `json:"embedding"`
	Server     string    `json:"server"`
	Model      string    `json:"model"`
	DurationMs int64     `json:"duration_ms"`
}

// ServerView summarizes one pool member for GET /api/servers.
type ServerView struct {
	Name           string    `json:"name"`
	BaseURL        string    `json:"base_url"`
	Online         bool      `json:"online"`
	Models         []string  `json:"models"`
	ActiveRequests int       `json:"active_requests"`
	LastChecked    time.Time `json:"last_checked"`
}

// ServersResponse wraps the pool listing in priority order.
type ServersResponse struct {
	Servers []ServerView `json:"servers"`
}

// QueueItemView summarizes one pending request for GET /api/queue.
type QueueItemView struct {
	ID        string    `json:"id"`
	Model     string    `json:"model"`
	Server    string    `json:"server"`
	CreatedAt time.Time `json:"created_at"`
	WaitedMs  int64     `json:"waited_ms"`
}

// QueueResponse wraps the pending queue in arrival order.
type QueueResponse struct {
	Items []QueueItemView `json:"items"`
}

// HistoryEntry is one persisted prompt/response pair.
type HistoryEntry struct {
	ID              string    `json:"id"`
	Server          string    `json:"server"`
	Model           string    `json:"model"`
	Prompt          string    `json:"prompt"`
	Response        string    `json:"response"`
	DurationMs      int64     `json:"duration_ms"`
	EstimatedTokens int       `json:"estimated_tokens"`
	Temperature     *float64  `json:"temperature,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// HistoryResponse wraps GET /api/history results, newest first.
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}
