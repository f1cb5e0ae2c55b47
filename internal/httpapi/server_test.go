package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"inferd/internal/backend"
	"inferd/internal/dispatch"
	"inferd/internal/history"
	"inferd/internal/modelcache"
	"inferd/internal/pool"
	"inferd/pkg/types"
)

// newFakeOllama serves /api/tags, /api/generate and /api/embeddings like a
// backend inference server.
func newFakeOllama(t *testing.T, models ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/tags":
			body := `{"models":[`
			for i, m := range models {
				if i > 0 {
					body += ","
				}
				body += `{"name":"` + m + `"}`
			}
			w.Write([]byte(body + `]}`))
		case "/api/generate":
			var req map[string]any
			json.NewDecoder(r.Body).Decode(&req)
			w.Write([]byte(`{"response":"echo: ` + req["prompt"].(string) + `","done":true}`))
		case "/api/embeddings":
			w.Write([]byte(`{"embedding":[0.5,0.25]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

type testStack struct {
	mux  http.Handler
	reg  *pool.Registry
	disp *dispatch.Dispatcher
}

func newTestStack(t *testing.T, hist History, servers ...*httptest.Server) *testStack {
	t.Helper()
	configs := make([]pool.ServerConfig, len(servers))
	for i, s := range servers {
		configs[i] = pool.ServerConfig{Name: "srv" + string(rune('a'+i)), BaseURL: s.URL}
	}
	cache := modelcache.New(time.Hour, time.Second, zerolog.Nop())
	reg := pool.New(configs, cache, zerolog.Nop())
	reg.RefreshAll(context.Background())
	disp := dispatch.New(dispatch.Config{
		Registry:    reg,
		Adapter:     backend.NewHTTPAdapter(time.Second),
		ExecTimeout: 5 * time.Second,
		Logger:      zerolog.Nop(),
	})
	mux := NewMux(Config{Dispatcher: disp, Pool: reg, History: hist, Logger: zerolog.Nop()})
	return &testStack{mux: mux, reg: reg, disp: disp}
}

func doJSON(t *testing.T, mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestPromptHappyPath(t *testing.T) {
	st := newTestStack(t, nil, newFakeOllama(t, "llama3:latest"))
	rec := doJSON(t, st.mux, http.MethodPost, "/api/prompt", `{"model":"llama3","prompt":"hi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var resp types.PromptResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Response != "echo: hi" || resp.Server != "srva" || resp.Model != "llama3" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestPromptValidation(t *testing.T) {
	st := newTestStack(t, nil, newFakeOllama(t, "llama3"))
	cases := []struct {
		name string
		ct   string
		body string
		want int
	}{
		{"missing content type", "", `{"model":"llama3","prompt":"x"}`, http.StatusUnsupportedMediaType},
		{"bad json", "application/json", `{`, http.StatusBadRequest},
		{"missing prompt", "application/json", `{"model":"llama3"}`, http.StatusBadRequest},
		{"missing model", "application/json", `{"prompt":"x"}`, http.StatusBadRequest},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/prompt", strings.NewReader(c.body))
		if c.ct != "" {
			req.Header.Set("Content-Type", c.ct)
		}
		rec := httptest.NewRecorder()
		st.mux.ServeHTTP(rec, req)
		if rec.Code != c.want {
			t.Fatalf("%s: status = %d, want %d", c.name, rec.Code, c.want)
		}
	}
}

func TestPromptErrorMapping(t *testing.T) {
	st := newTestStack(t, nil, newFakeOllama(t, "llama3:latest"))

	// model hosted nowhere: 503, never queued
	rec := doJSON(t, st.mux, http.MethodPost, "/api/prompt", `{"model":"gpt-unknown","prompt":"x"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unknown model: status = %d", rec.Code)
	}

	// unknown named server: 404
	rec = doJSON(t, st.mux, http.MethodPost, "/api/prompt", `{"model":"llama3","prompt":"x","server":"ghost"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown server: status = %d", rec.Code)
	}
}

func TestPromptBackendFailureIs502(t *testing.T) {
	backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tags" {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"models":[{"name":"llama3:latest"}]}`))
			return
		}
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	t.Cleanup(backendSrv.Close)
	st := newTestStack(t, nil, backendSrv)

	rec := doJSON(t, st.mux, http.MethodPost, "/api/prompt", `{"model":"llama3","prompt":"x"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestEmbeddingsEndpoint(t *testing.T) {
	st := newTestStack(t, nil, newFakeOllama(t, "nomic-embed-text:latest"))
	rec := doJSON(t, st.mux, http.MethodPost, "/api/embeddings", `{"model":"nomic-embed-text","prompt":"hi"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var resp types.EmbeddingsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Embedding) != 2 || resp.Embedding[0] != 0.5 {
		t.Fatalf("unexpected embedding: %+v", resp)
	}
}

func TestServersListing(t *testing.T) {
	st := newTestStack(t, nil, newFakeOllama(t, "llama3:latest", "mistral:7b"))
	rec := doJSON(t, st.mux, http.MethodGet, "/api/servers", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp types.ServersResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Servers) != 1 {
		t.Fatalf("expected 1 server, got %+v", resp)
	}
	s := resp.Servers[0]
	if s.Name != "srva" || !s.Online || len(s.Models) != 2 || s.ActiveRequests != 0 {
		t.Fatalf("unexpected server view: %+v", s)
	}
}

func TestRefreshOneUnknownServer(t *testing.T) {
	st := newTestStack(t, nil, newFakeOllama(t, "llama3"))
	rec := doJSON(t, st.mux, http.MethodPost, "/api/servers/ghost/refresh", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRefreshAllReturnsListing(t *testing.T) {
	st := newTestStack(t, nil, newFakeOllama(t, "llama3"))
	rec := doJSON(t, st.mux, http.MethodPost, "/api/servers/refresh", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp types.ServersResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || len(resp.Servers) != 1 {
		t.Fatalf("unexpected listing: %s", rec.Body.String())
	}
}

func TestQueueEndpointEmpty(t *testing.T) {
	st := newTestStack(t, nil, newFakeOllama(t, "llama3"))
	rec := doJSON(t, st.mux, http.MethodGet, "/api/queue", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp types.QueueResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 0 {
		t.Fatalf("expected empty queue, got %+v", resp.Items)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	store, err := history.Open(filepath.Join(t.TempDir(), "h.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Save(context.Background(), history.Record{
		Server: "srva", Model: "llama3", Prompt: "p", Response: "r",
		Duration: 40 * time.Millisecond,
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	st := newTestStack(t, store, newFakeOllama(t, "llama3"))
	rec := doJSON(t, st.mux, http.MethodGet, "/api/history?limit=10", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp types.HistoryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Entries) != 1 || resp.Entries[0].Response != "r" || resp.Entries[0].DurationMs != 40 {
		t.Fatalf("unexpected history: %+v", resp.Entries)
	}
}

func TestHistoryDisabled(t *testing.T) {
	st := newTestStack(t, nil, newFakeOllama(t, "llama3"))
	rec := doJSON(t, st.mux, http.MethodGet, "/api/history", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHealthAndReadiness(t *testing.T) {
	st := newTestStack(t, nil, newFakeOllama(t, "llama3"))
	if rec := doJSON(t, st.mux, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}
	if rec := doJSON(t, st.mux, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Fatalf("readyz: %d", rec.Code)
	}
}

func TestReadinessWithNoOnlineServers(t *testing.T) {
	// a server reporting zero models is offline, so the pool is not ready
	st := newTestStack(t, nil, newFakeOllama(t))
	rec := doJSON(t, st.mux, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz: %d", rec.Code)
	}
}
