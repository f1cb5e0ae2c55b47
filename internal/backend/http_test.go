package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGeneratePostsAndParses(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response":"a haiku","done":true}`))
	}))
	defer srv.Close()

	a := NewHTTPAdapter(time.Second)
	res, err := a.Generate(context.Background(), srv.URL, GenerateRequest{
		Model:  "llama3",
		Prompt: "write a haiku",
		Options: map[string]any{
			"temperature": 0.2,
			"embedding":   true, // routing metadata, must not reach the wire
		},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.Response != "a haiku" {
		t.Fatalf("unexpected response: %q", res.Response)
	}
	if got["model"] != "llama3" || got["prompt"] != "write a haiku" {
		t.Fatalf("unexpected payload: %v", got)
	}
	if got["stream"] != false {
		t.Fatalf("expected stream=false, got %v", got["stream"])
	}
	if got["temperature"] != 0.2 {
		t.Fatalf("expected temperature forwarded, got %v", got["temperature"])
	}
	if _, present := got["embedding"]; present {
		t.Fatalf("embedding flag leaked into outbound payload: %v", got)
	}
}

func TestEmbeddingsPostsAndParses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"embedding":[0.1,0.2,0.3]}`))
	}))
	defer srv.Close()

	a := NewHTTPAdapter(time.Second)
	res, err := a.Embeddings(context.Background(), srv.URL, EmbeddingsRequest{Model: "nomic-embed-text", Prompt: "hello"})
	if err != nil {
		t.Fatalf("embeddings: %v", err)
	}
	if len(res.Embedding) != 3 || res.Embedding[1] != 0.2 {
		t.Fatalf("unexpected embedding: %v", res.Embedding)
	}
}

func TestNonSuccessStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model failed to load", http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewHTTPAdapter(time.Second)
	_, err := a.Generate(context.Background(), srv.URL, GenerateRequest{Model: "m", Prompt: "p"})
	if err == nil {
		t.Fatalf("expected error on 500")
	}
}

func TestContextTimeoutSurfacesAsContextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server starts its background connection read;
		// without that it never notices the client disconnect and the request
		// context is never canceled, wedging srv.Close.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	a := NewHTTPAdapter(time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := a.Generate(ctx, srv.URL, GenerateRequest{Model: "m", Prompt: "p"})
	if err != context.DeadlineExceeded {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
