package modelcache

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// entry is one cached tag listing for a server base URL.
type entry struct {
	models    []string
	fetchedAt time.Time
}

// Cache is a TTL-bounded cache of the model lists reported by each backend
// server's tag-listing endpoint. It never returns an error to callers: a
// failed fetch falls back to the previous (stale) entry, or an empty list
// when none exists. The pool interprets an empty list as offline.
type Cache struct {
	ttl          time.Duration
	fetchTimeout time.Duration
	client       *http.Client
	log          zerolog.Logger

	mu      sync.Mutex
	entries map[string]entry
}

// New constructs a Cache with the given TTL and per-fetch timeout.
func New(ttl, fetchTimeout time.Duration, log zerolog.Logger) *Cache {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   fetchTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:    20,
		IdleConnTimeout: 90 * time.Second,
	}
	// Timeout stays 0 on the client; every fetch carries a context deadline.
	return &Cache{
		ttl:          ttl,
		fetchTimeout: fetchTimeout,
		client:       &http.Client{Transport: tr, Timeout: 0},
		log:          log,
		entries:      make(map[string]entry),
	}
}

// Models returns the model list for baseURL. A fresh cached entry is
// returned as-is; otherwise a fetch is attempted, with the stale entry (or
// an empty list) as fallback on failure.
func (c *Cache) Models(ctx context.Context, baseURL string) []string {
	c.mu.Lock()
	e, ok := c.entries[baseURL]
	c.mu.Unlock()
	if ok && time.Since(e.fetchedAt) < c.ttl {
		return append([]string(nil), e.models...)
	}
	return c.Refresh(ctx, baseURL)
}

// Refresh fetches the tag listing for baseURL bypassing the TTL, replacing
// the cache entry on success. On failure it logs a warning and returns the
// previous entry's models, or an empty list when none exists.
func (c *Cache) Refresh(ctx context.Context, baseURL string) []string {
	models, err := c.fetchTags(ctx, baseURL)
	if err != nil {
		c.log.Warn().Err(err).Str("server", baseURL).Msg("model list fetch failed")
		c.mu.Lock()
		defer c.mu.Unlock()
		if e, ok := c.entries[baseURL]; ok {
			return append([]string(nil), e.models...)
		}
		return nil
	}
	c.mu.Lock()
	c.entries[baseURL] = entry{models: models, fetchedAt: time.Now()}
	c.mu.Unlock()
	return append([]string(nil), models...)
}

// Invalidate drops the entry for baseURL, forcing the next Models call to
// fetch.
func (c *Cache) Invalidate(baseURL string) {
	c.mu.Lock()
	delete(c.entries, baseURL)
	c.mu.Unlock()
}

// tagsResponse mirrors the backend's GET /api/tags body.
type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

func (c *Cache) fetchTags(ctx context.Context, baseURL string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()
	url := strings.TrimRight(baseURL, "/") + "/api/tags"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("tags endpoint: %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	models := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		if m.Name != "" {
			models = append(models, m.Name)
		}
	}
	return models, nil
}
