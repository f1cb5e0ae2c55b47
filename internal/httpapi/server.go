package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"inferd/internal/dispatch"
	"inferd/internal/history"
	"inferd/internal/pool"
	"inferd/pkg/types"
)

// Dispatcher is the dispatch surface consumed by the HTTP layer.
type Dispatcher interface {
	DispatchOrQueue(ctx context.Context, req dispatch.Request) (dispatch.Result, error)
	QueueSnapshot() []types.QueueItemView
	Kick()
}

// Pool is the registry read/refresh surface consumed by the HTTP layer.
type Pool interface {
	ListAll() []pool.ServerStatus
	RefreshAll(ctx context.Context)
	RefreshOne(ctx context.Context, name string) error
	OnlineCount() int
}

// History is the history read surface. May be nil when persistence is
// disabled.
type History interface {
	Recent(ctx context.Context, limit, offset int) ([]history.Record, error)
}

// Config wires the collaborators and transport tunables for NewMux.
type Config struct {
	Dispatcher Dispatcher
	Pool       Pool
	History    History
	Logger     zerolog.Logger
	// MaxBodyBytes limits JSON request bodies; zero means 1 MiB.
	MaxBodyBytes int64
	CORSEnabled  bool
	CORSOrigins  []string
}

type server struct {
	cfg Config
}

// NewMux builds the HTTP router over the dispatch core.
func NewMux(cfg Config) http.Handler {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	s := &server{cfg: cfg}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	r.Use(requestLogger(cfg.Logger))
	if cfg.CORSEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))
	}
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/prompt", s.handlePrompt)
		r.Post("/embeddings", s.handleEmbeddings)
		r.Get("/servers", s.handleServers)
		r.Post("/servers/refresh", s.handleRefreshAll)
		r.Post("/servers/{name}/refresh", s.handleRefreshOne)
		r.Get("/queue", s.handleQueue)
		r.Get("/history", s.handleHistory)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Pool.OnlineCount() > 0 {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("no servers online"))
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

// decodePromptRequest enforces content type and body limits, then decodes
// and validates the shared prompt/embeddings request shape.
func (s *server) decodePromptRequest(w http.ResponseWriter, r *http.Request) (types.PromptRequest, bool) {
	var req types.PromptRequest
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return req, false
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return req, false
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSONError(w, http.StatusBadRequest, "prompt is required")
		return req, false
	}
	if strings.TrimSpace(req.Model) == "" {
		writeJSONError(w, http.StatusBadRequest, "model is required")
		return req, false
	}
	return req, true
}

func (s *server) handlePrompt(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodePromptRequest(w, r)
	if !ok {
		return
	}
	res, err := s.cfg.Dispatcher.DispatchOrQueue(r.Context(), dispatch.Request{
		Model:   req.Model,
		Prompt:  req.Prompt,
		Server:  req.Server,
		Options: req.Options,
	})
	if err != nil {
		s.writeDispatchError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.PromptResponse{
		Response:   res.Response,
		Server:     res.Server,
		Model:      res.Model,
		DurationMs: res.Duration.Milliseconds(),
		CreatedAt:  res.Done,
	})
}

func (s *server) handleEmbeddings(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodePromptRequest(w, r)
	if !ok {
		return
	}
	res, err := s.cfg.Dispatcher.DispatchOrQueue(r.Context(), dispatch.Request{
		Model:     req.Model,
		Prompt:    req.Prompt,
		Server:    req.Server,
		Options:   req.Options,
		Embedding: true,
	})
	if err != nil {
		s.writeDispatchError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.EmbeddingsResponse{
		Embedding:  res.Embedding,
		Server:     res.Server,
		Model:      res.Model,
		DurationMs: res.Duration.Milliseconds(),
	})
}

func (s *server) handleServers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, serversResponse(s.cfg.Pool.ListAll()))
}

func (s *server) handleRefreshAll(w http.ResponseWriter, r *http.Request) {
	s.cfg.Pool.RefreshAll(r.Context())
	s.cfg.Dispatcher.Kick()
	writeJSON(w, http.StatusOK, serversResponse(s.cfg.Pool.ListAll()))
}

func (s *server) handleRefreshOne(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.cfg.Pool.RefreshOne(r.Context(), name); err != nil {
		if pool.IsServerNotFound(err) {
			writeJSONError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.cfg.Dispatcher.Kick()
	writeJSON(w, http.StatusOK, serversResponse(s.cfg.Pool.ListAll()))
}

func (s *server) handleQueue(w http.ResponseWriter, r *http.Request) {
	items := s.cfg.Dispatcher.QueueSnapshot()
	if items == nil {
		items = []types.QueueItemView{}
	}
	writeJSON(w, http.StatusOK, types.QueueResponse{Items: items})
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.cfg.History == nil {
		writeJSONError(w, http.StatusNotFound, "history persistence is disabled")
		return
	}
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	recs, err := s.cfg.History.Recent(r.Context(), limit, offset)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "history query failed")
		return
	}
	entries := make([]types.HistoryEntry, 0, len(recs))
	for _, rec := range recs {
		entries = append(entries, types.HistoryEntry{
			ID:              rec.ID,
			Server:          rec.Server,
			Model:           rec.Model,
			Prompt:          rec.Prompt,
			Response:        rec.Response,
			DurationMs:      rec.Duration.Milliseconds(),
			EstimatedTokens: rec.EstimatedTokens,
			Temperature:     rec.Temperature,
			CreatedAt:       rec.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, types.HistoryResponse{Entries: entries})
}

func serversResponse(statuses []pool.ServerStatus) types.ServersResponse {
	out := types.ServersResponse{Servers: make([]types.ServerView, 0, len(statuses))}
	for _, st := range statuses {
		models := st.Models
		if models == nil {
			models = []string{}
		}
		out.Servers = append(out.Servers, types.ServerView{
			Name:           st.Config.Name,
			BaseURL:        st.Config.BaseURL,
			Online:         st.Online,
			Models:         models,
			ActiveRequests: st.ActiveRequests,
			LastChecked:    st.LastChecked,
		})
	}
	return out
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
