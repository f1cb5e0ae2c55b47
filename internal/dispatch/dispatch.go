package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"inferd/internal/backend"
	"inferd/internal/history"
	"inferd/internal/pool"
)

// WildcardServer is the request server value meaning "let the dispatcher
// choose". An empty server field is treated the same way.
const WildcardServer = "any"

// Request is one unit of work submitted to the dispatcher.
type Request struct {
	Model  string
	Prompt string
	// Server is a configured server name, or WildcardServer/empty.
	Server string
	// Options are extra generation parameters forwarded to the backend.
	Options map[string]any
	// Embedding routes the request to the embedding endpoint.
	Embedding bool
}

// Result is the settled outcome of an executed request.
type Result struct {
	Response  string
	Embedding []float64
	Server    string
	Model     string
	Duration  time.Duration
	Done      time.Time
}

// Sink receives completed prompt/response pairs. Writes are fire-and-forget
// from the dispatch path: failures are logged, never propagated.
type Sink interface {
	Save(ctx context.Context, rec history.Record) error
}

// Config encapsulates dispatcher tunables and collaborators.
type Config struct {
	Registry *pool.Registry
	Adapter  backend.Adapter
	// Sink may be nil to disable history persistence.
	Sink Sink
	// ExecTimeout bounds each backend call. Zero means the default.
	ExecTimeout time.Duration
	Logger      zerolog.Logger
}

const defaultExecTimeout = 5 * time.Minute

// Dispatcher owns the pending queue and all placement decisions.
type Dispatcher struct {
	reg         *pool.Registry
	adapter     backend.Adapter
	sink        Sink
	execTimeout time.Duration
	log         zerolog.Logger

	mu          sync.Mutex
	queue       []*queueItem
	processing  bool
	pendingKick bool
}

// New constructs a Dispatcher from Config, applying defaults.
func New(cfg Config) *Dispatcher {
	timeout := cfg.ExecTimeout
	if timeout <= 0 {
		timeout = defaultExecTimeout
	}
	return &Dispatcher{
		reg:         cfg.Registry,
		adapter:     cfg.Adapter,
		sink:        cfg.Sink,
		execTimeout: timeout,
		log:         cfg.Logger,
	}
}
