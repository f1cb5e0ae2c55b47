package pool

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"inferd/internal/modelcache"
)

// ServerConfig identifies one configured backend server. Priority rank is
// implicit in configuration order and stable for the process lifetime.
type ServerConfig struct {
	Name    string
	BaseURL string
}

// ServerStatus is a read-only copy of one server's state.
type ServerStatus struct {
	Config         ServerConfig
	Online         bool
	Models         []string
	ActiveRequests int
	LastChecked    time.Time
}

// serverState is the mutable record behind ServerStatus, owned by Registry.
type serverState struct {
	config         ServerConfig
	online         bool
	models         []string
	activeRequests int
	lastChecked    time.Time
}

// Registry holds one status record per configured server, refreshed from
// the model cache, in priority order.
type Registry struct {
	cache *modelcache.Cache
	log   zerolog.Logger

	mu      sync.RWMutex
	servers []*serverState
	byName  map[string]*serverState
}

// New builds a Registry over the given ordered configs. All servers start
// offline with zero active requests; call RefreshAll to populate state.
// Configs must have unique names (enforced by the config loader).
func New(configs []ServerConfig, cache *modelcache.Cache, log zerolog.Logger) *Registry {
	r := &Registry{
		cache:   cache,
		log:     log,
		servers: make([]*serverState, 0, len(configs)),
		byName:  make(map[string]*serverState, len(configs)),
	}
	for _, c := range configs {
		s := &serverState{config: c}
		r.servers = append(r.servers, s)
		r.byName[c.Name] = s
	}
	return r
}

// Get returns a copy of the named server's status.
func (r *Registry) Get(name string) (ServerStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byName[name]
	if !ok {
		return ServerStatus{}, false
	}
	return s.status(), true
}

// ListAll returns all server statuses in priority rank order.
func (r *Registry) ListAll() []ServerStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ServerStatus, 0, len(r.servers))
	for _, s := range r.servers {
		out = append(out, s.status())
	}
	return out
}

func (s *serverState) status() ServerStatus {
	return ServerStatus{
		Config:         s.config,
		Online:         s.online,
		Models:         append([]string(nil), s.models...),
		ActiveRequests: s.activeRequests,
		LastChecked:    s.lastChecked,
	}
}
