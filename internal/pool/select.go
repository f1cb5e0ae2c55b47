package pool

import "inferd/internal/modelcache"

// ServersSupporting returns the online servers hosting a model matching the
// requested name, in priority order.
func (r *Registry) ServersSupporting(model string) []ServerStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []ServerStatus
	for _, s := range r.servers {
		if s.online && supportsLocked(s, model) {
			out = append(out, s.status())
		}
	}
	return out
}

// BestFreeServer returns the highest-priority server that is online,
// supports the model, and has a free execution slot.
func (r *Registry) BestFreeServer(model string) (ServerStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.servers {
		if s.online && s.activeRequests == 0 && supportsLocked(s, model) {
			return s.status(), true
		}
	}
	return ServerStatus{}, false
}

// Supports reports whether the named server is online and hosts the model.
func (r *Registry) Supports(name, model string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byName[name]
	return ok && s.online && supportsLocked(s, model)
}

func supportsLocked(s *serverState, model string) bool {
	for _, m := range s.models {
		if modelcache.Match(model, m) {
			return true
		}
	}
	return false
}
