package pool

// IncrementLoad marks one execution in flight on the named server.
func (r *Registry) IncrementLoad(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byName[name]
	if !ok {
		return
	}
	s.activeRequests++
	activeRequests.WithLabelValues(name).Set(float64(s.activeRequests))
}

// DecrementLoad marks one execution settled on the named server. The
// counter never goes below zero.
func (r *Registry) DecrementLoad(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byName[name]
	if !ok {
		return
	}
	if s.activeRequests > 0 {
		s.activeRequests--
	}
	activeRequests.WithLabelValues(name).Set(float64(s.activeRequests))
}
