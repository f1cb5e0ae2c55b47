package pool

import (
	"context"
	"sync"
	"time"
)

// RefreshAll refreshes every server's model list concurrently and updates
// online/models/lastChecked. Active request counts reflect live execution
// state and are preserved across refreshes.
func (r *Registry) RefreshAll(ctx context.Context) {
	r.mu.RLock()
	targets := append([]*serverState(nil), r.servers...)
	r.mu.RUnlock()

	var wg sync.WaitGroup
	results := make([][]string, len(targets))
	for i, s := range targets {
		wg.Add(1)
		go func(i int, baseURL string) {
			defer wg.Done()
			results[i] = r.cache.Refresh(ctx, baseURL)
		}(i, s.config.BaseURL)
	}
	wg.Wait()

	now := time.Now()
	r.mu.Lock()
	for i, s := range targets {
		r.applyRefreshLocked(s, results[i], now)
	}
	r.mu.Unlock()
}

// RefreshOne refreshes a single server by name.
func (r *Registry) RefreshOne(ctx context.Context, name string) error {
	r.mu.RLock()
	s, ok := r.byName[name]
	r.mu.RUnlock()
	if !ok {
		return serverNotFoundError{name: name}
	}
	models := r.cache.Refresh(ctx, s.config.BaseURL)
	r.mu.Lock()
	r.applyRefreshLocked(s, models, time.Now())
	r.mu.Unlock()
	return nil
}

func (r *Registry) applyRefreshLocked(s *serverState, models []string, now time.Time) {
	wasOnline := s.online
	s.models = models
	s.online = len(models) > 0
	s.lastChecked = now
	if s.online != wasOnline {
		r.log.Info().Str("server", s.config.Name).Bool("online", s.online).Msg("server availability changed")
	}
	setOnlineMetric(s.config.Name, s.online)
	r.updateOnlineGaugeLocked()
}

func (r *Registry) updateOnlineGaugeLocked() {
	n := 0
	for _, s := range r.servers {
		if s.online {
			n++
		}
	}
	serversOnline.Set(float64(n))
}

// OnlineCount reports how many servers are currently online.
func (r *Registry) OnlineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.servers {
		if s.online {
			n++
		}
	}
	return n
}

// StartSweep refreshes the pool every interval until ctx is done, invoking
// onRefreshed after each pass so the dispatcher can re-evaluate its queue
// against any newly available capacity.
func (r *Registry) StartSweep(ctx context.Context, interval time.Duration, onRefreshed func()) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.RefreshAll(ctx)
				if onRefreshed != nil {
					onRefreshed()
				}
			}
		}
	}()
}
