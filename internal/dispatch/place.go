package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DispatchOrQueue places req on a free qualifying server and executes it
// immediately, or queues it when every qualifying server is busy. It blocks
// until the request settles or ctx is done.
//
// Requests that can never succeed fail fast instead of queuing: an unknown
// named server, a named server lacking the model, or (for wildcard
// requests) a model hosted by no online pool member. A named-server request
// is never redirected to a different server.
func (d *Dispatcher) DispatchOrQueue(ctx context.Context, req Request) (Result, error) {
	if req.Server == "" {
		req.Server = WildcardServer
	}
	if err := d.precheck(req); err != nil {
		dispatchTotal.WithLabelValues("rejected").Inc()
		return Result{}, err
	}

	d.mu.Lock()
	server, ok := d.findServerLocked(req)
	if ok {
		d.reg.IncrementLoad(server)
		d.mu.Unlock()
		res, err := d.execute(ctx, server, req)
		if err == nil {
			dispatchTotal.WithLabelValues("direct").Inc()
		}
		return res, err
	}
	item := &queueItem{
		id:        uuid.NewString(),
		req:       req,
		createdAt: time.Now(),
		done:      make(chan outcome, 1),
	}
	d.queue = append(d.queue, item)
	queueDepth.Set(float64(len(d.queue)))
	d.mu.Unlock()
	d.log.Debug().Str("id", item.id).Str("model", req.Model).Str("server", req.Server).Msg("request queued")
	d.Kick()

	select {
	case out := <-item.done:
		queueWait.Observe(time.Since(item.createdAt).Seconds())
		return out.res, out.err
	case <-ctx.Done():
		// No cancellation API: the item stays queued, the caller stops
		// waiting. A later fulfilment lands in the buffered channel.
		return Result{}, ctx.Err()
	}
}

// precheck rejects requests that no amount of queuing can satisfy.
func (d *Dispatcher) precheck(req Request) error {
	if req.Server != WildcardServer {
		if _, ok := d.reg.Get(req.Server); !ok {
			return serverNotFoundError{name: req.Server}
		}
		if !d.reg.Supports(req.Server, req.Model) {
			return unavailableError{model: req.Model, server: req.Server}
		}
		return nil
	}
	if len(d.reg.ServersSupporting(req.Model)) == 0 {
		return unavailableError{model: req.Model}
	}
	return nil
}

// findServerLocked returns the name of a server that can run req right now.
// Must be called with d.mu held: holding the lock across find-and-increment
// is what keeps two requests from claiming the same free slot.
func (d *Dispatcher) findServerLocked(req Request) (string, bool) {
	if req.Server != WildcardServer {
		s, ok := d.reg.Get(req.Server)
		if ok && s.Online && s.ActiveRequests == 0 && d.reg.Supports(req.Server, req.Model) {
			return req.Server, true
		}
		return "", false
	}
	s, ok := d.reg.BestFreeServer(req.Model)
	if !ok {
		return "", false
	}
	return s.Config.Name, true
}
