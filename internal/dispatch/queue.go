package dispatch

import (
	"context"
	"time"

	"inferd/pkg/types"
)

// queueItem is one request waiting for a free slot. Items are either in
// the queue or gone; nothing mutates them in place.
type queueItem struct {
	id        string
	req       Request
	createdAt time.Time
	done      chan outcome
}

type outcome struct {
	res Result
	err error
}

// Kick schedules a queue scan. Called after every enqueue, after every
// execution completion, and after pool refreshes.
func (d *Dispatcher) Kick() {
	go d.processQueue()
}

// processQueue scans the queue in arrival order and launches every item
// that finds a free qualifying server, leaving the rest in their original
// relative order. At most one scan runs at a time; triggers that arrive
// during a scan coalesce into a single follow-up pass. Admission is not
// strict FIFO: a later item whose server is free dispatches even while an
// earlier item stays blocked.
func (d *Dispatcher) processQueue() {
	d.mu.Lock()
	if d.processing {
		d.pendingKick = true
		d.mu.Unlock()
		return
	}
	d.processing = true
	for {
		d.pendingKick = false
		var remaining []*queueItem
		type placement struct {
			item   *queueItem
			server string
		}
		var placed []placement
		for _, it := range d.queue {
			if server, ok := d.findServerLocked(it.req); ok {
				d.reg.IncrementLoad(server)
				placed = append(placed, placement{item: it, server: server})
			} else {
				remaining = append(remaining, it)
			}
		}
		d.queue = remaining
		queueDepth.Set(float64(len(remaining)))
		d.mu.Unlock()

		for _, p := range placed {
			d.log.Debug().Str("id", p.item.id).Str("server", p.server).Msg("queued request placed")
			go d.runQueued(p.server, p.item)
		}

		d.mu.Lock()
		if !d.pendingKick {
			break
		}
	}
	d.processing = false
	d.mu.Unlock()
}

// runQueued executes a placed queue item and fulfils its completion handle
// exactly once. The submitter's context is not carried: a queued item runs
// under the execution timeout alone.
func (d *Dispatcher) runQueued(server string, it *queueItem) {
	res, err := d.execute(context.Background(), server, it.req)
	if err == nil {
		dispatchTotal.WithLabelValues("queued").Inc()
	}
	it.done <- outcome{res: res, err: err}
}

// QueueSnapshot returns the pending queue in arrival order.
func (d *Dispatcher) QueueSnapshot() []types.QueueItemView {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := time.Now()
	out := make([]types.QueueItemView, 0, len(d.queue))
	for _, it := range d.queue {
		out = append(out, types.QueueItemView{
			ID:        it.id,
			Model:     it.req.Model,
			Server:    it.req.Server,
			CreatedAt: it.createdAt,
			WaitedMs:  now.Sub(it.createdAt).Milliseconds(),
		})
	}
	return out
}

// QueueLen reports the number of pending items.
func (d *Dispatcher) QueueLen() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}
