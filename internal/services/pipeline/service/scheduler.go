package service

import (
	"container/heap"
	"context"
	"sync"

	"golang.org/x/time/rate"

	perr "linkshell/internal/platform/errors"
	dom "linkshell/internal/services/pipeline/domain"
)

var (
	// ErrBacklogFull rejects an offer when the queue is at capacity
	ErrBacklogFull = perr.New(perr.ErrorCodeTooManyRequests, "translation backlog full")
	// ErrClosed rejects offers after shutdown
	ErrClosed = perr.New(perr.ErrorCodeUnavailable, "pipeline stopped")
)

type queued struct {
	req dom.Request
	seq uint64
}

// reqHeap orders by priority desc, then arrival asc
type reqHeap []queued

func (h reqHeap) Len() int { return len(h) }
func (h reqHeap) Less(i, j int) bool {
	if h[i].req.Priority != h[j].req.Priority {
		return h[i].req.Priority > h[j].req.Priority
	}
	return h[i].seq < h[j].seq
}
func (h reqHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *reqHeap) Push(x any)   { *h = append(*h, x.(queued)) }
func (h *reqHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = queued{}
	*h = old[:n-1]
	return it
}

// Scheduler admits requests into a bounded priority queue and paces engine
// calls at a capped aggregate rate. Offer never blocks
type Scheduler struct {
	mu     sync.Mutex
	q      reqHeap
	seq    uint64
	max    int
	closed bool
	depth  map[dom.Priority]int

	ready chan struct{}
	lim   *rate.Limiter
}

// NewScheduler builds a scheduler releasing at most tps requests per second.
// tps <= 0 disables the limiter
func NewScheduler(tps float64, burst, maxQueue int) *Scheduler {
	if burst < 1 {
		burst = 1
	}
	lim := rate.NewLimiter(rate.Inf, burst)
	if tps > 0 {
		lim = rate.NewLimiter(rate.Limit(tps), burst)
	}
	return &Scheduler{
		max:   maxQueue,
		depth: make(map[dom.Priority]int, 3),
		ready: make(chan struct{}, 1),
		lim:   lim,
	}
}

func (s *Scheduler) signal() {
	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// Offer enqueues r or rejects it with ErrBacklogFull. Every offer, retries
// included, gets a fresh arrival number and joins the tail of its tier
func (s *Scheduler) Offer(r dom.Request) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.max > 0 && len(s.q) >= s.max {
		s.mu.Unlock()
		return ErrBacklogFull
	}
	s.seq++
	heap.Push(&s.q, queued{req: r, seq: s.seq})
	s.depth[r.Priority]++
	s.mu.Unlock()

	s.signal()
	return nil
}

// Next blocks until a request is queued, then pops the highest priority one.
// It takes no token: callers Wait only for requests that will reach an engine.
// It returns ctx.Err() when ctx ends, even with requests still queued
func (s *Scheduler) Next(ctx context.Context) (dom.Request, error) {
	for {
		if err := ctx.Err(); err != nil {
			return dom.Request{}, err
		}
		s.mu.Lock()
		if len(s.q) == 0 {
			s.mu.Unlock()
			select {
			case <-ctx.Done():
				return dom.Request{}, ctx.Err()
			case <-s.ready:
				continue
			}
		}
		it := heap.Pop(&s.q).(queued)
		s.depth[it.req.Priority]--
		left := len(s.q)
		s.mu.Unlock()

		if left > 0 {
			s.signal()
		}
		return it.req, nil
	}
}

// Wait blocks until the rate limiter releases a token or ctx ends
func (s *Scheduler) Wait(ctx context.Context) error {
	return s.lim.Wait(ctx)
}

// Drain removes every queued request in dispatch order
func (s *Scheduler) Drain() []dom.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]dom.Request, 0, len(s.q))
	for len(s.q) > 0 {
		out = append(out, heap.Pop(&s.q).(queued).req)
	}
	clear(s.depth)
	return out
}

// Close rejects further offers and drains the queue
func (s *Scheduler) Close() []dom.Request {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.Drain()
}

// Len is the number of queued requests
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.q)
}

// Depth is the number of queued requests per tier
func (s *Scheduler) Depth() map[dom.Priority]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[dom.Priority]int, 3)
	for _, p := range dom.Priorities() {
		out[p] = s.depth[p]
	}
	return out
}

