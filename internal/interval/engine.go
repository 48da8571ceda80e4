package interval

import (
	"context"
	"errors"
	"sync"

	"timegrid/internal/timeunit"
)

// ErrEngineClosed is returned for requests made after Close.
var ErrEngineClosed = errors.New("interval: engine closed")

// Request asks the engine for the labeled intervals of amount×Unit
// covering [From, To]. Requests are idempotent: two requests with the same
// fields are interchangeable, which is what allows coalescing.
type Request struct {
	Unit   timeunit.Unit
	Amount int
	From   int64
	To     int64
	Format Formatter
}

func (r Request) key() string {
	return entryKey(r.Unit, r.Amount, r.Format)
}

// Result is the engine's response to one Request.
type Result struct {
	Intervals []Interval
	Err       error
}

// Engine serves interval requests from a single background goroutine so
// that expensive regeneration (a deep zoom-out can span thousands of
// periods) never runs on the interaction path. It is an owned resource:
// construct one per mounted widget and Close it on unmount.
//
// Duplicate requests for the same (unit, amount, format) that are queued
// while the worker is busy are coalesced: the range is computed once for
// the union of the queued windows and every waiter gets the same answer.
type Engine struct {
	cache *Cache

	reqCh chan engineReq

	closeOnce sync.Once
	closed    chan struct{}
	done      chan struct{}
}

type engineReq struct {
	req  Request
	resp chan Result
}

// NewEngine starts an engine around a fresh cache with the given alignment
// options and per-entry cap (<= 0 means DefaultCap).
func NewEngine(opts Options, maxLen int) *Engine {
	e := &Engine{
		cache:  NewCache(opts, maxLen),
		reqCh:  make(chan engineReq, 64),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go e.run()
	return e
}

// Close stops the worker. Pending and subsequent requests fail with
// ErrEngineClosed.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		close(e.closed)
		<-e.done
	})
}

// Get requests intervals and blocks until the worker answers or ctx is
// canceled.
func (e *Engine) Get(ctx context.Context, req Request) ([]Interval, error) {
	resp := make(chan Result, 1)
	select {
	case e.reqCh <- engineReq{req: req, resp: resp}:
	case <-e.closed:
		return nil, ErrEngineClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-resp:
		return res.Intervals, res.Err
	case <-e.closed:
		return nil, ErrEngineClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cache exposes the engine's cache for synchronous read-side consumers
// that only Query already-populated ranges.
func (e *Engine) Cache() *Cache {
	return e.cache
}

func (e *Engine) run() {
	defer close(e.done)
	for {
		select {
		case <-e.closed:
			return
		case first := <-e.reqCh:
			batch := map[string][]engineReq{first.req.key(): {first}}
			e.drain(batch)
			e.serve(batch)
		}
	}
}

// drain empties the queue without blocking, grouping waiters by key.
func (e *Engine) drain(batch map[string][]engineReq) {
	for {
		select {
		case r := <-e.reqCh:
			batch[r.req.key()] = append(batch[r.req.key()], r)
		default:
			return
		}
	}
}

func (e *Engine) serve(batch map[string][]engineReq) {
	for _, waiters := range batch {
		// Union of the queued windows, so every waiter's range is covered.
		merged := waiters[0].req
		for _, w := range waiters[1:] {
			if w.req.From < merged.From {
				merged.From = w.req.From
			}
			if w.req.To > merged.To {
				merged.To = w.req.To
			}
		}

		ivs, err := e.cache.Fetch(merged.Unit, merged.Amount, merged.From, merged.To, merged.Format)

		for _, w := range waiters {
			res := Result{Intervals: ivs, Err: err}
			if err == nil && (w.req.From != merged.From || w.req.To != merged.To) {
				// Narrow back down to the waiter's own window.
				res.Intervals, res.Err = e.cache.Query(w.req.Unit, w.req.Amount, w.req.From, w.req.To, w.req.Format)
			}
			w.resp <- res
		}
	}
}
