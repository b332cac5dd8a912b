package capture

import (
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Frame is one fixed-size chunk of 16-bit mono PCM samples.
type Frame []int16

// subscriberQueueDepth bounds each listener's backlog (~2 s at 16 kHz/512).
// The device callback must never block, so a slow listener loses its oldest
// frames instead; drop-oldest keeps the listener near real time, which is what
// barge-in latency needs.
const subscriberQueueDepth = 64

// dropWarnInterval rate-limits the overflow warning.
const dropWarnInterval = time.Second

// Subscription is one listener's view of the frame stream. Frames arrive in
// FIFO order; each subscription sees its own copy of the stream.
type Subscription struct {
	ch     chan Frame
	hub    *Hub
	closed atomic.Bool
}

// Frames returns the lazy frame sequence. The channel is closed when the
// subscription or the hub is closed.
func (s *Subscription) Frames() <-chan Frame { return s.ch }

// Close detaches the listener. Safe to call more than once.
func (s *Subscription) Close() {
	if s.closed.CompareAndSwap(false, true) {
		s.hub.remove(s)
	}
}

// Hub fans frames out to any number of bounded subscriber queues. Publish
// never blocks: on a full queue the oldest frame is dropped and a
// rate-limited warning is logged.
type Hub struct {
	mu       sync.Mutex
	subs     map[*Subscription]struct{}
	closed   bool
	dropped  atomic.Int64
	lastWarn atomic.Int64 // unix nanos of last overflow warning
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Subscribe attaches a new listener. Subscribing to a closed hub yields an
// already-terminated stream.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{ch: make(chan Frame, subscriberQueueDepth), hub: h}
	h.mu.Lock()
	if h.closed {
		close(sub.ch)
		sub.closed.Store(true)
	} else {
		h.subs[sub] = struct{}{}
	}
	h.mu.Unlock()
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.ch)
	}
	h.mu.Unlock()
}

// Publish delivers one frame to every subscriber. The frame is shared
// read-only between subscribers; callers must hand over a private copy.
func (h *Hub) Publish(frame Frame) {
	h.mu.Lock()
	for sub := range h.subs {
		select {
		case sub.ch <- frame:
			continue
		default:
		}
		// queue full: evict the oldest frame, then retry once
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- frame:
		default:
		}
		h.noteDrop()
	}
	h.mu.Unlock()
}

func (h *Hub) noteDrop() {
	n := h.dropped.Add(1)
	now := time.Now().UnixNano()
	last := h.lastWarn.Load()
	if now-last >= int64(dropWarnInterval) && h.lastWarn.CompareAndSwap(last, now) {
		log.Printf("capture: listener backlog full, dropped oldest frame (total dropped=%d)", n)
	}
}

// Close terminates every subscription. Subsequent Publish calls are no-ops.
func (h *Hub) Close() {
	h.mu.Lock()
	if !h.closed {
		h.closed = true
		for sub := range h.subs {
			delete(h.subs, sub)
			close(sub.ch)
			sub.closed.Store(true)
		}
	}
	h.mu.Unlock()
}

// Dropped reports how many frames were lost to backpressure.
func (h *Hub) Dropped() int64 { return h.dropped.Load() }
