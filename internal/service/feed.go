package service

import (
	"sync"

	"github.com/raisket/audittrail/internal/model"
	"github.com/raisket/audittrail/internal/pkg/metrics"
)

// FeedHub fans stored events out to live subscribers (dashboards).
// Publishing never blocks the persistence path: a subscriber whose
// buffer is full misses the message.
type FeedHub struct {
	mu     sync.RWMutex
	subs   map[chan *model.AuditEvent]struct{}
	buffer int
	closed bool
}

func NewFeedHub(buffer int) *FeedHub {
	if buffer <= 0 {
		buffer = 256
	}
	return &FeedHub{
		subs:   make(map[chan *model.AuditEvent]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber and returns its channel together
// with an unsubscribe function. The channel is closed on unsubscribe or
// hub shutdown.
func (h *FeedHub) Subscribe() (<-chan *model.AuditEvent, func()) {
	ch := make(chan *model.AuditEvent, h.buffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
			h.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber without blocking.
func (h *FeedHub) Publish(ev *model.AuditEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			metrics.FeedDropped.Inc()
		}
	}
}

// SubscriberCount returns the number of live subscribers.
func (h *FeedHub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close shuts the hub down and closes all subscriber channels.
func (h *FeedHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		close(ch)
		delete(h.subs, ch)
	}
}
