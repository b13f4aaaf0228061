// Package events fans persisted plan events out to live subscribers (the
// websocket stream). Publishing never blocks: slow subscribers drop events
// and catch up through the query API.
package events

import (
	"sync"

	"go.uber.org/zap"

	"autodca/internal/models"
)

type Hub struct {
	mu     sync.RWMutex
	subs   map[chan models.PlanEvent]struct{}
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[chan models.PlanEvent]struct{}),
		logger: logger,
	}
}

func (h *Hub) Publish(evt models.PlanEvent) {
	if h == nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select {
		case ch <- evt:
		default:
			if h.logger != nil {
				h.logger.Debug("event dropped for slow subscriber", zap.String("type", evt.Type))
			}
		}
	}
}

// Subscribe returns a buffered event channel and a cancel func that must be
// called when the subscriber goes away.
func (h *Hub) Subscribe(buffer int) (<-chan models.PlanEvent, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan models.PlanEvent, buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	cancel := func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
	return ch, cancel
}
