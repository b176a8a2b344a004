// Package status fans trade progress events out to subscribers. Streams
// are per trade, strictly ordered, replayed to late subscribers, and
// closed on the terminal phase.
package status

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/solmesh/trade-engine/internal/domain"
)

const (
	shardCount = 16

	// subscriberBuffer bounds each subscriber channel. A subscriber that
	// stops draining loses events rather than stalling the pipeline.
	subscriberBuffer = 64
)

type feed struct {
	events []domain.StatusEvent
	subs   map[chan domain.StatusEvent]struct{}
	closed bool
}

type shard struct {
	mu    sync.RWMutex
	feeds map[string]*feed
}

// Hub is the process-wide status broadcaster. Sharded by trade ID so
// concurrent trades never contend on one lock.
type Hub struct {
	shards [shardCount]*shard
}

func NewHub() *Hub {
	h := &Hub{}
	for i := range h.shards {
		h.shards[i] = &shard{feeds: make(map[string]*feed)}
	}
	return h
}

func (h *Hub) shardFor(tradeID string) *shard {
	if tradeID == "" {
		return h.shards[0]
	}
	return h.shards[tradeID[0]%shardCount]
}

// Publish appends an event to the trade's stream and delivers it to every
// subscriber. Terminal phases close the stream; publishing after that is a
// no-op.
func (h *Hub) Publish(tradeID string, phase domain.TradePhase, detail string, err error) {
	s := h.shardFor(tradeID)
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.feeds[tradeID]
	if !ok {
		f = &feed{subs: make(map[chan domain.StatusEvent]struct{})}
		s.feeds[tradeID] = f
	}
	if f.closed {
		log.Warn().
			Str("trade_id", tradeID).
			Str("phase", phase.String()).
			Msg("[status] publish on closed stream dropped")
		return
	}

	event := domain.StatusEvent{
		TradeID: tradeID,
		Seq:     uint64(len(f.events) + 1),
		Phase:   phase,
		Name:    phase.String(),
		Detail:  detail,
		Err:     err,
		At:      time.Now(),
	}
	if err != nil {
		event.Error = err.Error()
	}
	f.events = append(f.events, event)

	for ch := range f.subs {
		select {
		case ch <- event:
		default:
			log.Warn().Str("trade_id", tradeID).Msg("[status] slow subscriber, event dropped")
		}
	}

	if phase.Terminal() {
		f.closed = true
		for ch := range f.subs {
			close(ch)
		}
		f.subs = make(map[chan domain.StatusEvent]struct{})
	}
}

// Subscribe returns the trade's stream: every past event replayed in
// order, then live events until the terminal phase closes the channel.
// The cancel function detaches an abandoned subscription.
func (h *Hub) Subscribe(tradeID string) (<-chan domain.StatusEvent, func()) {
	s := h.shardFor(tradeID)
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.feeds[tradeID]
	if !ok {
		f = &feed{subs: make(map[chan domain.StatusEvent]struct{})}
		s.feeds[tradeID] = f
	}

	ch := make(chan domain.StatusEvent, max(subscriberBuffer, len(f.events)+subscriberBuffer))
	for _, event := range f.events {
		ch <- event
	}

	if f.closed {
		close(ch)
		return ch, func() {}
	}

	f.subs[ch] = struct{}{}
	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, live := f.subs[ch]; live {
			delete(f.subs, ch)
			close(ch)
		}
	}
	return ch, cancel
}

// Events returns a snapshot of the trade's stream so far.
func (h *Hub) Events(tradeID string) []domain.StatusEvent {
	s := h.shardFor(tradeID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.feeds[tradeID]
	if !ok {
		return nil
	}
	out := make([]domain.StatusEvent, len(f.events))
	copy(out, f.events)
	return out
}

// Drop removes a finished trade's stream from memory.
func (h *Hub) Drop(tradeID string) {
	s := h.shardFor(tradeID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if f, ok := s.feeds[tradeID]; ok {
		for ch := range f.subs {
			close(ch)
		}
		delete(s.feeds, tradeID)
	}
}
