package stream

import (
	"context"
	"sync"
	"time"
)

// BidEvent describes a committed bid transition for live dashboards.
// CascadeIDs lists sibling bids rejected by the same commit.
type BidEvent struct {
	BidID      string    `json:"bid_id"`
	ProjectID  string    `json:"project_id"`
	Action     string    `json:"action"`
	Status     string    `json:"status"`
	CascadeIDs []string  `json:"cascade_ids,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Stream fan-outs bid events to all active subscribers (SSE clients).
type Stream struct {
	mu   sync.RWMutex
	subs map[int]chan BidEvent
	next int
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]chan BidEvent)}
}

// Subscribe registers a subscriber and returns a channel which will receive
// events. The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan BidEvent {
	ch := make(chan BidEvent, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the event to all subscribers. Slow subscribers drop
// events rather than blocking the publisher.
func (s *Stream) Publish(evt BidEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}
