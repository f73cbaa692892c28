package relay

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Hub is the in-process Broker used when no Redis is configured.
type Hub struct {
	logger   *logrus.Logger
	recorder Recorder

	mu     sync.RWMutex
	subs   map[int64]map[uuid.UUID]chan Event
	closed bool
}

var _ Broker = (*Hub)(nil)

// NewHub returns an empty hub. recorder may be nil.
func NewHub(logger *logrus.Logger, recorder Recorder) *Hub {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Hub{
		logger:   logger,
		recorder: recorder,
		subs:     make(map[int64]map[uuid.UUID]chan Event),
	}
}

func (h *Hub) Subscribe(ctx context.Context, ownerID int64) (*Subscription, error) {
	id := uuid.New()
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, context.Canceled
	}
	if h.subs[ownerID] == nil {
		h.subs[ownerID] = make(map[uuid.UUID]chan Event)
	}
	h.subs[ownerID][id] = ch
	h.mu.Unlock()
	h.recorder.RelaySubscribers(1)

	sub := &Subscription{ID: id, OwnerID: ownerID, C: ch}
	done := make(chan struct{})
	sub.closeFn = func() {
		close(done)
		h.remove(ownerID, id)
	}

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-done:
		}
	}()
	return sub, nil
}

// remove drops a subscriber and closes its channel under the write lock, so
// Publish never sends on a closed channel.
func (h *Hub) remove(ownerID int64, id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	chans := h.subs[ownerID]
	ch, ok := chans[id]
	if !ok {
		return
	}
	delete(chans, id)
	if len(chans) == 0 {
		delete(h.subs, ownerID)
	}
	close(ch)
	h.recorder.RelaySubscribers(-1)
}

func (h *Hub) Publish(_ context.Context, ev Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, owner := range recipients(ev) {
		for id, ch := range h.subs[owner] {
			select {
			case ch <- ev:
				h.recorder.RelayDelivered()
			default:
				h.recorder.RelayDropped()
				h.logger.WithFields(logrus.Fields{
					"channel":      ChannelName(owner),
					"subscription": id,
				}).Warn("relay buffer full, event dropped")
			}
		}
	}
	return nil
}

// Subscribers reports how many live subscriptions ownerID has.
func (h *Hub) Subscribers(ownerID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[ownerID])
}

// Close ends every subscription.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	subs := h.subs
	h.subs = make(map[int64]map[uuid.UUID]chan Event)
	h.mu.Unlock()

	for _, chans := range subs {
		for _, ch := range chans {
			close(ch)
			h.recorder.RelaySubscribers(-1)
		}
	}
	return nil
}
