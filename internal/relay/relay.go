// Package relay fans realtime chat events out to per-user channels.
//
// Delivery is at-most-once and fire-and-forget: nothing is persisted, nothing
// is acknowledged, and a subscriber whose buffer is full simply misses the
// event. Persistence belongs to the direct message log, which callers write
// before publishing.
package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventNewMessage is the only event type the server emits today.
const EventNewMessage = "new_message"

// Event is the payload delivered to both parties of a message.
type Event struct {
	Type       string    `json:"type"`
	ID         int64     `json:"id,omitempty"`
	SenderID   int64     `json:"senderId"`
	ReceiverID int64     `json:"receiverId"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Broker is implemented by Hub (in process) and RedisBroker.
type Broker interface {
	// Subscribe joins ownerID's channel. The subscription ends when ctx is
	// done or Close is called; its channel is then closed.
	Subscribe(ctx context.Context, ownerID int64) (*Subscription, error)
	// Publish delivers ev to the sender's and the receiver's channels.
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Recorder receives relay counters. metrics.Collector implements it.
type Recorder interface {
	RelaySubscribers(delta int)
	RelayDelivered()
	RelayDropped()
}

type nopRecorder struct{}

func (nopRecorder) RelaySubscribers(int) {}
func (nopRecorder) RelayDelivered()      {}
func (nopRecorder) RelayDropped()        {}

// ChannelName is the channel a user's connections listen on.
func ChannelName(userID int64) string {
	return fmt.Sprintf("user_%d", userID)
}

// recipients lists the distinct channel owners for ev.
func recipients(ev Event) []int64 {
	if ev.SenderID == ev.ReceiverID {
		return []int64{ev.SenderID}
	}
	return []int64{ev.SenderID, ev.ReceiverID}
}

// Subscription is one connection's membership in a user channel.
type Subscription struct {
	ID      uuid.UUID
	OwnerID int64
	C       <-chan Event

	once    sync.Once
	closeFn func()
}

// Close leaves the channel. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(s.closeFn)
}

// subscriberBuffer bounds how far a slow connection may lag before events
// addressed to it are dropped.
const subscriberBuffer = 16
