package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisBroker relays events over Redis Pub/Sub so that every server process
// sharing the Redis sees them. Pub/Sub keeps the same at-most-once semantics
// as Hub.
type RedisBroker struct {
	rdb      *redis.Client
	logger   *logrus.Logger
	recorder Recorder
}

var _ Broker = (*RedisBroker)(nil)

// ConnectRedis opens a client for addr and pings it.
func ConnectRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// NewRedisBroker wraps rdb. recorder may be nil.
func NewRedisBroker(rdb *redis.Client, logger *logrus.Logger, recorder Recorder) *RedisBroker {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &RedisBroker{rdb: rdb, logger: logger, recorder: recorder}
}

func (b *RedisBroker) Subscribe(ctx context.Context, ownerID int64) (*Subscription, error) {
	channel := ChannelName(ownerID)
	ps := b.rdb.Subscribe(ctx, channel)
	// wait for the subscription confirmation so no publish is missed after return
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}
	b.recorder.RelaySubscribers(1)

	out := make(chan Event, subscriberBuffer)
	done := make(chan struct{})
	sub := &Subscription{ID: uuid.New(), OwnerID: ownerID, C: out}
	sub.closeFn = func() { close(done) }

	go func() {
		defer func() {
			_ = ps.Close()
			close(out)
			b.recorder.RelaySubscribers(-1)
		}()

		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					b.logger.WithError(err).WithField("channel", msg.Channel).Warn("invalid relay payload")
					continue
				}
				select {
				case out <- ev:
					b.recorder.RelayDelivered()
				default:
					b.recorder.RelayDropped()
					b.logger.WithFields(logrus.Fields{
						"channel":      msg.Channel,
						"subscription": sub.ID,
					}).Warn("relay buffer full, event dropped")
				}
			}
		}
	}()
	return sub, nil
}

func (b *RedisBroker) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal relay event: %w", err)
	}

	pipe := b.rdb.Pipeline()
	for _, owner := range recipients(ev) {
		pipe.Publish(ctx, ChannelName(owner), data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish relay event: %w", err)
	}
	return nil
}

func (b *RedisBroker) Close() error {
	return b.rdb.Close()
}
