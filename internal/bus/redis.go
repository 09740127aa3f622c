// Package bus carries room events between relay instances.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cwrk-planet/room-relay/internal/relay"

	"github.com/redis/go-redis/v9"
)

type Options struct {
	Addr     string
	Password string
	DB       int
	// Channel names are Prefix + roomID.
	Prefix string
}

// RedisBus publishes every event to redis and delivers what it receives back
// to local subscribers, so sessions on different instances share rooms.
// Events published here reach local subscribers only through redis, which
// keeps one order per room across instances.
type RedisBus struct {
	*relay.LocalBus

	rdb    *redis.Client
	prefix string
	log    *slog.Logger
}

var _ relay.Bus = (*RedisBus)(nil)

// NewRedisBus connects to redis and verifies connectivity.
func NewRedisBus(ctx context.Context, opts Options, log *slog.Logger) (*RedisBus, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return newRedisBus(rdb, opts.Prefix, log), nil
}

func newRedisBus(rdb *redis.Client, prefix string, log *slog.Logger) *RedisBus {
	if log == nil {
		log = slog.Default()
	}
	return &RedisBus{
		LocalBus: relay.NewLocalBus(),
		rdb:      rdb,
		prefix:   prefix,
		log:      log.With("component", "redis_bus"),
	}
}

func (b *RedisBus) Publish(ctx context.Context, ev relay.Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return b.rdb.Publish(ctx, b.channel(ev.RoomID), raw).Err()
}

// Start subscribes to every room channel and returns once redis confirmed
// the subscription. Delivery runs until ctx is done.
func (b *RedisBus) Start(ctx context.Context) error {
	ps := b.rdb.PSubscribe(ctx, b.channel("*"))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return fmt.Errorf("redis psubscribe: %w", err)
	}

	go func() {
		defer ps.Close()
		ch := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ev, err := b.decode(msg.Channel, msg.Payload)
				if err != nil {
					b.log.Warn("drop bus message", "channel", msg.Channel, "err", err)
					continue
				}
				b.LocalBus.Deliver(ev)
			}
		}
	}()
	return nil
}

func (b *RedisBus) Ping(ctx context.Context) error { return b.rdb.Ping(ctx).Err() }

func (b *RedisBus) Close() error { return b.rdb.Close() }

func (b *RedisBus) channel(roomID string) string { return b.prefix + roomID }

// decode trusts the channel over the payload for the room id.
func (b *RedisBus) decode(channel, payload string) (relay.Event, error) {
	roomID, ok := strings.CutPrefix(channel, b.prefix)
	if !ok || roomID == "" {
		return relay.Event{}, fmt.Errorf("unexpected channel %q", channel)
	}
	var ev relay.Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return relay.Event{}, fmt.Errorf("decode event: %w", err)
	}
	if len(ev.Frame) == 0 {
		return relay.Event{}, fmt.Errorf("event without frame")
	}
	ev.RoomID = roomID
	return ev, nil
}
