package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Amitphadol/Babylon-login-app/internal/auth"
	"github.com/Amitphadol/Babylon-login-app/internal/logger"
)

// listenerBufferSize is the channel buffer for each listener.
const listenerBufferSize = 64

// Feed carries session transitions of a device to every provider client
// listening for that device. A nil identity announces sign-out.
type Feed interface {
	Publish(ctx context.Context, deviceID string, identity *auth.Identity) error
	// Listen returns a channel of transitions for deviceID. The channel is
	// closed once ctx is cancelled.
	Listen(ctx context.Context, deviceID string) (<-chan *auth.Identity, error)
}

// MemoryFeed is an in-process Feed for single-instance deployments.
type MemoryFeed struct {
	mu        sync.Mutex
	listeners map[string]map[string]chan *auth.Identity // deviceID -> listenerID -> ch
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{
		listeners: make(map[string]map[string]chan *auth.Identity),
	}
}

func (f *MemoryFeed) Listen(ctx context.Context, deviceID string) (<-chan *auth.Identity, error) {
	id := uuid.NewString()
	ch := make(chan *auth.Identity, listenerBufferSize)

	f.mu.Lock()
	if _, ok := f.listeners[deviceID]; !ok {
		f.listeners[deviceID] = make(map[string]chan *auth.Identity)
	}
	f.listeners[deviceID][id] = ch
	f.mu.Unlock()

	go func() {
		<-ctx.Done()

		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.listeners[deviceID], id)
		if len(f.listeners[deviceID]) == 0 {
			delete(f.listeners, deviceID)
		}
		close(ch)
	}()

	return ch, nil
}

// Publish never blocks; transitions are dropped for listeners whose buffer
// is full.
func (f *MemoryFeed) Publish(_ context.Context, deviceID string, identity *auth.Identity) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for id, ch := range f.listeners[deviceID] {
		select {
		case ch <- identity:
		default:
			logger.Warn("session feed listener full, dropping transition", map[string]any{
				"listener_id": id,
			})
		}
	}
	return nil
}

// RedisFeed distributes transitions over Redis pub/sub so every instance
// serving a device sees them.
type RedisFeed struct {
	client *redis.Client
	prefix string
}

func NewRedisFeed(client *redis.Client) *RedisFeed {
	return &RedisFeed{
		client: client,
		prefix: "session-events:",
	}
}

func (f *RedisFeed) channel(deviceID string) string {
	return f.prefix + deviceID
}

func (f *RedisFeed) Publish(ctx context.Context, deviceID string, identity *auth.Identity) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("session: failed to marshal transition: %w", err)
	}
	return f.client.Publish(ctx, f.channel(deviceID), data).Err()
}

func (f *RedisFeed) Listen(ctx context.Context, deviceID string) (<-chan *auth.Identity, error) {
	ps := f.client.Subscribe(ctx, f.channel(deviceID))

	// Wait for the subscription to be confirmed so no transition published
	// after Listen returns is missed.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("session: subscribe: %w", err)
	}

	out := make(chan *auth.Identity, listenerBufferSize)
	msgs := ps.Channel()

	go func() {
		defer close(out)
		defer ps.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}

				var identity *auth.Identity
				if err := json.Unmarshal([]byte(msg.Payload), &identity); err != nil {
					logger.Warn("discarding malformed session transition", map[string]any{
						"channel": msg.Channel,
						"error":   err,
					})
					continue
				}

				select {
				case out <- identity:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
