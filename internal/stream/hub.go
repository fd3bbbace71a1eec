// Package stream pushes live updates to websocket clients. Messages are
// delivered locally and, when Redis is configured, relayed to the other
// instances through pub/sub.
package stream

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channelPrefix = "nepaltrip:stream:"

type Hub struct {
	id      string
	redis   *redis.Client
	log     *zap.Logger
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	Channel string
	Send    chan []byte
}

// envelope tags relayed payloads with the publishing hub so it can skip its
// own messages, which it already delivered locally.
type envelope struct {
	Origin  string          `json:"origin"`
	Payload json.RawMessage `json:"payload"`
}

// NewHub starts the Redis relay when redisClient is set. The relay stops
// when ctx ends.
func NewHub(ctx context.Context, redisClient *redis.Client, log *zap.Logger) *Hub {
	h := &Hub{
		id:      uuid.NewString(),
		redis:   redisClient,
		log:     log,
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		pubsub := redisClient.PSubscribe(ctx, channelPrefix+"*")
		go h.relay(ctx, pubsub)
	}
	return h
}

func (h *Hub) Register(channel string) *Client {
	client := &Client{
		Channel: channel,
		Send:    make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[channel] == nil {
		h.clients[channel] = map[*Client]struct{}{}
	}
	h.clients[channel][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if channelClients, ok := h.clients[client.Channel]; ok {
		if _, registered := channelClients[client]; !registered {
			return
		}
		delete(channelClients, client)
		if len(channelClients) == 0 {
			delete(h.clients, client.Channel)
		}
		close(client.Send)
	}
}

// Clients reports how many connections listen on channel.
func (h *Hub) Clients(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[channel])
}

// Broadcast delivers payload, which must be JSON, to every client on
// channel. Slow clients drop messages rather than block the sender.
func (h *Hub) Broadcast(channel string, payload []byte) {
	h.deliver(channel, payload)

	if h.redis == nil {
		return
	}
	msg, err := json.Marshal(envelope{Origin: h.id, Payload: payload})
	if err != nil {
		h.log.Warn("stream envelope", zap.String("channel", channel), zap.Error(err))
		return
	}
	if err := h.redis.Publish(context.Background(), redisChannel(channel), msg).Err(); err != nil {
		h.log.Warn("redis publish failed", zap.String("channel", channel), zap.Error(err))
	}
}

func (h *Hub) deliver(channel string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[channel] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) relay(ctx context.Context, pubsub *redis.PubSub) {
	defer pubsub.Close()
	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				h.log.Debug("dropping foreign stream message", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			if env.Origin == h.id {
				continue
			}
			channel, ok := channelFromRedis(msg.Channel)
			if !ok {
				continue
			}
			h.deliver(channel, env.Payload)
		}
	}
}

func redisChannel(channel string) string {
	return channelPrefix + channel
}

func channelFromRedis(ch string) (string, bool) {
	channel, ok := strings.CutPrefix(ch, channelPrefix)
	return channel, ok && channel != ""
}
