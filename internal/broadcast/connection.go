// Package broadcast is the push fabric: topic subscriptions, a
// bounded-queue Connection per client, and a Hub whose Publish* calls
// fan out MarketDelta/OrderUpdate/ChatEvent frames. Fan-out runs
// synchronously in the publisher's goroutine; there is no separate
// dispatcher goroutine per topic. Adapted from the
// teacher's internal/session package (Client/Manager/Handler), with
// ITCH binary framing dropped in favor of the plain JSON frames spec
// §6 requires, and per-topic backpressure policy added.
package broadcast

import (
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// Topic is a push-channel subscription channel, per spec §4.5.
type Topic string

const (
	TopicMarketData      Topic = "market_data"
	TopicOrderUpdate     Topic = "order_update"
	TopicPortfolioUpdate Topic = "portfolio_update"
	TopicChat            Topic = "chat"
)

// queueDepth is the bounded depth Q of a Connection's outbound queue
// (spec §4.5 names Q=256 as the example depth).
const queueDepth = 256

var connIDCounter uint64

// Connection is one client's push-channel session: a bounded outbound
// queue, a set of topic subscriptions, and a dedicated sender that
// drains the queue in strict FIFO order (spec §4.5 — "no reordering
// across topics on a single connection"). Shaped after the teacher's
// Client, generalized from a single symbol-filter to a topic set and
// JSON-only payloads.
type Connection struct {
	ID     uint64
	UserID string
	Role   string
	Conn   *websocket.Conn

	mu     sync.RWMutex
	topics map[Topic]bool

	queue     chan []byte
	done      chan struct{}
	closeOnce sync.Once

	Dropped uint64 // coalesced (replaced) market_data messages
}

// NewConnection wraps a websocket connection as a Connection scoped to
// userID/role, resolved at handshake time by AuthGate.
func NewConnection(conn *websocket.Conn, userID, role string) *Connection {
	return &Connection{
		ID:     atomic.AddUint64(&connIDCounter, 1),
		UserID: userID,
		Role:   role,
		Conn:   conn,
		topics: make(map[Topic]bool),
		queue:  make(chan []byte, queueDepth),
		done:   make(chan struct{}),
	}
}

// Subscribe adds topic to the connection's active subscription set.
func (c *Connection) Subscribe(topic Topic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics[topic] = true
}

// Unsubscribe removes topic from the connection's active subscription set.
func (c *Connection) Unsubscribe(topic Topic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.topics, topic)
}

// IsSubscribed reports whether the connection currently subscribes to topic.
func (c *Connection) IsSubscribed(topic Topic) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.topics[topic]
}

// enqueueResult describes what an Enqueue call did, so the Hub
// can apply §4.5's per-topic backpressure policy.
type enqueueResult int

const (
	enqueued enqueueResult = iota
	coalesced
	overflowed
)

// enqueue attempts to push data onto the connection's queue. If the
// queue is full, coalesce controls the policy: when true (market_data)
// the oldest queued message is dropped and data appended; when false
// (order_update, chat, portfolio_update) the call reports overflowed
// and the caller must close the connection (slow-consumer).
func (c *Connection) enqueue(data []byte, coalesce bool) enqueueResult {
	select {
	case <-c.done:
		return enqueued // closed connections silently drop (spec §4.5)
	default:
	}

	select {
	case c.queue <- data:
		return enqueued
	default:
	}

	if !coalesce {
		return overflowed
	}

	// drop oldest, then append — best-effort, queue may have drained
	// concurrently between the two selects, which is fine.
	select {
	case <-c.queue:
		atomic.AddUint64(&c.Dropped, 1)
	default:
	}
	select {
	case c.queue <- data:
		return coalesced
	default:
		return coalesced
	}
}

// Out returns the connection's outbound queue for the write pump.
func (c *Connection) Out() <-chan []byte {
	return c.queue
}

// Done returns a channel closed when the connection is torn down.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Close terminates the connection. Draining/discarding the queue is
// implicit: nothing reads from it again once done is closed, and
// pending enqueues observe the closed done channel and drop silently
// (spec §4.5 — "closing a Connection drains and discards its queue").
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.Conn.Close()
	})
}
