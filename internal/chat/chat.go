// Package chat implements the single global chat room spec §4.6
// describes: validated message posting, a bounded-window history read,
// and fan-out through the Broadcaster's chat topic. Grounded on the
// teacher's internal/session message-handling shape (validate, assign
// id, hand off to the hub) generalized from ITCH order events to chat
// text.
package chat

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/marketsim/core/internal/apperr"
	"github.com/marketsim/core/internal/broadcast"
)

const (
	minTextLen = 1
	maxTextLen = 2000

	defaultLimit = 50
	maxLimit     = 100
)

// Message is one posted chat line, per spec §3.
type Message struct {
	ID          uint64 `json:"id"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Text        string `json:"text"`
	SimDay      int    `json:"simDay"`
}

// DisplayNameLookup resolves a user id to the display name to attach
// to a posted message, so this package never imports internal/users
// directly — it depends on the narrow capability it needs, the same
// seam the teacher draws between its session and persist packages.
type DisplayNameLookup func(userID string) (string, error)

// Room is the single global chat room: an append-only, in-memory
// history plus the hub that fans new posts out to "chat" subscribers.
type Room struct {
	hub      *broadcast.Hub
	resolve  DisplayNameLookup
	idCursor uint64

	mu       sync.RWMutex
	messages []Message
}

// NewRoom creates an empty Room, publishing through hub and resolving
// display names via resolve.
func NewRoom(hub *broadcast.Hub, resolve DisplayNameLookup) *Room {
	return &Room{hub: hub, resolve: resolve}
}

// Post validates and appends a message from userID at simDay, then
// publishes it to every chat subscriber. Text is trimmed; empty or
// over-length text is rejected with apperr.Validation.
func (r *Room) Post(userID, text string, simDay int) (Message, error) {
	text = strings.TrimSpace(text)
	if len(text) < minTextLen {
		return Message{}, apperr.New(apperr.Validation, "message text must not be empty")
	}
	if len(text) > maxTextLen {
		return Message{}, apperr.New(apperr.Validation, "message text exceeds %d characters", maxTextLen)
	}

	displayName, err := r.resolve(userID)
	if err != nil {
		return Message{}, err
	}

	msg := Message{
		ID:          atomic.AddUint64(&r.idCursor, 1),
		UserID:      userID,
		DisplayName: displayName,
		Text:        text,
		SimDay:      simDay,
	}

	r.mu.Lock()
	r.messages = append(r.messages, msg)
	r.mu.Unlock()

	r.hub.PublishChat(broadcast.ChatFrame{
		Type:        "chat_message",
		ID:          msg.ID,
		UserID:      msg.UserID,
		DisplayName: msg.DisplayName,
		Text:        msg.Text,
		SimDay:      msg.SimDay,
	})

	return msg, nil
}

// Messages returns up to limit messages newest-first starting offset
// messages back from the end, plus the total message count. limit is
// clamped to [1, 100], per spec §4.6.
func (r *Room) Messages(limit, offset int) ([]Message, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	total := len(r.messages)
	end := total - offset
	if end <= 0 {
		return nil, total
	}
	start := end - limit
	if start < 0 {
		start = 0
	}

	out := make([]Message, 0, end-start)
	for i := end - 1; i >= start; i-- {
		out = append(out, r.messages[i])
	}
	return out, total
}
