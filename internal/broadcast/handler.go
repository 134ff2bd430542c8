package broadcast

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/marketsim/core/internal/auth"
	"github.com/marketsim/core/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// controlMessage is a client -> server push-channel control frame, per
// spec §4.5 ("subscribe", "unsubscribe" against the topic vocabulary).
// Shaped after the teacher's handler.go controlMessage, generalized
// from symbol locates to topic names.
type controlMessage struct {
	Action string  `json:"action"`
	Topics []Topic `json:"topics,omitempty"`
}

// chatRole is one of the two roles (with "tester") that handleControl
// admits to the "chat" topic, per spec §4.5 ("tester/admin only"
// channels for chat moderation visibility in this variant).
const chatRole = "admin"

// Handler returns the HTTP handler performing the push-channel
// handshake: authenticate, upgrade, register, then spin the read/write
// pumps. Grounded on the teacher's session.Handler, generalized from
// an unauthenticated upgrade to one gated by auth.
func Handler(hub *Hub, gate *auth.Gate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := gate.ResolveHandshake(r)
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("websocket upgrade error: %v", err)
			return
		}

		c := NewConnection(conn, id.UserID, string(id.Role))
		hub.Register(c)
		metrics.ActiveConnections.Inc()

		go writePump(c)
		go readPump(c, hub)
	}
}

func readPump(c *Connection, hub *Hub) {
	defer func() {
		hub.Unregister(c)
		metrics.ActiveConnections.Dec()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("connection %d read error: %v", c.ID, err)
			}
			return
		}

		var ctrl controlMessage
		if err := json.Unmarshal(message, &ctrl); err != nil {
			log.Printf("connection %d invalid control message: %v", c.ID, err)
			continue
		}
		handleControl(c, &ctrl)
	}
}

func handleControl(c *Connection, ctrl *controlMessage) {
	switch ctrl.Action {
	case "subscribe":
		for _, t := range ctrl.Topics {
			if t == TopicChat && c.Role != chatRole && c.Role != "tester" {
				log.Printf("connection %d denied chat subscription (role=%s)", c.ID, c.Role)
				continue
			}
			c.Subscribe(t)
		}
	case "unsubscribe":
		for _, t := range ctrl.Topics {
			c.Unsubscribe(t)
		}
	default:
		log.Printf("connection %d unknown action: %s", c.ID, ctrl.Action)
	}
}

func writePump(c *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case data, ok := <-c.Out():
			if !ok {
				return
			}
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.Done():
			return
		}
	}
}
