// Command botcli registers a bot session over HTTP, then dials the
// push channel and prints the frames that arrive on its market_data
// and order_update subscriptions (the server publishes no
// order_update frames, so only market_data arrives) — the bot-facing
// half of the request surface, end to end,
// without a browser. Adapted from cmd/decoder, which dialed and
// decoded the raw ITCH feed the same way; here the wire format is
// JSON, not length-prefixed binary, so there is no frame decoder, only
// a control-message sender and a stats-driven print loop.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

func main() {
	apiURL := flag.String("api", "http://localhost:8080", "ControlAPI base URL")
	mode := flag.String("mode", "classic", "bot session mode")
	riskLevel := flag.String("risk", "moderate", "bot risk level")
	difficulty := flag.String("difficulty", "medium", "bot difficulty")
	statsInterval := flag.Int("stats", 0, "print message rate stats every N seconds (0 = off)")
	flag.Parse()

	log.SetFlags(log.Ltime | log.Lmicroseconds)

	botID, sessionID, token := registerBot(*apiURL, *mode, *riskLevel, *difficulty)
	log.Printf("registered bot %s (session %s)", botID, sessionID)

	streamURL := strings.Replace(*apiURL, "http://", "ws://", 1)
	streamURL = strings.Replace(streamURL, "https://", "wss://", 1)
	streamURL = fmt.Sprintf("%s/stream?token=%s", streamURL, token)

	log.Printf("connecting to %s", streamURL)
	conn, _, err := websocket.DefaultDialer.Dial(streamURL, nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	log.Println("connected")

	sendControl(conn, map[string]any{"action": "subscribe", "topics": []string{"market_data", "order_update"}})
	log.Println("subscribed to market_data, order_update")

	var msgCount uint64
	if *statsInterval > 0 {
		go func() {
			ticker := time.NewTicker(time.Duration(*statsInterval) * time.Second)
			defer ticker.Stop()
			var last uint64
			for range ticker.C {
				cur := atomic.LoadUint64(&msgCount)
				delta := cur - last
				rate := float64(delta) / float64(*statsInterval)
				log.Printf("[stats] %d frames total | %.1f frames/sec", cur, rate)
				last = cur
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		log.Println("shutting down...")
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		time.Sleep(200 * time.Millisecond)
		os.Exit(0)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Fatalf("read: %v", err)
		}
		atomic.AddUint64(&msgCount, 1)
		fmt.Println(string(data))
	}
}

func sendControl(conn *websocket.Conn, msg map[string]any) {
	data, _ := json.Marshal(msg)
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Fatalf("send control: %v", err)
	}
}

type botRegisterResponse struct {
	BotID     string `json:"botId"`
	SessionID string `json:"sessionId"`
	Token     string `json:"token"`
}

func registerBot(apiURL, mode, riskLevel, difficulty string) (botID, sessionID, token string) {
	body, _ := json.Marshal(map[string]string{
		"mode":       mode,
		"riskLevel":  riskLevel,
		"difficulty": difficulty,
	})

	resp, err := http.Post(apiURL+"/bot/register", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("register bot: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		log.Fatalf("register bot: unexpected status %d", resp.StatusCode)
	}

	var out botRegisterResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Fatalf("register bot: decode response: %v", err)
	}
	return out.BotID, out.SessionID, out.Token
}
