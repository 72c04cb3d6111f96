package chat

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mwhitford/teamdesk/internal/stats"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = (pongWait * 9) / 10
	readLimit    = 512
)

// Client pumps a subscriber's events onto one websocket connection. The
// stream is push-only; inbound frames are read solely to detect the peer
// going away and to answer pings.
type Client struct {
	conn     *websocket.Conn
	sub      *Subscriber
	registry *SubscriptionRegistry
	log      *log.Logger
	stats    stats.Provider
	once     sync.Once
}

func NewClient(conn *websocket.Conn, sub *Subscriber, registry *SubscriptionRegistry, logger *log.Logger, sp stats.Provider) *Client {
	sp.Incr(stats.ActiveConnections)

	return &Client{
		conn:     conn,
		sub:      sub,
		registry: registry,
		log:      logger,
		stats:    sp,
	}
}

// Write forwards events to the peer until the subscriber is closed or a
// write fails, pinging on an interval to keep the connection alive.
func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.cleanup()
	}()

	for {
		select {
		case ev, ok := <-c.sub.Events():
			if !ok {
				// unsubscribed; tell the peer we're done
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}

			payload, err := json.Marshal(ev)
			if err != nil {
				c.log.Println("failed to serialize event:", err)
				continue
			}

			if !c.sendMessage(websocket.TextMessage, payload) {
				return
			}
		case <-ticker.C:
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

// Read discards inbound frames until the connection errors, which is how
// client disconnects are detected.
func (c *Client) Read() {
	defer c.cleanup()

	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			return
		}
	}
}

func (c *Client) sendMessage(msgType int, payload []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, payload); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("ws: write: %v", err)
		}
		return false
	}

	return true
}

// cleanup unsubscribes exactly once no matter how many exit paths race
// into it.
func (c *Client) cleanup() {
	c.once.Do(func() {
		c.registry.Unsubscribe(c.sub)
		c.conn.Close()
		c.stats.Decr(stats.ActiveConnections)
	})
}
