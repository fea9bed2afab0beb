package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"tickstore/internal/engine"
	"tickstore/internal/limiter"
	"tickstore/internal/models"
)

// WSEvent 定义发送给 ingest 客户端的消息结构
type WSEvent struct {
	Data interface{} `json:"data"`
	Type string      `json:"type"` // "ack", "error" or "stats"
}

// AckData answers one ingest frame.
type AckData struct {
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 30 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 1024,
	// 限制跨域请求，防止 WebSocket Hijacking
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // 允许非浏览器请求 (feed handler)
		}
		if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
			return true
		}
		slog.Warn("🚫 [Security] Blocked unauthorized WebSocket origin", "origin", origin)
		return false
	},
}

// Client 代表一个连接的 feed 生产者
// send 从不关闭；hub 通过关闭 done 让 writePump 退出，done 只由 hub goroutine 关闭
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
}

func newClient(h *Hub, conn *websocket.Conn) *Client {
	return &Client{hub: h, conn: conn, send: make(chan []byte, 256), done: make(chan struct{})}
}

// Hub 维护 ingest 连接：读到的 tick 交给 producer，回执和统计写回客户端
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan interface{}
	register   chan *Client
	unregister chan *Client
	logger     *slog.Logger

	producer models.TickProducer
	limiter  *limiter.RateLimiter
	done     chan struct{}
}

func NewHub(producer models.TickProducer, rl *limiter.RateLimiter) *Hub {
	return &Hub{
		broadcast:  make(chan interface{}, 1024),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     engine.Logger,
		producer:   producer,
		limiter:    rl,
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("websocket_hub_started")
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("websocket_hub_stopping")
			// 优雅关闭：关闭所有客户端连接
			for client := range h.clients {
				close(client.done)
				delete(h.clients, client)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
			h.logger.Info("ws_client_connected", slog.Int("total_clients", len(h.clients)))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.done)
				h.logger.Info("ws_client_disconnected", slog.Int("total_clients", len(h.clients)))
			}

		case event := <-h.broadcast:
			message, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("ws_json_marshal_error", slog.String("error", err.Error()))
				continue
			}
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					h.logger.Warn("ws_client_blocked_dropping_client")
					close(client.done)
					delete(h.clients, client)
				}
			}
		}
	}
}

// Broadcast 对外暴露的广播方法，非阻塞
func (h *Hub) Broadcast(event interface{}) {
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("ws_hub_blocked_dropping_message")
	}
}

// HandleWS 处理 /ws/ingest 请求
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws_upgrade_failed", slog.String("error", err.Error()))
		return
	}
	client := newClient(h, conn)
	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.reply(c.hub.ingest(message))
	}
}

// ingest 解码一帧并交给 producer；限流按整帧计算
func (h *Hub) ingest(message []byte) WSEvent {
	ticks, rejected, err := models.DecodeTicks(message)
	if err != nil {
		return WSEvent{Type: "error", Data: err.Error()}
	}
	if err := h.limiter.Admit(len(ticks)); err != nil {
		return WSEvent{Type: "error", Data: err.Error()}
	}
	for _, t := range ticks {
		h.producer.Enqueue(t)
	}
	return WSEvent{Type: "ack", Data: AckData{Accepted: len(ticks), Rejected: rejected}}
}

func (c *Client) reply(ev WSEvent) {
	message, err := json.Marshal(ev)
	if err != nil {
		return
	}
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- message:
	case <-c.done:
	default:
		c.hub.logger.Warn("ws_client_ack_dropped")
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			if _, err := w.Write(message); err != nil {
				c.hub.logger.Warn("ws_write_error", slog.String("err", err.Error()))
			}
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// RegisterRoutes mounts the ingest endpoint.
func (h *Hub) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/ingest", h.HandleWS)
}
