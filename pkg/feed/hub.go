package feed

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/MilaKyr/trading-app/pkg/exchange"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins (CORS handled by the HTTP server)
		return true
	},
}

// Hub maintains active WebSocket connections and pushes trade events to
// them. A subscriber with no product filter receives every trade.
type Hub struct {
	clients map[*client]bool

	register   chan *client
	unregister chan *client

	mu  sync.RWMutex
	log *zap.SugaredLogger
}

func NewHub(log *zap.SugaredLogger) *Hub {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Hub{
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		log:        log,
	}
}

// Run starts the hub's membership loop.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Infow("ws_client_connected", "client", c.id, "total", total)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Infow("ws_client_disconnected", "client", c.id, "total", total)
		}
	}
}

// PublishTrade implements exchange.TradeSink: every match is pushed to the
// clients subscribed to its product. A client with a full send buffer is
// skipped; slow consumers never stall the matching path.
func (h *Hub) PublishTrade(t exchange.Trade) error {
	event := WSTradeEvent{
		Channel:   "trades",
		Product:   t.Symbol,
		Buyer:     uint64(t.BuyerID),
		Seller:    uint64(t.SellerID),
		Timestamp: t.Timestamp.UnixMilli(),
	}
	message, err := json.Marshal(event)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.wantsProduct(t.Symbol) {
			continue
		}
		select {
		case c.send <- message:
		default:
			// Buffer full, skip this client
		}
	}
	return nil
}

// client represents one WebSocket connection
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string

	// Subscribed products; empty set = all products
	products map[string]bool
	prodMu   sync.RWMutex
}

func (c *client) wantsProduct(product string) bool {
	c.prodMu.RLock()
	defer c.prodMu.RUnlock()
	return len(c.products) == 0 || c.products[product]
}

func (c *client) subscribe(products []string) {
	c.prodMu.Lock()
	for _, p := range products {
		c.products[p] = true
	}
	c.prodMu.Unlock()
}

func (c *client) unsubscribe(products []string) {
	c.prodMu.Lock()
	for _, p := range products {
		delete(c.products, p)
	}
	c.prodMu.Unlock()
}

// readPump consumes subscription requests until the peer goes away
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warnw("ws_read_failed", "client", c.id, "err", err)
			}
			break
		}

		var req WSSubscribeRequest
		if err := json.Unmarshal(message, &req); err != nil {
			c.hub.log.Warnw("ws_invalid_message", "client", c.id, "err", err)
			continue
		}

		switch req.Op {
		case "subscribe":
			c.subscribe(req.Products)
		case "unsubscribe":
			c.unsubscribe(req.Products)
		default:
			c.hub.log.Warnw("ws_unknown_op", "client", c.id, "op", req.Op)
		}
	}
}

// writePump delivers queued trade events and keeps the connection alive
func (c *client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleWebSocket handles WebSocket upgrade and client lifecycle
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("ws_upgrade_failed", "err", err)
		return
	}

	c := &client{
		hub:      s.hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		id:       conn.RemoteAddr().String(),
		products: make(map[string]bool),
	}

	c.hub.register <- c

	go c.writePump()
	go c.readPump()
}
