package livefeed

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cuongbtq/booking-be/internal/booking/domain"
)

// Config tunes the hub
type Config struct {
	WriteTimeout time.Duration
	BufferSize   int
}

// Hub pushes booking events to connected admin dashboards
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	count      chan chan int
	done       chan struct{}
	upgrader   websocket.Upgrader
	cfg        Config
	logger     *slog.Logger
}

// NewHub creates a hub. Run must be started before clients connect.
func NewHub(cfg Config, logger *slog.Logger) *Hub {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 64
	}

	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, cfg.BufferSize),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		count:      make(chan chan int),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		cfg:    cfg,
		logger: logger,
	}
}

// Run serves registrations and broadcasts until ctx is done, then closes
// every connection
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
			}
			h.logger.Info("Live feed stopped")
			return
		case conn := <-h.register:
			h.clients[conn] = true
			h.logger.Info("Live feed client connected", slog.Int("clients", len(h.clients)))
		case conn := <-h.unregister:
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
				h.logger.Info("Live feed client disconnected", slog.Int("clients", len(h.clients)))
			}
		case message := <-h.broadcast:
			for conn := range h.clients {
				conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.Warn("Failed to write to live feed client", slog.Any("error", err))
					conn.Close()
					delete(h.clients, conn)
				}
			}
		case reply := <-h.count:
			reply <- len(h.clients)
		}
	}
}

// Publish queues an event for every client. The event is dropped when the
// buffer is full.
func (h *Hub) Publish(event domain.BookingEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to marshal booking event", slog.Any("error", err))
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("Live feed buffer full, event dropped",
			slog.String("type", string(event.Type)),
			slog.Int64("job_id", event.JobID),
		)
	}
}

// ServeWS upgrades the request and keeps the connection registered until the
// client goes away
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade live feed connection", slog.Any("error", err))
		return
	}

	select {
	case h.register <- conn:
	case <-h.done:
		conn.Close()
		return
	}

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				select {
				case h.unregister <- conn:
				case <-h.done:
				}
				return
			}
		}
	}()
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	reply := make(chan int)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}
