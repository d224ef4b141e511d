package stream

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/frahmantamala/shopbot-engine/internal/transport"
	"github.com/frahmantamala/shopbot-engine/internal/transport/middleware"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type Handler struct {
	*transport.BaseHandler
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewHandler accepts browser upgrades only from allowedOrigins, using the
// same list format as the CORS middleware. Requests without an Origin header
// come from non-browser clients and are let through.
func NewHandler(hub *Hub, allowedOrigins string, lg *slog.Logger) *Handler {
	allowed := middleware.OriginMatcher(allowedOrigins)
	h := &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		hub:         hub,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowed(origin) {
				return true
			}
			h.Logger.Warn("stream origin rejected", "origin", origin)
			return false
		},
	}
	return h
}

// StockStream handles GET /api/v1/stock/stream?product_id=1,2
func (h *Handler) StockStream(w http.ResponseWriter, r *http.Request) {
	productIDs, ok := parseProductIDs(r.URL.Query().Get("product_id"))
	if !ok {
		h.WriteError(w, http.StatusBadRequest, "invalid product_id")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warn("stream upgrade failed", "error", err)
		return
	}

	client := NewClient(productIDs...)
	h.hub.Register(client)

	go h.writePump(conn, client)
	h.readPump(conn, client)
}

// readPump only services control frames; clients never send data.
func (h *Handler) readPump(conn *websocket.Conn, client *Client) {
	defer func() {
		h.hub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.Logger.Debug("stream client closed unexpectedly", "error", err)
			}
			return
		}
	}
}

func (h *Handler) writePump(conn *websocket.Conn, client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case frame, ok := <-client.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func parseProductIDs(raw string) ([]int64, bool) {
	if raw == "" {
		return nil, true
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || id <= 0 {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}
