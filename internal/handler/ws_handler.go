package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gorilla/websocket"

	"github.com/freeeve/blockfall/internal/auth"
	"github.com/freeeve/blockfall/internal/model"
	"github.com/freeeve/blockfall/internal/service"
)

const (
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = 54 * time.Second // Must be less than pongWait
	lookupTimeout = 5 * time.Second
	maxMsgSize    = 4096
	sendBufSize   = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origins are checked by the CORS middleware
	},
}

// Watch is the subscribe acknowledgement: what the watcher is following
// and where it stands. Position is TPN and is empty for self-play games,
// whose board only exists inside the running search.
type Watch struct {
	Source   string `json:"source"`
	Seed     int64  `json:"seed"`
	Moves    int    `json:"moves"`
	Position string `json:"position,omitempty"`
	Running  bool   `json:"running"`
	GameOver bool   `json:"game_over"`
}

// WSHandler upgrades watchers to WebSocket connections and subscribes them
// to games that exist.
type WSHandler struct {
	hub      *Hub
	jwtMgr   *auth.JWTManager
	games    *service.GameService
	sessions *service.SessionService
	selfPlay *service.SelfPlayService
}

// NewWSHandler creates a WSHandler. Any of the services may be nil; ids are
// then only looked up in the others.
func NewWSHandler(hub *Hub, jwtMgr *auth.JWTManager, games *service.GameService, sessions *service.SessionService, selfPlay *service.SelfPlayService) *WSHandler {
	return &WSHandler{hub: hub, jwtMgr: jwtMgr, games: games, sessions: sessions, selfPlay: selfPlay}
}

// lookup resolves a game id to a running self-play game, a live session or
// a finished game, in that order.
func (h *WSHandler) lookup(ctx context.Context, gameID string) (*Watch, error) {
	if h.selfPlay != nil {
		if g, ok := h.selfPlay.Running(gameID); ok {
			return &Watch{Source: model.SourceSelfPlay, Seed: g.Seed, Running: true}, nil
		}
	}
	if h.sessions != nil {
		sess, err := h.sessions.Get(ctx, gameID)
		switch {
		case err == nil:
			return &Watch{
				Source:   model.SourceSession,
				Seed:     sess.Seed,
				Moves:    sess.Moves,
				Position: sess.Position,
				Running:  !sess.GameOver,
				GameOver: sess.GameOver,
			}, nil
		case !errors.Is(err, service.ErrSessionNotFound):
			return nil, err
		}
	}
	if h.games != nil {
		g, err := h.games.Get(ctx, gameID)
		if err != nil {
			return nil, err
		}
		return &Watch{
			Source:   g.Source,
			Seed:     g.Seed,
			Moves:    g.Moves,
			Position: g.FinalPosition,
			GameOver: g.GameOver,
		}, nil
	}
	return nil, service.ErrGameNotFound
}

// ServeWS handles GET /api/v1/ws. Browsers cannot set headers on a
// WebSocket request, so the access token comes in the token query
// parameter. An optional game parameter subscribes the connection on
// connect; an unknown game is refused before the upgrade.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		writeError(w, http.StatusUnauthorized, "missing token parameter")
		return
	}
	claims, err := h.jwtMgr.ValidateToken(tokenStr, auth.TokenAccess)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	gameID := r.URL.Query().Get("game")
	var watch *Watch
	if gameID != "" {
		if watch, err = h.lookup(r.Context(), gameID); err != nil {
			writeServiceError(w, r, err)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &WSConn{
		conn:     conn,
		clientID: claims.ClientID,
		send:     make(chan []byte, sendBufSize),
	}
	h.hub.Register(client)
	h.hub.sendTo(client, WSEvent{Type: EventConnected, Data: map[string]any{"client_id": claims.ClientID}})
	if watch != nil {
		h.hub.Subscribe(client, gameID, watch)
	}

	go h.writePump(client)
	go h.readPump(client)

	log.Info().Str("clientId", claims.ClientID).Str("gameId", gameID).Int("total", h.hub.ConnectionCount()).Msg("WebSocket client connected")
}

func (h *WSHandler) sendError(c *WSConn, gameID, msg string) {
	h.hub.sendTo(c, WSEvent{Type: EventError, GameID: gameID, Data: map[string]string{"error": msg}})
}

// handle applies one client message.
func (h *WSHandler) handle(c *WSConn, msg ClientMessage) {
	if msg.GameID == "" {
		h.sendError(c, "", "game_id is required")
		return
	}
	switch msg.Action {
	case "subscribe":
		ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
		watch, err := h.lookup(ctx, msg.GameID)
		cancel()
		switch {
		case errors.Is(err, service.ErrGameNotFound):
			h.sendError(c, msg.GameID, err.Error())
		case err != nil:
			log.Error().Err(err).Str("gameId", msg.GameID).Msg("Watch lookup failed")
			h.sendError(c, msg.GameID, "lookup failed")
		default:
			h.hub.Subscribe(c, msg.GameID, watch)
		}
	case "unsubscribe":
		h.hub.Unsubscribe(c, msg.GameID)
	default:
		h.sendError(c, msg.GameID, "unknown action "+msg.Action)
	}
}

// readPump reads client messages until the connection closes.
func (h *WSHandler) readPump(c *WSConn) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
		log.Info().Str("clientId", c.clientID).Msg("WebSocket client disconnected")
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("clientId", c.clientID).Msg("WebSocket unexpected close")
			}
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			h.sendError(c, "", "malformed message")
			continue
		}
		h.handle(c, msg)
	}
}

// writePump writes queued events and keeps the connection alive with pings.
func (h *WSHandler) writePump(c *WSConn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			// Queued events share the frame, one per line.
			for n := len(c.send); n > 0; n-- {
				w.Write([]byte("\n"))
				w.Write(<-c.send)
			}
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
