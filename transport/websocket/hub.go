package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/wricardo/mcp-training/codenames/game/engine"
	"github.com/wricardo/mcp-training/codenames/game/session"
	"github.com/wricardo/mcp-training/codenames/stats"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. A full board with a saved
	// state is a little under 2KB.
	maxMessageSize = 8192

	sendBuffer = 256
)

// Inbound message types.
const (
	TypeJoinGame   = "JOIN_GAME"
	TypeNewGame    = "NEW_GAME"
	TypeRevealCard = "REVEAL_CARD"
)

// Outbound message types.
const (
	TypeGameState    = "GAME_STATE"
	TypePlayerJoined = "PLAYER_JOINED"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Browsers connect from whatever host serves the board UI.
		return true
	},
}

// Inbound is a frame sent by a client.
type Inbound struct {
	Type       string          `json:"type"`
	GameKey    string          `json:"gameKey"`
	Board      json.RawMessage `json:"board,omitempty"`
	SavedState json.RawMessage `json:"savedState,omitempty"`
	CardIndex  *int            `json:"cardIndex,omitempty"`
}

// Outbound is a frame sent to clients.
type Outbound struct {
	Type    string            `json:"type"`
	GameKey string            `json:"gameKey"`
	State   *engine.GameState `json:"state,omitempty"`
	Data    any               `json:"data,omitempty"`
}

// PlayerJoined is the payload of a PLAYER_JOINED frame.
type PlayerJoined struct {
	ConnectionID string `json:"connectionId"`
	PlayerCount  int    `json:"playerCount"`
}

// Client represents a WebSocket client
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	id   string

	// Key of the session the client last joined. Only touched by Hub.Run.
	gameKey string
}

type frame struct {
	client *Client
	data   []byte
}

type call struct {
	fn   func()
	done chan struct{}
}

// ErrHubStopped is returned by Do once Run has returned.
var ErrHubStopped = errors.New("hub stopped")

// Hub owns every client connection and applies their messages to sessions.
//
// All registration, message handling and broadcasting happens on the Run
// goroutine, one event at a time. Other registry writers, such as the idle
// reaper, submit their work through Do so it runs between two messages.
type Hub struct {
	manager  *session.Manager
	presence *session.Presence
	stats    stats.Collector
	logger   *zap.Logger
	tracer   trace.Tracer

	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	inbound    chan frame
	calls      chan call
	done       chan struct{}

	connected atomic.Int64
}

// NewHub creates a new WebSocket hub serving sessions from manager.
func NewHub(manager *session.Manager, collector stats.Collector, logger *zap.Logger) *Hub {
	if collector == nil {
		collector = stats.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		manager:    manager,
		presence:   session.NewPresence(),
		stats:      collector,
		logger:     logger,
		tracer:     otel.Tracer("github.com/wricardo/mcp-training/codenames/transport/websocket"),
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan frame, sendBuffer),
		calls:      make(chan call),
		done:       make(chan struct{}),
	}
}

// Presence returns the connection to session mapping maintained by the hub.
func (h *Hub) Presence() *session.Presence {
	return h.presence
}

// Connections returns the number of open client connections.
func (h *Hub) Connections() int {
	return int(h.connected.Load())
}

// Run starts the hub's event loop. It returns when ctx is cancelled, after
// closing every client's send channel.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			for _, client := range h.clients {
				h.unregisterClient(client)
			}
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case f := <-h.inbound:
			h.handle(ctx, f.client, f.data)

		case c := <-h.calls:
			c.fn()
			close(c.done)
		}
	}
}

// Do runs fn on the Run goroutine between two messages and waits for it to
// finish. It does not run fn if ctx is done or Run has returned first.
func (h *Hub) Do(ctx context.Context, fn func()) error {
	c := call{fn: fn, done: make(chan struct{})}
	select {
	case h.calls <- c:
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHubStopped
	}
	<-c.done
	return nil
}

// ServeWS handles WebSocket requests from clients
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		id:   uuid.NewString(),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (h *Hub) registerClient(client *Client) {
	h.clients[client.id] = client
	h.connected.Add(1)
	h.logger.Debug("client connected",
		zap.String("connection_id", client.id),
		zap.Int("clients", len(h.clients)))
}

// unregisterClient closes the client's send channel and detaches it from its
// session. The session itself and its board are left untouched.
func (h *Hub) unregisterClient(client *Client) {
	if _, ok := h.clients[client.id]; !ok {
		return
	}
	delete(h.clients, client.id)
	close(client.send)
	h.connected.Add(-1)

	if sess := h.presence.Detach(client.id); sess != nil {
		h.logger.Debug("client left game",
			zap.String("connection_id", client.id),
			zap.String("game_key", sess.Key),
			zap.Int("players", sess.PlayerCount()))
	}
}

func (h *Hub) handle(ctx context.Context, client *Client, data []byte) {
	var msg Inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		h.logger.Debug("ignoring malformed message",
			zap.String("connection_id", client.id), zap.Error(err))
		return
	}

	_, span := h.tracer.Start(ctx, "ws "+msg.Type, trace.WithAttributes(
		attribute.String("codenames.game_key", msg.GameKey),
		attribute.String("codenames.connection_id", client.id),
	))
	defer span.End()

	switch msg.Type {
	case TypeJoinGame:
		h.join(client, &msg, true)
	case TypeNewGame:
		if len(msg.Board) == 0 {
			h.ignore(client, &msg, "new game without board")
			return
		}
		h.join(client, &msg, false)
	case TypeRevealCard:
		h.reveal(client, &msg)
	default:
		h.ignore(client, &msg, "unknown message type")
	}
}

// join resolves or creates the session for msg.GameKey, attaches the client
// and broadcasts the resulting state. NEW_GAME goes through the same path
// without a saved state, so it never replaces an existing session.
func (h *Hub) join(client *Client, msg *Inbound, withSaved bool) {
	var saved *engine.SavedState
	if withSaved {
		saved = h.parseSaved(client, msg)
	}

	sess, err := h.manager.Get(msg.GameKey)
	if errors.Is(err, session.ErrSessionNotFound) {
		if len(msg.Board) == 0 {
			h.ignore(client, msg, "join of unknown game without board")
			return
		}
		var board engine.Board
		if err := json.Unmarshal(msg.Board, &board); err != nil {
			h.ignore(client, msg, err.Error())
			return
		}

		var created bool
		sess, created, err = h.manager.CreateIfAbsent(msg.GameKey, board, saved)
		if err != nil {
			h.ignore(client, msg, err.Error())
			return
		}
		if created {
			h.stats.AddGame(sess.Key)
			if sess.State().GameOver {
				h.stats.CompleteGame(sess.Key)
			}
			h.logger.Info("game created",
				zap.String("game_key", sess.Key),
				zap.Bool("restored", saved != nil))
			saved = nil
		}
	} else if err != nil {
		h.ignore(client, msg, err.Error())
		return
	}

	if _, completed, err := sess.Join(saved); err != nil {
		h.logger.Debug("ignoring saved state",
			zap.String("game_key", sess.Key), zap.Error(err))
	} else if completed {
		h.stats.CompleteGame(sess.Key)
	}

	isNew := !sess.HasPlayer(client.id)
	h.presence.Attach(client.id, sess)
	client.gameKey = sess.Key

	h.broadcastState(sess)
	if isNew {
		h.broadcastJoined(sess, client.id)
	}
}

func (h *Hub) reveal(client *Client, msg *Inbound) {
	if client.gameKey == "" || msg.GameKey != client.gameKey {
		h.ignore(client, msg, "reveal for a game the client has not joined")
		return
	}
	if msg.CardIndex == nil {
		h.ignore(client, msg, "reveal without card index")
		return
	}

	sess := h.presence.SessionOf(client.id)
	current, err := h.manager.Get(msg.GameKey)
	if err != nil || sess == nil || current != sess {
		h.ignore(client, msg, "reveal for a removed game")
		return
	}

	state, completed := sess.Reveal(*msg.CardIndex)
	if state == nil {
		h.ignore(client, msg, "reveal rejected")
		return
	}

	h.broadcast(sess, &Outbound{Type: TypeGameState, GameKey: sess.Key, State: state})
	if completed {
		h.stats.CompleteGame(sess.Key)
		h.logger.Info("game completed",
			zap.String("game_key", sess.Key),
			zap.String("winner", string(state.Winner)))
	}
}

// parseSaved decodes a saved state. Anything malformed is treated as absent.
func (h *Hub) parseSaved(client *Client, msg *Inbound) *engine.SavedState {
	if len(msg.SavedState) == 0 || string(msg.SavedState) == "null" {
		return nil
	}
	var saved engine.SavedState
	if err := json.Unmarshal(msg.SavedState, &saved); err != nil {
		h.logger.Debug("ignoring malformed saved state",
			zap.String("connection_id", client.id), zap.Error(err))
		return nil
	}
	if _, err := engine.ParseReveals(saved.Revealed); err != nil {
		h.logger.Debug("ignoring saved state",
			zap.String("connection_id", client.id), zap.Error(err))
		return nil
	}
	return &saved
}

func (h *Hub) broadcastState(sess *session.Session) {
	h.broadcast(sess, &Outbound{Type: TypeGameState, GameKey: sess.Key, State: sess.State()})
}

func (h *Hub) broadcastJoined(sess *session.Session, joined string) {
	players := sess.Players()
	data, err := json.Marshal(&Outbound{
		Type:    TypePlayerJoined,
		GameKey: sess.Key,
		Data:    PlayerJoined{ConnectionID: joined, PlayerCount: len(players)},
	})
	if err != nil {
		h.logger.Error("failed to marshal player joined", zap.Error(err))
		return
	}
	for _, id := range players {
		if id != joined {
			h.sendTo(id, data)
		}
	}
}

// broadcast sends message to every client attached to sess.
func (h *Hub) broadcast(sess *session.Session, message *Outbound) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal broadcast message",
			zap.String("type", message.Type), zap.Error(err))
		return
	}
	for _, id := range sess.Players() {
		h.sendTo(id, data)
	}
}

func (h *Hub) sendTo(id string, data []byte) {
	client, ok := h.clients[id]
	if !ok {
		return
	}
	select {
	case client.send <- data:
	default:
		// Client's send buffer is full, drop it
		h.logger.Warn("dropping slow client", zap.String("connection_id", id))
		h.unregisterClient(client)
	}
}

func (h *Hub) ignore(client *Client, msg *Inbound, reason string) {
	h.logger.Debug("ignoring message",
		zap.String("connection_id", client.id),
		zap.String("type", msg.Type),
		zap.String("game_key", msg.GameKey),
		zap.String("reason", reason))
}

// readPump pumps messages from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket read error",
					zap.String("connection_id", c.id), zap.Error(err))
			}
			return
		}

		select {
		case c.hub.inbound <- frame{client: c, data: data}:
		case <-c.hub.done:
			return
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection.
// Queued messages are coalesced into one frame separated by newlines.
func (c *Client) writePump() {
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
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
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
