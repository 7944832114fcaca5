package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"livequiz-service/internal/app"
	"livequiz-service/internal/auth"
	"livequiz-service/internal/domain"
	"livequiz-service/internal/realtime"
)

// WSConfig holds per-connection socket limits.
type WSConfig struct {
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	SendBuffer     int
	EventTimeout   time.Duration
}

func DefaultWSConfig() WSConfig {
	return WSConfig{
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 4096,
		SendBuffer:     64,
		EventTimeout:   5 * time.Second,
	}
}

// WSHandler serves the /ws endpoint. Sockets are thin: they join rooms and ask the sync
// service what to render; all game truth lives in the store.
type WSHandler struct {
	service  *app.QuizService
	hub      *realtime.Hub
	tokens   *auth.Manager
	upgrader websocket.Upgrader
	cfg      WSConfig
}

func NewWSHandler(service *app.QuizService, hub *realtime.Hub, tokens *auth.Manager) *WSHandler {
	h := &WSHandler{
		service: service,
		hub:     hub,
		tokens:  tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origins are enforced by the CORS layer in front of the mux.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		cfg: DefaultWSConfig(),
	}
	hub.SetEvictHandler(h.announcePresence)
	return h
}

type inboundMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type joinPayload struct {
	Code          string `json:"code"`
	ParticipantID string `json:"participantId"`
}

type watchPayload struct {
	Token string `json:"token"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type presencePayload struct {
	Count int `json:"count"`
}

// Inbound socket events.
const (
	eventJoinSession = "join:session"
	eventSyncState   = "sync:state"
	eventAdminWatch  = "admin:watch"
)

// ServeWS upgrades the request and runs the connection until either side hangs up.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	client := realtime.NewClient(h.cfg.SendBuffer)
	log.Debug().Str("client_id", client.ID).Str("remote", r.RemoteAddr).Msg("socket connected")

	go h.writePump(conn, client)
	h.readPump(r.Context(), conn, client)

	room := h.hub.Leave(client)
	client.Close()
	h.announcePresence(room)
	log.Debug().Str("client_id", client.ID).Str("room", room).Msg("socket disconnected")
}

func (h *WSHandler) writePump(conn *websocket.Conn, client *realtime.Client) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case frame := <-client.Frames():
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Debug().Err(err).Str("client_id", client.ID).Msg("ws write failed")
				client.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				client.Close()
				return
			}
		case <-client.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (h *WSHandler) readPump(ctx context.Context, conn *websocket.Conn, client *realtime.Client) {
	conn.SetReadLimit(h.cfg.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("client_id", client.ID).Msg("unexpected ws close")
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
		h.handle(ctx, client, raw)
	}
}

// handle dispatches one inbound frame. A panic here is logged and the loop carries on.
func (h *WSHandler) handle(ctx context.Context, client *realtime.Client, raw []byte) {
	var msg inboundMessage
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Str("client_id", client.ID).Str("event", msg.Event).Msg("ws handler panic")
			h.sendError(client, "internal error")
		}
	}()

	if err := json.Unmarshal(raw, &msg); err != nil {
		h.sendError(client, "malformed message")
		return
	}
	ctx, cancel := context.WithTimeout(ctx, h.cfg.EventTimeout)
	defer cancel()

	switch msg.Event {
	case eventJoinSession:
		var p joinPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			h.sendError(client, "invalid join payload")
			return
		}
		h.joinSession(ctx, client, p)
	case eventSyncState:
		var p joinPayload
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &p); err != nil {
				h.sendError(client, "invalid sync payload")
				return
			}
		}
		h.syncState(ctx, client, p.Code)
	case eventAdminWatch:
		var p watchPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			h.sendError(client, "invalid watch payload")
			return
		}
		h.adminWatch(client, p.Token)
	default:
		h.sendError(client, "unsupported event "+msg.Event)
	}
}

// joinSession puts the socket in the session room and immediately sends what it should render,
// so reconnecting clients land on the right screen.
func (h *WSHandler) joinSession(ctx context.Context, client *realtime.Client, p joinPayload) {
	code := domain.NormalizeCode(p.Code)
	view, err := h.service.Sync(ctx, code, p.ParticipantID)
	if err != nil {
		h.sendError(client, err.Error())
		return
	}
	// Only ids issued by this session count toward presence; anything else watches as a spectator.
	member := ""
	if p.ParticipantID != "" {
		ok, err := h.service.ParticipantInSession(ctx, code, p.ParticipantID)
		if err != nil {
			h.sendError(client, err.Error())
			return
		}
		if ok {
			member = p.ParticipantID
		} else {
			log.Debug().Str("client_id", client.ID).Str("session", code).Msg("unknown participant joined as spectator")
		}
	}
	prev := h.hub.Join(client, code, member)
	event, payload := app.ViewEvent(view)
	h.hub.Send(client, event, payload)

	if prev != "" && prev != code {
		h.announcePresence(prev)
	}
	h.announcePresence(code)
}

func (h *WSHandler) syncState(ctx context.Context, client *realtime.Client, code string) {
	code = domain.NormalizeCode(code)
	if code == "" {
		code = h.hub.RoomOf(client)
	}
	if code == "" || code == realtime.AdminRoom {
		h.sendError(client, "session code required")
		return
	}
	view, err := h.service.Sync(ctx, code, "")
	if err != nil {
		h.sendError(client, err.Error())
		return
	}
	event, payload := app.ViewEvent(view)
	h.hub.Send(client, event, payload)
}

func (h *WSHandler) adminWatch(client *realtime.Client, token string) {
	if _, err := h.tokens.Parse(token); err != nil {
		h.sendError(client, "unauthorized")
		return
	}
	prev := h.hub.Join(client, realtime.AdminRoom, "")
	h.hub.Send(client, app.EventAdminStats, h.hub.Stats())
	h.announcePresence(prev)
}

// announcePresence pushes the lobby count to a session room and fresh stats to watchers.
// Counts are per instance, so these go to local sockets only.
func (h *WSHandler) announcePresence(room string) {
	if room == "" || room == realtime.AdminRoom {
		return
	}
	if frame, err := realtime.Encode(app.EventSessionUpdate, presencePayload{Count: h.hub.Count(room)}); err == nil {
		h.hub.Deliver(room, frame)
	}
	if frame, err := realtime.Encode(app.EventAdminStats, h.hub.Stats()); err == nil {
		h.hub.Deliver(realtime.AdminRoom, frame)
	}
}

func (h *WSHandler) sendError(client *realtime.Client, message string) {
	h.hub.Send(client, app.EventError, errorPayload{Message: message})
}
