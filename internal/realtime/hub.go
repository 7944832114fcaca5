// Package realtime keeps process-local socket rooms keyed by session code. Membership is
// disposable: it is rebuilt by client reconnects and never consulted for game truth.
package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"livequiz-service/internal/domain"
)

// AdminRoom is where admin dashboards listen for stats. Its name never matches a session code.
const AdminRoom = "admin:watchers"

// Message is the frame written to sockets.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Relay forwards room broadcasts to other server instances.
type Relay interface {
	Publish(room string, frame []byte) error
}

// Client is one socket's mailbox. The transport drains Frames and watches Done.
type Client struct {
	ID string

	send chan []byte
	done chan struct{}
	once sync.Once

	// guarded by Hub.mu
	room          string
	participantID string
}

func NewClient(buffer int) *Client {
	if buffer <= 0 {
		buffer = 64
	}
	return &Client{
		ID:   uuid.NewString(),
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

// Frames yields encoded messages queued for this client.
func (c *Client) Frames() <-chan []byte { return c.send }

// Done is closed once the client is shut down.
func (c *Client) Done() <-chan struct{} { return c.done }

// Close marks the client finished. Safe to call more than once.
func (c *Client) Close() {
	c.once.Do(func() { close(c.done) })
}

// Enqueue queues a frame without blocking. It reports false when the client is closed or its
// buffer is full.
func (c *Client) Enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Hub groups clients into rooms and fans messages out to them.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
	relay Relay
	// onEvict runs after slow clients are dropped from a room.
	onEvict func(room string)
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Client]struct{})}
}

// SetRelay makes every Broadcast also reach other instances.
func (h *Hub) SetRelay(r Relay) {
	h.mu.Lock()
	h.relay = r
	h.mu.Unlock()
}

// SetEvictHandler registers fn to run, outside the lock, whenever Deliver drops slow clients
// from a room.
func (h *Hub) SetEvictHandler(fn func(room string)) {
	h.mu.Lock()
	h.onEvict = fn
	h.mu.Unlock()
}

// Join moves c into room, leaving any room it was in. It returns the previous room, if any.
func (h *Hub) Join(c *Client, room, participantID string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	prev := h.removeLocked(c)
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.room = room
	c.participantID = participantID
	return prev
}

// Leave removes c from its room and returns the room name, or "" if it was in none.
func (h *Hub) Leave(c *Client) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) string {
	room := c.room
	if room == "" {
		return ""
	}
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	c.room = ""
	c.participantID = ""
	return room
}

// RoomOf returns the room c is currently in.
func (h *Hub) RoomOf(c *Client) string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return c.room
}

// Count returns how many distinct participants are in room. Sockets that joined without a
// participant id (projectors, dashboards) are not counted.
func (h *Hub) Count(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(participantsIn(h.rooms[room]))
}

// Stats scans every session room. Cost grows with rooms times members.
func (h *Hub) Stats() domain.Stats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	stats := domain.Stats{SessionCounts: make(map[string]int)}
	all := make(map[string]struct{})
	for room, members := range h.rooms {
		if !domain.IsSessionCode(room) {
			continue
		}
		ids := participantsIn(members)
		stats.SessionCounts[room] = len(ids)
		for id := range ids {
			all[id] = struct{}{}
		}
	}
	stats.ActiveUsers = len(all)
	return stats
}

func participantsIn(members map[*Client]struct{}) map[string]struct{} {
	ids := make(map[string]struct{}, len(members))
	for c := range members {
		if c.participantID != "" {
			ids[c.participantID] = struct{}{}
		}
	}
	return ids
}

// Broadcast delivers an event to every local member of room and hands it to the relay.
// It never blocks on slow clients.
func (h *Hub) Broadcast(room, event string, payload any) {
	frame, err := Encode(event, payload)
	if err != nil {
		log.Error().Err(err).Str("room", room).Str("event", event).Msg("encode broadcast")
		return
	}
	h.Deliver(room, frame)

	h.mu.RLock()
	relay := h.relay
	h.mu.RUnlock()
	if relay != nil {
		if err := relay.Publish(room, frame); err != nil {
			log.Warn().Err(err).Str("room", room).Str("event", event).Msg("relay publish failed")
		}
	}
}

// Deliver writes an encoded frame to local members only. Clients whose buffers are full are
// dropped from the room and closed; they resync on reconnect.
func (h *Hub) Deliver(room string, frame []byte) {
	var slow []*Client
	h.mu.RLock()
	for c := range h.rooms[room] {
		if !c.Enqueue(frame) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	if len(slow) == 0 {
		return
	}
	for _, c := range slow {
		log.Warn().Str("client_id", c.ID).Str("room", room).Msg("dropping slow client")
		h.Leave(c)
		c.Close()
	}

	h.mu.RLock()
	onEvict := h.onEvict
	h.mu.RUnlock()
	if onEvict != nil {
		onEvict(room)
	}
}

// Send writes one event to a single client.
func (h *Hub) Send(c *Client, event string, payload any) {
	frame, err := Encode(event, payload)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("encode message")
		return
	}
	if !c.Enqueue(frame) {
		log.Warn().Str("client_id", c.ID).Str("event", event).Msg("client buffer full")
	}
}

// Encode renders an event frame.
func Encode(event string, payload any) ([]byte, error) {
	return json.Marshal(Message{Event: event, Data: payload})
}
