package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// SubjectPrefix namespaces room traffic on the bus.
const SubjectPrefix = "quiz.room."

// natsConn is the slice of *nats.Conn the relay needs.
type natsConn interface {
	Publish(subj string, data []byte) error
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
}

type relayEnvelope struct {
	Origin string          `json:"origin"`
	Room   string          `json:"room"`
	Frame  json.RawMessage `json:"frame"`
}

// NATSRelay mirrors hub broadcasts across instances over core NATS. Each instance tags what it
// publishes and ignores its own messages, so local members receive every frame exactly once.
type NATSRelay struct {
	conn   natsConn
	hub    *Hub
	origin string
	sub    *nats.Subscription
}

func NewNATSRelay(conn natsConn, hub *Hub) *NATSRelay {
	return &NATSRelay{conn: conn, hub: hub, origin: uuid.NewString()}
}

// Start subscribes to every room subject and attaches the relay to the hub.
func (r *NATSRelay) Start() error {
	sub, err := r.conn.Subscribe(SubjectPrefix+">", r.handle)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", SubjectPrefix, err)
	}
	r.sub = sub
	r.hub.SetRelay(r)
	log.Info().Str("origin", r.origin).Msg("room relay started")
	return nil
}

func (r *NATSRelay) Publish(room string, frame []byte) error {
	data, err := json.Marshal(relayEnvelope{Origin: r.origin, Room: room, Frame: frame})
	if err != nil {
		return err
	}
	return r.conn.Publish(SubjectPrefix+room, data)
}

func (r *NATSRelay) handle(msg *nats.Msg) {
	var env relayEnvelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		log.Warn().Err(err).Str("subject", msg.Subject).Msg("bad relay envelope")
		return
	}
	if env.Origin == r.origin {
		return
	}
	r.hub.Deliver(env.Room, env.Frame)
}

// Close detaches from the hub and drops the subscription.
func (r *NATSRelay) Close() error {
	r.hub.SetRelay(nil)
	if r.sub == nil {
		return nil
	}
	return r.sub.Unsubscribe()
}
