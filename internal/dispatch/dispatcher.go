// Package dispatch turns inbound envelopes into engine calls and fans the
// resulting deliveries out to connections. It is the only layer that touches
// both the room registry and the connection registry; rooms never see
// sockets and sockets never see rooms.
package dispatch

import (
	"encoding/json"
	"errors"
	"log"

	"thoughtswap/internal/registry"
	"thoughtswap/internal/room"
	"thoughtswap/pkg/interfaces"
	"thoughtswap/pkg/types"
)

// ConnLookup resolves a connection ID to its live connection.
type ConnLookup interface {
	Get(connID string) (interfaces.Conn, bool)
}

// Dispatcher routes envelopes from the transport to room operations.
type Dispatcher struct {
	rooms *registry.Registry
	conns ConnLookup
}

// New creates a dispatcher over the given registries.
func New(rooms *registry.Registry, conns ConnLookup) *Dispatcher {
	return &Dispatcher{rooms: rooms, conns: conns}
}

// HandleEnvelope decodes and executes one inbound frame. Engine errors are
// scoped to the sender; deliveries are applied after the room mutation
// completed, so every recipient sees a consistent snapshot.
func (d *Dispatcher) HandleEnvelope(conn interfaces.Conn, env types.Envelope) {
	var (
		deliveries []room.Delivery
		err        error
	)

	switch env.Event {
	case types.EventJoinRoom:
		deliveries, err = d.handleJoin(conn, env.Payload)
	case types.EventLeaveRoom:
		deliveries, err = d.handleLeave(conn)
	case types.EventSubmitThought:
		deliveries, err = d.handleSubmit(conn, env.Payload)
	case types.EventRequestNewThought:
		deliveries, err = d.handleRequestNewThought(conn, env.Payload)
	case types.EventReassign:
		deliveries, err = d.handleReassign(conn, env.Payload)
	case types.EventBroadcastPrompt:
		deliveries, err = d.handleBroadcastPrompt(conn, env.Payload)
	case types.EventDistribute:
		deliveries, err = d.handleDistribute(conn)
	case types.EventDeleteThought:
		deliveries, err = d.handleDeleteThought(conn, env.Payload)
	case types.EventResetPrompt:
		deliveries, err = d.handleReset(conn)
	case types.EventEndSession:
		deliveries, err = d.handleEndSession(conn, env.Payload)
	default:
		log.Printf("Unknown event: id=%s event=%q", conn.ConnectionID(), env.Event)
		err = errors.New("unknown event: " + env.Event)
	}

	if err != nil {
		d.sendError(conn, err)
		return
	}
	d.deliver(deliveries)
}

// HandleDisconnect marks the participant gone in their room, if any. The
// participant record survives for reconnection.
func (d *Dispatcher) HandleDisconnect(conn interfaces.Conn) {
	code := conn.JoinCode()
	if code == "" {
		return
	}
	r, err := d.rooms.Find(code)
	if err != nil {
		return
	}
	d.deliver(r.Disconnect(conn.ConnectionID()))
}

func (d *Dispatcher) handleJoin(conn interfaces.Conn, raw json.RawMessage) ([]room.Delivery, error) {
	// An absent payload is a teacher opening a fresh session.
	var p types.JoinRoomPayload
	if len(raw) > 0 {
		if err := decode(raw, &p); err != nil {
			return nil, err
		}
	}

	var r *room.Room
	if p.JoinCode == "" {
		// Only a teacher opens a session; everyone else must present a code.
		if conn.Identity().Role != types.RoleTeacher {
			return nil, types.ErrInvalidJoinCode
		}
		r = d.rooms.Create()
	} else {
		var err error
		r, err = d.rooms.Find(p.JoinCode)
		if err != nil {
			return nil, err
		}
	}

	deliveries, err := r.Join(conn.ConnectionID(), conn.Identity())
	if err != nil {
		return nil, err
	}
	conn.SetJoinCode(r.JoinCode())
	return deliveries, nil
}

func (d *Dispatcher) handleLeave(conn interfaces.Conn) ([]room.Delivery, error) {
	r, err := d.roomOf(conn)
	if err != nil {
		return nil, err
	}
	deliveries := r.Leave(conn.ConnectionID())
	conn.SetJoinCode("")
	return deliveries, nil
}

func (d *Dispatcher) handleSubmit(conn interfaces.Conn, raw json.RawMessage) ([]room.Delivery, error) {
	var p types.SubmitThoughtPayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	r, err := d.roomOf(conn)
	if err != nil {
		return nil, err
	}
	return r.Submit(conn.ConnectionID(), p.PromptUseID, p.Content)
}

func (d *Dispatcher) handleRequestNewThought(conn interfaces.Conn, raw json.RawMessage) ([]room.Delivery, error) {
	var p types.RequestNewThoughtPayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	r, err := d.roomOf(conn)
	if err != nil {
		return nil, err
	}
	return r.RequestDifferent(conn.ConnectionID(), p.CurrentThoughtContent)
}

func (d *Dispatcher) handleReassign(conn interfaces.Conn, raw json.RawMessage) ([]room.Delivery, error) {
	var p types.ReassignPayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	r, err := d.roomOf(conn)
	if err != nil {
		return nil, err
	}
	return r.Reassign(conn.ConnectionID(), p.StudentSocketID)
}

func (d *Dispatcher) handleBroadcastPrompt(conn interfaces.Conn, raw json.RawMessage) ([]room.Delivery, error) {
	var p types.BroadcastPromptPayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	r, err := d.roomOf(conn)
	if err != nil {
		return nil, err
	}
	return r.BroadcastPrompt(conn.ConnectionID(), types.Prompt{
		Content: p.Content,
		Type:    p.Type,
		Options: p.Options,
	})
}

func (d *Dispatcher) handleDistribute(conn interfaces.Conn) ([]room.Delivery, error) {
	r, err := d.roomOf(conn)
	if err != nil {
		return nil, err
	}
	return r.Distribute(conn.ConnectionID())
}

func (d *Dispatcher) handleDeleteThought(conn interfaces.Conn, raw json.RawMessage) ([]room.Delivery, error) {
	var p types.DeleteThoughtPayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	r, err := d.roomOf(conn)
	if err != nil {
		return nil, err
	}
	return r.DeleteSubmission(conn.ConnectionID(), p.AuthorEmail)
}

func (d *Dispatcher) handleReset(conn interfaces.Conn) ([]room.Delivery, error) {
	r, err := d.roomOf(conn)
	if err != nil {
		return nil, err
	}
	return r.Reset(conn.ConnectionID())
}

func (d *Dispatcher) handleEndSession(conn interfaces.Conn, raw json.RawMessage) ([]room.Delivery, error) {
	var p types.EndSessionPayload
	if err := decode(raw, &p); err != nil {
		return nil, err
	}
	r, err := d.roomOf(conn)
	if err != nil {
		return nil, err
	}
	deliveries, err := r.End(conn.ConnectionID(), p.SurveyLink)
	if err != nil {
		return nil, err
	}
	d.rooms.Evict(r.JoinCode())
	return deliveries, nil
}

// roomOf resolves the sender's bound room. Operations other than JOIN_ROOM
// only ever act on the room the connection already joined.
func (d *Dispatcher) roomOf(conn interfaces.Conn) (*room.Room, error) {
	code := conn.JoinCode()
	if code == "" {
		return nil, types.ErrNotParticipant
	}
	return d.rooms.Find(code)
}

// sendError reports a failed operation to the sender only. Terminal room
// errors go out as SESSION_ENDED so the client clears its cached join code.
func (d *Dispatcher) sendError(conn interfaces.Conn, err error) {
	var ev types.Event
	if errors.Is(err, types.ErrRoomEnded) || errors.Is(err, types.ErrSessionEnded) {
		ev = types.Event{Event: types.EventSessionEnded, Payload: types.SessionEndedPayload{}}
	} else {
		ev = types.Event{Event: types.EventError, Payload: types.ErrorPayload{Message: err.Error()}}
	}
	if werr := conn.WriteEvent(ev); werr != nil {
		log.Printf("Failed to send error: id=%s err=%v", conn.ConnectionID(), werr)
	}
}

// deliver writes the computed events. A dead recipient only loses its own
// delivery; reconnection replays current state instead.
func (d *Dispatcher) deliver(deliveries []room.Delivery) {
	for _, del := range deliveries {
		target, ok := d.conns.Get(del.ConnID)
		if !ok {
			continue
		}
		if err := target.WriteEvent(del.Event); err != nil {
			log.Printf("Delivery failed: id=%s event=%s err=%v", del.ConnID, del.Event.Event, err)
		}
	}
}

func decode(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return errors.New("missing payload")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.New("malformed payload")
	}
	return nil
}
