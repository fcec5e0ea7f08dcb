// Package wsbridge accepts touch input from remote clients over WebSocket
// and streams recognized gestures back to them.
//
// A client connects, sends a hello message describing its touch surface and
// then one frame message per input batch:
//
//	{"type":"hello","name":"tablet","touches":10,"resX":4000,"resY":4000}
//	{"type":"frame","touches":[{"id":1,"kind":"begin","x":120,"y":80}]}
//
// Every connection is its own engine device and is removed, with its
// touches ended, when the connection closes.
package wsbridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/phanxgames/gesture"
)

const protocolVersion = 1

// Config configures a Bridge.
type Config struct {
	// FirstDevice is the device id given to the first connection; later
	// connections count up from it. Defaults to 100.
	FirstDevice gesture.DeviceID
	// Clock supplies frame timestamps; defaults to time since the bridge
	// was created.
	Clock func() time.Duration
	// CheckOrigin overrides the upgrader's origin check.
	CheckOrigin func(r *http.Request) bool
	Logger      *slog.Logger
}

// HelloMessage opens a session.
type HelloMessage struct {
	Type    string  `json:"type"`
	Name    string  `json:"name"`
	Touches int     `json:"touches"`
	Direct  bool    `json:"direct"`
	MaxX    float64 `json:"maxX,omitempty"`
	MaxY    float64 `json:"maxY,omitempty"`
	ResX    float64 `json:"resX,omitempty"`
	ResY    float64 `json:"resY,omitempty"`
}

// WelcomeMessage answers a hello.
type WelcomeMessage struct {
	Type    string `json:"type"`
	Device  int    `json:"device"`
	Version int    `json:"version"`
}

// TouchMessage is one touch delta of a frame. Kind is begin, update or end.
type TouchMessage struct {
	ID   uint32  `json:"id"`
	Kind string  `json:"kind"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// FrameMessage carries one input batch.
type FrameMessage struct {
	Type    string         `json:"type"`
	Touches []TouchMessage `json:"touches"`
}

// EventMessage is a gesture event sent to clients.
type EventMessage struct {
	Type     string             `json:"type"`
	Event    string             `json:"event"`
	Group    int                `json:"group,omitempty"`
	Gesture  uint64             `json:"gesture,omitempty"`
	Name     string             `json:"name,omitempty"`
	Device   int                `json:"device,omitempty"`
	Touches  []uint32           `json:"touches,omitempty"`
	Attrs    map[string]float64 `json:"attrs,omitempty"`
	Finished bool               `json:"finished,omitempty"`
}

type session struct {
	conn    *websocket.Conn
	device  gesture.DeviceID
	writeMu sync.Mutex
	active  map[gesture.TouchID]gesture.TouchDelta
}

func (s *session) writeJSON(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return s.conn.WriteJSON(v)
}

// Bridge is an http.Handler serving the WebSocket endpoint.
type Bridge struct {
	eng      *gesture.Engine
	cfg      Config
	upgrader websocket.Upgrader
	log      *slog.Logger

	mu       sync.Mutex
	sessions map[*session]struct{}
	next     gesture.DeviceID
}

// New returns a bridge feeding eng.
func New(eng *gesture.Engine, cfg Config) *Bridge {
	if cfg.FirstDevice == gesture.AllDevices {
		cfg.FirstDevice = 100
	}
	if cfg.Clock == nil {
		start := time.Now()
		cfg.Clock = func() time.Duration { return time.Since(start) }
	}
	b := &Bridge{
		eng:      eng,
		cfg:      cfg,
		log:      cfg.Logger,
		sessions: make(map[*session]struct{}),
		next:     cfg.FirstDevice,
	}
	if b.log == nil {
		b.log = slog.Default()
	}
	b.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     cfg.CheckOrigin,
	}
	return b
}

// Sessions returns the number of connected clients.
func (b *Bridge) Sessions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}

// ServeHTTP upgrades the request and runs the session until the client
// disconnects.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	if err := b.serve(r.Context(), conn); err != nil {
		b.log.Info("websocket session ended", "remote", r.RemoteAddr, "error", err)
	}
}

func (b *Bridge) serve(ctx context.Context, conn *websocket.Conn) error {
	var hello HelloMessage
	if err := conn.ReadJSON(&hello); err != nil {
		return errors.Wrap(err, "read hello")
	}
	if hello.Type != "hello" {
		return errors.Errorf("expected hello, got %q", hello.Type)
	}

	b.mu.Lock()
	id := b.next
	b.next++
	b.mu.Unlock()

	name := hello.Name
	if name == "" {
		name = "websocket"
	}
	info := gesture.DeviceInfo{
		ID: id, Name: name, Touches: hello.Touches, DirectTouch: hello.Direct,
		IndependentTouch: true, MaxX: hello.MaxX, MaxY: hello.MaxY, ResX: hello.ResX, ResY: hello.ResY,
	}
	if err := b.eng.AddDevice(info); err != nil {
		return errors.Wrap(err, "add device")
	}

	s := &session{conn: conn, device: id, active: make(map[gesture.TouchID]gesture.TouchDelta)}
	b.mu.Lock()
	b.sessions[s] = struct{}{}
	b.mu.Unlock()
	defer b.drop(s)

	if err := s.writeJSON(WelcomeMessage{Type: "welcome", Device: int(id), Version: protocolVersion}); err != nil {
		return errors.Wrap(err, "write welcome")
	}
	b.log.Info("websocket device connected", "device", id, "name", name)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var msg FrameMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return errors.Wrap(err, "read frame")
		}
		if msg.Type != "frame" {
			continue
		}
		if err := b.push(s, msg); err != nil {
			return err
		}
	}
}

func (b *Bridge) push(s *session, msg FrameMessage) error {
	deltas := make([]gesture.TouchDelta, 0, len(msg.Touches))
	for _, tm := range msg.Touches {
		d := gesture.TouchDelta{ID: gesture.TouchID(tm.ID), X: tm.X, Y: tm.Y}
		switch tm.Kind {
		case "begin":
			d.Kind = gesture.TouchBegin
			s.active[d.ID] = d
		case "update":
			d.Kind = gesture.TouchUpdate
			s.active[d.ID] = d
		case "end":
			d.Kind = gesture.TouchEnd
			delete(s.active, d.ID)
		default:
			return errors.Errorf("touch %d: unknown kind %q", tm.ID, tm.Kind)
		}
		deltas = append(deltas, d)
	}
	return errors.Wrap(b.eng.Push(gesture.InputFrame{Device: s.device, Time: b.cfg.Clock(), Touches: deltas}), "push frame")
}

// drop ends the session's touches and removes its device.
func (b *Bridge) drop(s *session) {
	b.mu.Lock()
	delete(b.sessions, s)
	b.mu.Unlock()

	if len(s.active) > 0 {
		deltas := make([]gesture.TouchDelta, 0, len(s.active))
		for _, d := range s.active {
			d.Kind = gesture.TouchEnd
			deltas = append(deltas, d)
		}
		_ = b.eng.Push(gesture.InputFrame{Device: s.device, Time: b.cfg.Clock(), Touches: deltas})
	}
	_ = b.eng.RemoveDevice(s.device)
	b.log.Info("websocket device disconnected", "device", s.device)
}

// Broadcast sends a gesture event to the client whose device produced it.
// Other events are ignored. It is meant to be called from an engine event
// callback.
func (b *Bridge) Broadcast(ev *gesture.Event) {
	msg, dev, ok := Encode(ev)
	if !ok {
		return
	}
	b.mu.Lock()
	var targets []*session
	for s := range b.sessions {
		if s.device == dev {
			targets = append(targets, s)
		}
	}
	b.mu.Unlock()
	for _, s := range targets {
		if err := s.writeJSON(msg); err != nil {
			b.log.Debug("event write failed", "device", s.device, "error", err)
		}
	}
}

// Encode converts a gesture event to its wire form. ok is false for events
// that carry no frame.
func Encode(ev *gesture.Event) (msg EventMessage, dev gesture.DeviceID, ok bool) {
	f := ev.Frame()
	if f == nil {
		return EventMessage{}, 0, false
	}
	msg = EventMessage{
		Type:     "event",
		Event:    ev.Type().String(),
		Group:    int(f.GroupID()),
		Gesture:  uint64(f.ID()),
		Finished: ev.ConstructionFinished(),
		Attrs:    make(map[string]float64),
	}
	for _, a := range f.Attrs() {
		switch a.Type() {
		case gesture.AttrFloat:
			msg.Attrs[a.Name()] = a.Float()
		case gesture.AttrInteger:
			msg.Attrs[a.Name()] = float64(a.Int())
		case gesture.AttrString:
			if a.Name() == gesture.AttrGestureName {
				msg.Name = a.StringValue()
			}
		}
	}
	for _, id := range f.TouchIDs() {
		msg.Touches = append(msg.Touches, uint32(id))
	}
	dev = gesture.DeviceID(msg.Attrs[gesture.AttrDeviceID])
	msg.Device = int(dev)
	return msg, dev, true
}

// MarshalEvent is Encode followed by JSON encoding.
func MarshalEvent(ev *gesture.Event) ([]byte, bool) {
	msg, _, ok := Encode(ev)
	if !ok {
		return nil, false
	}
	data, err := json.Marshal(msg)
	return data, err == nil
}
