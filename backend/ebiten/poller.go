// Package ebiten feeds a gesture engine from Ebitengine's touch (and
// optionally mouse) input. Call Poller.Update once per game tick.
package ebiten

import (
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/phanxgames/gesture"
)

const (
	maxSlots = 10 // slot 0 = mouse, 1-9 = touch

	// DefaultDPI converts screen pixels to physical units when the display
	// density is unknown.
	DefaultDPI = 96.0
)

// Source is the input Ebitengine exposes; tests substitute their own.
type Source interface {
	AppendTouchIDs(ids []ebiten.TouchID) []ebiten.TouchID
	TouchPosition(id ebiten.TouchID) (x, y int)
	MousePressed() bool
	CursorPosition() (x, y int)
}

type ebitenSource struct{}

func (ebitenSource) AppendTouchIDs(ids []ebiten.TouchID) []ebiten.TouchID {
	return ebiten.AppendTouchIDs(ids)
}

func (ebitenSource) TouchPosition(id ebiten.TouchID) (int, int) { return ebiten.TouchPosition(id) }

func (ebitenSource) MousePressed() bool {
	return ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft)
}

func (ebitenSource) CursorPosition() (int, int) { return ebiten.CursorPosition() }

// Config configures a Poller.
type Config struct {
	// Device is the engine device id; defaults to 1.
	Device gesture.DeviceID
	// Name defaults to "ebiten".
	Name string
	// Width and Height are the screen bounds in pixels.
	Width, Height int
	// DPI converts pixels to physical units; defaults to DefaultDPI.
	DPI float64
	// MouseAsTouch reports the left mouse button as a single touch, so
	// gestures can be tried on a desktop.
	MouseAsTouch bool
	// Source overrides the Ebitengine input functions.
	Source Source
}

type slot struct {
	used bool
	tid  ebiten.TouchID
	id   gesture.TouchID
	x, y float64
}

// Poller turns per-tick touch state into input frames.
type Poller struct {
	eng    *gesture.Engine
	cfg    Config
	src    Source
	slots  [maxSlots]slot
	ids    []ebiten.TouchID
	nextID gesture.TouchID
	ticks  int64
}

// NewPoller announces a device for the screen to eng and returns its poller.
func NewPoller(eng *gesture.Engine, cfg Config) (*Poller, error) {
	if cfg.Device == gesture.AllDevices {
		cfg.Device = 1
	}
	if cfg.Name == "" {
		cfg.Name = "ebiten"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = DefaultDPI
	}
	p := &Poller{eng: eng, cfg: cfg, src: cfg.Source, nextID: 1}
	if p.src == nil {
		p.src = ebitenSource{}
	}
	pxPerMetre := cfg.DPI / 0.0254
	err := eng.AddDevice(gesture.DeviceInfo{
		ID:               cfg.Device,
		Name:             cfg.Name,
		Touches:          maxSlots - 1,
		DirectTouch:      true,
		IndependentTouch: true,
		MaxX:             float64(cfg.Width),
		MaxY:             float64(cfg.Height),
		ResX:             pxPerMetre,
		ResY:             pxPerMetre,
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Now returns the poller clock: ticks elapsed at the current TPS.
func (p *Poller) Now() time.Duration {
	return time.Duration(p.ticks) * time.Second / time.Duration(ebiten.TPS())
}

// Update samples input and pushes a frame when anything changed. Call it
// from the game's Update.
func (p *Poller) Update() error {
	p.ticks++
	var deltas []gesture.TouchDelta
	var active [maxSlots]bool

	p.ids = p.src.AppendTouchIDs(p.ids[:0])
	for _, tid := range p.ids {
		i := p.touchSlot(tid)
		if i < 0 {
			continue
		}
		active[i] = true
		x, y := p.src.TouchPosition(tid)
		deltas = p.track(deltas, i, float64(x), float64(y))
	}
	if p.cfg.MouseAsTouch && p.src.MousePressed() {
		active[0] = true
		x, y := p.src.CursorPosition()
		deltas = p.track(deltas, 0, float64(x), float64(y))
	}

	for i := range p.slots {
		s := &p.slots[i]
		if s.used && !active[i] {
			deltas = append(deltas, gesture.TouchDelta{ID: s.id, Kind: gesture.TouchEnd, X: s.x, Y: s.y})
			*s = slot{}
		}
	}
	if len(deltas) == 0 {
		return nil
	}
	return p.eng.Push(gesture.InputFrame{Device: p.cfg.Device, Time: p.Now(), Touches: deltas})
}

func (p *Poller) track(deltas []gesture.TouchDelta, i int, x, y float64) []gesture.TouchDelta {
	s := &p.slots[i]
	switch {
	case s.id == 0:
		s.used = true
		s.id = p.nextID
		p.nextID++
		s.x, s.y = x, y
		return append(deltas, gesture.TouchDelta{ID: s.id, Kind: gesture.TouchBegin, X: x, Y: y})
	case s.x != x || s.y != y:
		s.x, s.y = x, y
		return append(deltas, gesture.TouchDelta{ID: s.id, Kind: gesture.TouchUpdate, X: x, Y: y})
	}
	return deltas
}

// touchSlot maps an ebiten.TouchID to a slot (1-9). Returns the existing
// slot or allocates a new one. Returns -1 if full.
func (p *Poller) touchSlot(tid ebiten.TouchID) int {
	for i := 1; i < maxSlots; i++ {
		if p.slots[i].used && p.slots[i].tid == tid {
			return i
		}
	}
	for i := 1; i < maxSlots; i++ {
		if !p.slots[i].used {
			p.slots[i].used = true
			p.slots[i].tid = tid
			return i
		}
	}
	return -1
}

// Close removes the device from the engine.
func (p *Poller) Close() error {
	return p.eng.RemoveDevice(p.cfg.Device)
}
