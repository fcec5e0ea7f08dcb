package gesture

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultMemoSize bounds the filter match memo.
const defaultMemoSize = 1024

// EventCallback receives events synchronously inside DispatchEvents.
type EventCallback func(ev *Event)

type options struct {
	logger       *slog.Logger
	metrics      *Metrics
	settings     *Settings
	trackDevices bool
	trackClasses bool
	syncStart    bool
	backend      string
	atomic       *bool
	tentative    *bool
	synchronous  *bool
	maxEvents    int
	memoSize     int
	classes      []ClassDef
	noBuiltins   bool
}

// Option configures New.
type Option func(*options)

// WithLogger sets the engine logger. The default logs warnings to stderr.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithMetrics records engine activity in m.
func WithMetrics(m *Metrics) Option { return func(o *options) { o.metrics = m } }

// WithSettings applies file settings. Explicit options take precedence.
func WithSettings(s Settings) Option { return func(o *options) { o.settings = &s } }

// WithTrackDevices enables device available/unavailable events.
func WithTrackDevices(on bool) Option { return func(o *options) { o.trackDevices = on } }

// WithTrackClasses enables class available/changed/unavailable events.
func WithTrackClasses(on bool) Option { return func(o *options) { o.trackClasses = on } }

// WithSynchronousStart makes New queue the startup events itself instead of
// leaving them to the first DispatchEvents.
func WithSynchronousStart(on bool) Option { return func(o *options) { o.syncStart = on } }

// WithBackend records the name of the input backend feeding the engine.
func WithBackend(name string) Option { return func(o *options) { o.backend = name } }

// WithAtomicGestures enables mutually exclusive groups: a wider group
// supersedes narrower ones and accepting a gesture prunes overlapping groups.
func WithAtomicGestures(on bool) Option { return func(o *options) { o.atomic = &on } }

// WithTentativeEvents enables tentative begin/update/end delivery.
func WithTentativeEvents(on bool) Option { return func(o *options) { o.tentative = &on } }

// WithSynchronousEvents delivers an update on every evaluation, even when
// nothing moved.
func WithSynchronousEvents(on bool) Option { return func(o *options) { o.synchronous = &on } }

// WithMaxEvents bounds the input records processed per DispatchEvents call.
func WithMaxEvents(n int) Option { return func(o *options) { o.maxEvents = n } }

// WithMatchMemo sets the size of the filter match memo; 0 disables it.
func WithMatchMemo(size int) Option { return func(o *options) { o.memoSize = size } }

// WithClasses registers extra gesture classes at startup.
func WithClasses(defs ...ClassDef) Option {
	return func(o *options) { o.classes = append(o.classes, defs...) }
}

// WithoutBuiltinClasses starts the engine with no classes but those given
// by WithClasses.
func WithoutBuiltinClasses() Option { return func(o *options) { o.noBuiltins = true } }

type inputKind uint8

const (
	inputAddDevice inputKind = iota
	inputRemoveDevice
	inputFrame
	inputTick
)

type inputRecord struct {
	kind   inputKind
	device DeviceInfo
	frame  InputFrame
}

// objects holds the arenas of every reference-counted type.
type objects struct {
	devices *arena[Device]
	classes *arena[GestureClass]
	groups  *arena[Group]
	frames  *arena[Frame]
	touches *arena[Touch]
	filters *arena[Filter]
	events  *arena[Event]
}

// Engine recognizes gestures in touch input and dispatches gesture events.
//
// Input methods (AddDevice, RemoveDevice, Push, Tick) may be called from any
// goroutine. Every other method must be called from one goroutine at a
// time, usually the host's event loop; all recognition work happens inside
// DispatchEvents.
type Engine struct {
	mu     sync.Mutex
	inbox  []inputRecord
	ready  *readiness
	closed bool

	log     *slog.Logger
	metrics *Metrics
	diag    Diagnostics
	debug   bool
	memo    *lru.Cache[memoKey, memoResult]

	objs     objects
	devices  map[DeviceID]*deviceState
	classes  classTable
	regions  regionTree
	subs     []*Subscription
	groups   []*group
	queue    eventQueue
	pending  []transition
	callback EventCallback
	devCB    EventCallback
	classCB  EventCallback
	sink     EventSink

	maxEvents    int
	atomic       bool
	tentative    bool
	synchronous  bool
	trackDevices bool
	trackClasses bool
	syncStart    bool
	composition  time.Duration
	backend      string
	started      bool

	now        time.Duration
	nextGroup  GroupID
	nextGID    GestureID
	nextFilter uint64
	nextSub    int
}

// New creates an engine with the built-in gesture classes.
func New(opts ...Option) (*Engine, error) {
	o := options{memoSize: defaultMemoSize}
	for _, fn := range opts {
		fn(&o)
	}

	e := &Engine{
		log:         o.logger,
		metrics:     o.metrics,
		devices:     make(map[DeviceID]*deviceState),
		maxEvents:   DefaultMaxEvents,
		composition: DefaultComposition,
	}
	if e.log == nil {
		e.log = NewLogger(LogConfig{})
	}
	e.objs = objects{
		devices: newArena[Device]("device", &e.diag, &e.debug),
		classes: newArena[GestureClass]("gesture class", &e.diag, &e.debug),
		groups:  newArena[Group]("group", &e.diag, &e.debug),
		frames:  newArena[Frame]("frame", &e.diag, &e.debug),
		touches: newArena[Touch]("touch", &e.diag, &e.debug),
		filters: newArena[Filter]("filter", &e.diag, &e.debug),
		events:  newArena[Event]("event", &e.diag, &e.debug),
	}
	e.objs.events.onRelease = releaseEvent
	e.objs.groups.onRelease = releaseGroup
	e.objs.frames.onRelease = releaseFrame

	if o.memoSize > 0 {
		memo, err := lru.New[memoKey, memoResult](o.memoSize)
		if err != nil {
			return nil, fmt.Errorf("match memo: %w", err)
		}
		e.memo = memo
	}

	ready, err := newReadiness()
	if err != nil {
		return nil, err
	}
	e.ready = ready

	var defs []ClassDef
	if !o.noBuiltins {
		defs = BuiltinClasses()
	}
	for _, def := range append(defs, o.classes...) {
		if _, err := e.RegisterClass(def); err != nil {
			_ = e.ready.close()
			return nil, err
		}
	}

	if o.settings != nil {
		if err := o.settings.apply(e); err != nil {
			_ = e.ready.close()
			return nil, err
		}
	}
	e.trackDevices = e.trackDevices || o.trackDevices
	e.trackClasses = e.trackClasses || o.trackClasses
	e.syncStart = e.syncStart || o.syncStart
	if o.backend != "" {
		e.backend = o.backend
	}
	if o.atomic != nil {
		e.atomic = *o.atomic
	}
	if o.tentative != nil {
		e.tentative = *o.tentative
	}
	if o.synchronous != nil {
		e.synchronous = *o.synchronous
	}
	if o.maxEvents > 0 {
		e.maxEvents = o.maxEvents
	}

	if e.syncStart {
		e.start()
	}
	e.log.Debug("engine created", "backend", e.backend, "classes", len(e.classes.entries), "sync_start", e.syncStart)
	return e, nil
}

// start queues the startup events: class availability when tracking and
// init-complete.
func (e *Engine) start() {
	if e.started {
		return
	}
	e.started = true
	if e.trackClasses {
		for _, ce := range e.classes.entries {
			e.emitGlobal(EventClassAvailable, nil, ce, nil)
		}
	}
	e.emitGlobal(EventInitComplete, nil, nil, nil)
}

// Close releases the readiness descriptor and the engine's references to
// queued events, devices and classes. Input calls fail afterwards.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.closed = true
	e.inbox = nil
	e.mu.Unlock()

	for ev := e.queue.get(); ev != nil; ev = e.queue.get() {
		_ = ev.Release()
	}
	for _, g := range e.groups {
		e.metrics.groupClosed()
		g.closed = true
	}
	e.groups = nil
	for _, ds := range e.devices {
		_ = ds.obj.Unref()
	}
	e.devices = nil
	for _, ce := range e.classes.entries {
		_ = ce.obj.Unref()
	}
	e.classes.entries = nil
	return e.ready.close()
}

// Backend returns the backend name set by WithBackend or settings.
func (e *Engine) Backend() string { return e.backend }

// Diagnostics returns the engine's bounded error history.
func (e *Engine) Diagnostics() *Diagnostics { return &e.diag }

// ErrorCount returns the number of retained diagnostics.
func (e *Engine) ErrorCount() int { return e.diag.Count() }

// ErrorAt returns the i'th retained diagnostic, oldest first.
func (e *Engine) ErrorAt(i int) (Diagnostic, bool) { return e.diag.At(i) }

// ResetErrors clears the diagnostic history.
func (e *Engine) ResetErrors() { e.diag.Reset() }

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger { return e.log }

// Now returns the timestamp of the latest input processed.
func (e *Engine) Now() time.Duration { return e.now }

// Device returns the connected device with the given id, or nil.
func (e *Engine) Device(id DeviceID) *Device {
	if ds, ok := e.devices[id]; ok && !ds.removed {
		return ds.obj
	}
	return nil
}

// Subscriptions returns the subscriptions in creation order.
func (e *Engine) Subscriptions() []*Subscription { return e.subs }

func (e *Engine) post(rec inputRecord) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	e.inbox = append(e.inbox, rec)
	e.ready.signal()
	return nil
}

// AddDevice announces a device. Frames for the device may follow
// immediately; they are processed in order.
func (e *Engine) AddDevice(info DeviceInfo) error {
	if info.ID == AllDevices {
		return fmt.Errorf("add device %q: id 0 is reserved: %w", info.Name, ErrBadArgument)
	}
	return e.post(inputRecord{kind: inputAddDevice, device: info})
}

// RemoveDevice announces that a device went away. Its gestures end.
func (e *Engine) RemoveDevice(id DeviceID) error {
	return e.post(inputRecord{kind: inputRemoveDevice, device: DeviceInfo{ID: id}})
}

// Push queues one input frame.
func (e *Engine) Push(f InputFrame) error {
	f.Touches = append([]TouchDelta(nil), f.Touches...)
	return e.post(inputRecord{kind: inputFrame, frame: f})
}

// Tick advances engine time without input, so timeouts and construction
// completion progress while contacts rest.
func (e *Engine) Tick(t time.Duration) error {
	return e.post(inputRecord{kind: inputTick, frame: InputFrame{Time: t}})
}

// Pending reports whether input is waiting for DispatchEvents.
func (e *Engine) Pending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.inbox) > 0
}

// takeInput removes up to n records from the inbox.
func (e *Engine) takeInput(n int) (recs []inputRecord, more bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if n > len(e.inbox) {
		n = len(e.inbox)
	}
	recs = append(recs, e.inbox[:n]...)
	e.inbox = append(e.inbox[:0], e.inbox[n:]...)
	more = len(e.inbox) > 0
	if !more {
		e.ready.clear()
	}
	return recs, more
}

// RegisterEventCallback switches to callback delivery: events are handed to
// fn inside DispatchEvents. A nil fn restores queue delivery.
func (e *Engine) RegisterEventCallback(fn EventCallback) {
	e.callback = fn
}

// RegisterDeviceCallback routes device events to fn instead of the event
// stream. A nil fn restores the default.
func (e *Engine) RegisterDeviceCallback(fn EventCallback) {
	e.devCB = fn
}

// RegisterClassCallback routes class events to fn instead of the event
// stream. A nil fn restores the default.
func (e *Engine) RegisterClassCallback(fn EventCallback) {
	e.classCB = fn
}

// discard is a logger that drops everything, used by tests and quiet hosts.
func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
