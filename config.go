package gesture

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Configuration keys.
const (
	ConfigFD          = "org.libgeis.configuration.fd"
	ConfigMaxEvents   = "com.canonical.oif.max_events"
	ConfigAtomic      = "com.canonical.use.atomic.gestures"
	ConfigTentative   = "com.canonical.oif.events.tentative"
	ConfigSynchronous = "com.canonical.oif.events.synchronous"

	ConfigDragThreshold   = "com.canonical.oif.drag.threshold"
	ConfigDragTimeout     = "com.canonical.oif.drag.timeout"
	ConfigPinchThreshold  = "com.canonical.oif.pinch.threshold"
	ConfigPinchTimeout    = "com.canonical.oif.pinch.timeout"
	ConfigRotateThreshold = "com.canonical.oif.rotate.threshold"
	ConfigRotateTimeout   = "com.canonical.oif.rotate.timeout"
	ConfigTapThreshold    = "com.canonical.oif.tap.threshold"
	ConfigTapTimeout      = "com.canonical.oif.tap.timeout"
)

// DefaultMaxEvents is the default number of input records one
// DispatchEvents call processes.
const DefaultMaxEvents = 64

// classKeys maps per-class configuration keys to class names.
var classKeys = map[string]struct {
	class   string
	timeout bool
}{
	ConfigDragThreshold:   {GestureDrag, false},
	ConfigDragTimeout:     {GestureDrag, true},
	ConfigPinchThreshold:  {GesturePinch, false},
	ConfigPinchTimeout:    {GesturePinch, true},
	ConfigRotateThreshold: {GestureRotate, false},
	ConfigRotateTimeout:   {GestureRotate, true},
	ConfigTapThreshold:    {GestureTap, false},
	ConfigTapTimeout:      {GestureTap, true},
}

// ConfigSupported reports whether key names a configuration item of this
// engine. The descriptor key is only supported where a descriptor exists.
func (e *Engine) ConfigSupported(key string) bool {
	switch key {
	case ConfigFD:
		return e.ready.fd() >= 0
	case ConfigMaxEvents, ConfigAtomic, ConfigTentative, ConfigSynchronous:
		return true
	}
	ck, ok := classKeys[key]
	return ok && e.classes.byName(ck.class) != nil
}

// Config returns the value of a configuration item: an int for the
// descriptor, max events and timeouts (milliseconds), a bool for the mode
// toggles and a float64 for thresholds.
func (e *Engine) Config(key string) (any, error) {
	switch key {
	case ConfigFD:
		if fd := e.ready.fd(); fd >= 0 {
			return fd, nil
		}
		return nil, fmt.Errorf("config %q: %w", key, ErrNotSupported)
	case ConfigMaxEvents:
		return e.maxEvents, nil
	case ConfigAtomic:
		return e.atomic, nil
	case ConfigTentative:
		return e.tentative, nil
	case ConfigSynchronous:
		return e.synchronous, nil
	}
	ck, ok := classKeys[key]
	if !ok {
		return nil, fmt.Errorf("config %q: %w", key, ErrNotSupported)
	}
	ce := e.classes.byName(ck.class)
	if ce == nil {
		return nil, fmt.Errorf("config %q: class %s not registered: %w", key, ck.class, ErrNotSupported)
	}
	if ck.timeout {
		return int(millis(ce.def.Policy.Timeout)), nil
	}
	return ce.def.Policy.Threshold, nil
}

// SetConfig changes a configuration item. The descriptor is read-only.
// Values of the wrong type fail with ErrTypeMismatch.
func (e *Engine) SetConfig(key string, value any) error {
	switch key {
	case ConfigFD:
		return fmt.Errorf("config %q is read-only: %w", key, ErrNotSupported)
	case ConfigMaxEvents:
		n, ok := intValue(value)
		if !ok {
			return typeErr(key, value)
		}
		if n < 1 {
			return fmt.Errorf("config %q: %d: %w", key, n, ErrBadArgument)
		}
		e.maxEvents = n
		return nil
	case ConfigAtomic, ConfigTentative, ConfigSynchronous:
		b, ok := value.(bool)
		if !ok {
			return typeErr(key, value)
		}
		switch key {
		case ConfigAtomic:
			e.atomic = b
		case ConfigTentative:
			e.tentative = b
		default:
			e.synchronous = b
		}
		return nil
	}
	ck, ok := classKeys[key]
	if !ok {
		return fmt.Errorf("config %q: %w", key, ErrNotSupported)
	}
	if ck.timeout {
		ms, ok := intValue(value)
		if !ok {
			return typeErr(key, value)
		}
		if ms < 0 {
			return fmt.Errorf("config %q: %d: %w", key, ms, ErrBadArgument)
		}
		return e.setPolicy(ck.class, func(p *Policy) { p.Timeout = time.Duration(ms) * time.Millisecond })
	}
	th, ok := floatValue(value)
	if !ok {
		return typeErr(key, value)
	}
	if th < 0 {
		return fmt.Errorf("config %q: %g: %w", key, th, ErrBadArgument)
	}
	return e.setPolicy(ck.class, func(p *Policy) { p.Threshold = th })
}

func typeErr(key string, v any) error {
	return fmt.Errorf("config %q: value of type %T: %w", key, v, ErrTypeMismatch)
}

func intValue(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int32:
		return int(x), true
	case int64:
		return int(x), true
	}
	return 0, false
}

func floatValue(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	}
	return 0, false
}

// ClassSettings overrides a class policy. Nil fields keep the default.
type ClassSettings struct {
	Threshold *float64 `yaml:"threshold" toml:"threshold"`
	TimeoutMS *int     `yaml:"timeout_ms" toml:"timeout_ms"`
}

// Settings is the file form of an engine configuration.
type Settings struct {
	MaxEvents        int                      `yaml:"max_events" toml:"max_events"`
	AtomicGestures   bool                     `yaml:"atomic_gestures" toml:"atomic_gestures"`
	Tentative        bool                     `yaml:"tentative_events" toml:"tentative_events"`
	Synchronous      bool                     `yaml:"synchronous_events" toml:"synchronous_events"`
	TrackDevices     bool                     `yaml:"track_devices" toml:"track_devices"`
	TrackClasses     bool                     `yaml:"track_gesture_classes" toml:"track_gesture_classes"`
	SynchronousStart bool                     `yaml:"synchronous_start" toml:"synchronous_start"`
	Backend          string                   `yaml:"backend" toml:"backend"`
	CompositionMS    int                      `yaml:"composition_ms" toml:"composition_ms"`
	Classes          map[string]ClassSettings `yaml:"classes" toml:"classes"`
	Log              LogConfig                `yaml:"log" toml:"log"`
}

// LoadSettings reads settings from a YAML (.yaml, .yml) or TOML (.toml)
// file.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	var s Settings
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &s)
	case ".toml":
		err = toml.Unmarshal(data, &s)
	default:
		return Settings{}, fmt.Errorf("load settings %s: unknown format: %w", path, ErrNotSupported)
	}
	if err != nil {
		return Settings{}, fmt.Errorf("parse settings %s: %w", path, err)
	}
	return s, nil
}

// apply installs s on a freshly built engine, before built-in classes are
// announced.
func (s Settings) apply(e *Engine) error {
	if s.MaxEvents > 0 {
		e.maxEvents = s.MaxEvents
	}
	e.atomic = s.AtomicGestures
	e.tentative = s.Tentative
	e.synchronous = s.Synchronous
	e.trackDevices = e.trackDevices || s.TrackDevices
	e.trackClasses = e.trackClasses || s.TrackClasses
	e.syncStart = e.syncStart || s.SynchronousStart
	if s.Backend != "" {
		e.backend = s.Backend
	}
	if s.CompositionMS > 0 {
		e.composition = time.Duration(s.CompositionMS) * time.Millisecond
	}
	for name, cs := range s.Classes {
		ce := e.classes.byName(name)
		if ce == nil {
			return fmt.Errorf("settings: class %q: %w", name, ErrNotSupported)
		}
		if cs.Threshold != nil {
			ce.def.Policy.Threshold = *cs.Threshold
		}
		if cs.TimeoutMS != nil {
			ce.def.Policy.Timeout = time.Duration(*cs.TimeoutMS) * time.Millisecond
		}
	}
	return nil
}

// Initialization argument keys.
const (
	InitTrackDevices        = "org.libgeis.init.track-devices"
	InitTrackGestureClasses = "org.libgeis.init.track-gesture-classes"
	InitSynchronousStart    = "org.libgeis.init.synchronous-start"
	InitServer              = "org.libgeis.init.server"
	InitBackendDBus         = "com.canonical.oif.backend.dbus"
	InitBackendGrail        = "com.canonical.oif.backend.grail"
	InitBackendXCB          = "com.canonical.oif.backend.xcb"
	InitNoAtomicGestures    = "com.canonical.oif.no-atomic.gestures"
	InitTentativeEvents     = "com.canonical.oif.events.tentative"
	InitSynchronousEvents   = "com.canonical.oif.events.synchronous"
)

// InitArg is one initialization argument. Value is unused by the flag keys
// and carries the server address for InitServer.
type InitArg struct {
	Key   string
	Value any
}

// NewFromArgs builds an engine from initialization arguments, applied after
// opts. Unknown keys fail with ErrNotSupported.
func NewFromArgs(args []InitArg, opts ...Option) (*Engine, error) {
	for _, a := range args {
		a := a
		switch a.Key {
		case InitTrackDevices:
			opts = append(opts, WithTrackDevices(true))
		case InitTrackGestureClasses:
			opts = append(opts, WithTrackClasses(true))
		case InitSynchronousStart:
			opts = append(opts, WithSynchronousStart(true))
		case InitBackendDBus:
			opts = append(opts, WithBackend("dbus"))
		case InitBackendGrail:
			opts = append(opts, WithBackend("grail"))
		case InitBackendXCB:
			opts = append(opts, WithBackend("xcb"))
		case InitServer:
			addr, ok := a.Value.(string)
			if !ok {
				return nil, fmt.Errorf("init %q: value of type %T: %w", a.Key, a.Value, ErrTypeMismatch)
			}
			opts = append(opts, WithBackend("server:"+addr))
		case InitNoAtomicGestures:
			opts = append(opts, func(o *options) { o.atomic = new(bool) })
		case InitTentativeEvents:
			opts = append(opts, func(o *options) { t := true; o.tentative = &t })
		case InitSynchronousEvents:
			opts = append(opts, func(o *options) { t := true; o.synchronous = &t })
		default:
			return nil, fmt.Errorf("init %q: %w", a.Key, ErrNotSupported)
		}
	}
	return New(opts...)
}
