package gesture

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig_Defaults(t *testing.T) {
	e := newTestEngine(t)
	tests := []struct {
		key  string
		want any
	}{
		{ConfigMaxEvents, DefaultMaxEvents},
		{ConfigAtomic, false},
		{ConfigTentative, false},
		{ConfigSynchronous, false},
		{ConfigDragThreshold, 0.005},
		{ConfigDragTimeout, 300},
		{ConfigPinchThreshold, 0.005},
		{ConfigRotateThreshold, 0.1},
		{ConfigTapThreshold, 0.003},
		{ConfigTapTimeout, 300},
	}
	for _, tt := range tests {
		got, err := e.Config(tt.key)
		if err != nil {
			t.Errorf("%s: %v", tt.key, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.key, tt.want, got)
		}
	}
	if _, err := e.Config("com.example.nothing"); !errors.Is(err, ErrNotSupported) {
		t.Errorf("expected ErrNotSupported, got %v", err)
	}
}

func TestConfig_Set(t *testing.T) {
	e := newTestEngine(t, WithTrackClasses(true))
	collectTypes(e)

	must(t, e.SetConfig(ConfigDragThreshold, 0.02))
	must(t, e.SetConfig(ConfigTapTimeout, 150))
	must(t, e.SetConfig(ConfigMaxEvents, 8))
	must(t, e.SetConfig(ConfigAtomic, true))

	if v, _ := e.Config(ConfigDragThreshold); v != 0.02 {
		t.Errorf("expected drag threshold 0.02, got %v", v)
	}
	if v, _ := e.Config(ConfigTapTimeout); v != 150 {
		t.Errorf("expected tap timeout 150, got %v", v)
	}
	if e.maxEvents != 8 || !e.atomic {
		t.Error("max events or atomic not applied")
	}
	if got := collectTypes(e); !sameTypes(got, []EventType{EventClassChanged, EventClassChanged}) {
		t.Errorf("expected two class-changed events, got %v", got)
	}

	tests := []struct {
		key   string
		value any
		want  error
	}{
		{ConfigFD, 3, ErrNotSupported},
		{ConfigDragThreshold, "far", ErrTypeMismatch},
		{ConfigTapTimeout, 1.5, ErrTypeMismatch},
		{ConfigTentative, 1, ErrTypeMismatch},
		{ConfigMaxEvents, 0, ErrBadArgument},
		{ConfigPinchThreshold, -1.0, ErrBadArgument},
		{"com.example.nothing", 1, ErrNotSupported},
	}
	for _, tt := range tests {
		if err := e.SetConfig(tt.key, tt.value); !errors.Is(err, tt.want) {
			t.Errorf("SetConfig(%s, %v): expected %v, got %v", tt.key, tt.value, tt.want, err)
		}
	}
}

func TestConfig_ThresholdChangesRecognition(t *testing.T) {
	e := newTestEngine(t)
	must(t, e.SetConfig(ConfigDragThreshold, 0.02))
	activeSub(t, e, "drag", SubscriptionNone, classFilter(t, e, GestureDrag))
	in := addTestDevice(t, e, 1)
	in.Press(1, 0, 0)
	must(t, in.Sync())
	in.Move(1, 10, 0)
	must(t, in.Sync())
	if evs := collect(e); len(evs) != 0 {
		t.Fatalf("10mm is below a 20mm threshold, got %v", typesOf(evs))
	}
	in.Move(1, 25, 0)
	must(t, in.Sync())
	if evs := collect(e); len(evs) != 1 {
		t.Errorf("expected drag begin past 20mm, got %v", typesOf(evs))
	}
}

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSettings(t *testing.T) {
	yamlPath := writeFile(t, "engine.yaml", `
max_events: 16
tentative_events: true
backend: evdev
composition_ms: 80
classes:
  Drag:
    threshold: 0.01
  Tap:
    timeout_ms: 200
log:
  level: debug
`)
	tomlPath := writeFile(t, "engine.toml", `
max_events = 16
tentative_events = true
backend = "evdev"
composition_ms = 80

[classes.Drag]
threshold = 0.01

[classes.Tap]
timeout_ms = 200

[log]
level = "debug"
`)
	for _, path := range []string{yamlPath, tomlPath} {
		t.Run(filepath.Ext(path), func(t *testing.T) {
			s, err := LoadSettings(path)
			must(t, err)
			if s.Log.Level != "debug" {
				t.Errorf("expected debug log level, got %q", s.Log.Level)
			}
			e := newTestEngine(t, WithSettings(s))
			if e.maxEvents != 16 || !e.tentative || e.Backend() != "evdev" || e.composition != 80*time.Millisecond {
				t.Errorf("settings not applied: max=%d tentative=%v backend=%q composition=%v",
					e.maxEvents, e.tentative, e.Backend(), e.composition)
			}
			if v, _ := e.Config(ConfigDragThreshold); v != 0.01 {
				t.Errorf("expected drag threshold 0.01, got %v", v)
			}
			if v, _ := e.Config(ConfigTapTimeout); v != 200 {
				t.Errorf("expected tap timeout 200, got %v", v)
			}
		})
	}
}

func TestLoadSettings_Errors(t *testing.T) {
	if _, err := LoadSettings(writeFile(t, "engine.ini", "x=1")); !errors.Is(err, ErrNotSupported) {
		t.Errorf("expected ErrNotSupported for .ini, got %v", err)
	}
	if _, err := LoadSettings(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	s, err := LoadSettings(writeFile(t, "engine.yaml", "classes:\n  Wave:\n    threshold: 1\n"))
	must(t, err)
	if _, err := New(WithLogger(discard()), WithSettings(s)); !errors.Is(err, ErrNotSupported) {
		t.Errorf("expected ErrNotSupported for unknown class, got %v", err)
	}
}

func TestSettings_ExplicitOptionsWin(t *testing.T) {
	e := newTestEngine(t, WithSettings(Settings{Tentative: true, Backend: "file"}), WithTentativeEvents(false), WithBackend("cli"))
	if e.tentative || e.Backend() != "cli" {
		t.Errorf("explicit options must override settings: tentative=%v backend=%q", e.tentative, e.Backend())
	}
}

func TestNewFromArgs(t *testing.T) {
	e, err := NewFromArgs([]InitArg{
		{Key: InitTrackDevices},
		{Key: InitSynchronousStart},
		{Key: InitTentativeEvents},
		{Key: InitServer, Value: "127.0.0.1:9000"},
	}, WithLogger(discard()))
	must(t, err)
	defer e.Close()
	if !e.trackDevices || !e.tentative || e.Backend() != "server:127.0.0.1:9000" {
		t.Errorf("init args not applied: track=%v tentative=%v backend=%q", e.trackDevices, e.tentative, e.Backend())
	}
	if e.QueuedEvents() != 1 {
		t.Errorf("synchronous start must queue init-complete, got %d events", e.QueuedEvents())
	}

	tests := []struct {
		name string
		args []InitArg
		want error
	}{
		{"unknown key", []InitArg{{Key: "org.example.nothing"}}, ErrNotSupported},
		{"server without address", []InitArg{{Key: InitServer, Value: 9000}}, ErrTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewFromArgs(tt.args, WithLogger(discard())); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestNewFromArgs_NoAtomic(t *testing.T) {
	e, err := NewFromArgs([]InitArg{{Key: InitNoAtomicGestures}}, WithLogger(discard()), WithAtomicGestures(true))
	must(t, err)
	defer e.Close()
	if e.atomic {
		t.Error("no-atomic init arg must win over earlier options")
	}
}
