package gesture

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// ScriptDevice is the device a script plays on. Resolutions are in units
// per metre; zero means one unit per millimetre.
type ScriptDevice struct {
	ID          int     `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Touches     int     `json:"touches" yaml:"touches"`
	DirectTouch bool    `json:"direct" yaml:"direct"`
	ResX        float64 `json:"resX,omitempty" yaml:"resX,omitempty"`
	ResY        float64 `json:"resY,omitempty" yaml:"resY,omitempty"`
	MaxX        float64 `json:"maxX,omitempty" yaml:"maxX,omitempty"`
	MaxY        float64 `json:"maxY,omitempty" yaml:"maxY,omitempty"`
}

func (d ScriptDevice) info() DeviceInfo {
	id := DeviceID(d.ID)
	if id == AllDevices {
		id = 1
	}
	name := d.Name
	if name == "" {
		name = "script"
	}
	return DeviceInfo{
		ID: id, Name: name, Touches: d.Touches, DirectTouch: d.DirectTouch,
		IndependentTouch: true, MaxX: d.MaxX, MaxY: d.MaxY, ResX: d.ResX, ResY: d.ResY,
	}
}

// ScriptStep is one action of a script.
type ScriptStep struct {
	Action  string  `json:"action" yaml:"action"`
	ID      TouchID `json:"id,omitempty" yaml:"id,omitempty"`
	X       float64 `json:"x,omitempty" yaml:"x,omitempty"`
	Y       float64 `json:"y,omitempty" yaml:"y,omitempty"`
	DX      float64 `json:"dx,omitempty" yaml:"dx,omitempty"`
	DY      float64 `json:"dy,omitempty" yaml:"dy,omitempty"`
	From    float64 `json:"from,omitempty" yaml:"from,omitempty"`
	To      float64 `json:"to,omitempty" yaml:"to,omitempty"`
	Radius  float64 `json:"radius,omitempty" yaml:"radius,omitempty"`
	Angle   float64 `json:"angle,omitempty" yaml:"angle,omitempty"`
	Fingers int     `json:"fingers,omitempty" yaml:"fingers,omitempty"`
	Frames  int     `json:"frames,omitempty" yaml:"frames,omitempty"`
	MS      int     `json:"ms,omitempty" yaml:"ms,omitempty"`
}

// Script is a replayable input trace.
type Script struct {
	Device ScriptDevice `json:"device" yaml:"device"`
	StepMS int          `json:"stepMs,omitempty" yaml:"stepMs,omitempty"`
	Steps  []ScriptStep `json:"steps" yaml:"steps"`
}

// LoadScript parses a script. Input starting with '{' is JSON, anything
// else YAML.
func LoadScript(data []byte) (*Script, error) {
	var s Script
	var err error
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		err = json.Unmarshal(trimmed, &s)
	} else {
		err = yaml.Unmarshal(data, &s)
	}
	if err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if len(s.Steps) == 0 {
		return nil, fmt.Errorf("parse script: no steps")
	}
	for i, st := range s.Steps {
		if !knownActions[st.Action] {
			return nil, fmt.Errorf("parse script: step %d: unknown action %q", i, st.Action)
		}
	}
	return &s, nil
}

var knownActions = map[string]bool{
	"press": true, "move": true, "release": true, "sync": true, "wait": true,
	"drag": true, "pinch": true, "rotate": true, "tap": true, "remove": true,
}

// Run announces the script's device to e and plays every step, dispatching
// after each one. Events go wherever e delivers them.
func (s *Script) Run(e *Engine) error {
	info := s.Device.info()
	if err := e.AddDevice(info); err != nil {
		return err
	}
	in := NewInjector(e, info.ID, e.Now())
	if s.StepMS > 0 {
		in.Step = time.Duration(s.StepMS) * time.Millisecond
	}
	for i, st := range s.Steps {
		if err := s.step(e, in, st); err != nil {
			return fmt.Errorf("script step %d (%s): %w", i, st.Action, err)
		}
		drain(e)
	}
	return nil
}

func (s *Script) step(e *Engine, in *Injector, st ScriptStep) error {
	frames := st.Frames
	if frames < 2 {
		frames = 2
	}
	switch st.Action {
	case "press":
		in.Press(st.ID, st.X, st.Y)
	case "move":
		in.Move(st.ID, st.X, st.Y)
	case "release":
		in.Release(st.ID)
	case "sync":
		return in.Sync()
	case "wait":
		return in.Wait(time.Duration(st.MS) * time.Millisecond)
	case "drag":
		return in.Drag(st.X, st.Y, st.DX, st.DY, st.Fingers, frames)
	case "pinch":
		return in.Pinch(st.X, st.Y, st.From, st.To, frames)
	case "rotate":
		return in.Rotate(st.X, st.Y, st.Radius, st.Angle, frames)
	case "tap":
		return in.Tap(st.X, st.Y, st.Fingers)
	case "remove":
		return e.RemoveDevice(in.device)
	}
	return nil
}

// drain dispatches until the inbox is empty.
func drain(e *Engine) {
	for e.DispatchEvents() == StatusContinue {
	}
}
