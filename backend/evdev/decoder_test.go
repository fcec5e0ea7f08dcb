//go:build linux

package evdev

import (
	"syscall"
	"testing"
	"time"

	evdev "github.com/gvalkov/golang-evdev"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phanxgames/gesture"
)

type ev struct {
	typ, code uint16
	value     int32
}

func feedAll(t *testing.T, d *Decoder, evs []ev) [][]gesture.TouchDelta {
	t.Helper()
	var frames [][]gesture.TouchDelta
	for _, e := range evs {
		if deltas, ok := d.Feed(evdev.InputEvent{Type: e.typ, Code: e.code, Value: e.value}); ok {
			frames = append(frames, append([]gesture.TouchDelta(nil), deltas...))
		}
	}
	return frames
}

func TestDecoderTwoFingerLifecycle(t *testing.T) {
	d := NewDecoder()
	frames := feedAll(t, d, []ev{
		{evAbs, absMtSlot, 0},
		{evAbs, absMtTrackingID, 100},
		{evAbs, absMtPositionX, 10},
		{evAbs, absMtPositionY, 20},
		{evAbs, absMtSlot, 1},
		{evAbs, absMtTrackingID, 101},
		{evAbs, absMtPositionX, 30},
		{evAbs, absMtPositionY, 40},
		{evSyn, synReport, 0},

		{evAbs, absMtSlot, 0},
		{evAbs, absMtPositionX, 12},
		{evSyn, synReport, 0},

		{evAbs, absMtTrackingID, -1},
		{evAbs, absMtSlot, 1},
		{evAbs, absMtTrackingID, -1},
		{evSyn, synReport, 0},
	})
	require.Len(t, frames, 3)

	require.Len(t, frames[0], 2)
	assert.Equal(t, gesture.TouchBegin, frames[0][0].Kind)
	assert.Equal(t, gesture.TouchID(1), frames[0][0].ID)
	assert.Equal(t, 10.0, frames[0][0].X)
	assert.Equal(t, gesture.TouchID(2), frames[0][1].ID)
	assert.Equal(t, 40.0, frames[0][1].Y)

	require.Len(t, frames[1], 1)
	assert.Equal(t, gesture.TouchUpdate, frames[1][0].Kind)
	assert.Equal(t, 12.0, frames[1][0].X)
	assert.Equal(t, 20.0, frames[1][0].Y)

	require.Len(t, frames[2], 2)
	for _, dl := range frames[2] {
		assert.Equal(t, gesture.TouchEnd, dl.Kind)
	}
}

func TestDecoderSlotReuseGetsNewID(t *testing.T) {
	d := NewDecoder()
	frames := feedAll(t, d, []ev{
		{evAbs, absMtTrackingID, 5},
		{evSyn, synReport, 0},
		{evAbs, absMtTrackingID, -1},
		{evSyn, synReport, 0},
		{evAbs, absMtTrackingID, 6},
		{evSyn, synReport, 0},
	})
	require.Len(t, frames, 3)
	assert.Equal(t, gesture.TouchID(1), frames[0][0].ID)
	assert.Equal(t, gesture.TouchID(2), frames[2][0].ID)
	assert.Equal(t, gesture.TouchBegin, frames[2][0].Kind)
}

func TestDecoderDropsDesyncedReport(t *testing.T) {
	d := NewDecoder()
	frames := feedAll(t, d, []ev{
		{evAbs, absMtTrackingID, 5},
		{evSyn, synDropped, 0},
		{evSyn, synReport, 0},
		{evAbs, absMtPositionX, 3},
		{evSyn, synReport, 0},
	})
	require.Len(t, frames, 1)
	require.Len(t, frames[0], 1)
	assert.Equal(t, gesture.TouchBegin, frames[0][0].Kind)
}

func TestDecoderRelease(t *testing.T) {
	d := NewDecoder()
	feedAll(t, d, []ev{{evAbs, absMtTrackingID, 5}, {evSyn, synReport, 0}})
	out := d.Release()
	require.Len(t, out, 1)
	assert.Equal(t, gesture.TouchEnd, out[0].Kind)
	assert.Empty(t, d.Release())
}

func TestEventTime(t *testing.T) {
	ev := evdev.InputEvent{Time: syscall.NsecToTimeval(int64(2*time.Second + 500*time.Microsecond))}
	assert.Equal(t, 2*time.Second+500*time.Microsecond, eventTime(ev))
}

func TestDirectTouch(t *testing.T) {
	tests := []struct {
		name  string
		props []byte
		want  bool
	}{
		{"touchscreen", []byte{0x02, 0, 0, 0}, true},
		{"touchpad", []byte{0x05, 0, 0, 0}, false},
		{"no properties", []byte{0, 0, 0, 0}, false},
		{"empty mask", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, directTouch(tt.props))
		})
	}
}

func TestDeviceInfo(t *testing.T) {
	x := absInfo{Min: 0, Max: 4095, Resolution: 40}
	y := absInfo{Min: 0, Max: 2047, Resolution: 20}

	info := deviceInfo(gesture.AllDevices, "pad", x, y, 500, false)
	assert.Equal(t, gesture.DeviceID(1), info.ID)
	assert.Equal(t, MaxSlots, info.Touches)
	assert.False(t, info.DirectTouch)
	assert.True(t, info.IndependentTouch)
	assert.Equal(t, 4095.0, info.MaxX)
	assert.Equal(t, 40000.0, info.ResX)
	assert.Equal(t, 20000.0, info.ResY)

	info = deviceInfo(7, "screen", x, y, 10, true)
	assert.Equal(t, gesture.DeviceID(7), info.ID)
	assert.Equal(t, 10, info.Touches)
	assert.True(t, info.DirectTouch)
}
