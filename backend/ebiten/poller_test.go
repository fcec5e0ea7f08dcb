package ebiten

import (
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phanxgames/gesture"
)

type fakeSource struct {
	touches map[ebiten.TouchID][2]int
	mouse   bool
	mx, my  int
}

func (f *fakeSource) AppendTouchIDs(ids []ebiten.TouchID) []ebiten.TouchID {
	for id := range f.touches {
		ids = append(ids, id)
	}
	return ids
}

func (f *fakeSource) TouchPosition(id ebiten.TouchID) (int, int) {
	p := f.touches[id]
	return p[0], p[1]
}

func (f *fakeSource) MousePressed() bool          { return f.mouse }
func (f *fakeSource) CursorPosition() (int, int) { return f.mx, f.my }

func newTestEngine(t *testing.T) (*gesture.Engine, *[]gesture.EventType) {
	t.Helper()
	eng, err := gesture.New(gesture.WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	sub, err := eng.NewSubscription("all", gesture.SubscriptionNone)
	require.NoError(t, err)
	require.NoError(t, sub.Activate())

	var got []gesture.EventType
	eng.RegisterEventCallback(func(ev *gesture.Event) {
		if f := ev.Frame(); f != nil {
			name, _ := f.Attr(gesture.AttrGestureName)
			if name.StringValue() == gesture.GestureTap {
				got = append(got, ev.Type())
			}
		}
	})
	return eng, &got
}

func drain(eng *gesture.Engine) {
	for eng.DispatchEvents() == gesture.StatusContinue {
	}
}

func TestPollerTapProducesTapGesture(t *testing.T) {
	eng, got := newTestEngine(t)
	src := &fakeSource{touches: map[ebiten.TouchID][2]int{}}
	p, err := NewPoller(eng, Config{Width: 640, Height: 480, Source: src})
	require.NoError(t, err)

	src.touches[7] = [2]int{100, 100}
	require.NoError(t, p.Update())
	delete(src.touches, 7)
	require.NoError(t, p.Update())
	drain(eng)

	assert.Equal(t, []gesture.EventType{gesture.EventGestureBegin, gesture.EventGestureEnd}, *got)
}

func TestPollerSkipsIdleTicks(t *testing.T) {
	eng, _ := newTestEngine(t)
	src := &fakeSource{touches: map[ebiten.TouchID][2]int{}}
	p, err := NewPoller(eng, Config{Source: src})
	require.NoError(t, err)
	drain(eng)

	require.NoError(t, p.Update())
	assert.False(t, eng.Pending())

	src.touches[1] = [2]int{5, 5}
	require.NoError(t, p.Update())
	assert.True(t, eng.Pending())
	drain(eng)

	require.NoError(t, p.Update())
	assert.False(t, eng.Pending(), "stationary touch pushes nothing")
}

func TestPollerMouseAsTouch(t *testing.T) {
	eng, _ := newTestEngine(t)
	src := &fakeSource{mouse: true, mx: 3, my: 4}
	p, err := NewPoller(eng, Config{Source: src, MouseAsTouch: true})
	require.NoError(t, err)

	require.NoError(t, p.Update())
	assert.True(t, p.slots[0].used)
	assert.Equal(t, gesture.TouchID(1), p.slots[0].id)

	src.mouse = false
	require.NoError(t, p.Update())
	assert.False(t, p.slots[0].used)
}

func TestTouchSlotFull(t *testing.T) {
	p := &Poller{}
	for i := 0; i < maxSlots-1; i++ {
		assert.Equal(t, i+1, p.touchSlot(ebiten.TouchID(i)))
	}
	assert.Equal(t, -1, p.touchSlot(99))
	assert.Equal(t, 3, p.touchSlot(2), "existing mapping is reused")
}
