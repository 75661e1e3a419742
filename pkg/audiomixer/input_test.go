package audiomixer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func newTestInputHandlers(t *testing.T) (*keyboardHandler, *mouseHandler, *recordingSink) {
	t.Helper()

	logger := zaptest.NewLogger(t).Sugar()
	sink := &recordingSink{}

	activator := NewActivatorState(logger, []Key{KeyCtrl, KeyShift}, sink)
	keys := KeyBindings{
		Activators: []Key{KeyCtrl, KeyShift},
		Increment:  0xDD,
		Decrement:  0xDB,
		MuteToggle: Key('M'),
		Exit:       Key('X'),
	}

	return newKeyboardHandler(logger, sink, keys, activator), newMouseHandler(logger, sink, activator), sink
}

func TestKeyboardHandler_BindingsNeedActivator(t *testing.T) {
	kh, _, sink := newTestInputHandlers(t)

	assert.False(t, kh.OnPress(0xDD))
	assert.Empty(t, sink.snapshot())

	assert.False(t, kh.OnPress(keyLeftCtrl))
	assert.False(t, kh.OnPress(keyRightShift))

	assert.True(t, kh.OnPress(0xDD))
	assert.True(t, kh.OnPress(0xDB))
	assert.True(t, kh.OnPress(Key('M')))
	assert.True(t, kh.OnPress(Key('X')))
	assert.False(t, kh.OnPress(Key('Q')))

	assert.False(t, kh.OnRelease(keyRightShift))
	assert.False(t, kh.OnPress(0xDD))

	assert.Equal(t, []Event{
		KeyIncrementEvent{},
		KeyDecrementEvent{},
		KeyMuteToggleEvent{},
		ExitRequestedEvent{},
		ActivatorReleasedEvent{},
	}, sink.snapshot())
}

func TestMouseHandler(t *testing.T) {
	kh, mh, sink := newTestInputHandlers(t)

	// moves are always forwarded and never swallowed
	assert.False(t, mh.OnMove(1, 2))

	assert.False(t, mh.OnScroll(1, 2, 1))
	assert.False(t, mh.OnClick(1, 2, MouseButtonMiddle, true))

	kh.OnPress(KeyCtrl)
	kh.OnPress(KeyShift)

	assert.True(t, mh.OnScroll(3, 4, -2))
	assert.True(t, mh.OnClick(3, 4, MouseButtonMiddle, true))
	assert.False(t, mh.OnClick(3, 4, MouseButtonMiddle, false))
	assert.False(t, mh.OnClick(3, 4, MouseButtonLeft, true))

	assert.Equal(t, []Event{
		CursorMoveEvent{X: 1, Y: 2},
		ScrollEvent{X: 3, Y: 4, Delta: -2},
		MiddleClickEvent{X: 3, Y: 4},
	}, sink.snapshot())
}
