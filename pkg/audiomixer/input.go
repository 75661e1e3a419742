package audiomixer

import (
	"go.uber.org/zap"
)

// MouseButton is the button reported with a click
type MouseButton int

const (
	MouseButtonLeft MouseButton = iota
	MouseButtonRight
	MouseButtonMiddle
)

// keyboardHandler turns raw key callbacks into events. The returned bool asks
// the hook to suppress the key so it never reaches the focused application
type keyboardHandler struct {
	logger    *zap.SugaredLogger
	sink      EventSink
	activator *ActivatorState
	bindings  map[Key]Event
}

func newKeyboardHandler(logger *zap.SugaredLogger, sink EventSink, keys KeyBindings, activator *ActivatorState) *keyboardHandler {
	kh := &keyboardHandler{
		logger:    logger.Named("keyboard"),
		sink:      sink,
		activator: activator,
		bindings: map[Key]Event{
			keys.Increment:  KeyIncrementEvent{},
			keys.Decrement:  KeyDecrementEvent{},
			keys.MuteToggle: KeyMuteToggleEvent{},
			keys.Exit:       ExitRequestedEvent{},
		},
	}

	kh.logger.Debugw("Created keyboard handler", "bindings", len(kh.bindings))

	return kh
}

func (kh *keyboardHandler) OnPress(key Key) bool {
	kh.activator.Press(key)

	if !kh.activator.IsActive() {
		return false
	}

	event, bound := kh.bindings[key.Canonical()]
	if !bound {
		return false
	}

	kh.sink.Push(event)

	return true
}

func (kh *keyboardHandler) OnRelease(key Key) bool {
	kh.activator.Release(key)

	return false
}

// mouseHandler turns raw mouse callbacks into events, wheel and middle clicks are
// only taken (and suppressed) while the activator combo is held
type mouseHandler struct {
	logger    *zap.SugaredLogger
	sink      EventSink
	activator *ActivatorState
}

func newMouseHandler(logger *zap.SugaredLogger, sink EventSink, activator *ActivatorState) *mouseHandler {
	return &mouseHandler{
		logger:    logger.Named("mouse"),
		sink:      sink,
		activator: activator,
	}
}

func (mh *mouseHandler) OnScroll(x, y, delta int) bool {
	if !mh.activator.IsActive() {
		return false
	}

	mh.sink.Push(ScrollEvent{X: x, Y: y, Delta: delta})

	return true
}

func (mh *mouseHandler) OnClick(x, y int, button MouseButton, pressed bool) bool {
	if !pressed || button != MouseButtonMiddle || !mh.activator.IsActive() {
		return false
	}

	mh.sink.Push(MiddleClickEvent{X: x, Y: y})

	return true
}

func (mh *mouseHandler) OnMove(x, y int) bool {
	mh.sink.Push(CursorMoveEvent{X: x, Y: y})

	return false
}

// listener owns one OS input hook and the goroutine servicing it
type listener interface {
	Start() error
	Stop()
}
