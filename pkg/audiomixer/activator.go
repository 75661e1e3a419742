package audiomixer

import (
	"sync"

	"go.uber.org/zap"
)

// ActivatorState is an AND-gate over the configured activator keys.
// It's shared by the keyboard listener (press/release) and the mouse listener (IsActive)
type ActivatorState struct {
	logger *zap.SugaredLogger
	sink   EventSink

	activators map[Key]struct{}

	lock    sync.Mutex
	pressed map[Key]struct{}
}

func NewActivatorState(logger *zap.SugaredLogger, activators []Key, sink EventSink) *ActivatorState {
	logger = logger.Named("activator")

	a := &ActivatorState{
		logger:     logger,
		sink:       sink,
		activators: make(map[Key]struct{}, len(activators)),
		pressed:    make(map[Key]struct{}, len(activators)),
	}

	for _, key := range activators {
		a.activators[key.Canonical()] = struct{}{}
	}

	logger.Debugw("Created activator state", "activators", activators)

	return a
}

// Press marks an activator key as held, other keys are ignored
func (a *ActivatorState) Press(key Key) {
	key = key.Canonical()
	if !a.IsActivator(key) {
		return
	}

	a.lock.Lock()
	a.pressed[key] = struct{}{}
	a.lock.Unlock()
}

// Release marks an activator key as no longer held. Exactly one ActivatorReleasedEvent
// is emitted per active -> inactive transition, no matter which listener gets there first
func (a *ActivatorState) Release(key Key) {
	key = key.Canonical()
	if !a.IsActivator(key) {
		return
	}

	a.lock.Lock()
	wasActive := len(a.pressed) == len(a.activators)
	delete(a.pressed, key)
	a.lock.Unlock()

	if wasActive {
		a.sink.Push(ActivatorReleasedEvent{})
	}
}

// IsActive reports whether every activator key is currently held
func (a *ActivatorState) IsActive() bool {
	a.lock.Lock()
	defer a.lock.Unlock()

	return len(a.pressed) == len(a.activators)
}

func (a *ActivatorState) IsActivator(key Key) bool {
	_, ok := a.activators[key.Canonical()]
	return ok
}
