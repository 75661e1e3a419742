package audiomixer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func countReleased(events []Event) int {
	count := 0
	for _, event := range events {
		if _, ok := event.(ActivatorReleasedEvent); ok {
			count++
		}
	}

	return count
}

func TestActivatorState_AndGate(t *testing.T) {
	sink := &recordingSink{}
	a := NewActivatorState(zaptest.NewLogger(t).Sugar(), []Key{KeyCtrl, KeyShift}, sink)

	a.Press(KeyCtrl)
	assert.False(t, a.IsActive())

	a.Press(KeyShift)
	assert.True(t, a.IsActive())

	// pressing again changes nothing
	a.Press(KeyShift)
	assert.True(t, a.IsActive())

	a.Release(KeyCtrl)
	assert.False(t, a.IsActive())
	assert.Equal(t, 1, countReleased(sink.snapshot()))

	// no longer active, so no second event
	a.Release(KeyShift)
	assert.False(t, a.IsActive())
	assert.Equal(t, 1, countReleased(sink.snapshot()))
}

func TestActivatorState_ModifierVariants(t *testing.T) {
	sink := &recordingSink{}
	a := NewActivatorState(zaptest.NewLogger(t).Sugar(), []Key{KeyCtrl, KeyShift}, sink)

	a.Press(keyLeftCtrl)
	a.Press(keyRightShift)
	assert.True(t, a.IsActive())

	a.Release(keyLeftShift)
	assert.False(t, a.IsActive())
	assert.Equal(t, 1, countReleased(sink.snapshot()))
}

func TestActivatorState_IgnoresOtherKeys(t *testing.T) {
	sink := &recordingSink{}
	a := NewActivatorState(zaptest.NewLogger(t).Sugar(), []Key{KeyAlt}, sink)

	a.Press(Key('M'))
	assert.False(t, a.IsActive())
	assert.False(t, a.IsActivator(Key('M')))
	assert.True(t, a.IsActivator(keyRightAlt))

	a.Press(KeyAlt)
	a.Release(Key('M'))
	assert.True(t, a.IsActive())
	assert.Empty(t, sink.snapshot())
}

func TestActivatorState_ConcurrentReleaseEmitsOnce(t *testing.T) {
	for round := 0; round < 200; round++ {
		sink := &recordingSink{}
		a := NewActivatorState(zaptest.NewLogger(t).Sugar(), []Key{KeyCtrl, KeyShift, KeyAlt}, sink)

		a.Press(KeyCtrl)
		a.Press(KeyShift)
		a.Press(KeyAlt)

		var wg sync.WaitGroup
		for _, key := range []Key{KeyCtrl, KeyShift, KeyAlt} {
			wg.Add(1)

			go func(key Key) {
				defer wg.Done()
				a.Release(key)
			}(key)
		}

		wg.Wait()

		assert.False(t, a.IsActive())
		assert.Equal(t, 1, countReleased(sink.snapshot()))
	}
}
