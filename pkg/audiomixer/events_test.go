package audiomixer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventQueue_FIFO(t *testing.T) {
	queue := NewEventQueue()

	queue.Push(ScrollEvent{X: 1})
	queue.Push(MiddleClickEvent{X: 2})
	queue.Push(ExitRequestedEvent{})

	assert.Equal(t, 3, queue.Len())
	assert.Equal(t, ScrollEvent{X: 1}, queue.Pop())
	assert.Equal(t, MiddleClickEvent{X: 2}, queue.Pop())
	assert.Equal(t, ExitRequestedEvent{}, queue.Pop())
	assert.Equal(t, 0, queue.Len())
}

func TestEventQueue_PopBlocksUntilPush(t *testing.T) {
	queue := NewEventQueue()
	popped := make(chan Event)

	go func() {
		popped <- queue.Pop()
	}()

	select {
	case <-popped:
		require.FailNow(t, "pop returned on an empty queue")
	case <-time.After(50 * time.Millisecond):
	}

	queue.Push(KeyIncrementEvent{})

	select {
	case event := <-popped:
		assert.Equal(t, KeyIncrementEvent{}, event)
	case <-time.After(testTimeout):
		require.FailNow(t, "pop didn't wake up")
	}
}

func TestEventQueue_ManyProducers(t *testing.T) {
	const (
		producers   = 8
		perProducer = 500
	)

	queue := NewEventQueue()

	var wg sync.WaitGroup
	for producer := 0; producer < producers; producer++ {
		wg.Add(1)

		go func(producer int) {
			defer wg.Done()

			for seq := 0; seq < perProducer; seq++ {
				queue.Push(ScrollEvent{X: producer, Y: seq})
			}
		}(producer)
	}

	next := make([]int, producers)
	for idx := 0; idx < producers*perProducer; idx++ {
		event, ok := queue.Pop().(ScrollEvent)
		require.True(t, ok)

		// each producer's events arrive in the order they were pushed
		require.Equal(t, next[event.X], event.Y)
		next[event.X]++
	}

	wg.Wait()
	assert.Equal(t, 0, queue.Len())
}
