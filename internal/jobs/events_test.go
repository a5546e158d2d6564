package jobs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEventBusAssignsSequenceAndTimestamp checks publish metadata.
func TestEventBusAssignsSequenceAndTimestamp(t *testing.T) {
	bus := NewEventBus(10)

	first := bus.Publish(Event{JobID: "a"})
	second := bus.Publish(Event{JobID: "a"})

	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, int64(2), second.Seq)
	assert.False(t, first.Timestamp.IsZero())
}

// TestEventBusSinceFiltersByJobAndSequence checks incremental reads.
func TestEventBusSinceFiltersByJobAndSequence(t *testing.T) {
	bus := NewEventBus(10)
	bus.Publish(Event{JobID: "a", Message: "one"})
	bus.Publish(Event{JobID: "b", Message: "other"})
	bus.Publish(Event{JobID: "a", Message: "two"})

	events := bus.Since("a", 0)
	require.Len(t, events, 2)
	assert.Equal(t, "one", events[0].Message)
	assert.Equal(t, "two", events[1].Message)

	events = bus.Since("a", events[0].Seq)
	require.Len(t, events, 1)
	assert.Equal(t, "two", events[0].Message)
}

// TestEventBusBoundsRetainedEvents checks the buffer trims oldest first.
func TestEventBusBoundsRetainedEvents(t *testing.T) {
	bus := NewEventBus(3)
	for i := 0; i < 5; i++ {
		bus.Publish(Event{JobID: "a", Message: fmt.Sprintf("m%d", i)})
	}

	events := bus.Since("a", 0)
	require.Len(t, events, 3)
	assert.Equal(t, "m2", events[0].Message)
	assert.Equal(t, "m4", events[2].Message)
}
