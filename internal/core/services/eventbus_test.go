package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquillm/aquillm/internal/adapters/driven/storage/memory"
	"github.com/aquillm/aquillm/internal/core/domain"
	"github.com/aquillm/aquillm/internal/core/ports/driving"
)

func drain(ch <-chan domain.StatusEvent) []domain.StatusEvent {
	var out []domain.StatusEvent
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-time.After(100 * time.Millisecond):
			return out
		}
	}
}

func TestEventBus_Publish_AssignsIncreasingSeq(t *testing.T) {
	bus := NewEventBus(memory.NewEventLog())
	defer bus.Close()

	ch, cancel := bus.Subscribe(driving.EventFilter{})
	defer cancel()

	bus.Publish(domain.StatusEvent{SourceID: "doc-1", Severity: domain.SeverityInfo, Message: "first"})
	bus.Publish(domain.StatusEvent{SourceID: "doc-1", Severity: domain.SeverityInfo, Message: "second"})
	bus.Publish(domain.StatusEvent{SourceID: "doc-2", Severity: domain.SeverityInfo, Message: "third"})

	events := drain(ch)
	require.Len(t, events, 3)
	assert.Equal(t, uint64(1), events[0].Seq)
	assert.Equal(t, uint64(2), events[1].Seq)
	assert.Equal(t, uint64(3), events[2].Seq)
	assert.Equal(t, "first", events[0].Message)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestEventBus_Subscribe_FilterBySource(t *testing.T) {
	bus := NewEventBus(nil)
	defer bus.Close()

	ch, cancel := bus.Subscribe(driving.EventFilter{SourceID: "doc-1"})
	defer cancel()

	bus.Publish(domain.StatusEvent{SourceID: "doc-1", Severity: domain.SeverityInfo, Message: "mine"})
	bus.Publish(domain.StatusEvent{SourceID: "doc-2", Severity: domain.SeverityInfo, Message: "other"})

	events := drain(ch)
	require.Len(t, events, 1)
	assert.Equal(t, "mine", events[0].Message)
}

func TestEventBus_Publish_DropsWhenSubscriberFull(t *testing.T) {
	bus := NewEventBus(nil)
	defer bus.Close()

	ch, cancel := bus.Subscribe(driving.EventFilter{})
	defer cancel()

	// Overfill the subscriber buffer without reading.
	for i := 0; i < subscriberBuffer+10; i++ {
		bus.Publish(domain.StatusEvent{SourceID: "doc-1", Severity: domain.SeverityInfo, Message: "m"})
	}

	events := drain(ch)
	assert.Len(t, events, subscriberBuffer)
}

func TestEventBus_Replay_ReturnsLoggedEvents(t *testing.T) {
	bus := NewEventBus(memory.NewEventLog())
	defer bus.Close()

	bus.Publish(domain.StatusEvent{SourceID: "doc-1", Severity: domain.SeverityInfo, Message: "logged"})

	events, err := bus.Replay(context.Background(), time.Now().Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "logged", events[0].Message)
}

func TestEventBus_ResumesSequenceAcrossRestart(t *testing.T) {
	log := memory.NewEventLog()

	first := NewEventBus(log)
	first.Publish(domain.StatusEvent{SourceID: "doc-run1", Severity: domain.SeverityInfo, Message: "ready"})
	first.Close()

	// A fresh bus over the same log stands in for a process restart.
	second := NewEventBus(log)
	defer second.Close()
	second.Publish(domain.StatusEvent{SourceID: "doc-run2", Severity: domain.SeverityInfo, Message: "ready"})

	events, err := second.Replay(context.Background(), time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "doc-run1", events[0].SourceID)
	assert.Equal(t, "doc-run2", events[1].SourceID)
	assert.Greater(t, events[1].Seq, events[0].Seq)
}

func TestEventBus_Replay_NilLog(t *testing.T) {
	bus := NewEventBus(nil)
	defer bus.Close()

	events, err := bus.Replay(context.Background(), time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEventBus_Cancel_StopsDelivery(t *testing.T) {
	bus := NewEventBus(nil)
	defer bus.Close()

	ch, cancel := bus.Subscribe(driving.EventFilter{})
	cancel()

	// Publishing after cancel must not panic on the closed channel.
	bus.Publish(domain.StatusEvent{SourceID: "doc-1", Severity: domain.SeverityInfo, Message: "late"})

	_, ok := <-ch
	assert.False(t, ok)
}

func TestEventBus_Close_ClosesSubscribers(t *testing.T) {
	bus := NewEventBus(nil)

	ch, _ := bus.Subscribe(driving.EventFilter{})
	bus.Close()

	_, ok := <-ch
	assert.False(t, ok)

	// Publish after close is a no-op.
	bus.Publish(domain.StatusEvent{SourceID: "doc-1", Severity: domain.SeverityInfo})
}
