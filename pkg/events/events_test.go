package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, sub Subscriber) *Event {
	t.Helper()
	select {
	case ev := <-sub:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestPublish_NoFilterAllowsEverything(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.Publish(&Event{Type: EventSystemLogsUpdate, Level: "warning"})
	ev := drain(t, sub)
	assert.Equal(t, "warning", ev.Level)
}

func TestPublish_LevelFilterDropsDisallowedLevels(t *testing.T) {
	b := NewBroker()
	b.SetLevelFilter([]string{"error"})
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.Publish(&Event{Type: EventSystemLogsUpdate, Level: "info"})
	b.Publish(&Event{Type: EventSystemLogsUpdate, Level: "error"})

	ev := drain(t, sub)
	require.Equal(t, "error", ev.Level, "only the allowed level must reach the subscriber")

	select {
	case unexpected := <-sub:
		t.Fatalf("got unexpected second event: %+v", unexpected)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublish_LevelFilterNeverAppliesToOtherEventTypes(t *testing.T) {
	b := NewBroker()
	b.SetLevelFilter([]string{"error"})
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.Publish(&Event{Type: EventStatusUpdate, Branch: "feat/login"})
	ev := drain(t, sub)
	assert.Equal(t, EventStatusUpdate, ev.Type)
}

func TestSetLevelFilter_NilRestoresAllowAll(t *testing.T) {
	b := NewBroker()
	b.SetLevelFilter([]string{"error"})
	b.SetLevelFilter(nil)
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.Publish(&Event{Type: EventSystemLogsUpdate, Level: "info"})
	ev := drain(t, sub)
	assert.Equal(t, "info", ev.Level)
}
