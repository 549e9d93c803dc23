package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(evs []Event) []int64 {
	out := make([]int64, 0, len(evs))
	for _, ev := range evs {
		out = append(out, ev.ID)
	}
	return out
}

func TestPublishSubscribe(t *testing.T) {
	h := NewHub(10)
	ch, cancel := h.Subscribe()
	defer cancel()
	assert.Equal(t, 1, h.Subscribers())

	h.Publish(TriggerReceived, TriggerData{TriggerID: "t1", ActionType: "script"})

	select {
	case ev := <-ch:
		assert.Equal(t, TriggerReceived, ev.Type)
		assert.Equal(t, int64(1), ev.ID)
		var d TriggerData
		require.NoError(t, json.Unmarshal(ev.Data, &d))
		assert.Equal(t, "t1", d.TriggerID)
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestCancelClosesChannel(t *testing.T) {
	h := NewHub(10)
	ch, cancel := h.Subscribe()
	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, h.Subscribers())
}

func TestSnapshotSinceKeepsNewest(t *testing.T) {
	h := NewHub(3)
	for i := 0; i < 5; i++ {
		h.Publish(ActionCompleted, nil)
	}

	all := h.SnapshotSince(0)
	assert.Equal(t, []int64{3, 4, 5}, ids(all))
	assert.JSONEq(t, "{}", string(all[0].Data))
	assert.Equal(t, []int64{5}, ids(h.SnapshotSince(4)))
	assert.Equal(t, 0, h.Subscribers())
}

func TestFollowJoinsBacklogAndLive(t *testing.T) {
	h := NewHub(10)
	h.Publish(TriggerReceived, nil)
	h.Publish(ScriptStarted, nil)

	backlog, ch, cancel := h.Follow(1, nil)
	defer cancel()
	assert.Equal(t, []int64{2}, ids(backlog))

	h.Publish(ScriptFinished, nil)
	select {
	case ev := <-ch:
		assert.Equal(t, int64(3), ev.ID)
	case <-time.After(time.Second):
		t.Fatal("no live event")
	}
}

func TestFollowFilter(t *testing.T) {
	h := NewHub(10)
	h.Publish(TriggerReceived, nil)
	h.Publish(ScriptFinished, nil)

	filter := ParseFilter(" script.finished, ,action.failed")
	backlog, ch, cancel := h.Follow(0, filter)
	defer cancel()
	require.Len(t, backlog, 1)
	assert.Equal(t, ScriptFinished, backlog[0].Type)

	h.Publish(TriggerReceived, nil)
	h.Publish(ActionFailed, nil)
	ev := <-ch
	assert.Equal(t, ActionFailed, ev.Type)
}

func TestParseFilter(t *testing.T) {
	assert.Nil(t, ParseFilter(""))
	assert.True(t, ParseFilter("").Allows(TriggerIgnored))

	f := ParseFilter("trigger.ignored")
	assert.True(t, f.Allows(TriggerIgnored))
	assert.False(t, f.Allows(TriggerReceived))
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub(10)
	_, cancel := h.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			h.Publish(ScriptFinished, nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	assert.Equal(t, 500-subscriberBuffer, h.Dropped())
}
