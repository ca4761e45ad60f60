package chat

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryDefaultsCapacity(t *testing.T) {
	assert.Equal(t, DefaultHistorySize, NewHistory(0).Cap())
	assert.Equal(t, DefaultHistorySize, NewHistory(-3).Cap())
	assert.Equal(t, 7, NewHistory(7).Cap())
}

func TestHistoryAppendReturnsMessage(t *testing.T) {
	h := NewHistory(3)
	m := NewChatMessage("Alice", "hi", time.Now())

	assert.Equal(t, m, h.Append(m))
	assert.Equal(t, 1, h.Len())
}

func TestHistoryEvictsOldestPastCapacity(t *testing.T) {
	h := NewHistory(DefaultHistorySize)
	now := time.Now()

	var first Message
	for i := 0; i < DefaultHistorySize+1; i++ {
		m := h.Append(NewChatMessage("Alice", fmt.Sprintf("msg %d", i), now))
		if i == 0 {
			first = m
		}
	}

	snap := h.Snapshot()
	require.Len(t, snap, DefaultHistorySize)
	assert.Equal(t, "msg 1", snap[0].Content)
	assert.Equal(t, fmt.Sprintf("msg %d", DefaultHistorySize), snap[len(snap)-1].Content)
	for _, m := range snap {
		assert.NotEqual(t, first.ID, m.ID)
	}
}

func TestHistorySnapshotKeepsOrderAndIDs(t *testing.T) {
	h := NewHistory(4)
	now := time.Now()

	var appended []Message
	for i := 0; i < 10; i++ {
		appended = append(appended, h.Append(NewChatMessage("Bob", fmt.Sprintf("%d", i), now)))
	}

	assert.Equal(t, appended[6:], h.Snapshot())
	assert.Equal(t, h.Snapshot(), h.Snapshot(), "snapshots are repeatable")
}

func TestHistorySnapshotIsACopy(t *testing.T) {
	h := NewHistory(2)
	h.Append(NewChatMessage("Alice", "original", time.Now()))

	snap := h.Snapshot()
	snap[0].Content = "tampered"

	assert.Equal(t, "original", h.Snapshot()[0].Content)
}

func TestHistoryEmptySnapshot(t *testing.T) {
	snap := NewHistory(3).Snapshot()
	assert.NotNil(t, snap)
	assert.Empty(t, snap)
}
