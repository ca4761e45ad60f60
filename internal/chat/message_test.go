package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewChatMessage(t *testing.T) {
	now := time.Now()
	m := NewChatMessage("Alice", "hi", now)

	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "Alice", m.Author)
	assert.Equal(t, "hi", m.Content)
	assert.Equal(t, TypeChat, m.Type)
	assert.Equal(t, time.UTC, m.Timestamp.Location())
	assert.WithinDuration(t, now, m.Timestamp, time.Millisecond)
}

func TestMessageIDsAreUnique(t *testing.T) {
	seen := make(map[string]struct{})
	now := time.Now()
	for i := 0; i < 1000; i++ {
		m := NewSystemMessage("x", now)
		_, dup := seen[m.ID]
		assert.False(t, dup, "duplicate id %s", m.ID)
		seen[m.ID] = struct{}{}
	}
}

func TestNotices(t *testing.T) {
	assert.Equal(t, "Bob has joined", JoinNotice("Bob", ""))
	assert.Equal(t, "Bob has left", LeaveNotice("Bob", ""))
	assert.Equal(t, "Bob has joined Afizzt", JoinNotice("Bob", "Afizzt"))
	assert.Equal(t, "Bob has left Afizzt", LeaveNotice("Bob", "Afizzt"))

	m := NewSystemMessage(LeaveNotice("Bob", ""), time.Now())
	assert.Equal(t, SystemAuthor, m.Author)
	assert.Equal(t, TypeSystem, m.Type)
}
