package chat

import (
	"time"

	"github.com/google/uuid"
)

// MessageType distinguishes user chat lines from server notices.
type MessageType string

const (
	// TypeChat is a message written by a participant.
	TypeChat MessageType = "chat"
	// TypeSystem is a notice generated by the server (joins and leaves).
	TypeSystem MessageType = "system"
)

// SystemAuthor is the author of every server-generated notice.
const SystemAuthor = "System"

// Message is one accepted chat line or system notice. Messages are values and
// are never modified after creation.
type Message struct {
	ID        string      `json:"id"`
	Author    string      `json:"author"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
	Type      MessageType `json:"type"`
}

// NewChatMessage stamps a participant message with a fresh id and timestamp.
func NewChatMessage(author, content string, now time.Time) Message {
	return newMessage(author, content, TypeChat, now)
}

// NewSystemMessage stamps a server notice with a fresh id and timestamp.
func NewSystemMessage(content string, now time.Time) Message {
	return newMessage(SystemAuthor, content, TypeSystem, now)
}

func newMessage(author, content string, typ MessageType, now time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Author:    author,
		Content:   content,
		Timestamp: now.UTC().Truncate(time.Millisecond),
		Type:      typ,
	}
}

// JoinNotice is the content of the system message announcing a join. When
// room is non-empty it is appended, e.g. "Alice has joined Afizzt".
func JoinNotice(name, room string) string {
	return notice(name, "has joined", room)
}

// LeaveNotice is the content of the system message announcing a leave.
func LeaveNotice(name, room string) string {
	return notice(name, "has left", room)
}

func notice(name, verb, room string) string {
	s := name + " " + verb
	if room != "" {
		s += " " + room
	}
	return s
}
