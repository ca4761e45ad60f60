package chat

// DefaultHistorySize is the number of messages kept when no size is configured.
const DefaultHistorySize = 100

// History is a fixed-capacity ring of the most recent messages. Once full,
// each Append evicts the oldest message.
type History struct {
	buf  []Message
	head int
	size int
}

// NewHistory returns an empty history holding at most capacity messages.
// Non-positive capacities fall back to DefaultHistorySize.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &History{buf: make([]Message, capacity)}
}

// Append stores m at the tail and returns it unchanged.
func (h *History) Append(m Message) Message {
	tail := (h.head + h.size) % len(h.buf)
	h.buf[tail] = m
	if h.size < len(h.buf) {
		h.size++
	} else {
		h.head = (h.head + 1) % len(h.buf)
	}
	return m
}

// Snapshot returns a copy of the retained messages, oldest first.
func (h *History) Snapshot() []Message {
	out := make([]Message, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.buf[(h.head+i)%len(h.buf)]
	}
	return out
}

// Len is the number of retained messages.
func (h *History) Len() int { return h.size }

// Cap is the maximum number of retained messages.
func (h *History) Cap() int { return len(h.buf) }
