package chat

import "time"

// Message is a single chat message appended to a room or namespace history.
// Messages are immutable once appended; the append order defines the
// delivery order within that scope. Ids are assigned by a per-scope
// monotonic counter starting at 1.
type Message struct {
	ID                uint64 `json:"id"`
	SenderID          string `json:"senderId"`
	SenderDisplayName string `json:"senderDisplayName"`
	Text              string `json:"text"`
	Timestamp         string `json:"timestamp"`
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
