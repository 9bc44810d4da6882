package topic

import (
	"encoding/json"
	"fmt"
)

// postEnvelope is the JSON published on a "<userId>:" channel.
type postEnvelope struct {
	Type            string      `json:"type"`
	Post            *postRecord `json:"post"`
	ServerTimestamp *millis     `json:"server_timestamp,omitempty"`
}

// postRecord is the post object inside a new_post envelope.
type postRecord struct {
	UserID          *string `json:"user_id"`
	Content         *string `json:"content"`
	CreatedAt       *millis `json:"created_at"`
	ClientTimestamp *millis `json:"client_timestamp,omitempty"`
}

// messageRecord is the JSON published after a ":PM:" marker. The server sets
// type to "private_message" and may leave receiver_id out.
type messageRecord struct {
	Type            string  `json:"type,omitempty"`
	SenderID        *string `json:"sender_id"`
	ReceiverID      *string `json:"receiver_id,omitempty"`
	Content         *string `json:"content"`
	CreatedAt       *millis `json:"created_at"`
	ClientTimestamp *millis `json:"client_timestamp,omitempty"`
	ServerTimestamp *millis `json:"server_timestamp,omitempty"`
}

// millis is a unix-millisecond timestamp. Publishers emit integers, but a
// float is accepted and truncated.
type millis int64

func (m *millis) UnmarshalJSON(data []byte) error {
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*m = millis(i)
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("timestamp %q: %w", n, err)
	}
	*m = millis(int64(f))
	return nil
}

func (m *millis) ptr() *int64 {
	if m == nil {
		return nil
	}
	v := int64(*m)
	return &v
}

func (m *millis) value() int64 {
	if m == nil {
		return 0
	}
	return int64(*m)
}
