package topic

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/blackmichael/socialfeed-client/internal/domain"
)

func ptr(v int64) *int64 { return &v }

func TestClassify_Post(t *testing.T) {
	frame := `bob:{"type":"new_post","post":{"id":"p1","user_id":"bob","content":"hi","server_id":"1","created_at":1000,"client_timestamp":1000},"server_timestamp":1200}`

	got, err := Classify(frame)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	want := domain.Post{
		AuthorID:        "bob",
		TopicAuthorID:   "bob",
		Content:         "hi",
		CreatedAt:       1000,
		ClientTimestamp: ptr(1000),
		ServerTimestamp: ptr(1200),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Classify() mismatch (-want +got):\n%s", diff)
	}
}

func TestClassify_PostContentWithColons(t *testing.T) {
	frame := `bob:{"type":"new_post","post":{"user_id":"bob","content":"time: 12:30","created_at":5}}`

	got, err := Classify(frame)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	post := got.(domain.Post)
	if post.Content != "time: 12:30" {
		t.Errorf("Content = %q", post.Content)
	}
	if post.ClientTimestamp != nil || post.ServerTimestamp != nil {
		t.Errorf("optional timestamps set: %+v", post)
	}
	if post.OriginTimestamp() != 5 {
		t.Errorf("OriginTimestamp() = %d, want created_at 5", post.OriginTimestamp())
	}
}

func TestClassify_PrivateMessage(t *testing.T) {
	frame := `alice:PM:{"type":"private_message","sender_id":"bob","receiver_id":"mallory","content":"psst","created_at":2000,"client_timestamp":1900,"server_timestamp":2001}`

	got, err := Classify(frame)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	want := domain.PrivateMessage{
		SenderID:        "bob",
		ReceiverID:      "mallory",
		TopicReceiverID: "alice",
		Content:         "psst",
		CreatedAt:       2000,
		ClientTimestamp: ptr(1900),
		ServerTimestamp: ptr(2001),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Classify() mismatch (-want +got):\n%s", diff)
	}
}

func TestClassify_PrivateMessageWithoutReceiverID(t *testing.T) {
	got, err := Classify(`alice:PM:{"sender_id":"bob","content":"x","created_at":7}`)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	msg := got.(domain.PrivateMessage)
	if msg.ReceiverID != "" || msg.TopicReceiverID != "alice" {
		t.Errorf("receiver fields = %q / %q", msg.ReceiverID, msg.TopicReceiverID)
	}
	if _, ok := msg.AuthoritativeTimestamp(); ok {
		t.Error("AuthoritativeTimestamp() reported a value for a message without one")
	}
}

func TestClassify_FloatTimestamps(t *testing.T) {
	got, err := Classify(`bob:{"type":"new_post","post":{"user_id":"bob","content":"c","created_at":1700000000123.7},"server_timestamp":1700000000200.0}`)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	post := got.(domain.Post)
	if post.CreatedAt != 1700000000123 {
		t.Errorf("CreatedAt = %d", post.CreatedAt)
	}
	if ts, ok := post.AuthoritativeTimestamp(); !ok || ts != 1700000000200 {
		t.Errorf("AuthoritativeTimestamp() = %d, %v", ts, ok)
	}
}

func TestClassify_Unrecognized(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{"no separator", `hello`},
		{"empty topic", `:{"type":"new_post"}`},
		{"malformed json", `bob:{"type":`},
		{"other event type", `bob:{"type":"new_follower","post":{"user_id":"bob","content":"x","created_at":1}}`},
		{"missing type", `bob:{"post":{"user_id":"bob","content":"x","created_at":1}}`},
		{"missing post", `bob:{"type":"new_post"}`},
		{"post without user_id", `bob:{"type":"new_post","post":{"content":"x","created_at":1}}`},
		{"post without content", `bob:{"type":"new_post","post":{"user_id":"bob","created_at":1}}`},
		{"post without timestamps", `bob:{"type":"new_post","post":{"user_id":"bob","content":"x"}}`},
		{"pm malformed json", `alice:PM:not json`},
		{"pm without sender", `alice:PM:{"content":"x","created_at":1}`},
		{"pm without content", `alice:PM:{"sender_id":"bob","created_at":1}`},
		{"pm without timestamps", `alice:PM:{"sender_id":"bob","content":"x"}`},
		{"timestamp not a number", `bob:{"type":"new_post","post":{"user_id":"bob","content":"x","created_at":"soon"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Classify(tt.frame)
			if !errors.Is(err, ErrUnrecognized) {
				t.Fatalf("Classify() error = %v, want ErrUnrecognized", err)
			}
			if ev != nil {
				t.Errorf("Classify() event = %+v, want nil", ev)
			}
		})
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("short", 10); got != "short" {
		t.Errorf("Preview(short) = %q", got)
	}
	if got := Preview("0123456789abc", 10); got != "0123456789..." {
		t.Errorf("Preview(long) = %q", got)
	}
}
