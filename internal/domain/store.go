package domain

import "sync"

// EventStore holds the posts and private messages accepted by the listener.
//
// Both sequences are append-only and unbounded: nothing is ever removed, so
// memory grows with the number of accepted events for the lifetime of the
// session. That is acceptable for an interactive single-session client and
// is intentionally not capped here.
type EventStore struct {
	postsMu sync.Mutex
	posts   []Post

	messagesMu sync.Mutex
	messages   []PrivateMessage
}

// NewEventStore creates an empty store.
func NewEventStore() *EventStore {
	return &EventStore{}
}

// AppendPost records an accepted post.
func (s *EventStore) AppendPost(p Post) {
	s.postsMu.Lock()
	s.posts = append(s.posts, p)
	s.postsMu.Unlock()
}

// AppendMessage records an accepted private message.
func (s *EventStore) AppendMessage(m PrivateMessage) {
	s.messagesMu.Lock()
	s.messages = append(s.messages, m)
	s.messagesMu.Unlock()
}

// Posts returns a copy of the accepted posts in arrival order.
func (s *EventStore) Posts() []Post {
	s.postsMu.Lock()
	defer s.postsMu.Unlock()
	out := make([]Post, len(s.posts))
	copy(out, s.posts)
	return out
}

// Messages returns a copy of the accepted private messages in arrival order.
func (s *EventStore) Messages() []PrivateMessage {
	s.messagesMu.Lock()
	defer s.messagesMu.Unlock()
	out := make([]PrivateMessage, len(s.messages))
	copy(out, s.messages)
	return out
}
