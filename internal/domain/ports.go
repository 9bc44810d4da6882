package domain

import (
	"context"
	"errors"
)

// ErrNoFrame is returned by FrameSource.Receive when its poll interval
// elapses without a frame arriving.
var ErrNoFrame = errors.New("no frame within poll interval")

// FrameSource is a subscription transport delivering raw "<topic>:<json>"
// text frames.
type FrameSource interface {
	// Receive waits at most one poll interval for the next frame. It returns
	// ErrNoFrame when nothing arrived in time.
	Receive(ctx context.Context) (string, error)

	// Subscribe adds a topic prefix to the subscription. It is safe to call
	// while another goroutine is blocked in Receive.
	Subscribe(topic string) error

	// Close releases the transport.
	Close() error
}

// EventArchive persists accepted events outside the in-memory store.
type EventArchive interface {
	// SavePost stores an accepted post.
	SavePost(ctx context.Context, p Post) error

	// SaveMessage stores an accepted private message.
	SaveMessage(ctx context.Context, m PrivateMessage) error

	// RecentPosts returns up to limit archived posts, newest first.
	RecentPosts(ctx context.Context, limit int) ([]Post, error)
}

// Notifier surfaces an accepted event to the operator.
type Notifier interface {
	Notify(ev Event)
}

// PostTopic is the subscription topic of userID's post channel.
func PostTopic(userID string) string {
	return userID + ":"
}

// MessageTopic is the subscription topic of private messages addressed to
// userID.
func MessageTopic(userID string) string {
	return userID + ":PM:"
}
