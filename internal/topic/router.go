// Package topic turns raw subscription frames into typed feed events.
//
// A frame is "<topic>:<json>". Post channels use the topic "<userId>" and
// private-message channels use "<userId>:PM", so a PM frame reads
// "<userId>:PM:<json>".
package topic

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/blackmichael/socialfeed-client/internal/domain"
)

// PrivateMessageMarker separates the receiver id from the payload of a
// private-message frame.
const PrivateMessageMarker = ":PM:"

const newPostType = "new_post"

// ErrUnrecognized is returned for frames that are not a new post or a
// private message. Such frames are dropped, never fatal.
var ErrUnrecognized = errors.New("unrecognized frame")

// Classify parses a raw frame. Any frame containing the PM marker is treated
// as a private message; everything else is split at the first ':' and must
// carry a new_post payload.
func Classify(frame string) (domain.Event, error) {
	if i := strings.Index(frame, PrivateMessageMarker); i >= 0 {
		return parsePrivateMessage(frame[:i], frame[i+len(PrivateMessageMarker):])
	}

	sep := strings.IndexByte(frame, ':')
	if sep <= 0 {
		return nil, fmt.Errorf("%w: missing topic separator", ErrUnrecognized)
	}
	return parsePost(frame[:sep], frame[sep+1:])
}

func parsePost(topicUser, payload string) (domain.Event, error) {
	var env postEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return nil, fmt.Errorf("%w: unmarshal post envelope: %v", ErrUnrecognized, err)
	}
	if env.Type != newPostType {
		return nil, fmt.Errorf("%w: event type %q", ErrUnrecognized, env.Type)
	}

	rec := env.Post
	switch {
	case rec == nil:
		return nil, fmt.Errorf("%w: new_post without post", ErrUnrecognized)
	case rec.UserID == nil:
		return nil, fmt.Errorf("%w: post without user_id", ErrUnrecognized)
	case rec.Content == nil:
		return nil, fmt.Errorf("%w: post without content", ErrUnrecognized)
	case rec.ClientTimestamp == nil && rec.CreatedAt == nil:
		return nil, fmt.Errorf("%w: post without timestamp", ErrUnrecognized)
	}

	return domain.Post{
		AuthorID:        *rec.UserID,
		TopicAuthorID:   topicUser,
		Content:         *rec.Content,
		CreatedAt:       rec.CreatedAt.value(),
		ClientTimestamp: rec.ClientTimestamp.ptr(),
		ServerTimestamp: env.ServerTimestamp.ptr(),
	}, nil
}

func parsePrivateMessage(topicReceiver, payload string) (domain.Event, error) {
	var rec messageRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, fmt.Errorf("%w: unmarshal private message: %v", ErrUnrecognized, err)
	}

	switch {
	case rec.SenderID == nil:
		return nil, fmt.Errorf("%w: private message without sender_id", ErrUnrecognized)
	case rec.Content == nil:
		return nil, fmt.Errorf("%w: private message without content", ErrUnrecognized)
	case rec.ClientTimestamp == nil && rec.CreatedAt == nil:
		return nil, fmt.Errorf("%w: private message without timestamp", ErrUnrecognized)
	}

	msg := domain.PrivateMessage{
		SenderID:        *rec.SenderID,
		TopicReceiverID: topicReceiver,
		Content:         *rec.Content,
		CreatedAt:       rec.CreatedAt.value(),
		ClientTimestamp: rec.ClientTimestamp.ptr(),
		ServerTimestamp: rec.ServerTimestamp.ptr(),
	}
	if rec.ReceiverID != nil {
		msg.ReceiverID = *rec.ReceiverID
	}
	return msg, nil
}

// Preview returns the first n bytes of a frame for log lines, appending
// "..." when it was cut.
func Preview(frame string, n int) string {
	if len(frame) <= n {
		return frame
	}
	return frame[:n] + "..."
}
