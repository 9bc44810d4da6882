package domain

// Reasons reported by Accept when an event is filtered out.
const (
	ReasonOwnPost      = "own post"
	ReasonNotFollowing = "author not followed"
	ReasonNotAddressed = "private message not addressed to this user"
	ReasonUnknownEvent = "unknown event type"
)

// Accept decides whether an inbound event is kept. A rejection is a normal
// outcome, not an error; reason says why it was dropped.
//
// Posts are kept when the author is someone else and is in follows. Private
// messages are kept only when the receiver taken from the topic is selfID,
// regardless of the receiver_id declared in the payload or of which channel
// the frame arrived on.
func Accept(ev Event, selfID string, follows *FollowSet) (ok bool, reason string) {
	switch e := ev.(type) {
	case Post:
		if e.AuthorID == selfID {
			return false, ReasonOwnPost
		}
		if !follows.Contains(e.AuthorID) {
			return false, ReasonNotFollowing
		}
		return true, ""
	case PrivateMessage:
		if e.TopicReceiverID != selfID {
			return false, ReasonNotAddressed
		}
		return true, ""
	default:
		return false, ReasonUnknownEvent
	}
}
