package domain

// Event is an inbound feed event parsed from a subscription frame. The
// concrete type is either Post or PrivateMessage.
type Event interface {
	// OriginTimestamp is the sender-side timestamp in unix millis:
	// client_timestamp when the payload carries it, created_at otherwise.
	OriginTimestamp() int64

	// AuthoritativeTimestamp returns the server_timestamp attached upstream,
	// and false when the payload carried none.
	AuthoritativeTimestamp() (int64, bool)

	isEvent()
}

// Post is a new post published on a user's post channel.
type Post struct {
	// AuthorID is the post.user_id field of the payload.
	AuthorID string

	// TopicAuthorID is the user id taken from the frame's topic prefix.
	TopicAuthorID string

	// Content is the post body.
	Content string

	// CreatedAt is the server-side creation time in unix millis.
	CreatedAt int64

	// ClientTimestamp is the author's logical clock when the post was sent.
	ClientTimestamp *int64

	// ServerTimestamp is the publish time attached by the server.
	ServerTimestamp *int64
}

func (p Post) OriginTimestamp() int64 {
	return origin(p.ClientTimestamp, p.CreatedAt)
}

func (p Post) AuthoritativeTimestamp() (int64, bool) {
	return authoritative(p.ServerTimestamp)
}

func (Post) isEvent() {}

// PrivateMessage is a direct message published on a user's PM channel.
type PrivateMessage struct {
	SenderID string

	// ReceiverID is the receiver_id declared in the payload. The server does
	// not always send it, and it is never used for filtering.
	ReceiverID string

	// TopicReceiverID is the user id before the ":PM:" marker. It decides
	// whether the message is addressed to this client.
	TopicReceiverID string

	Content         string
	CreatedAt       int64
	ClientTimestamp *int64
	ServerTimestamp *int64
}

func (m PrivateMessage) OriginTimestamp() int64 {
	return origin(m.ClientTimestamp, m.CreatedAt)
}

func (m PrivateMessage) AuthoritativeTimestamp() (int64, bool) {
	return authoritative(m.ServerTimestamp)
}

func (PrivateMessage) isEvent() {}

func origin(clientTS *int64, createdAt int64) int64 {
	if clientTS != nil {
		return *clientTS
	}
	return createdAt
}

func authoritative(serverTS *int64) (int64, bool) {
	if serverTS == nil {
		return 0, false
	}
	return *serverTS, true
}
