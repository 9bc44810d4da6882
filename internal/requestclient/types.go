package requestclient

import "fmt"

// requestHeader carries the fields common to every request.
type requestHeader struct {
	Type            string `json:"type"`
	RequestID       string `json:"request_id"`
	ClientTimestamp int64  `json:"client_timestamp"`
}

type createPostRequest struct {
	requestHeader
	UserID  string `json:"user_id"`
	Content string `json:"content"`
}

type privateMessageRequest struct {
	requestHeader
	SenderID   string `json:"sender_id"`
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
}

type followRequest struct {
	requestHeader
	FollowerID   string `json:"follower_id"`
	TargetUserID string `json:"target_user_id"`
}

type userRequest struct {
	requestHeader
	UserID string `json:"user_id"`
}

// Response is the reply to any request. Fields other than Status and Message
// are only set by the request types that return them.
type Response struct {
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	ServerID string `json:"server_id,omitempty"`

	// Post is the created post (create_post).
	Post *PostRecord `json:"post,omitempty"`

	// Posts is the server's full post list (get_all_posts).
	Posts []PostRecord `json:"posts,omitempty"`

	// Following lists followed user ids (get_following).
	Following []string `json:"following,omitempty"`

	// Followed is false when the follow already existed (follow_user).
	Followed *bool `json:"followed,omitempty"`

	// ReplicationStatus is set by get_all_posts and get_replication_status.
	ReplicationStatus *ReplicationStatus `json:"replication_status,omitempty"`
}

// OK reports whether the server answered with status "success".
func (r *Response) OK() bool {
	return r.Status == StatusSuccess
}

// Err returns nil for a successful response and an error wrapping
// ErrNotSuccess otherwise.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	msg := r.Message
	if msg == "" {
		msg = "no message"
	}
	return fmt.Errorf("%w: status %q: %s", ErrNotSuccess, r.Status, msg)
}

// PostRecord is a post as stored by the server.
type PostRecord struct {
	ID              string `json:"id"`
	UserID          string `json:"user_id"`
	Content         string `json:"content"`
	ServerID        string `json:"server_id,omitempty"`
	CreatedAt       int64  `json:"created_at"`
	ClientTimestamp *int64 `json:"client_timestamp,omitempty"`
}

// ReplicationStatus summarizes one server's replicated state.
type ReplicationStatus struct {
	ServerID       string `json:"server_id"`
	PostsCount     int    `json:"posts_count"`
	MessagesCount  int    `json:"messages_count"`
	FollowersCount int    `json:"followers_count"`
}
