// Package requestclient issues the synchronous request/reply calls of the
// social-feed protocol: creating posts, following users, sending private
// messages and fetching server state.
package requestclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/blackmichael/socialfeed-client/internal/transport"
)

// StatusSuccess is the status of a successful response.
const StatusSuccess = "success"

// Request types understood by the server.
const (
	TypeCreatePost           = "create_post"
	TypeSendPrivateMessage   = "send_private_message"
	TypeFollowUser           = "follow_user"
	TypeGetFollowing         = "get_following"
	TypeGetAllPosts          = "get_all_posts"
	TypeGetReplicationStatus = "get_replication_status"
)

var (
	// ErrTimeout is returned when the server does not answer in time.
	ErrTimeout = transport.ErrTimeout

	// ErrNotSuccess is returned by Response.Err for a non-success status.
	ErrNotSuccess = errors.New("request failed")
)

// RoundTripper sends one encoded request and returns the encoded reply.
type RoundTripper interface {
	RoundTrip(ctx context.Context, req []byte) ([]byte, error)
}

// Clock is advanced once before every request; the new value is sent as the
// request's client_timestamp.
type Clock interface {
	Advance() int64
}

// Client is the request/reply side of the protocol for one user.
type Client struct {
	userID    string
	transport RoundTripper
	clock     Clock
	logger    *slog.Logger
	newID     func() string
}

// NewClient creates a request client acting as userID.
func NewClient(userID string, rt RoundTripper, clock Clock, logger *slog.Logger) *Client {
	return &Client{
		userID:    userID,
		transport: rt,
		clock:     clock,
		logger:    logger,
		newID:     uuid.NewString,
	}
}

// CreatePost publishes a post authored by the client's user.
func (c *Client) CreatePost(ctx context.Context, content string) (*Response, error) {
	return c.do(ctx, TypeCreatePost, func(h requestHeader) any {
		return createPostRequest{requestHeader: h, UserID: c.userID, Content: content}
	})
}

// SendPrivateMessage sends content to receiverID.
func (c *Client) SendPrivateMessage(ctx context.Context, receiverID, content string) (*Response, error) {
	return c.do(ctx, TypeSendPrivateMessage, func(h requestHeader) any {
		return privateMessageRequest{requestHeader: h, SenderID: c.userID, ReceiverID: receiverID, Content: content}
	})
}

// FollowUser asks the server to record that the client follows targetID.
func (c *Client) FollowUser(ctx context.Context, targetID string) (*Response, error) {
	return c.do(ctx, TypeFollowUser, func(h requestHeader) any {
		return followRequest{requestHeader: h, FollowerID: c.userID, TargetUserID: targetID}
	})
}

// GetFollowing fetches the ids the client already follows.
func (c *Client) GetFollowing(ctx context.Context) (*Response, error) {
	return c.do(ctx, TypeGetFollowing, func(h requestHeader) any {
		return userRequest{requestHeader: h, UserID: c.userID}
	})
}

// GetAllPosts fetches every post the server holds, newest first.
func (c *Client) GetAllPosts(ctx context.Context) (*Response, error) {
	return c.do(ctx, TypeGetAllPosts, func(h requestHeader) any {
		return userRequest{requestHeader: h, UserID: c.userID}
	})
}

// GetReplicationStatus fetches the answering server's replication counters.
func (c *Client) GetReplicationStatus(ctx context.Context) (*Response, error) {
	return c.do(ctx, TypeGetReplicationStatus, func(h requestHeader) any {
		return userRequest{requestHeader: h, UserID: c.userID}
	})
}

func (c *Client) do(ctx context.Context, reqType string, build func(requestHeader) any) (*Response, error) {
	header := requestHeader{
		Type:            reqType,
		RequestID:       c.newID(),
		ClientTimestamp: c.clock.Advance(),
	}

	payload, err := json.Marshal(build(header))
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", reqType, err)
	}

	c.logger.Info("sending request",
		"type", reqType,
		"request_id", header.RequestID,
		"client_timestamp", header.ClientTimestamp,
	)

	reply, err := c.transport.RoundTrip(ctx, payload)
	if err != nil {
		c.logger.Error("request failed", "type", reqType, "request_id", header.RequestID, "error", err)
		return nil, fmt.Errorf("%s: %w", reqType, err)
	}

	var resp Response
	if err := json.Unmarshal(reply, &resp); err != nil {
		c.logger.Error("invalid response", "type", reqType, "request_id", header.RequestID, "error", err)
		return nil, fmt.Errorf("%s: unmarshal response: %w", reqType, err)
	}

	if resp.OK() {
		c.logger.Info("request succeeded", "type", reqType, "request_id", header.RequestID, "message", resp.Message)
	} else {
		c.logger.Warn("request rejected",
			"type", reqType,
			"request_id", header.RequestID,
			"status", resp.Status,
			"message", resp.Message,
		)
	}
	return &resp, nil
}
