// Package session wires one user's client together: the logical clock, the
// follow set, the event store, the background listener and the request
// client.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/blackmichael/socialfeed-client/internal/clock"
	"github.com/blackmichael/socialfeed-client/internal/domain"
	"github.com/blackmichael/socialfeed-client/internal/listener"
	"github.com/blackmichael/socialfeed-client/internal/requestclient"
)

// Requests is the request/reply surface the session drives.
type Requests interface {
	CreatePost(ctx context.Context, content string) (*requestclient.Response, error)
	SendPrivateMessage(ctx context.Context, receiverID, content string) (*requestclient.Response, error)
	FollowUser(ctx context.Context, targetID string) (*requestclient.Response, error)
	GetFollowing(ctx context.Context) (*requestclient.Response, error)
	GetAllPosts(ctx context.Context) (*requestclient.Response, error)
}

// Options configures a Session. Archive, Notifier and Metrics are optional.
type Options struct {
	UserID   string
	Requests Requests
	Source   domain.FrameSource
	Clock    *clock.Clock
	Archive  domain.EventArchive
	Notifier domain.Notifier
	Metrics  *listener.Metrics
	Logger   *slog.Logger

	// ErrorBackoff is passed to the listener.
	ErrorBackoff time.Duration
}

// Session is a running client. The listener goroutine starts in New and
// stops in Close.
type Session struct {
	userID   string
	requests Requests
	source   domain.FrameSource
	clock    *clock.Clock
	follows  *domain.FollowSet
	store    *domain.EventStore
	listener *listener.Listener
	logger   *slog.Logger
}

// New subscribes to the user's own post and private-message channels and
// starts the listener.
func New(ctx context.Context, opts Options) (*Session, error) {
	s := &Session{
		userID:   opts.UserID,
		requests: opts.Requests,
		source:   opts.Source,
		clock:    opts.Clock,
		follows:  domain.NewFollowSet(opts.UserID),
		store:    domain.NewEventStore(),
		logger:   opts.Logger,
	}

	for _, t := range []string{domain.PostTopic(s.userID), domain.MessageTopic(s.userID)} {
		if err := s.source.Subscribe(t); err != nil {
			return nil, fmt.Errorf("subscribe %q: %w", t, err)
		}
		s.logger.Info("subscription requested", "topic", t)
	}

	s.listener = listener.New(listener.Options{
		SelfID:       s.userID,
		Source:       s.source,
		Follows:      s.follows,
		Clock:        s.clock,
		Store:        s.store,
		Archive:      opts.Archive,
		Notifier:     opts.Notifier,
		Metrics:      opts.Metrics,
		Logger:       s.logger,
		ErrorBackoff: opts.ErrorBackoff,
	})
	s.listener.Start(ctx)

	return s, nil
}

// UserID returns the session's identity.
func (s *Session) UserID() string {
	return s.userID
}

// LoadFollowing asks the server who the user already follows, adds them to
// the follow set and subscribes to their post channels. It returns the
// number of ids loaded.
func (s *Session) LoadFollowing(ctx context.Context) (int, error) {
	s.logger.Info("loading existing following relationships")

	resp, err := s.requests.GetFollowing(ctx)
	if err != nil {
		return 0, fmt.Errorf("load following: %w", err)
	}
	if !resp.OK() {
		s.logger.Info("no existing following loaded", "status", resp.Status, "message", resp.Message)
		return 0, nil
	}

	for _, id := range resp.Following {
		s.addFollow(id)
	}
	s.logger.Info("loaded following", "count", len(resp.Following), "following", s.follows.List())
	return len(resp.Following), nil
}

// Follow sends a follow request and, on success, starts accepting and
// receiving posts from targetID.
func (s *Session) Follow(ctx context.Context, targetID string) (*requestclient.Response, error) {
	resp, err := s.requests.FollowUser(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if resp.OK() {
		s.addFollow(targetID)
		s.logger.Info("following user", "target", targetID, "following_count", s.follows.Len())
	} else {
		s.logger.Warn("failed to follow user", "target", targetID, "message", resp.Message)
	}
	return resp, nil
}

func (s *Session) addFollow(id string) {
	s.follows.Add(id)
	if err := s.source.Subscribe(domain.PostTopic(id)); err != nil {
		s.logger.Error("subscribe failed", "target", id, "error", err)
	}
}

// CreatePost publishes a post.
func (s *Session) CreatePost(ctx context.Context, content string) (*requestclient.Response, error) {
	return s.requests.CreatePost(ctx, content)
}

// SendPrivateMessage sends a private message to receiverID.
func (s *Session) SendPrivateMessage(ctx context.Context, receiverID, content string) (*requestclient.Response, error) {
	return s.requests.SendPrivateMessage(ctx, receiverID, content)
}

// AllPosts fetches every post held by the server.
func (s *Session) AllPosts(ctx context.Context) (*requestclient.Response, error) {
	return s.requests.GetAllPosts(ctx)
}

// Posts returns a snapshot of posts received from followed users.
func (s *Session) Posts() []domain.Post {
	return s.store.Posts()
}

// Messages returns a snapshot of received private messages.
func (s *Session) Messages() []domain.PrivateMessage {
	return s.store.Messages()
}

// IsFollowing reports whether id is in the follow set.
func (s *Session) IsFollowing(id string) bool {
	return s.follows.Contains(id)
}

// Following lists the follow set, self included.
func (s *Session) Following() []string {
	return s.follows.List()
}

// Clock exposes the session's logical clock.
func (s *Session) Clock() *clock.Clock {
	return s.clock
}

// Close stops the listener and then releases the subscription transport.
func (s *Session) Close() error {
	s.logger.Info("client shutting down")
	s.listener.Stop()
	if err := s.source.Close(); err != nil {
		return fmt.Errorf("close subscription: %w", err)
	}
	return nil
}
