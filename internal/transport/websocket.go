package transport

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/blackmichael/socialfeed-client/internal/domain"
)

// subscribeRequest is the control message sent to the gateway for each topic.
type subscribeRequest struct {
	Op    string `json:"op"`
	Topic string `json:"topic"`
}

// WebSocketSubscriber receives frames from a WebSocket gateway that relays
// the pub/sub proxy as "<topic>:<json>" text messages. Topics are sent to the
// gateway and also matched locally by prefix, so frames outside the
// subscription are never returned. A lost connection is redialed on the next
// Receive and all topics are re-sent.
type WebSocketSubscriber struct {
	url          string
	pollInterval time.Duration
	dialer       *websocket.Dialer
	logger       *slog.Logger

	mu     sync.Mutex
	topics []string
	sess   *wsSession
	closed bool
}

// wsSession is one dialed connection and its read pump.
type wsSession struct {
	conn   *websocket.Conn
	frames chan string
	errs   chan error
	done   chan struct{}
}

// NewWebSocketSubscriber returns a subscriber for the gateway at url. The
// connection is established lazily by the first Receive.
func NewWebSocketSubscriber(url string, pollInterval time.Duration, logger *slog.Logger) *WebSocketSubscriber {
	return &WebSocketSubscriber{
		url:          url,
		pollInterval: pollInterval,
		dialer:       websocket.DefaultDialer,
		logger:       logger,
	}
}

// Subscribe adds a topic prefix and forwards it to the gateway if connected.
func (s *WebSocketSubscriber) Subscribe(topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.topics = append(s.topics, topic)
	if s.sess == nil {
		return nil
	}
	if err := s.sess.conn.WriteJSON(subscribeRequest{Op: "subscribe", Topic: topic}); err != nil {
		s.resetLocked()
		return fmt.Errorf("send subscribe %q: %w", topic, err)
	}
	s.logger.Info("subscribed", "topic", topic)
	return nil
}

// Receive waits one poll interval for a frame matching a subscribed topic.
func (s *WebSocketSubscriber) Receive(ctx context.Context) (string, error) {
	sess, err := s.session(ctx)
	if err != nil {
		return "", err
	}

	timer := time.NewTimer(s.pollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case frame := <-sess.frames:
		if !s.matches(frame) {
			return "", domain.ErrNoFrame
		}
		return frame, nil
	case err := <-sess.errs:
		s.mu.Lock()
		if s.sess == sess {
			s.resetLocked()
		}
		s.mu.Unlock()
		return "", fmt.Errorf("read gateway: %w", err)
	case <-timer.C:
		return "", domain.ErrNoFrame
	}
}

func (s *WebSocketSubscriber) session(ctx context.Context) (*wsSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if s.sess != nil {
		return s.sess, nil
	}

	s.logger.Info("connecting to gateway", "url", s.url)
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial gateway: %w", err)
	}
	for _, topic := range s.topics {
		if err := conn.WriteJSON(subscribeRequest{Op: "subscribe", Topic: topic}); err != nil {
			conn.Close()
			return nil, fmt.Errorf("send subscribe %q: %w", topic, err)
		}
	}

	sess := &wsSession{
		conn:   conn,
		frames: make(chan string),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}
	go sess.pump()
	s.sess = sess
	s.logger.Info("connected to gateway", "topics", len(s.topics))
	return sess, nil
}

func (sess *wsSession) pump() {
	for {
		_, msg, err := sess.conn.ReadMessage()
		if err != nil {
			sess.errs <- err
			return
		}
		select {
		case sess.frames <- string(msg):
		case <-sess.done:
			return
		}
	}
}

func (s *WebSocketSubscriber) matches(frame string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, topic := range s.topics {
		if strings.HasPrefix(frame, topic) {
			return true
		}
	}
	return false
}

func (s *WebSocketSubscriber) resetLocked() {
	if s.sess == nil {
		return
	}
	close(s.sess.done)
	s.sess.conn.Close()
	s.sess = nil
}

// Close disconnects from the gateway.
func (s *WebSocketSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.resetLocked()
	return nil
}
