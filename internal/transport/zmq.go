package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"syscall"
	"time"

	zmq "github.com/pebbe/zmq4"

	"github.com/blackmichael/socialfeed-client/internal/domain"
)

// ZMQSubscriber receives frames from the pub/sub proxy over a ZeroMQ SUB
// socket. ZeroMQ sockets must not be shared between goroutines, so topics
// passed to Subscribe are queued and applied by the goroutine calling
// Receive before its next read.
type ZMQSubscriber struct {
	sock   *zmq.Socket
	logger *slog.Logger

	mu      sync.Mutex
	pending []string
	closed  bool
}

// NewZMQSubscriber connects a SUB socket to addr. Each Receive blocks for at
// most pollInterval.
func NewZMQSubscriber(zctx *zmq.Context, addr string, pollInterval time.Duration, logger *slog.Logger) (*ZMQSubscriber, error) {
	sock, err := zctx.NewSocket(zmq.SUB)
	if err != nil {
		return nil, fmt.Errorf("create SUB socket: %w", err)
	}
	if err := sock.SetRcvtimeo(pollInterval); err != nil {
		sock.Close()
		return nil, fmt.Errorf("set receive timeout: %w", err)
	}
	if err := sock.SetLinger(0); err != nil {
		sock.Close()
		return nil, fmt.Errorf("set linger: %w", err)
	}
	if err := sock.Connect(addr); err != nil {
		sock.Close()
		return nil, fmt.Errorf("connect SUB %s: %w", addr, err)
	}

	logger.Info("connected to subscriber", "addr", addr)
	return &ZMQSubscriber{
		sock:   sock,
		logger: logger,
	}, nil
}

// Subscribe queues a topic prefix. It takes effect on the next Receive.
func (s *ZMQSubscriber) Subscribe(topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.pending = append(s.pending, topic)
	return nil
}

// Receive applies queued subscriptions and waits one poll interval for a
// frame.
func (s *ZMQSubscriber) Receive(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := s.applyPending(); err != nil {
		return "", err
	}

	frame, err := s.sock.Recv(0)
	if err != nil {
		if isTimeout(err) {
			return "", domain.ErrNoFrame
		}
		return "", fmt.Errorf("receive frame: %w", err)
	}
	return frame, nil
}

func (s *ZMQSubscriber) applyPending() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	topics := s.pending
	s.pending = nil
	s.mu.Unlock()

	for i, topic := range topics {
		if err := s.sock.SetSubscribe(topic); err != nil {
			// Requeue what was not applied so a later Receive retries it.
			s.mu.Lock()
			s.pending = append(topics[i:], s.pending...)
			s.mu.Unlock()
			return fmt.Errorf("subscribe %q: %w", topic, err)
		}
		s.logger.Info("subscribed", "topic", topic)
	}
	return nil
}

// Close closes the socket. It must not race with an in-flight Receive.
func (s *ZMQSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.sock.Close()
}

// ZMQRequester performs request/reply round trips over a ZeroMQ REQ socket
// connected to the broker. A REQ socket that missed its reply cannot send
// again, so after a timeout or error the socket is discarded and a fresh one
// is connected for the next request.
type ZMQRequester struct {
	zctx    *zmq.Context
	addr    string
	timeout time.Duration
	logger  *slog.Logger

	mu   sync.Mutex
	sock *zmq.Socket
}

// NewZMQRequester connects a REQ socket to addr. Replies slower than timeout
// fail with ErrTimeout.
func NewZMQRequester(zctx *zmq.Context, addr string, timeout time.Duration, logger *slog.Logger) (*ZMQRequester, error) {
	r := &ZMQRequester{
		zctx:    zctx,
		addr:    addr,
		timeout: timeout,
		logger:  logger,
	}
	if err := r.connect(); err != nil {
		return nil, err
	}
	logger.Info("connected to broker", "addr", addr)
	return r, nil
}

func (r *ZMQRequester) connect() error {
	sock, err := r.zctx.NewSocket(zmq.REQ)
	if err != nil {
		return fmt.Errorf("create REQ socket: %w", err)
	}
	if err := sock.SetLinger(0); err != nil {
		sock.Close()
		return fmt.Errorf("set linger: %w", err)
	}
	if err := sock.Connect(r.addr); err != nil {
		sock.Close()
		return fmt.Errorf("connect REQ %s: %w", r.addr, err)
	}
	r.sock = sock
	return nil
}

func (r *ZMQRequester) reset() {
	if r.sock != nil {
		r.sock.Close()
		r.sock = nil
	}
}

// RoundTrip sends req and returns the reply. The wait is bounded by the
// configured timeout or the context deadline, whichever is sooner.
func (r *ZMQRequester) RoundTrip(ctx context.Context, req []byte) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < timeout {
			timeout = d
		}
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
	}

	if r.sock == nil {
		if err := r.connect(); err != nil {
			return nil, err
		}
	}

	if err := r.sock.SetRcvtimeo(timeout); err != nil {
		return nil, fmt.Errorf("set receive timeout: %w", err)
	}
	if _, err := r.sock.SendBytes(req, 0); err != nil {
		r.reset()
		return nil, fmt.Errorf("send request: %w", err)
	}

	reply, err := r.sock.RecvBytes(0)
	if err != nil {
		r.reset()
		if isTimeout(err) {
			r.logger.Warn("request timed out, reconnecting REQ socket", "timeout", timeout)
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("receive reply: %w", err)
	}
	return reply, nil
}

// Close closes the REQ socket.
func (r *ZMQRequester) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset()
	return nil
}

func isTimeout(err error) bool {
	return zmq.AsErrno(err) == zmq.Errno(syscall.EAGAIN)
}
