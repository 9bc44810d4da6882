// Package listener runs the background loop that consumes subscription
// frames and feeds accepted events into the event store.
package listener

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/blackmichael/socialfeed-client/internal/clock"
	"github.com/blackmichael/socialfeed-client/internal/domain"
	"github.com/blackmichael/socialfeed-client/internal/topic"
)

const (
	previewLen           = 100
	defaultErrorBackoff  = time.Second
	defaultStatsInterval = 30 * time.Second
)

// Options configures a Listener. Archive and Notifier are optional.
type Options struct {
	SelfID   string
	Source   domain.FrameSource
	Follows  *domain.FollowSet
	Clock    *clock.Clock
	Store    *domain.EventStore
	Archive  domain.EventArchive
	Notifier domain.Notifier
	Metrics  *Metrics
	Logger   *slog.Logger

	// ErrorBackoff is the pause after a transport receive failure.
	ErrorBackoff time.Duration

	// StatsInterval is how often a stats line is logged.
	StatsInterval time.Duration
}

// Listener is the single background consumer of the subscription transport.
// Frames are handled strictly in arrival order: classify, filter, reconcile
// the clock, append, notify.
type Listener struct {
	opts Options

	cancel context.CancelFunc
	done   chan struct{}

	frames, accepted, filtered int64
}

// New creates a listener. Call Start to run it.
func New(opts Options) *Listener {
	if opts.ErrorBackoff <= 0 {
		opts.ErrorBackoff = defaultErrorBackoff
	}
	if opts.StatsInterval <= 0 {
		opts.StatsInterval = defaultStatsInterval
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	return &Listener{opts: opts}
}

// Start runs the loop on its own goroutine until Stop is called or ctx is
// cancelled.
func (l *Listener) Start(ctx context.Context) {
	ctx, l.cancel = context.WithCancel(ctx)
	l.done = make(chan struct{})
	go func() {
		defer close(l.done)
		l.Run(ctx)
	}()
}

// Stop signals shutdown and waits for the loop to exit. Because each receive
// waits at most one poll interval, this returns within roughly that bound.
func (l *Listener) Stop() {
	if l.cancel == nil {
		return
	}
	l.cancel()
	<-l.done
}

// Run processes frames until ctx is cancelled. Once cancellation is observed
// no further frame is handled.
func (l *Listener) Run(ctx context.Context) {
	logger := l.opts.Logger
	logger.Info("message listener started")
	defer logger.Info("message listener stopped")

	lastStats := time.Now()
	for ctx.Err() == nil {
		frame, err := l.opts.Source.Receive(ctx)
		switch {
		case ctx.Err() != nil:
			return
		case errors.Is(err, domain.ErrNoFrame):
		case err != nil:
			l.opts.Metrics.ReceiveErrors.Inc()
			logger.Error("error in message listener", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(l.opts.ErrorBackoff):
			}
		default:
			l.handle(ctx, frame)
		}

		if time.Since(lastStats) >= l.opts.StatsInterval {
			logger.Info("listener stats",
				"frames_received", l.frames,
				"events_accepted", l.accepted,
				"events_filtered", l.filtered,
			)
			lastStats = time.Now()
		}
	}
}

func (l *Listener) handle(ctx context.Context, frame string) {
	logger := l.opts.Logger
	l.frames++
	l.opts.Metrics.Frames.Inc()
	logger.Debug("received frame", "preview", topic.Preview(frame, previewLen))

	ev, err := topic.Classify(frame)
	if err != nil {
		l.opts.Metrics.Unrecognized.Inc()
		logger.Warn("dropping frame", "error", err, "preview", topic.Preview(frame, previewLen))
		return
	}

	if ok, reason := domain.Accept(ev, l.opts.SelfID, l.opts.Follows); !ok {
		l.filtered++
		l.opts.Metrics.Filtered.WithLabelValues(reason).Inc()
		logger.Info("event filtered out", "reason", reason, "source", describe(ev))
		return
	}

	if l.opts.Clock.Reconcile(ev, describe(ev)) {
		l.opts.Metrics.ClockResyncs.Inc()
	}

	switch e := ev.(type) {
	case domain.Post:
		l.opts.Store.AppendPost(e)
		l.opts.Metrics.Accepted.WithLabelValues("post").Inc()
		logger.Info("received post", "author", e.AuthorID, "content", e.Content)
		if l.opts.Archive != nil {
			if err := l.opts.Archive.SavePost(ctx, e); err != nil {
				logger.Error("failed to archive post", "author", e.AuthorID, "error", err)
			}
		}
	case domain.PrivateMessage:
		l.opts.Store.AppendMessage(e)
		l.opts.Metrics.Accepted.WithLabelValues("message").Inc()
		logger.Info("received private message", "sender", e.SenderID, "content", e.Content)
		if l.opts.Archive != nil {
			if err := l.opts.Archive.SaveMessage(ctx, e); err != nil {
				logger.Error("failed to archive private message", "sender", e.SenderID, "error", err)
			}
		}
	}
	l.accepted++

	if l.opts.Notifier != nil {
		l.opts.Notifier.Notify(ev)
	}
}

func describe(ev domain.Event) string {
	switch e := ev.(type) {
	case domain.Post:
		return "post from " + e.AuthorID
	case domain.PrivateMessage:
		return "private message from " + e.SenderID
	default:
		return "unknown event"
	}
}
