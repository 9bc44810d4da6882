package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/blackmichael/socialfeed-client/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newGateway starts a gateway that waits for one subscribe request and then
// writes frames.
func newGateway(t *testing.T, frames []string, subscribed chan<- string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var req subscribeRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		subscribed <- req.Topic

		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebSocketSubscriber_FiltersByTopicPrefix(t *testing.T) {
	subscribed := make(chan string, 1)
	srv := newGateway(t, []string{
		`carol:{"type":"new_post"}`,
		`alice:PM:{"sender_id":"bob"}`,
	}, subscribed)

	sub := NewWebSocketSubscriber(wsURL(srv), 50*time.Millisecond, discardLogger())
	defer sub.Close()

	if err := sub.Subscribe("alice:PM:"); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	ctx := context.Background()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		frame, err := sub.Receive(ctx)
		if errors.Is(err, domain.ErrNoFrame) {
			continue
		}
		if err != nil {
			t.Fatalf("Receive() error = %v", err)
		}
		if frame != `alice:PM:{"sender_id":"bob"}` {
			t.Fatalf("Receive() = %q, want only the subscribed frame", frame)
		}
		if got := <-subscribed; got != "alice:PM:" {
			t.Errorf("gateway saw subscribe %q", got)
		}
		return
	}
	t.Fatal("no frame received before deadline")
}

func TestWebSocketSubscriber_ReceiveIsBounded(t *testing.T) {
	subscribed := make(chan string, 1)
	srv := newGateway(t, nil, subscribed)

	sub := NewWebSocketSubscriber(wsURL(srv), 20*time.Millisecond, discardLogger())
	defer sub.Close()
	sub.Subscribe("alice:")

	start := time.Now()
	_, err := sub.Receive(context.Background())
	if !errors.Is(err, domain.ErrNoFrame) {
		t.Fatalf("Receive() error = %v, want ErrNoFrame", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Receive() blocked for %v", elapsed)
	}
}

func TestWebSocketSubscriber_Closed(t *testing.T) {
	sub := NewWebSocketSubscriber("ws://127.0.0.1:1/none", 10*time.Millisecond, discardLogger())
	sub.Close()

	if _, err := sub.Receive(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Receive() after Close error = %v, want ErrClosed", err)
	}
	if err := sub.Subscribe("x:"); !errors.Is(err, ErrClosed) {
		t.Errorf("Subscribe() after Close error = %v, want ErrClosed", err)
	}
}
