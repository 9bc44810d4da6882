package transport

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	zmq "github.com/pebbe/zmq4"

	"github.com/blackmichael/socialfeed-client/internal/domain"
)

var endpointSeq atomic.Int64

func inprocEndpoint(name string) string {
	return fmt.Sprintf("inproc://%s-%d", name, endpointSeq.Add(1))
}

func newContext(t *testing.T) *zmq.Context {
	t.Helper()
	zctx, err := zmq.NewContext()
	if err != nil {
		t.Fatalf("NewContext() error = %v", err)
	}
	t.Cleanup(func() { zctx.Term() })
	return zctx
}

func TestZMQSubscriber_ReceivesSubscribedTopics(t *testing.T) {
	zctx := newContext(t)
	addr := inprocEndpoint("pub")

	pub, err := zctx.NewSocket(zmq.PUB)
	if err != nil {
		t.Fatal(err)
	}
	defer pub.Close()
	pub.SetLinger(0)
	if err := pub.Bind(addr); err != nil {
		t.Fatal(err)
	}

	sub, err := NewZMQSubscriber(zctx, addr, 20*time.Millisecond, discardLogger())
	if err != nil {
		t.Fatalf("NewZMQSubscriber() error = %v", err)
	}
	defer sub.Close()
	sub.Subscribe("alice:")

	ctx := context.Background()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		// Subscriptions propagate asynchronously, so keep publishing.
		pub.Send(`carol:{"ignored":true}`, 0)
		pub.Send(`alice:{"type":"new_post"}`, 0)

		frame, err := sub.Receive(ctx)
		if errors.Is(err, domain.ErrNoFrame) {
			continue
		}
		if err != nil {
			t.Fatalf("Receive() error = %v", err)
		}
		if frame != `alice:{"type":"new_post"}` {
			t.Fatalf("Receive() = %q", frame)
		}
		return
	}
	t.Fatal("no frame received before deadline")
}

func TestZMQSubscriber_ReceiveTimesOut(t *testing.T) {
	zctx := newContext(t)
	sub, err := NewZMQSubscriber(zctx, inprocEndpoint("silent"), 10*time.Millisecond, discardLogger())
	if err != nil {
		t.Fatalf("NewZMQSubscriber() error = %v", err)
	}
	defer sub.Close()
	sub.Subscribe("")

	if _, err := sub.Receive(context.Background()); !errors.Is(err, domain.ErrNoFrame) {
		t.Errorf("Receive() error = %v, want ErrNoFrame", err)
	}
}

func TestZMQRequester_TimeoutThenRecover(t *testing.T) {
	zctx := newContext(t)
	addr := inprocEndpoint("broker")

	rep, err := zctx.NewSocket(zmq.REP)
	if err != nil {
		t.Fatal(err)
	}
	defer rep.Close()
	rep.SetLinger(0)
	if err := rep.Bind(addr); err != nil {
		t.Fatal(err)
	}

	req, err := NewZMQRequester(zctx, addr, 50*time.Millisecond, discardLogger())
	if err != nil {
		t.Fatalf("NewZMQRequester() error = %v", err)
	}
	defer req.Close()

	// Nobody answers the first request.
	if _, err := req.RoundTrip(context.Background(), []byte("first")); !errors.Is(err, ErrTimeout) {
		t.Fatalf("RoundTrip() error = %v, want ErrTimeout", err)
	}

	// The REP side may still see the abandoned request; answer it into the
	// void and echo the next one.
	done := make(chan error, 1)
	go func() {
		rep.SetRcvtimeo(2 * time.Second)
		for {
			msg, err := rep.RecvBytes(0)
			if err != nil {
				done <- err
				return
			}
			if string(msg) == "first" {
				if _, err := rep.SendBytes([]byte("late"), 0); err != nil {
					done <- err
					return
				}
				continue
			}
			_, err = rep.SendBytes(append([]byte("echo:"), msg...), 0)
			done <- err
			return
		}
	}()

	req.timeout = time.Second
	reply, err := req.RoundTrip(context.Background(), []byte("second"))
	if err != nil {
		t.Fatalf("RoundTrip() after reconnect error = %v", err)
	}
	if string(reply) != "echo:second" {
		t.Errorf("reply = %q, want echo:second", reply)
	}
	if err := <-done; err != nil {
		t.Errorf("REP side error = %v", err)
	}
}
