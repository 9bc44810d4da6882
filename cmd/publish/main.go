package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	zmq "github.com/pebbe/zmq4"

	"github.com/blackmichael/socialfeed-client/internal/clock"
	"github.com/blackmichael/socialfeed-client/internal/requestclient"
	"github.com/blackmichael/socialfeed-client/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		userID  string
		broker  string
		op      string
		target  string
		content string
		timeout time.Duration
		verbose bool
	)

	flag.StringVar(&userID, "user", envOrDefault("CLIENT_USER_ID", ""), "User ID sending the request")
	flag.StringVar(&broker, "broker", envOrDefault("BROKER_ADDRESS", "tcp://localhost:5555"), "Request/reply broker endpoint")
	flag.StringVar(&op, "op", "", "Request to send: post, follow, pm, following, posts, status")
	flag.StringVar(&target, "to", "", "Target user for follow and pm")
	flag.StringVar(&content, "content", "", "Body for post and pm")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "How long to wait for the reply")
	flag.BoolVar(&verbose, "v", false, "Log request traffic to stderr")
	flag.Parse()

	if userID == "" {
		return fmt.Errorf("--user is required (or set CLIENT_USER_ID)")
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	zctx, err := zmq.NewContext()
	if err != nil {
		return fmt.Errorf("create zmq context: %w", err)
	}
	defer zctx.Term()

	requester, err := transport.NewZMQRequester(zctx, broker, timeout, logger)
	if err != nil {
		return fmt.Errorf("connect broker: %w", err)
	}
	defer requester.Close()

	client := requestclient.NewClient(userID, requester, clock.New(time.Now(), logger), logger)
	ctx := context.Background()

	var resp *requestclient.Response
	switch op {
	case "post":
		if content == "" {
			return fmt.Errorf("--content is required for post")
		}
		resp, err = client.CreatePost(ctx, content)
	case "follow":
		if target == "" {
			return fmt.Errorf("--to is required for follow")
		}
		resp, err = client.FollowUser(ctx, target)
	case "pm":
		if target == "" || content == "" {
			return fmt.Errorf("--to and --content are required for pm")
		}
		resp, err = client.SendPrivateMessage(ctx, target, content)
	case "following":
		resp, err = client.GetFollowing(ctx)
	case "posts":
		resp, err = client.GetAllPosts(ctx)
	case "status":
		resp, err = client.GetReplicationStatus(ctx)
	default:
		return fmt.Errorf("unknown --op %q", op)
	}
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	fmt.Println(string(out))

	return resp.Err()
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
