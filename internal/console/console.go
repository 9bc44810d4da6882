// Package console is the interactive control loop: a numbered text menu that
// drives the session and prints notifications pushed by the listener.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blackmichael/socialfeed-client/internal/clock"
	"github.com/blackmichael/socialfeed-client/internal/domain"
	"github.com/blackmichael/socialfeed-client/internal/requestclient"
)

const clearSequence = "\033[2J\033[H"

// Session is what the menu operates on.
type Session interface {
	UserID() string
	CreatePost(ctx context.Context, content string) (*requestclient.Response, error)
	Follow(ctx context.Context, targetID string) (*requestclient.Response, error)
	AllPosts(ctx context.Context) (*requestclient.Response, error)
	SendPrivateMessage(ctx context.Context, receiverID, content string) (*requestclient.Response, error)
	Posts() []domain.Post
	Messages() []domain.PrivateMessage
	IsFollowing(id string) bool
	Clock() *clock.Clock
}

// Console reads menu choices from in and writes screens to out. It also
// implements domain.Notifier; Notify may be called from another goroutine.
type Console struct {
	in     *bufio.Scanner
	out    io.Writer
	outMu  sync.Mutex
	logger *slog.Logger

	// inMenu is set while the menu prompt waits for a choice. Notifications
	// are printed only while it is unset; a late or lost print is accepted
	// because the event is still in the store.
	inMenu atomic.Bool

	clear bool
}

// New returns a Console over the given streams.
func New(in io.Reader, out io.Writer, logger *slog.Logger) *Console {
	return &Console{
		in:     bufio.NewScanner(in),
		out:    out,
		logger: logger,
		clear:  true,
	}
}

// Notify prints an accepted event unless the menu prompt is waiting.
func (c *Console) Notify(ev domain.Event) {
	if c.inMenu.Load() {
		return
	}

	var text string
	switch e := ev.(type) {
	case domain.Post:
		text = fmt.Sprintf("New post from User %s: %s", e.AuthorID, e.Content)
	case domain.PrivateMessage:
		text = fmt.Sprintf("New private message from User %s: %s", e.SenderID, e.Content)
	default:
		return
	}
	c.printf("\n[NOTIFICATION] %s\n", text)
}

// Run drives the menu until the user exits, input ends or ctx is cancelled
// between choices.
func (c *Console) Run(ctx context.Context, s Session) error {
	for ctx.Err() == nil {
		c.showMenu(s)

		c.inMenu.Store(true)
		option, ok := c.readLine()
		c.inMenu.Store(false)
		if !ok {
			c.logger.Info("input closed, leaving menu")
			return c.in.Err()
		}

		switch strings.TrimSpace(option) {
		case "1":
			c.createPost(ctx, s)
		case "2":
			c.follow(ctx, s)
		case "3":
			c.logger.Info("user action", "action", "view notifications")
			c.displayPosts(s, postRows(s.Posts()))
		case "4":
			c.allPosts(ctx, s)
		case "5":
			c.sendMessage(ctx, s)
		case "6":
			c.logger.Info("user action", "action", "view private messages")
			c.displayMessages(s)
		case "7":
			c.clearScreen()
			c.printf("Bye!\n")
			c.logger.Info("user action", "action", "exit")
			return nil
		case "8":
			c.adjustClock(s, 1, "ADVANCE CLOCK")
		case "9":
			c.adjustClock(s, -1, "DELAY CLOCK")
		default:
			c.clearScreen()
			c.printf("Invalid option. Please choose 1-9.\n")
			c.logger.Info("user action", "action", "invalid option", "option", option)
			c.pause()
		}
	}
	return nil
}

func (c *Console) showMenu(s Session) {
	c.clearScreen()
	c.printf("SOCIAL NETWORK CLIENT - User: %s\n", s.UserID())
	c.printf("Current Time: %s\n", s.Clock().Display())
	c.printf("%s\n", rule(50))
	c.printf("1. Create post\n")
	c.printf("2. Follow user\n")
	c.printf("3. Show notifications\n")
	c.printf("4. Show all posts\n")
	c.printf("5. Send private message\n")
	c.printf("6. Show received messages\n")
	c.printf("7. Exit\n")
	c.printf("8. Advance clock (+1 second)\n")
	c.printf("9. Delay clock (-1 second)\n")
	c.printf("%s\n", rule(50))
	c.printf("Choose an option: ")
}

func (c *Console) createPost(ctx context.Context, s Session) {
	c.header(s, "CREATE NEW POST", 30)
	content, _ := c.prompt("Enter post content: ")

	resp, err := s.CreatePost(ctx, content)
	switch {
	case err != nil:
		c.printf("Failed to create post: %v\n", err)
	case resp.OK():
		c.printf("Post created successfully!\n")
	default:
		c.printf("Failed to create post\n")
	}
	c.logger.Info("user action", "action", "create post", "ok", err == nil && resp.OK())
	c.pause()
}

func (c *Console) follow(ctx context.Context, s Session) {
	c.header(s, "FOLLOW USER", 20)
	target, _ := c.prompt("Enter user ID to follow: ")
	target = strings.TrimSpace(target)

	resp, err := s.Follow(ctx, target)
	ok := err == nil && resp.OK()
	if ok {
		c.printf("Now following user %s\n", target)
	} else {
		c.printf("Failed to follow user %s\n", target)
	}
	c.logger.Info("user action", "action", "follow user", "target", target, "ok", ok)
	c.pause()
}

func (c *Console) allPosts(ctx context.Context, s Session) {
	c.printf("Loading all posts...\n")
	c.logger.Info("user action", "action", "view all posts")

	resp, err := s.AllPosts(ctx)
	switch {
	case err != nil:
		c.clearScreen()
		c.printf("Failed to fetch posts: %v\n", err)
		c.pause()
	case !resp.OK():
		c.clearScreen()
		c.printf("Failed to fetch posts: %s\n", orUnknown(resp.Message))
		c.pause()
	case len(resp.Posts) == 0:
		c.clearScreen()
		c.printf("No posts available\n")
		c.pause()
	default:
		rows := make([]row, 0, len(resp.Posts))
		for _, p := range resp.Posts {
			rows = append(rows, row{user: p.UserID, content: p.Content, createdAt: p.CreatedAt})
		}
		c.displayPosts(s, rows)
	}
}

func (c *Console) sendMessage(ctx context.Context, s Session) {
	c.header(s, "SEND PRIVATE MESSAGE", 30)
	receiver, _ := c.prompt("Enter receiver ID: ")
	receiver = strings.TrimSpace(receiver)
	content, _ := c.prompt("Enter message content: ")

	resp, err := s.SendPrivateMessage(ctx, receiver, content)
	switch {
	case err != nil:
		c.printf("Failed to send message: %v\n", err)
	case resp.OK():
		c.printf("Message sent to user %s\n", receiver)
	default:
		c.printf("Failed to send message: %s\n", orUnknown(resp.Message))
	}
	c.logger.Info("user action", "action", "send private message", "receiver", receiver, "ok", err == nil && resp.OK())
	c.pause()
}

func (c *Console) adjustClock(s Session, delta int, title string) {
	c.clearScreen()
	c.printf("%s\n", title)
	before, after := s.Clock().Adjust(delta)
	c.printf("Before: %s\n", clockTime(before))
	c.printf("After: %s\n", clockTime(after))
	c.logger.Info("user action", "action", "manual clock adjustment", "delta_seconds", delta)
	c.pause()
}

type row struct {
	user      string
	content   string
	createdAt int64
}

func postRows(posts []domain.Post) []row {
	rows := make([]row, 0, len(posts))
	for _, p := range posts {
		rows = append(rows, row{user: p.AuthorID, content: p.Content, createdAt: p.CreatedAt})
	}
	return rows
}

func (c *Console) displayPosts(s Session, rows []row) {
	c.clearScreen()
	c.logger.Info("displaying posts", "count", len(rows))
	c.printf("POSTS DISPLAY\n")
	c.printf("Current client time: %s\n", s.Clock().Display())
	c.printf("%s\n", rule(50))

	if len(rows) == 0 {
		c.printf("No posts to display\n")
		c.pause()
		return
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].createdAt > rows[j].createdAt })
	for i, r := range rows {
		c.printf("\nPost #%d\n", i+1)
		c.printf("User: %s\n", r.user)
		c.printf("Content: %s\n", r.content)
		c.printf("Time: %s\n", timestamp(r.createdAt))
		if s.IsFollowing(r.user) {
			c.printf("Status: You are following this user\n")
		}
		c.printf("%s\n", strings.Repeat("-", 40))
	}
	c.pause()
}

func (c *Console) displayMessages(s Session) {
	msgs := s.Messages()

	c.clearScreen()
	c.logger.Info("displaying private messages", "count", len(msgs))
	c.printf("PRIVATE MESSAGES\n")
	c.printf("Current client time: %s\n", s.Clock().Display())
	c.printf("%s\n", rule(50))

	if len(msgs) == 0 {
		c.printf("No messages to display\n")
		c.pause()
		return
	}

	for i, m := range msgs {
		c.printf("\nMessage #%d\n", i+1)
		c.printf("From: User %s\n", m.SenderID)
		c.printf("Content: %s\n", m.Content)
		c.printf("Time: %s\n", timestamp(m.CreatedAt))
		c.printf("%s\n", strings.Repeat("-", 40))
	}
	c.pause()
}

func (c *Console) header(s Session, title string, width int) {
	c.clearScreen()
	c.printf("%s\n", title)
	c.printf("Current time: %s\n", s.Clock().Display())
	c.printf("%s\n", rule(width))
}

func (c *Console) prompt(label string) (string, bool) {
	c.printf("%s", label)
	return c.readLine()
}

func (c *Console) pause() {
	c.printf("\nPress ENTER to continue...\n")
	c.readLine()
}

func (c *Console) readLine() (string, bool) {
	if !c.in.Scan() {
		return "", false
	}
	return c.in.Text(), true
}

func (c *Console) clearScreen() {
	if c.clear {
		c.printf("%s", clearSequence)
	}
}

func (c *Console) printf(format string, args ...any) {
	c.outMu.Lock()
	defer c.outMu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

func rule(n int) string {
	return strings.Repeat("=", n)
}

func orUnknown(msg string) string {
	if msg == "" {
		return "Unknown error"
	}
	return msg
}

func clockTime(millis int64) string {
	return time.UnixMilli(millis).Format(clock.DisplayLayout)
}

func timestamp(millis int64) string {
	return time.UnixMilli(millis).Format(time.DateTime)
}
