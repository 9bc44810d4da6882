package console

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/blackmichael/socialfeed-client/internal/clock"
	"github.com/blackmichael/socialfeed-client/internal/domain"
	"github.com/blackmichael/socialfeed-client/internal/requestclient"
)

type fakeSession struct {
	clock    *clock.Clock
	posts    []domain.Post
	messages []domain.PrivateMessage
	follows  map[string]bool

	created []string
	sent    [][2]string
	resp    *requestclient.Response
	err     error
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		clock:   clock.New(time.UnixMilli(1_000_000), discardLogger()),
		follows: map[string]bool{"alice": true},
		resp:    &requestclient.Response{Status: requestclient.StatusSuccess},
	}
}

func (f *fakeSession) UserID() string { return "alice" }

func (f *fakeSession) CreatePost(_ context.Context, content string) (*requestclient.Response, error) {
	f.created = append(f.created, content)
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeSession) Follow(_ context.Context, target string) (*requestclient.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.resp.OK() {
		f.follows[target] = true
	}
	return f.resp, nil
}

func (f *fakeSession) AllPosts(context.Context) (*requestclient.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeSession) SendPrivateMessage(_ context.Context, receiver, content string) (*requestclient.Response, error) {
	f.sent = append(f.sent, [2]string{receiver, content})
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeSession) Posts() []domain.Post              { return f.posts }
func (f *fakeSession) Messages() []domain.PrivateMessage { return f.messages }
func (f *fakeSession) IsFollowing(id string) bool        { return f.follows[id] }
func (f *fakeSession) Clock() *clock.Clock               { return f.clock }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runConsole(t *testing.T, s Session, input string) string {
	t.Helper()
	var out bytes.Buffer
	c := New(strings.NewReader(input), &out, discardLogger())
	c.clear = false
	if err := c.Run(context.Background(), s); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return out.String()
}

func TestRun_CreatePost(t *testing.T) {
	s := newFakeSession()
	out := runConsole(t, s, "1\nhello world\n\n7\n")

	if diff := cmp.Diff([]string{"hello world"}, s.created); diff != "" {
		t.Errorf("created posts mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(out, "Post created successfully!") {
		t.Errorf("output missing success line:\n%s", out)
	}
	if !strings.Contains(out, "Bye!") {
		t.Errorf("output missing exit line:\n%s", out)
	}
}

func TestRun_CreatePostTransportError(t *testing.T) {
	s := newFakeSession()
	s.err = requestclient.ErrTimeout
	out := runConsole(t, s, "1\nhello\n\n7\n")

	if !strings.Contains(out, "Failed to create post: ") {
		t.Errorf("output missing failure line:\n%s", out)
	}
}

func TestRun_Follow(t *testing.T) {
	tests := []struct {
		name string
		resp *requestclient.Response
		want string
	}{
		{
			name: "success",
			resp: &requestclient.Response{Status: requestclient.StatusSuccess},
			want: "Now following user bob",
		},
		{
			name: "rejected",
			resp: &requestclient.Response{Status: "error", Message: "unknown user"},
			want: "Failed to follow user bob",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newFakeSession()
			s.resp = tt.resp
			out := runConsole(t, s, "2\n bob \n\n7\n")
			if !strings.Contains(out, tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, out)
			}
		})
	}
}

func TestRun_ShowNotificationsNewestFirst(t *testing.T) {
	s := newFakeSession()
	s.follows["bob"] = true
	s.posts = []domain.Post{
		{AuthorID: "bob", Content: "older", CreatedAt: 1000},
		{AuthorID: "carol", Content: "newer", CreatedAt: 2000},
	}
	out := runConsole(t, s, "3\n\n7\n")

	newer := strings.Index(out, "Content: newer")
	older := strings.Index(out, "Content: older")
	if newer < 0 || older < 0 || newer > older {
		t.Fatalf("posts not listed newest first:\n%s", out)
	}
	if got := strings.Count(out, "Status: You are following this user"); got != 1 {
		t.Errorf("following status lines = %d, want 1", got)
	}
}

func TestRun_ShowNotificationsEmpty(t *testing.T) {
	out := runConsole(t, newFakeSession(), "3\n\n7\n")
	if !strings.Contains(out, "No posts to display") {
		t.Errorf("output missing empty line:\n%s", out)
	}
}

func TestRun_AllPosts(t *testing.T) {
	s := newFakeSession()
	s.resp = &requestclient.Response{
		Status: requestclient.StatusSuccess,
		Posts: []requestclient.PostRecord{
			{UserID: "dave", Content: "from the server", CreatedAt: 5000},
		},
	}
	out := runConsole(t, s, "4\n\n7\n")

	for _, want := range []string{"User: dave", "Content: from the server"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRun_AllPostsFailure(t *testing.T) {
	s := newFakeSession()
	s.resp = &requestclient.Response{Status: "error"}
	out := runConsole(t, s, "4\n\n7\n")

	if !strings.Contains(out, "Failed to fetch posts: Unknown error") {
		t.Errorf("output missing failure line:\n%s", out)
	}
}

func TestRun_SendPrivateMessage(t *testing.T) {
	s := newFakeSession()
	out := runConsole(t, s, "5\nbob\nsecret\n\n7\n")

	if diff := cmp.Diff([][2]string{{"bob", "secret"}}, s.sent); diff != "" {
		t.Errorf("sent messages mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(out, "Message sent to user bob") {
		t.Errorf("output missing success line:\n%s", out)
	}
}

func TestRun_ShowMessages(t *testing.T) {
	s := newFakeSession()
	s.messages = []domain.PrivateMessage{{SenderID: "bob", ReceiverID: "alice", Content: "psst", CreatedAt: 1000}}
	out := runConsole(t, s, "6\n\n7\n")

	for _, want := range []string{"Message #1", "From: User bob", "Content: psst"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRun_AdjustClock(t *testing.T) {
	s := newFakeSession()
	start := s.clock.Now()

	runConsole(t, s, "8\n\n8\n\n9\n\n7\n")

	if got, want := s.clock.Now(), start+1000; got != want {
		t.Errorf("clock = %d, want %d", got, want)
	}
}

func TestRun_InvalidOption(t *testing.T) {
	out := runConsole(t, newFakeSession(), "42\n\n7\n")
	if !strings.Contains(out, "Invalid option. Please choose 1-9.") {
		t.Errorf("output missing invalid option line:\n%s", out)
	}
}

func TestRun_EndOfInput(t *testing.T) {
	out := runConsole(t, newFakeSession(), "")
	if !strings.Contains(out, "Choose an option: ") {
		t.Errorf("menu never shown:\n%s", out)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	c := New(strings.NewReader("1\n"), &out, discardLogger())
	if err := c.Run(ctx, newFakeSession()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("output = %q, want nothing", out.String())
	}
}

func TestNotify(t *testing.T) {
	tests := []struct {
		name   string
		inMenu bool
		ev     domain.Event
		want   string
	}{
		{
			name: "post",
			ev:   domain.Post{AuthorID: "bob", Content: "hi"},
			want: "\n[NOTIFICATION] New post from User bob: hi\n",
		},
		{
			name: "private message",
			ev:   domain.PrivateMessage{SenderID: "bob", ReceiverID: "alice", Content: "psst"},
			want: "\n[NOTIFICATION] New private message from User bob: psst\n",
		},
		{
			name:   "suppressed while menu waits",
			inMenu: true,
			ev:     domain.Post{AuthorID: "bob", Content: "hi"},
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			c := New(strings.NewReader(""), &out, discardLogger())
			c.inMenu.Store(tt.inMenu)

			c.Notify(tt.ev)

			if got := out.String(); got != tt.want {
				t.Errorf("Notify() wrote %q, want %q", got, tt.want)
			}
		})
	}
}
