package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite"

	"github.com/blackmichael/socialfeed-client/internal/domain"
)

const (
	kindPost    = "post"
	kindMessage = "message"
)

const schema = `
CREATE TABLE IF NOT EXISTS archived_events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	kind        TEXT    NOT NULL,
	peer_id     TEXT    NOT NULL,
	created_at  INTEGER NOT NULL,
	archived_at INTEGER NOT NULL,
	payload     BLOB    NOT NULL
);
CREATE INDEX IF NOT EXISTS archived_events_kind_id ON archived_events (kind, id);`

// Repository implements domain.EventArchive on a local SQLite file. Event
// bodies are stored as msgpack blobs.
type Repository struct {
	db *sql.DB
}

// archivedEvent is the msgpack body of one row. It covers both event kinds.
type archivedEvent struct {
	AuthorID        string `msgpack:"author_id,omitempty"`
	TopicAuthorID   string `msgpack:"topic_author_id,omitempty"`
	SenderID        string `msgpack:"sender_id,omitempty"`
	ReceiverID      string `msgpack:"receiver_id,omitempty"`
	TopicReceiverID string `msgpack:"topic_receiver_id,omitempty"`
	Content         string `msgpack:"content"`
	CreatedAt       int64  `msgpack:"created_at"`
	ClientTimestamp *int64 `msgpack:"client_timestamp,omitempty"`
	ServerTimestamp *int64 `msgpack:"server_timestamp,omitempty"`
}

// NewRepository opens (creating if needed) the archive at path and applies
// the schema. The caller should call Close when done.
func NewRepository(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer at a time; avoids SQLITE_BUSY between the listener and
	// status readers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// SavePost archives an accepted post.
func (r *Repository) SavePost(ctx context.Context, p domain.Post) error {
	return r.insert(ctx, kindPost, p.AuthorID, p.CreatedAt, archivedEvent{
		AuthorID:        p.AuthorID,
		TopicAuthorID:   p.TopicAuthorID,
		Content:         p.Content,
		CreatedAt:       p.CreatedAt,
		ClientTimestamp: p.ClientTimestamp,
		ServerTimestamp: p.ServerTimestamp,
	})
}

// SaveMessage archives an accepted private message.
func (r *Repository) SaveMessage(ctx context.Context, m domain.PrivateMessage) error {
	return r.insert(ctx, kindMessage, m.SenderID, m.CreatedAt, archivedEvent{
		SenderID:        m.SenderID,
		ReceiverID:      m.ReceiverID,
		TopicReceiverID: m.TopicReceiverID,
		Content:         m.Content,
		CreatedAt:       m.CreatedAt,
		ClientTimestamp: m.ClientTimestamp,
		ServerTimestamp: m.ServerTimestamp,
	})
}

func (r *Repository) insert(ctx context.Context, kind, peerID string, createdAt int64, ev archivedEvent) error {
	payload, err := msgpack.Marshal(&ev)
	if err != nil {
		return fmt.Errorf("encode %s: %w", kind, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO archived_events (kind, peer_id, created_at, archived_at, payload)
		VALUES (?, ?, ?, ?, ?)`,
		kind, peerID, createdAt, time.Now().UTC().UnixMilli(), payload,
	)
	if err != nil {
		return fmt.Errorf("insert %s: %w", kind, err)
	}
	return nil
}

// RecentPosts returns up to limit archived posts, most recently archived
// first.
func (r *Repository) RecentPosts(ctx context.Context, limit int) ([]domain.Post, error) {
	events, err := r.recent(ctx, kindPost, limit)
	if err != nil {
		return nil, err
	}
	posts := make([]domain.Post, len(events))
	for i, ev := range events {
		posts[i] = domain.Post{
			AuthorID:        ev.AuthorID,
			TopicAuthorID:   ev.TopicAuthorID,
			Content:         ev.Content,
			CreatedAt:       ev.CreatedAt,
			ClientTimestamp: ev.ClientTimestamp,
			ServerTimestamp: ev.ServerTimestamp,
		}
	}
	return posts, nil
}

// RecentMessages returns up to limit archived private messages, most
// recently archived first.
func (r *Repository) RecentMessages(ctx context.Context, limit int) ([]domain.PrivateMessage, error) {
	events, err := r.recent(ctx, kindMessage, limit)
	if err != nil {
		return nil, err
	}
	messages := make([]domain.PrivateMessage, len(events))
	for i, ev := range events {
		messages[i] = domain.PrivateMessage{
			SenderID:        ev.SenderID,
			ReceiverID:      ev.ReceiverID,
			TopicReceiverID: ev.TopicReceiverID,
			Content:         ev.Content,
			CreatedAt:       ev.CreatedAt,
			ClientTimestamp: ev.ClientTimestamp,
			ServerTimestamp: ev.ServerTimestamp,
		}
	}
	return messages, nil
}

func (r *Repository) recent(ctx context.Context, kind string, limit int) ([]archivedEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT payload
		FROM archived_events
		WHERE kind = ?
		ORDER BY id DESC
		LIMIT ?`,
		kind, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query %s (limit=%d): %w", kind, limit, err)
	}
	defer rows.Close()

	var events []archivedEvent
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		var ev archivedEvent
		if err := msgpack.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", kind, err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", kind, err)
	}
	return events, nil
}
