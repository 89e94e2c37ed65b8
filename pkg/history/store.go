// Package history persists finished conversations to a local SQLite
// database so past chats and deliberations can be listed and replayed.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/conseilapp/conseil/pkg/board"
	"github.com/conseilapp/conseil/pkg/chat"
	"github.com/conseilapp/conseil/pkg/dotdir"
)

const (
	// KindChat marks a single-assistant conversation.
	KindChat = "chat"
	// KindBoard marks a multi-advisor deliberation.
	KindBoard = "board"

	titleLimit = 80
)

// Conversation is one saved exchange, chat or board.
type Conversation struct {
	ID        string
	Kind      string
	Title     string
	Locale    string
	CreatedAt time.Time
}

// Entry is one saved message inside a conversation. For board
// conversations Role carries the advisor role and Name/Emoji its persona;
// the synthesis is stored under the "synthesis" role.
type Entry struct {
	Role    string
	Name    string
	Emoji   string
	Content string
}

// Store is a SQLite-backed conversation archive.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// ResolvePath returns the history database path to use: the configured
// path when set, otherwise history.db inside the .conseil/ directory.
func ResolvePath(configured, configDir string) (string, error) {
	if configured != "" {
		return configured, nil
	}

	target, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return "", fmt.Errorf("resolving history path: %w", err)
	}
	return filepath.Join(target, "history.db"), nil
}

// Open opens (creating if needed) the history database at path.
// Use ":memory:" for an in-memory database.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("history database path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("history store opened", zap.String("db_path", path))

	return &Store{db: db, logger: logger}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS conversations (
			id         TEXT PRIMARY KEY,
			kind       TEXT NOT NULL,
			title      TEXT NOT NULL,
			locale     TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		);
		CREATE TABLE IF NOT EXISTS messages (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			seq             INTEGER NOT NULL,
			role            TEXT NOT NULL,
			name            TEXT NOT NULL DEFAULT '',
			emoji           TEXT NOT NULL DEFAULT '',
			content         TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_messages_conversation
			ON messages(conversation_id, seq);
	`)
	if err != nil {
		return fmt.Errorf("migrating history schema: %w", err)
	}
	return nil
}

// SaveChat archives one prompt/reply exchange and returns the
// conversation ID.
func (s *Store) SaveChat(ctx context.Context, locale, prompt string, reply *chat.Reply) (string, error) {
	entries := []Entry{
		{Role: "user", Content: prompt},
		{Role: "assistant", Content: reply.Text()},
	}
	return s.save(ctx, KindChat, locale, prompt, entries)
}

// SaveBoard archives one deliberation and returns the conversation ID.
// Panels are stored in first-mention order, followed by the synthesis.
func (s *Store) SaveBoard(ctx context.Context, locale, question string, transcript *board.Transcript) (string, error) {
	entries := []Entry{{Role: "user", Content: question}}
	for _, p := range transcript.Panels() {
		entries = append(entries, Entry{
			Role:    p.Role,
			Name:    p.Name,
			Emoji:   p.Emoji,
			Content: p.Text(),
		})
	}
	if synthesis := transcript.Synthesis(); synthesis != "" {
		entries = append(entries, Entry{Role: "synthesis", Content: synthesis})
	}
	return s.save(ctx, KindBoard, locale, question, entries)
}

// clipTitle bounds a conversation title: the full prompt lives in the
// first message row, the title is only for listings.
func clipTitle(title string) string {
	if len(title) <= titleLimit {
		return title
	}
	return title[:titleLimit] + "..."
}

func (s *Store) save(ctx context.Context, kind, locale, title string, entries []Entry) (string, error) {
	id := uuid.New().String()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO conversations (id, kind, title, locale, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, kind, clipTitle(title), locale, time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("inserting conversation: %w", err)
	}

	for seq, e := range entries {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO messages (conversation_id, seq, role, name, emoji, content) VALUES (?, ?, ?, ?, ?, ?)`,
			id, seq, e.Role, e.Name, e.Emoji, e.Content,
		)
		if err != nil {
			return "", fmt.Errorf("inserting message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing conversation: %w", err)
	}

	s.logger.Debug("conversation saved",
		zap.String("id", id),
		zap.String("kind", kind),
		zap.Int("messages", len(entries)),
	)

	return id, nil
}

// List returns the most recent conversations, newest first.
// A limit of 0 means no limit.
func (s *Store) List(ctx context.Context, limit int) ([]Conversation, error) {
	query := `SELECT id, kind, title, locale, created_at FROM conversations ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.Kind, &c.Title, &c.Locale, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Get returns one conversation and its messages in order.
func (s *Store) Get(ctx context.Context, id string) (*Conversation, []Entry, error) {
	var c Conversation
	err := s.db.QueryRowContext(ctx,
		`SELECT id, kind, title, locale, created_at FROM conversations WHERE id = ?`, id,
	).Scan(&c.ID, &c.Kind, &c.Title, &c.Locale, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("conversation %q not found", id)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading conversation: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT role, name, emoji, content FROM messages WHERE conversation_id = ? ORDER BY seq`, id,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("loading messages: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Role, &e.Name, &e.Emoji, &e.Content); err != nil {
			return nil, nil, fmt.Errorf("scanning message: %w", err)
		}
		entries = append(entries, e)
	}
	return &c, entries, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
