package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/odvcencio/chatview/pkg/view"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore persists records and focus stacks in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at dbPath and applies the schema.
// WAL mode is enabled so concurrent readers never block the single writer.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
			// State includes serialized chat content; keep it private.
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports one writer at a time, multiple readers under WAL.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) GetRecord(ctx context.Context, id uuid.UUID) (*Record, error) {
	query := `
		SELECT kind, parent_record_id, state, is_enabled,
		       bot_id, chat_id, message_id, media_kind, media_identity, media_local,
		       created_at, updated_at
		FROM view_records WHERE record_id = ?
	`

	var (
		rec      = Record{ID: id}
		parent   string
		enabled  int
		mediaLoc int
	)
	err := s.db.QueryRowContext(ctx, query, id.String()).Scan(
		&rec.Kind, &parent, &rec.State, &enabled,
		&rec.Binding.BotID, &rec.Binding.ChatID, &rec.Binding.MessageID,
		&rec.Binding.Media.Kind, &rec.Binding.Media.Identity, &mediaLoc,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load record %s: %w", id, err)
	}

	if parent != "" {
		pid, err := uuid.Parse(parent)
		if err != nil {
			return nil, fmt.Errorf("corrupt parent id for record %s: %w", id, err)
		}
		rec.ParentID = pid
	}
	rec.Enabled = enabled != 0
	rec.Binding.Media.Local = mediaLoc != 0
	return &rec, nil
}

func (s *SQLiteStore) PutRecord(ctx context.Context, rec *Record) error {
	parent := ""
	if rec.ParentID != uuid.Nil {
		parent = rec.ParentID.String()
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO view_records (
			record_id, kind, parent_record_id, state, is_enabled,
			bot_id, chat_id, message_id, media_kind, media_identity, media_local,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(record_id) DO UPDATE SET
			kind = excluded.kind,
			parent_record_id = excluded.parent_record_id,
			state = excluded.state,
			is_enabled = excluded.is_enabled,
			bot_id = excluded.bot_id,
			chat_id = excluded.chat_id,
			message_id = excluded.message_id,
			media_kind = excluded.media_kind,
			media_identity = excluded.media_identity,
			media_local = excluded.media_local,
			updated_at = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID.String(), rec.Kind, parent, rec.State, boolInt(rec.Enabled),
		rec.Binding.BotID, rec.Binding.ChatID, rec.Binding.MessageID,
		string(mediaKindOrNone(rec.Binding.Media.Kind)), rec.Binding.Media.Identity, boolInt(rec.Binding.Media.Local),
		createdAt, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to store record %s: %w", rec.ID, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteRecord(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM view_records WHERE record_id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to delete record %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) FocusStack(ctx context.Context, channel string) ([]uuid.UUID, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT stack FROM focus_stacks WHERE channel_key = ?`, channel,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load focus stack %q: %w", channel, err)
	}

	var ids []uuid.UUID
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("corrupt focus stack %q: %w", channel, err)
	}
	return ids, nil
}

func (s *SQLiteStore) PutFocusStack(ctx context.Context, channel string, ids []uuid.UUID) error {
	if len(ids) == 0 {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM focus_stacks WHERE channel_key = ?`, channel); err != nil {
			return fmt.Errorf("failed to clear focus stack %q: %w", channel, err)
		}
		return nil
	}

	raw, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to encode focus stack %q: %w", channel, err)
	}
	query := `
		INSERT INTO focus_stacks (channel_key, stack, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(channel_key) DO UPDATE SET stack = excluded.stack, updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, channel, string(raw), time.Now()); err != nil {
		return fmt.Errorf("failed to store focus stack %q: %w", channel, err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func mediaKindOrNone(k view.MediaKind) view.MediaKind {
	if k == "" {
		return view.MediaNone
	}
	return k
}
