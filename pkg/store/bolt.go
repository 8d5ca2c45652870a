package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketRecords = []byte("records")
	bucketFocus   = []byte("focus")
)

// BoltStore persists records and focus stacks in a bbolt database: one
// key/value file, records and stacks stored as JSON values in two buckets.
type BoltStore struct {
	db *bolt.DB
}

// NewBolt opens (or creates) the database file at dbPath.
func NewBolt(dbPath string) (*BoltStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketRecords, bucketFocus} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) GetRecord(_ context.Context, id uuid.UUID) (*Record, error) {
	var rec *Record
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketRecords).Get([]byte(id.String()))
		if raw == nil {
			return ErrNotFound
		}
		rec = &Record{}
		if err := json.Unmarshal(raw, rec); err != nil {
			return fmt.Errorf("corrupt record %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *BoltStore) PutRecord(_ context.Context, rec *Record) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		key := []byte(rec.ID.String())

		clone := *rec
		if existing := b.Get(key); existing != nil {
			var prev Record
			if err := json.Unmarshal(existing, &prev); err == nil {
				clone.CreatedAt = prev.CreatedAt
			}
		} else if clone.CreatedAt.IsZero() {
			clone.CreatedAt = time.Now()
		}
		clone.UpdatedAt = time.Now()

		raw, err := json.Marshal(&clone)
		if err != nil {
			return fmt.Errorf("failed to encode record %s: %w", rec.ID, err)
		}
		return b.Put(key, raw)
	})
}

func (s *BoltStore) DeleteRecord(_ context.Context, id uuid.UUID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketRecords).Delete([]byte(id.String()))
	})
}

func (s *BoltStore) FocusStack(_ context.Context, channel string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketFocus).Get([]byte(channel))
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &ids); err != nil {
			return fmt.Errorf("corrupt focus stack %q: %w", channel, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *BoltStore) PutFocusStack(_ context.Context, channel string, ids []uuid.UUID) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketFocus)
		if len(ids) == 0 {
			return b.Delete([]byte(channel))
		}
		raw, err := json.Marshal(ids)
		if err != nil {
			return fmt.Errorf("failed to encode focus stack %q: %w", channel, err)
		}
		return b.Put([]byte(channel), raw)
	})
}

// Close closes the database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
