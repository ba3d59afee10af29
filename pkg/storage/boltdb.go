package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketPredictions = []byte("predictions")
)

// dbFile is the history database file name under the data directory
const dbFile = "dops.db"

// BoltStore implements HistoryStore using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (creating if needed) the history database in dataDir
func NewBoltStore(dataDir string) (*BoltStore, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketPredictions); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketPredictions, err)
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Save stores an entry. Entry IDs are version 7 UUIDs, so the byte order of
// the keys is also their creation order.
func (s *BoltStore) Save(entry *Entry) error {
	if entry.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate entry id: %w", err)
		}
		entry.ID = id.String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPredictions)
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return b.Put([]byte(entry.ID), data)
	})
}

func (s *BoltStore) Get(id string) (*Entry, error) {
	var entry Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPredictions)
		data := b.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, &entry)
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *BoltStore) List(limit int) ([]*Entry, error) {
	return s.scan(limit, func(*Entry) bool { return true })
}

func (s *BoltStore) ListByLocation(state, district string) ([]*Entry, error) {
	return s.scan(0, func(e *Entry) bool {
		return e.State == state && e.District == district
	})
}

// scan walks the bucket newest first and collects matching entries
func (s *BoltStore) scan(limit int, match func(*Entry) bool) ([]*Entry, error) {
	var entries []*Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketPredictions).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("failed to decode entry %s: %w", k, err)
			}
			if !match(&entry) {
				continue
			}
			entries = append(entries, &entry)
			if limit > 0 && len(entries) == limit {
				return nil
			}
		}
		return nil
	})
	return entries, err
}

func (s *BoltStore) Delete(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketPredictions)
		if b.Get([]byte(id)) == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return b.Delete([]byte(id))
	})
}
