package storage

import (
	"errors"
	"time"

	"github.com/cuemby/dops/pkg/types"
)

// ErrNotFound is returned when a history entry does not exist
var ErrNotFound = errors.New("history entry not found")

// Entry is one successful prediction as persisted in the history
type Entry struct {
	ID        string                   `json:"id"`
	State     string                   `json:"state"`
	District  string                   `json:"district"`
	CreatedAt time.Time                `json:"created_at"`
	Records   []types.PredictionRecord `json:"records"`
}

// HistoryStore persists prediction results for the CLI
type HistoryStore interface {
	// Save stores an entry, assigning ID and CreatedAt when empty
	Save(entry *Entry) error

	// Get returns one entry by ID
	Get(id string) (*Entry, error)

	// List returns entries newest first. limit <= 0 returns all.
	List(limit int) ([]*Entry, error)

	// ListByLocation returns entries for one state and district, newest first
	ListByLocation(state, district string) ([]*Entry, error)

	Delete(id string) error

	Close() error
}
