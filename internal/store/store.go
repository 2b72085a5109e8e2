// internal/store/store.go
package store

import (
	"context"
	"errors"

	"github.com/bcrescitelli/stir-the-pot-sub000/internal/models"
)

var (
	ErrNotFound    = errors.New("room not found")
	ErrExists      = errors.New("room already exists")
	ErrConflict    = errors.New("room was modified concurrently")
	ErrUnavailable = errors.New("room store unavailable")
)

// Store persists one document per room, keyed by room code. Implementations
// return deep copies so callers never share memory with the store.
type Store interface {
	// Create stores a new room. It fails with ErrExists if the code is taken.
	Create(ctx context.Context, room *models.Room) error
	// Get loads a room or returns ErrNotFound.
	Get(ctx context.Context, code string) (*models.Room, error)
	// Update replaces a room whose stored version is room.Version-1, and
	// fails with ErrConflict otherwise.
	Update(ctx context.Context, room *models.Room) error
	Close() error
}
