package store

import (
	"context"
	"sync"

	"github.com/bcrescitelli/stir-the-pot-sub000/internal/models"
)

// MemoryStore keeps rooms in a process-local map.
type MemoryStore struct {
	mu    sync.Mutex
	rooms map[string]*models.Room
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms: make(map[string]*models.Room),
	}
}

func (s *MemoryStore) Create(_ context.Context, room *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rooms[room.Code]; exists {
		return ErrExists
	}
	s.rooms[room.Code] = room.Clone()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, code string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, exists := s.rooms[code]
	if !exists {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, room *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, exists := s.rooms[room.Code]
	if !exists {
		return ErrNotFound
	}
	if cur.Version != room.Version-1 {
		return ErrConflict
	}
	s.rooms[room.Code] = room.Clone()
	return nil
}

// Codes returns the codes of every stored room.
func (s *MemoryStore) Codes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.rooms))
	for code := range s.rooms {
		out = append(out, code)
	}
	return out
}

func (s *MemoryStore) Close() error { return nil }
