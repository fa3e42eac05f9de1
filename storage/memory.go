// Package storage provides the conversation and catalog store
// implementations: Redis and Postgres for production, and in-memory
// variants for tests and local development.
package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/ArtemYena07/questbot/booking"
)

// MemoryConversations is an in-memory ConversationStore.
type MemoryConversations struct {
	mu sync.RWMutex
	m  map[int64]booking.Conversation
}

// NewMemoryConversations constructs an empty in-memory conversation store.
func NewMemoryConversations() *MemoryConversations {
	return &MemoryConversations{m: make(map[int64]booking.Conversation)}
}

// Get returns a copy of the stored conversation, or booking.ErrNotFound.
func (s *MemoryConversations) Get(_ context.Context, chatID int64) (*booking.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.m[chatID]
	if !ok {
		return nil, booking.ErrNotFound
	}
	out := conv
	return &out, nil
}

// Put stores the full conversation record.
func (s *MemoryConversations) Put(_ context.Context, conv *booking.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[conv.ChatID] = *conv
	return nil
}

// MemoryCatalog is an in-memory CatalogStore.
type MemoryCatalog struct {
	mu    sync.RWMutex
	rooms map[string]*booking.Room
}

// NewMemoryCatalog constructs an empty in-memory catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{rooms: make(map[string]*booking.Room)}
}

// Add provisions a room. Rooms are normally provisioned out-of-band; this is
// the test/dev equivalent.
func (s *MemoryCatalog) Add(room booking.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room.Calendar == nil {
		room.Calendar = booking.Calendar{}
	}
	s.rooms[room.Name] = &room
}

// Remove deletes a room, mimicking out-of-band de-provisioning.
func (s *MemoryCatalog) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, name)
}

// Rooms returns all rooms sorted by name.
func (s *MemoryCatalog) Rooms(_ context.Context) ([]booking.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]booking.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		out = append(out, *room)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Room returns one room by name, or booking.ErrNotFound.
func (s *MemoryCatalog) Room(_ context.Context, name string) (*booking.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[name]
	if !ok {
		return nil, booking.ErrNotFound
	}
	out := *room
	return &out, nil
}

// Claim marks the slot as taken by owner, re-validating under the lock so a
// taken slot never changes hands.
func (s *MemoryCatalog) Claim(_ context.Context, name, date, slot string, owner int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[name]
	if !ok {
		return booking.ErrNotFound
	}
	if _, taken := room.Calendar.Owner(date, slot); taken {
		return booking.ErrSlotTaken
	}
	room.Calendar = room.Calendar.WithSlot(date, slot, owner)
	return nil
}
