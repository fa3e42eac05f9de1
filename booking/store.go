package booking

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrSlotTaken is returned by Claim when the slot was booked by someone else
// between rendering the free-slot list and the write.
var ErrSlotTaken = errors.New("slot already taken")

// ConversationStore persists per-chat conversation state.
type ConversationStore interface {
	// Get returns the conversation for the chat, or ErrNotFound.
	Get(ctx context.Context, chatID int64) (*Conversation, error)
	// Put stores the full conversation record.
	Put(ctx context.Context, conv *Conversation) error
}

// CatalogStore persists rooms and their calendars.
type CatalogStore interface {
	// Rooms returns all rooms in stable order.
	Rooms(ctx context.Context) ([]Room, error)
	// Room returns one room by name, or ErrNotFound.
	Room(ctx context.Context, name string) (*Room, error)
	// Claim marks the slot as taken by owner. The implementation must
	// re-validate against the freshest stored calendar immediately before
	// writing and return ErrSlotTaken if the slot is no longer free. The
	// existing owner is never overwritten.
	Claim(ctx context.Context, room, date, slot string, owner int64) error
}
