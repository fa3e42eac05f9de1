package handlers

import (
	"testing"

	"github.com/ArtemYena07/questbot/booking"
	tg "github.com/ArtemYena07/questbot/core/telegram"
	"github.com/ArtemYena07/questbot/storage"
)

func newTestHandler() *Handler {
	flow := booking.NewFlow(storage.NewMemoryConversations(), storage.NewMemoryCatalog())
	return New(flow)
}

func TestRegisterWiresAllCommands(t *testing.T) {
	reg := tg.NewRegistry()
	newTestHandler().Register(reg)

	want := []string{"/check_reservations", "/drop", "/help", "/start", "/start_booking"}
	list := reg.ListCommands(true)
	if len(list) != len(want) {
		t.Fatalf("expected %d commands, got %d: %v", len(want), len(list), list)
	}
	for i, cmd := range list {
		if cmd.Text != want[i] {
			t.Fatalf("command %d = %q, want %q", i, cmd.Text, want[i])
		}
		if cmd.Description == "" {
			t.Fatalf("command %q has no description", cmd.Text)
		}
	}
}

func TestRegisterAliasResolves(t *testing.T) {
	reg := tg.NewRegistry()
	newTestHandler().Register(reg)

	key, cmd, ok := reg.LookupCommand("/add_reservation")
	if !ok {
		t.Fatal("alias /add_reservation not found")
	}
	if key != "/start_booking" {
		t.Fatalf("alias resolved to %q", key)
	}
	if cmd.Handler == nil {
		t.Fatal("alias resolved to a command without a handler")
	}

	// The alias itself is not a separate menu entry.
	for _, c := range reg.ListCommands(true) {
		if c.Text == "/add_reservation" {
			t.Fatal("alias listed as its own command")
		}
	}
}

func TestLookupUnknownCommand(t *testing.T) {
	reg := tg.NewRegistry()
	newTestHandler().Register(reg)

	if _, _, ok := reg.LookupCommand("/unknown"); ok {
		t.Fatal("unknown command resolved")
	}
}
