package booking_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/ArtemYena07/questbot/booking"
	"github.com/ArtemYena07/questbot/storage"
)

// testClock pins the date window: "today" is 20-05-2025.
func testClock() time.Time {
	return time.Date(2025, time.May, 20, 12, 0, 0, 0, time.UTC)
}

func newTestFlow(t *testing.T) (*booking.Flow, *storage.MemoryConversations, *storage.MemoryCatalog) {
	t.Helper()
	conv := storage.NewMemoryConversations()
	catalog := storage.NewMemoryCatalog()
	catalog.Add(booking.Room{Name: "R1", City: "C1"})
	catalog.Add(booking.Room{Name: "R2", City: "C1"})
	catalog.Add(booking.Room{Name: "R3", City: "C2"})
	return booking.NewFlow(conv, catalog, booking.WithClock(testClock)), conv, catalog
}

func mustAdvance(t *testing.T, f *booking.Flow, chatID int64, text string) booking.Reply {
	t.Helper()
	reply, handled, err := f.Advance(context.Background(), chatID, text)
	if err != nil {
		t.Fatalf("Advance(%q): %v", text, err)
	}
	if !handled {
		t.Fatalf("Advance(%q): not handled", text)
	}
	return reply
}

func step(t *testing.T, conv *storage.MemoryConversations, chatID int64) booking.Step {
	t.Helper()
	c, err := conv.Get(context.Background(), chatID)
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}
	return c.Step
}

func TestHappyPathBooking(t *testing.T) {
	flow, conv, catalog := newTestFlow(t)
	ctx := context.Background()
	const chatID int64 = 100

	reply, err := flow.Begin(ctx, chatID)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(reply.Choices, []string{"C1", "C2"}) {
		t.Fatalf("city choices = %v", reply.Choices)
	}

	reply = mustAdvance(t, flow, chatID, "C1")
	if !reflect.DeepEqual(reply.Choices, []string{"R1", "R2"}) {
		t.Fatalf("room choices = %v", reply.Choices)
	}

	reply = mustAdvance(t, flow, chatID, "R1")
	if len(reply.Choices) != 0 {
		t.Fatalf("date prompt should carry no choices, got %v", reply.Choices)
	}

	reply = mustAdvance(t, flow, chatID, "01-06-2025")
	if len(reply.Choices) != 12 {
		t.Fatalf("expected 12 free slots, got %v", reply.Choices)
	}

	reply = mustAdvance(t, flow, chatID, "9:00")
	if reply.Text != "Reservation was added" {
		t.Fatalf("unexpected confirmation: %q", reply.Text)
	}
	if len(reply.Choices) != 0 {
		t.Fatal("confirmation should clear the keyboard")
	}
	if got := step(t, conv, chatID); got != booking.StepIdle {
		t.Fatalf("step after booking = %s", got)
	}

	room, err := catalog.Room(ctx, "R1")
	if err != nil {
		t.Fatal(err)
	}
	owner, ok := room.Calendar.Owner("01-06-2025", "9:00")
	if !ok || owner != chatID {
		t.Fatalf("slot not claimed for chat: owner=%d ok=%v", owner, ok)
	}

	res, err := flow.Reservations(ctx, chatID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "C1, R1, 01-06-2025, 9:00" {
		t.Fatalf("reservations = %q", res.Text)
	}
}

func TestInvalidPicksReprompt(t *testing.T) {
	flow, conv, _ := newTestFlow(t)
	ctx := context.Background()
	const chatID int64 = 101

	if _, err := flow.Begin(ctx, chatID); err != nil {
		t.Fatal(err)
	}

	reply := mustAdvance(t, flow, chatID, "Atlantis")
	if reply.Text != "Pick is wrong" || !reflect.DeepEqual(reply.Choices, []string{"C1", "C2"}) {
		t.Fatalf("city reprompt = %+v", reply)
	}
	if got := step(t, conv, chatID); got != booking.StepPickingCity {
		t.Fatalf("step = %s", got)
	}

	mustAdvance(t, flow, chatID, "C2")
	reply = mustAdvance(t, flow, chatID, "R1") // R1 is in C1, not C2
	if reply.Text != "Pick is wrong" || !reflect.DeepEqual(reply.Choices, []string{"R3"}) {
		t.Fatalf("room reprompt = %+v", reply)
	}

	mustAdvance(t, flow, chatID, "R3")
	for _, bad := range []string{"19-05-2025", "01-01-2027", "31-02-2025", "not-a-date"} {
		reply = mustAdvance(t, flow, chatID, bad)
		if reply.Text != "Wrong date" {
			t.Fatalf("date %q: reply %q", bad, reply.Text)
		}
		if got := step(t, conv, chatID); got != booking.StepPickingDate {
			t.Fatalf("date %q: step = %s", bad, got)
		}
	}

	// Today and Dec 31 next year are inside the window.
	reply = mustAdvance(t, flow, chatID, "20-05-2025")
	if reply.Text != "Pick your time" {
		t.Fatalf("today rejected: %q", reply.Text)
	}

	reply = mustAdvance(t, flow, chatID, "11:30")
	if reply.Text != "Wrong time pick" || len(reply.Choices) != 12 {
		t.Fatalf("time reprompt = %+v", reply)
	}
}

func TestFullyBookedDateStaysOnDatePick(t *testing.T) {
	flow, conv, catalog := newTestFlow(t)
	ctx := context.Background()
	const chatID int64 = 102

	cal := booking.Calendar{}
	for _, slot := range booking.Slots() {
		cal = cal.WithSlot("01-06-2025", slot, 999)
	}
	catalog.Add(booking.Room{Name: "R1", City: "C1", Calendar: cal})

	if _, err := flow.Begin(ctx, chatID); err != nil {
		t.Fatal(err)
	}
	mustAdvance(t, flow, chatID, "C1")
	mustAdvance(t, flow, chatID, "R1")

	reply := mustAdvance(t, flow, chatID, "01-06-2025")
	if reply.Text != "All times are reserved. Pick another date, or tap /drop" {
		t.Fatalf("reply = %q", reply.Text)
	}
	if got := step(t, conv, chatID); got != booking.StepPickingDate {
		t.Fatalf("step = %s", got)
	}

	// Another date on the same room still works.
	reply = mustAdvance(t, flow, chatID, "02-06-2025")
	if len(reply.Choices) != 12 {
		t.Fatalf("free slots = %v", reply.Choices)
	}
}

func TestRacingClaims(t *testing.T) {
	flow, _, _ := newTestFlow(t)
	ctx := context.Background()

	for _, chatID := range []int64{201, 202} {
		if _, err := flow.Begin(ctx, chatID); err != nil {
			t.Fatal(err)
		}
		mustAdvance(t, flow, chatID, "C1")
		mustAdvance(t, flow, chatID, "R1")
		reply := mustAdvance(t, flow, chatID, "01-06-2025")
		if len(reply.Choices) != 12 {
			t.Fatalf("chat %d: free slots = %v", chatID, reply.Choices)
		}
	}

	// First chat wins the slot.
	reply := mustAdvance(t, flow, 201, "9:00")
	if reply.Text != "Reservation was added" {
		t.Fatalf("winner reply = %q", reply.Text)
	}

	// Second chat picked from a stale list and loses; the re-prompt
	// excludes the slot the winner took.
	reply = mustAdvance(t, flow, 202, "9:00")
	if reply.Text != "Wrong time pick" {
		t.Fatalf("loser reply = %q", reply.Text)
	}
	if len(reply.Choices) != 11 {
		t.Fatalf("loser choices = %v", reply.Choices)
	}
	for _, slot := range reply.Choices {
		if slot == "9:00" {
			t.Fatal("taken slot offered again")
		}
	}

	// The loser books another slot; the winner's claim is untouched.
	reply = mustAdvance(t, flow, 202, "10:00")
	if reply.Text != "Reservation was added" {
		t.Fatalf("loser retry reply = %q", reply.Text)
	}

	res, err := flow.Reservations(ctx, 201)
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "C1, R1, 01-06-2025, 9:00" {
		t.Fatalf("winner reservations = %q", res.Text)
	}
}

// racingCatalog books slots for a rival chat inside Claim, after the flow's
// fresh read, to land in the window between validation and the write.
type racingCatalog struct {
	*storage.MemoryCatalog
	rival    int64
	fillDate bool
	fired    bool
}

func (r *racingCatalog) Claim(ctx context.Context, name, date, slot string, owner int64) error {
	if !r.fired {
		r.fired = true
		if r.fillDate {
			for _, s := range booking.Slots() {
				_ = r.MemoryCatalog.Claim(ctx, name, date, s, r.rival)
			}
		} else {
			_ = r.MemoryCatalog.Claim(ctx, name, date, slot, r.rival)
		}
	}
	return r.MemoryCatalog.Claim(ctx, name, date, slot, owner)
}

func TestClaimConflictRepromptsWithoutLostSlot(t *testing.T) {
	conv := storage.NewMemoryConversations()
	inner := storage.NewMemoryCatalog()
	inner.Add(booking.Room{Name: "R1", City: "C1"})
	catalog := &racingCatalog{MemoryCatalog: inner, rival: 999}
	flow := booking.NewFlow(conv, catalog, booking.WithClock(testClock))
	ctx := context.Background()
	const chatID int64 = 110

	if _, err := flow.Begin(ctx, chatID); err != nil {
		t.Fatal(err)
	}
	mustAdvance(t, flow, chatID, "C1")
	mustAdvance(t, flow, chatID, "R1")
	mustAdvance(t, flow, chatID, "01-06-2025")

	// The slot passes validation but is claimed by the rival at write time.
	reply := mustAdvance(t, flow, chatID, "9:00")
	if reply.Text != "This time was just taken. Pick another one" {
		t.Fatalf("conflict reply = %q", reply.Text)
	}
	if len(reply.Choices) != 11 {
		t.Fatalf("conflict choices = %v", reply.Choices)
	}
	for _, slot := range reply.Choices {
		if slot == "9:00" {
			t.Fatal("lost slot offered again")
		}
	}
	if got := step(t, conv, chatID); got != booking.StepPickingTime {
		t.Fatalf("step = %s", got)
	}

	// The rival's claim never changes hands.
	room, err := inner.Room(ctx, "R1")
	if err != nil {
		t.Fatal(err)
	}
	if owner, ok := room.Calendar.Owner("01-06-2025", "9:00"); !ok || owner != 999 {
		t.Fatalf("slot owner = %d ok=%v", owner, ok)
	}

	// Retrying with a still-free slot completes the booking.
	reply = mustAdvance(t, flow, chatID, "10:00")
	if reply.Text != "Reservation was added" {
		t.Fatalf("retry reply = %q", reply.Text)
	}
}

func TestClaimConflictDateFilledReturnsToDatePick(t *testing.T) {
	conv := storage.NewMemoryConversations()
	inner := storage.NewMemoryCatalog()
	inner.Add(booking.Room{Name: "R1", City: "C1"})
	catalog := &racingCatalog{MemoryCatalog: inner, rival: 999, fillDate: true}
	flow := booking.NewFlow(conv, catalog, booking.WithClock(testClock))
	ctx := context.Background()
	const chatID int64 = 111

	if _, err := flow.Begin(ctx, chatID); err != nil {
		t.Fatal(err)
	}
	mustAdvance(t, flow, chatID, "C1")
	mustAdvance(t, flow, chatID, "R1")
	mustAdvance(t, flow, chatID, "01-06-2025")

	// Every slot on the date fills up at write time, so there is nothing
	// left to re-prompt with.
	reply := mustAdvance(t, flow, chatID, "9:00")
	if reply.Text != "All times are reserved. Pick another date, or tap /drop" {
		t.Fatalf("reply = %q", reply.Text)
	}
	if len(reply.Choices) != 0 {
		t.Fatalf("unexpected choices: %v", reply.Choices)
	}

	c, err := conv.Get(ctx, chatID)
	if err != nil {
		t.Fatal(err)
	}
	if c.Step != booking.StepPickingDate || c.Date != "" {
		t.Fatalf("conversation = %+v", c)
	}

	// A different date on the same room is still bookable.
	reply = mustAdvance(t, flow, chatID, "02-06-2025")
	if len(reply.Choices) != 12 {
		t.Fatalf("free slots = %v", reply.Choices)
	}
}

func TestDropFromEveryStep(t *testing.T) {
	advanceTo := map[string][]string{
		"picking_city": {},
		"picking_room": {"C1"},
		"picking_date": {"C1", "R1"},
		"picking_time": {"C1", "R1", "01-06-2025"},
	}

	for name, inputs := range advanceTo {
		flow, conv, catalog := newTestFlow(t)
		ctx := context.Background()
		const chatID int64 = 300

		if _, err := flow.Begin(ctx, chatID); err != nil {
			t.Fatal(err)
		}
		for _, in := range inputs {
			mustAdvance(t, flow, chatID, in)
		}

		reply, err := flow.Cancel(ctx, chatID)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if reply.Text != "Reservation is stopped" {
			t.Fatalf("%s: reply = %q", name, reply.Text)
		}

		c, err := conv.Get(ctx, chatID)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if c.Step != booking.StepIdle || c.City != "" || c.Room != "" || c.Date != "" {
			t.Fatalf("%s: conversation not cleared: %+v", name, c)
		}

		// No room calendar was mutated.
		rooms, err := catalog.Rooms(ctx)
		if err != nil {
			t.Fatal(err)
		}
		for _, room := range rooms {
			if len(room.Calendar) != 0 {
				t.Fatalf("%s: calendar mutated: %+v", name, room.Calendar)
			}
		}
	}
}

func TestIdleTextIgnored(t *testing.T) {
	flow, conv, _ := newTestFlow(t)
	ctx := context.Background()

	// No stored conversation at all.
	_, handled, err := flow.Advance(ctx, 400, "hello")
	if err != nil || handled {
		t.Fatalf("missing conversation: handled=%v err=%v", handled, err)
	}

	// Stored but idle.
	if err := conv.Put(ctx, booking.NewConversation(401)); err != nil {
		t.Fatal(err)
	}
	_, handled, err = flow.Advance(ctx, 401, "hello")
	if err != nil || handled {
		t.Fatalf("idle conversation: handled=%v err=%v", handled, err)
	}
}

func TestEmptyCatalog(t *testing.T) {
	conv := storage.NewMemoryConversations()
	catalog := storage.NewMemoryCatalog()
	flow := booking.NewFlow(conv, catalog, booking.WithClock(testClock))

	reply, err := flow.Begin(context.Background(), 500)
	if err != nil {
		t.Fatal(err)
	}
	if len(reply.Choices) != 0 {
		t.Fatalf("expected no choices, got %v", reply.Choices)
	}
	if got := step(t, conv, 500); got != booking.StepPickingCity {
		t.Fatalf("step = %s", got)
	}
}

func TestBeginListsCurrentCities(t *testing.T) {
	flow, _, catalog := newTestFlow(t)
	ctx := context.Background()

	first, err := flow.Begin(ctx, 600)
	if err != nil {
		t.Fatal(err)
	}
	again, err := flow.Begin(ctx, 600)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first.Choices, again.Choices) {
		t.Fatalf("city list changed between entries: %v vs %v", first.Choices, again.Choices)
	}

	catalog.Add(booking.Room{Name: "R4", City: "C3"})
	third, err := flow.Begin(ctx, 600)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(third.Choices, []string{"C1", "C2", "C3"}) {
		t.Fatalf("city list not refreshed: %v", third.Choices)
	}
}

func TestStaleRoomRestartsFromCity(t *testing.T) {
	flow, conv, catalog := newTestFlow(t)
	ctx := context.Background()
	const chatID int64 = 700

	if _, err := flow.Begin(ctx, chatID); err != nil {
		t.Fatal(err)
	}
	mustAdvance(t, flow, chatID, "C1")
	mustAdvance(t, flow, chatID, "R1")

	catalog.Remove("R1")

	reply := mustAdvance(t, flow, chatID, "01-06-2025")
	if len(reply.Choices) == 0 {
		t.Fatalf("expected city choices, got %+v", reply)
	}
	if got := step(t, conv, chatID); got != booking.StepPickingCity {
		t.Fatalf("step = %s", got)
	}
}

func TestGreetCreatesConversation(t *testing.T) {
	flow, conv, _ := newTestFlow(t)
	ctx := context.Background()

	reply, err := flow.Greet(ctx, 800, "Artem")
	if err != nil {
		t.Fatal(err)
	}
	if reply.Text == "" || reply.Choices != nil {
		t.Fatalf("greeting = %+v", reply)
	}
	if got := step(t, conv, 800); got != booking.StepIdle {
		t.Fatalf("step = %s", got)
	}

	// Second /start keeps the record.
	if _, err := flow.Greet(ctx, 800, "Artem"); err != nil {
		t.Fatal(err)
	}
}

func TestReservationsEmpty(t *testing.T) {
	flow, _, _ := newTestFlow(t)
	reply, err := flow.Reservations(context.Background(), 900)
	if err != nil {
		t.Fatal(err)
	}
	if reply.Text != "You have no reservations yet" {
		t.Fatalf("reply = %q", reply.Text)
	}
}

func TestReservationsSortedChronologically(t *testing.T) {
	conv := storage.NewMemoryConversations()
	catalog := storage.NewMemoryCatalog()
	cal := booking.Calendar{}
	cal = cal.WithSlot("02-01-2026", "9:00", 42)
	cal = cal.WithSlot("12-06-2025", "20:00", 42)
	cal = cal.WithSlot("12-06-2025", "9:00", 42)
	catalog.Add(booking.Room{Name: "R1", City: "C1", Calendar: cal})
	flow := booking.NewFlow(conv, catalog, booking.WithClock(testClock))

	reply, err := flow.Reservations(context.Background(), 42)
	if err != nil {
		t.Fatal(err)
	}
	want := "C1, R1, 12-06-2025, 9:00\nC1, R1, 12-06-2025, 20:00\nC1, R1, 02-01-2026, 9:00"
	if reply.Text != want {
		t.Fatalf("reservations = %q, want %q", reply.Text, want)
	}
}

func TestAdvanceErrorsPropagate(t *testing.T) {
	conv := storage.NewMemoryConversations()
	flow := booking.NewFlow(conv, failingCatalog{}, booking.WithClock(testClock))
	ctx := context.Background()

	c := booking.NewConversation(1000)
	c.Step = booking.StepPickingCity
	if err := conv.Put(ctx, c); err != nil {
		t.Fatal(err)
	}

	_, handled, err := flow.Advance(ctx, 1000, "C1")
	if !handled || err == nil {
		t.Fatalf("expected propagated store error, handled=%v err=%v", handled, err)
	}
}

type failingCatalog struct{}

var errStore = errors.New("store down")

func (failingCatalog) Rooms(context.Context) ([]booking.Room, error)      { return nil, errStore }
func (failingCatalog) Room(context.Context, string) (*booking.Room, error) { return nil, errStore }
func (failingCatalog) Claim(context.Context, string, string, string, int64) error {
	return errStore
}
