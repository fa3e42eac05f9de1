package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ArtemYena07/questbot/core/logger"
)

// Reply is what the flow asks the transport to send: a text and an optional
// ordered choice list. An empty choice list clears any prior pick-list.
type Reply struct {
	Text    string
	Choices []string
}

// Flow is the reservation conversation state machine. Every inbound message
// loads the chat's conversation, advances it by at most one step, and
// persists the result before replying.
type Flow struct {
	conversations ConversationStore
	catalog       CatalogStore
	now           func() time.Time
	log           *slog.Logger
}

// FlowOption customises a Flow.
type FlowOption func(*Flow)

// WithClock overrides the time source, used by tests to pin the date window.
func WithClock(now func() time.Time) FlowOption {
	return func(f *Flow) { f.now = now }
}

// NewFlow builds a Flow over the given stores.
func NewFlow(conversations ConversationStore, catalog CatalogStore, opts ...FlowOption) *Flow {
	f := &Flow{
		conversations: conversations,
		catalog:       catalog,
		now:           time.Now,
		log:           logger.Flow,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Greet handles /start: it makes sure a conversation record exists and
// replies with a greeting and the command help.
func (f *Flow) Greet(ctx context.Context, chatID int64, firstName string) (Reply, error) {
	if _, err := f.conversations.Get(ctx, chatID); errors.Is(err, ErrNotFound) {
		if err := f.conversations.Put(ctx, NewConversation(chatID)); err != nil {
			return Reply{}, fmt.Errorf("create conversation: %w", err)
		}
	} else if err != nil {
		return Reply{}, fmt.Errorf("load conversation: %w", err)
	}
	greeting := "Hello!"
	if firstName != "" {
		greeting = fmt.Sprintf("Hello, %s!", firstName)
	}
	return Reply{Text: greeting + "\n\n" + textHelp}, nil
}

// Help returns the command overview.
func (f *Flow) Help() Reply {
	return Reply{Text: textHelp}
}

// Begin handles /start_booking: the conversation moves to city selection and
// the reply lists every city currently present in the catalog.
func (f *Flow) Begin(ctx context.Context, chatID int64) (Reply, error) {
	conv, err := f.load(ctx, chatID)
	if err != nil {
		return Reply{}, err
	}

	cities, err := f.cities(ctx)
	if err != nil {
		return Reply{}, err
	}

	from := conv.Step
	conv.Reset()
	conv.Step = StepPickingCity
	if err := f.conversations.Put(ctx, conv); err != nil {
		return Reply{}, fmt.Errorf("save conversation: %w", err)
	}
	f.logStep(ctx, from, conv.Step)

	return Reply{Text: textPickCity, Choices: cities}, nil
}

// Cancel handles /drop: the conversation returns to idle from any step and
// all selections are cleared. Room calendars are never touched.
func (f *Flow) Cancel(ctx context.Context, chatID int64) (Reply, error) {
	conv, err := f.load(ctx, chatID)
	if err != nil {
		return Reply{}, err
	}
	from := conv.Step
	conv.Reset()
	if err := f.conversations.Put(ctx, conv); err != nil {
		return Reply{}, fmt.Errorf("save conversation: %w", err)
	}
	f.logStep(ctx, from, conv.Step)
	return Reply{Text: textStopped}, nil
}

// Reservations handles /check_reservations: every room calendar is scanned
// for slots owned by the chat, independent of conversation state.
func (f *Flow) Reservations(ctx context.Context, chatID int64) (Reply, error) {
	rooms, err := f.catalog.Rooms(ctx)
	if err != nil {
		return Reply{}, fmt.Errorf("scan catalog: %w", err)
	}

	var owned []Reservation
	for _, room := range rooms {
		for date, slots := range room.Calendar {
			for slot, owner := range slots {
				if owner == chatID {
					owned = append(owned, Reservation{
						City: room.City,
						Room: room.Name,
						Date: date,
						Slot: slot,
					})
				}
			}
		}
	}
	if len(owned) == 0 {
		return Reply{Text: textNoReservations}, nil
	}

	sort.Slice(owned, func(i, j int) bool {
		a, b := owned[i], owned[j]
		if a.City != b.City {
			return a.City < b.City
		}
		if a.Room != b.Room {
			return a.Room < b.Room
		}
		if a.Date != b.Date {
			ad, aerr := ParseDate(a.Date)
			bd, berr := ParseDate(b.Date)
			if aerr == nil && berr == nil {
				return ad.Before(bd)
			}
			return a.Date < b.Date
		}
		return slotHour(a.Slot) < slotHour(b.Slot)
	})

	text := ""
	for i, r := range owned {
		if i > 0 {
			text += "\n"
		}
		text += r.String()
	}
	return Reply{Text: text}, nil
}

// Advance routes free-form text to the handler for the current step. It
// reports handled=false when the chat is idle or has no stored conversation,
// in which case the message is ignored.
func (f *Flow) Advance(ctx context.Context, chatID int64, text string) (Reply, bool, error) {
	conv, err := f.conversations.Get(ctx, chatID)
	if errors.Is(err, ErrNotFound) {
		return Reply{}, false, nil
	}
	if err != nil {
		return Reply{}, false, fmt.Errorf("load conversation: %w", err)
	}

	switch conv.Step {
	case StepPickingCity:
		reply, err := f.stepCity(ctx, conv, text)
		return reply, true, err
	case StepPickingRoom:
		reply, err := f.stepRoom(ctx, conv, text)
		return reply, true, err
	case StepPickingDate:
		reply, err := f.stepDate(ctx, conv, text)
		return reply, true, err
	case StepPickingTime:
		reply, err := f.stepTime(ctx, conv, text)
		return reply, true, err
	default:
		return Reply{}, false, nil
	}
}

func (f *Flow) stepCity(ctx context.Context, conv *Conversation, text string) (Reply, error) {
	cities, err := f.cities(ctx)
	if err != nil {
		return Reply{}, err
	}
	if !contains(cities, text) {
		return Reply{Text: textWrongPick, Choices: cities}, nil
	}

	rooms, err := f.roomsIn(ctx, text)
	if err != nil {
		return Reply{}, err
	}

	conv.pickCity(text)
	if err := f.conversations.Put(ctx, conv); err != nil {
		return Reply{}, fmt.Errorf("save conversation: %w", err)
	}
	f.logStep(ctx, StepPickingCity, conv.Step)
	return Reply{Text: textPickRoom, Choices: rooms}, nil
}

func (f *Flow) stepRoom(ctx context.Context, conv *Conversation, text string) (Reply, error) {
	rooms, err := f.roomsIn(ctx, conv.City)
	if err != nil {
		return Reply{}, err
	}
	if len(rooms) == 0 {
		// Selected city vanished from the catalog: start over.
		return f.restart(ctx, conv)
	}
	if !contains(rooms, text) {
		return Reply{Text: textWrongPick, Choices: rooms}, nil
	}

	conv.pickRoom(text)
	if err := f.conversations.Put(ctx, conv); err != nil {
		return Reply{}, fmt.Errorf("save conversation: %w", err)
	}
	f.logStep(ctx, StepPickingRoom, conv.Step)
	return Reply{Text: textPickDate}, nil
}

func (f *Flow) stepDate(ctx context.Context, conv *Conversation, text string) (Reply, error) {
	date, err := ParseDate(text)
	if err != nil || !DateInWindow(date, f.now()) {
		return Reply{Text: textWrongDate}, nil
	}

	room, err := f.catalog.Room(ctx, conv.Room)
	if errors.Is(err, ErrNotFound) {
		return f.restart(ctx, conv)
	}
	if err != nil {
		return Reply{}, fmt.Errorf("load room: %w", err)
	}

	free := FreeSlots(room.Calendar, text)
	if len(free) == 0 {
		return Reply{Text: textAllReserved}, nil
	}

	conv.pickDate(text)
	if err := f.conversations.Put(ctx, conv); err != nil {
		return Reply{}, fmt.Errorf("save conversation: %w", err)
	}
	f.logStep(ctx, StepPickingDate, conv.Step)
	return Reply{Text: textPickTime, Choices: free}, nil
}

func (f *Flow) stepTime(ctx context.Context, conv *Conversation, text string) (Reply, error) {
	room, err := f.catalog.Room(ctx, conv.Room)
	if errors.Is(err, ErrNotFound) {
		return f.restart(ctx, conv)
	}
	if err != nil {
		return Reply{}, fmt.Errorf("load room: %w", err)
	}

	free := FreeSlots(room.Calendar, conv.Date)
	if len(free) == 0 {
		// The whole date filled up while the user was deciding.
		return f.backToDate(ctx, conv, textAllReserved)
	}
	if !contains(free, text) {
		return Reply{Text: textWrongTime, Choices: free}, nil
	}

	err = f.catalog.Claim(ctx, conv.Room, conv.Date, text, conv.ChatID)
	if errors.Is(err, ErrSlotTaken) {
		// Lost the race: re-prompt with a fresh list that excludes the
		// slot the other chat just won.
		fresh, rerr := f.catalog.Room(ctx, conv.Room)
		if rerr != nil {
			return Reply{}, fmt.Errorf("reload room: %w", rerr)
		}
		remaining := FreeSlots(fresh.Calendar, conv.Date)
		if len(remaining) == 0 {
			return f.backToDate(ctx, conv, textAllReserved)
		}
		return Reply{Text: textSlotRace, Choices: remaining}, nil
	}
	if err != nil {
		return Reply{}, fmt.Errorf("claim slot: %w", err)
	}

	logger.LogEvent(ctx, f.log, slog.LevelInfo, "flow.booked",
		slog.String("room", conv.Room),
		slog.String("date", conv.Date),
		slog.String("slot", text),
	)

	conv.Reset()
	if err := f.conversations.Put(ctx, conv); err != nil {
		return Reply{}, fmt.Errorf("save conversation: %w", err)
	}
	return Reply{Text: textAdded}, nil
}

// restart resets the conversation and re-prompts from the city list. Used
// when a stored city or room reference went stale between steps.
func (f *Flow) restart(ctx context.Context, conv *Conversation) (Reply, error) {
	logger.LogEvent(ctx, f.log, slog.LevelWarn, "flow.stale_reference",
		slog.String("city", conv.City),
		slog.String("room", conv.Room),
	)
	cities, err := f.cities(ctx)
	if err != nil {
		return Reply{}, err
	}
	conv.Reset()
	conv.Step = StepPickingCity
	if err := f.conversations.Put(ctx, conv); err != nil {
		return Reply{}, fmt.Errorf("save conversation: %w", err)
	}
	return Reply{Text: textWrongPick + ". " + textPickCity, Choices: cities}, nil
}

// backToDate drops the selected date and returns the user to date picking.
func (f *Flow) backToDate(ctx context.Context, conv *Conversation, text string) (Reply, error) {
	from := conv.Step
	conv.Step = StepPickingDate
	conv.Date = ""
	if err := f.conversations.Put(ctx, conv); err != nil {
		return Reply{}, fmt.Errorf("save conversation: %w", err)
	}
	f.logStep(ctx, from, conv.Step)
	return Reply{Text: text}, nil
}

// load returns the stored conversation or a fresh idle one.
func (f *Flow) load(ctx context.Context, chatID int64) (*Conversation, error) {
	conv, err := f.conversations.Get(ctx, chatID)
	if errors.Is(err, ErrNotFound) {
		return NewConversation(chatID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	return conv, nil
}

// cities returns the distinct cities in the catalog, sorted.
func (f *Flow) cities(ctx context.Context) ([]string, error) {
	rooms, err := f.catalog.Rooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan catalog: %w", err)
	}
	seen := make(map[string]struct{}, len(rooms))
	var out []string
	for _, room := range rooms {
		if _, ok := seen[room.City]; ok {
			continue
		}
		seen[room.City] = struct{}{}
		out = append(out, room.City)
	}
	sort.Strings(out)
	return out, nil
}

// roomsIn returns the room names for a city, sorted.
func (f *Flow) roomsIn(ctx context.Context, city string) ([]string, error) {
	rooms, err := f.catalog.Rooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan catalog: %w", err)
	}
	var out []string
	for _, room := range rooms {
		if room.City == city {
			out = append(out, room.Name)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (f *Flow) logStep(ctx context.Context, from, to Step) {
	logger.LogEvent(ctx, f.log, slog.LevelDebug, "flow.step",
		slog.String("from", string(from)),
		slog.String("to", string(to)),
	)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func slotHour(slot string) int {
	var h int
	_, _ = fmt.Sscanf(slot, "%d:00", &h)
	return h
}
