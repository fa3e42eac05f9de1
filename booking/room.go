package booking

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Calendar maps date (DD-MM-YYYY) to slot label to the owning chat id.
// A present (date, slot) key means the slot is taken; absence means free.
type Calendar map[string]map[string]int64

// Owner reports the chat that holds the given slot, if any.
func (c Calendar) Owner(date, slot string) (int64, bool) {
	day, ok := c[date]
	if !ok {
		return 0, false
	}
	owner, ok := day[slot]
	return owner, ok
}

// WithSlot returns a copy of the calendar with the slot assigned to owner.
// The receiver is left untouched so callers can retry on conflicts.
func (c Calendar) WithSlot(date, slot string, owner int64) Calendar {
	out := make(Calendar, len(c)+1)
	for d, slots := range c {
		day := make(map[string]int64, len(slots))
		for s, o := range slots {
			day[s] = o
		}
		out[d] = day
	}
	if _, ok := out[date]; !ok {
		out[date] = make(map[string]int64, 1)
	}
	out[date][slot] = owner
	return out
}

// Value implements driver.Valuer so the calendar is stored as a single JSONB
// document.
func (c Calendar) Value() (driver.Value, error) {
	if c == nil {
		c = Calendar{}
	}
	return json.Marshal(c)
}

// Scan implements sql.Scanner for JSONB columns.
func (c *Calendar) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c = Calendar{}
		return nil
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("calendar: unsupported scan type %T", src)
	}
}

// Room is a bookable quest room with its calendar of taken slots.
// Rooms are provisioned out-of-band; the flow only reads rooms and claims
// slots in their calendars.
type Room struct {
	Name     string   `db:"name" json:"room_name"`
	City     string   `db:"city" json:"city"`
	Calendar Calendar `db:"calendar" json:"calendar"`
}

// Reservation is one booked slot, as reported by /check_reservations.
type Reservation struct {
	City string
	Room string
	Date string
	Slot string
}

func (r Reservation) String() string {
	return fmt.Sprintf("%s, %s, %s, %s", r.City, r.Room, r.Date, r.Slot)
}
