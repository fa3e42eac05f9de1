// Package booking implements the quest-room reservation domain: the
// conversation state machine, the slot calendar, and the store contracts it
// is built on.
package booking

// Step identifies the current position of a chat in the reservation flow.
type Step string

const (
	// StepIdle means no reservation is in progress.
	StepIdle Step = "idle"
	// StepPickingCity waits for a city choice.
	StepPickingCity Step = "picking_city"
	// StepPickingRoom waits for a room choice within the selected city.
	StepPickingRoom Step = "picking_room"
	// StepPickingDate waits for a DD-MM-YYYY date.
	StepPickingDate Step = "picking_date"
	// StepPickingTime waits for a free slot choice.
	StepPickingTime Step = "picking_time"
)

// Conversation is the per-chat reservation state. Selections are only
// meaningful for the steps that follow them: City from StepPickingRoom on,
// Room from StepPickingDate on, Date in StepPickingTime.
type Conversation struct {
	ChatID int64  `json:"chat_id"`
	Step   Step   `json:"step"`
	City   string `json:"city,omitempty"`
	Room   string `json:"room,omitempty"`
	Date   string `json:"date,omitempty"`
}

// NewConversation returns a fresh idle conversation for the chat.
func NewConversation(chatID int64) *Conversation {
	return &Conversation{ChatID: chatID, Step: StepIdle}
}

// Reset returns the conversation to idle and clears all selections.
func (c *Conversation) Reset() {
	c.Step = StepIdle
	c.City = ""
	c.Room = ""
	c.Date = ""
}

// pickCity stores the city and advances to room selection, dropping any
// later selections left over from a previous pass.
func (c *Conversation) pickCity(city string) {
	c.Step = StepPickingRoom
	c.City = city
	c.Room = ""
	c.Date = ""
}

// pickRoom stores the room and advances to date selection.
func (c *Conversation) pickRoom(room string) {
	c.Step = StepPickingDate
	c.Room = room
	c.Date = ""
}

// pickDate stores the date and advances to time selection.
func (c *Conversation) pickDate(date string) {
	c.Step = StepPickingTime
	c.Date = date
}
