// Package handlers wires the reservation flow to the Telegram transport.
package handlers

import (
	tele "gopkg.in/telebot.v4"

	"github.com/ArtemYena07/questbot/booking"
	tg "github.com/ArtemYena07/questbot/core/telegram"
	"github.com/ArtemYena07/questbot/core/telegram/commands"
	"github.com/ArtemYena07/questbot/core/telegram/keyboard"
	"github.com/ArtemYena07/questbot/core/telegram/middleware"
)

// Reply keyboards get at most this many buttons per row.
const choicesPerRow = 3

// Handler translates Telegram updates into flow calls and flow replies into
// messages with optional reply keyboards.
type Handler struct {
	flow *booking.Flow
}

// New builds a Handler over the reservation flow.
func New(flow *booking.Flow) *Handler {
	return &Handler{flow: flow}
}

// Register adds all bot commands to the registry.
func (h *Handler) Register(reg *tg.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     h.Start,
		Description: "greeting and help",
	})
	reg.RegisterCommand("/help", commands.Command{
		Handler:     h.Help,
		Description: "help panel",
	})
	reg.RegisterCommand("/start_booking", commands.Command{
		Handler:     h.StartBooking,
		Description: "add new reservation",
		Aliases:     []string{"/add_reservation"},
	})
	reg.RegisterCommand("/check_reservations", commands.Command{
		Handler:     h.CheckReservations,
		Description: "check all reserved rooms",
	})
	reg.RegisterCommand("/drop", commands.Command{
		Handler:     h.Drop,
		Description: "stop reservation",
	})
}

// Start handles /start.
func (h *Handler) Start(c tele.Context) error {
	firstName := ""
	if user := c.Sender(); user != nil {
		firstName = user.FirstName
	}
	reply, err := h.flow.Greet(middleware.ContextFrom(c), c.Chat().ID, firstName)
	if err != nil {
		return err
	}
	return send(c, reply)
}

// Help handles /help.
func (h *Handler) Help(c tele.Context) error {
	return send(c, h.flow.Help())
}

// StartBooking handles /start_booking and its /add_reservation alias.
func (h *Handler) StartBooking(c tele.Context) error {
	reply, err := h.flow.Begin(middleware.ContextFrom(c), c.Chat().ID)
	if err != nil {
		return err
	}
	return send(c, reply)
}

// CheckReservations handles /check_reservations.
func (h *Handler) CheckReservations(c tele.Context) error {
	reply, err := h.flow.Reservations(middleware.ContextFrom(c), c.Chat().ID)
	if err != nil {
		return err
	}
	return send(c, reply)
}

// Drop handles /drop.
func (h *Handler) Drop(c tele.Context) error {
	reply, err := h.flow.Cancel(middleware.ContextFrom(c), c.Chat().ID)
	if err != nil {
		return err
	}
	return send(c, reply)
}

// HandleText routes free-form text by the stored conversation step. It
// implements router.Flow.
func (h *Handler) HandleText(c tele.Context) (bool, error) {
	reply, handled, err := h.flow.Advance(middleware.ContextFrom(c), c.Chat().ID, c.Text())
	if err != nil || !handled {
		return handled, err
	}
	return true, send(c, reply)
}

// send renders a flow reply: choices become a reply keyboard, and a reply
// without choices hides any keyboard shown earlier.
func send(c tele.Context, reply booking.Reply) error {
	return c.Send(reply.Text, keyboard.ChoiceList(reply.Choices, choicesPerRow))
}
