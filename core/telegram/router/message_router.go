package router

import (
	"time"

	tele "gopkg.in/telebot.v4"

	tg "github.com/ArtemYena07/questbot/core/telegram"
	"github.com/ArtemYena07/questbot/core/telegram/middleware"
)

// Flow is the minimal interface for the conversation state machine. Handled
// reports false when the chat has no active step, in which case the text is
// passed to the registry fallback (or ignored).
type Flow interface {
	HandleText(c tele.Context) (handled bool, err error)
}

// TextOptions controls fallback behaviour for text updates.
type TextOptions struct {
	UnknownText tele.HandlerFunc
}

// TextRoutes builds the handler for free-text routing. Recognized commands
// take priority over the active conversation step; everything else is routed
// to the flow by the stored step.
func TextRoutes(flow Flow, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				return handleWithSummary(c, normalizeHandlerName(key), start, func() error {
					return cmd.Handler(c)
				})
			}
		}

		if flow != nil {
			handled := false
			err := handleWithSummary(c, "flow", start, func() error {
				var ferr error
				handled, ferr = flow.HandleText(c)
				return ferr
			})
			if handled || err != nil {
				return err
			}
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, func() error {
				return opts.UnknownText(c)
			})
		}

		// Idle chat, non-command text: ignored by design.
		logHandlerSummary(c, "unknown_text", start, "skip", nil)
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
		},
	}
}
