package middleware

import (
	"context"

	tele "gopkg.in/telebot.v4"

	"github.com/ArtemYena07/questbot/core/logger"
)

const contextKey = "logger_ctx"

// StoreContext attaches a reusable context to tele.Context for downstream
// handlers and stores.
func StoreContext(c tele.Context, ctx context.Context) {
	if c == nil || ctx == nil {
		return
	}
	c.Set(contextKey, ctx)
}

// ContextFrom returns the context previously stored by the logging
// middleware, or a freshly built one when the middleware did not run.
func ContextFrom(c tele.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if v := c.Get(contextKey); v != nil {
		if ctx, ok := v.(context.Context); ok {
			return ctx
		}
	}

	upd := c.Update()
	var chatID, userID int64
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	if user := c.Sender(); user != nil {
		userID = user.ID
	}
	ctx := logger.WithUpdateMeta(context.Background(), upd.ID, userID, chatID)
	StoreContext(c, ctx)
	return ctx
}

// WithHandler enriches the stored context with the handler name.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := logger.WithHandler(ContextFrom(c), handler)
	StoreContext(c, ctx)
	return ctx
}
