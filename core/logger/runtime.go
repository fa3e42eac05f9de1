package logger

import (
	"context"
	"log/slog"
)

// contextKey is a private type to avoid collisions in context.
type contextKey string

const (
	ctxRID      contextKey = "rid"
	ctxUpdateID contextKey = "update_id"
	ctxUserID   contextKey = "user_id"
	ctxChatID   contextKey = "chat_id"
	ctxHandler  contextKey = "handler"
)

// WithRID attaches a request correlation id to the context.
func WithRID(ctx context.Context, rid string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRID, rid)
}

// RIDFrom extracts the rid from context, if present.
func RIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if s, ok := ctx.Value(ctxRID).(string); ok {
		return s
	}
	return ""
}

// WithUpdateMeta attaches common update identifiers to the context.
func WithUpdateMeta(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUpdateID, updateID)
	ctx = context.WithValue(ctx, ctxUserID, userID)
	return context.WithValue(ctx, ctxChatID, chatID)
}

// WithHandler records the active handler name in the context.
func WithHandler(ctx context.Context, handler string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxHandler, handler)
}

// LogEvent emits a log record enriched with correlation attributes carried
// by the context (rid, update_id, user_id, chat_id, handler).
func LogEvent(ctx context.Context, log *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if log == nil {
		log = L
	}
	if ctx == nil {
		ctx = context.Background()
	}
	enriched := make([]slog.Attr, 0, len(attrs)+5)
	if rid := RIDFrom(ctx); rid != "" {
		enriched = append(enriched, slog.String("rid", rid))
	}
	if id, ok := ctx.Value(ctxUpdateID).(int); ok && id != 0 {
		enriched = append(enriched, slog.Int("update_id", id))
	}
	if id, ok := ctx.Value(ctxUserID).(int64); ok && id != 0 {
		enriched = append(enriched, slog.Int64("user_id", id))
	}
	if id, ok := ctx.Value(ctxChatID).(int64); ok && id != 0 {
		enriched = append(enriched, slog.Int64("chat_id", id))
	}
	if h, ok := ctx.Value(ctxHandler).(string); ok && h != "" {
		enriched = append(enriched, slog.String("handler", h))
	}
	enriched = append(enriched, attrs...)
	log.LogAttrs(ctx, level, event, enriched...)
}
