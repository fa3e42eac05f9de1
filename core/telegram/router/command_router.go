package router

import (
	"log/slog"

	tg "github.com/ArtemYena07/questbot/core/telegram"
	"github.com/ArtemYena07/questbot/core/telegram/middleware"

	"github.com/ArtemYena07/questbot/core/logger"
)

// CommandRoutes prepares command handlers wrapped with shared middleware.
// Commands are routed regardless of conversation step.
func CommandRoutes(reg *tg.Registry) []tg.Route {
	if reg == nil {
		return nil
	}

	routes := make([]tg.Route, 0, len(reg.Commands()))
	for cmd, def := range reg.Commands() {
		h := def.Handler
		h = middleware.RecoverMiddleware(h)
		h = middleware.LoggerMiddleware(h)
		routes = append(routes, tg.Route{
			Endpoint: cmd,
			Handler:  h,
		})
	}

	logger.TG.Info("tg.wire",
		slog.String("event", "complete"),
		slog.Int("commands", len(reg.Commands())),
	)

	return routes
}
