package middleware

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"github.com/ArtemYena07/questbot/core/logger"
)

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	// Interval is the minimum average spacing between updates per user.
	Interval time.Duration
	// Burst allows that many updates to pass back-to-back.
	Burst int
	// Exclude lists update kinds ("message", "callback") that bypass limiting.
	Exclude map[string]struct{}
	// OnLimited runs when an update is dropped.
	OnLimited tele.HandlerFunc
}

// RateLimitMiddleware returns a middleware that throttles updates per user
// with a token-bucket limiter.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	var (
		limiters   = make(map[int64]*rate.Limiter)
		limitersMu sync.Mutex
	)
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}

			upd := c.Update()
			kind := "other"
			switch {
			case upd.Callback != nil:
				kind = "callback"
			case upd.Message != nil:
				kind = "message"
			}
			if _, skip := opts.Exclude[kind]; skip {
				return next(c)
			}

			limitersMu.Lock()
			lim, ok := limiters[user.ID]
			if !ok {
				lim = rate.NewLimiter(rate.Every(opts.Interval), burst)
				limiters[user.ID] = lim
			}
			limitersMu.Unlock()

			if !lim.Allow() {
				logger.TG.Warn("rate limit",
					slog.String("event", "tg.rate_limit"),
					slog.Int64("user_id", user.ID),
					slog.String("kind", kind),
				)
				if opts.OnLimited != nil {
					_ = opts.OnLimited(c)
				}
				return nil
			}
			return next(c)
		}
	}
}
