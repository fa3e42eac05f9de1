// Package worker runs background jobs next to the bot.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/ArtemYena07/questbot/booking"
	"github.com/ArtemYena07/questbot/core/logger"
)

// Notify delivers a digest message to a chat.
type Notify func(chatID int64, text string) error

// Digest periodically counts booked slots across the catalog, logs a
// summary, and optionally sends it to the admin chat.
type Digest struct {
	catalog booking.CatalogStore
	notify  Notify
	adminID int64
	every   time.Duration
	log     *slog.Logger
}

// NewDigest builds the digest job. notify and adminID may be zero, in which
// case the summary is only logged.
func NewDigest(catalog booking.CatalogStore, notify Notify, adminID int64, every time.Duration) *Digest {
	return &Digest{
		catalog: catalog,
		notify:  notify,
		adminID: adminID,
		every:   every,
		log:     logger.Worker,
	}
}

// Start schedules the digest job and returns the running scheduler. Callers
// shut it down via scheduler.Shutdown.
func (d *Digest) Start() (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("new scheduler: %w", err)
	}

	_, err = s.NewJob(
		gocron.DurationJob(d.every),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := d.RunOnce(ctx); err != nil {
				d.log.Error("digest failed",
					slog.String("event", "digest"),
					slog.String("err", err.Error()),
				)
			}
		}),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("schedule digest: %w", err)
	}

	s.Start()
	d.log.Info("digest scheduled",
		slog.String("event", "digest.start"),
		slog.Duration("every", d.every),
	)
	return s, nil
}

// RunOnce computes and delivers a single digest.
func (d *Digest) RunOnce(ctx context.Context) error {
	rooms, err := d.catalog.Rooms(ctx)
	if err != nil {
		return fmt.Errorf("scan catalog: %w", err)
	}

	booked := 0
	for _, room := range rooms {
		for _, slots := range room.Calendar {
			booked += len(slots)
		}
	}

	d.log.Info("digest",
		slog.String("event", "digest"),
		slog.Int("rooms", len(rooms)),
		slog.Int("booked_slots", booked),
	)

	if d.notify == nil || d.adminID == 0 {
		return nil
	}
	text := fmt.Sprintf("Catalog digest: %d rooms, %d booked slots", len(rooms), booked)
	if err := d.notify(d.adminID, text); err != nil {
		return fmt.Errorf("notify admin: %w", err)
	}
	return nil
}
