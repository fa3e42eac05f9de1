package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ArtemYena07/questbot/booking"
	"github.com/ArtemYena07/questbot/core/logger"
)

// PostgresCatalog stores rooms in a single table with the calendar as one
// JSONB document per room.
type PostgresCatalog struct {
	db  *sqlx.DB
	log *slog.Logger
}

// NewPostgresCatalog builds a catalog store over the given connection.
func NewPostgresCatalog(db *sqlx.DB) *PostgresCatalog {
	return &PostgresCatalog{db: db, log: logger.Store}
}

// Rooms returns all rooms ordered by name.
func (s *PostgresCatalog) Rooms(ctx context.Context) ([]booking.Room, error) {
	var rooms []booking.Room
	err := s.db.SelectContext(ctx, &rooms,
		`SELECT name, city, calendar FROM rooms ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("select rooms: %w", err)
	}
	return rooms, nil
}

// Room returns one room by name, or booking.ErrNotFound.
func (s *PostgresCatalog) Room(ctx context.Context, name string) (*booking.Room, error) {
	var room booking.Room
	err := s.db.GetContext(ctx, &room,
		`SELECT name, city, calendar FROM rooms WHERE name = $1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, booking.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select room: %w", err)
	}
	return &room, nil
}

// Claim re-reads the freshest calendar, verifies the slot is still free, and
// then sets the single claimed path inside the database. The update touches
// only that path, so concurrent claims on other slots are never overwritten,
// and the WHERE clause re-checks slot absence so a claim that lands between
// the read and the write makes RowsAffected report zero instead of changing
// the winner.
func (s *PostgresCatalog) Claim(ctx context.Context, name, date, slot string, owner int64) error {
	room, err := s.Room(ctx, name)
	if err != nil {
		return err
	}
	if _, taken := room.Calendar.Owner(date, slot); taken {
		return booking.ErrSlotTaken
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE rooms
		   SET calendar = jsonb_set(
		        jsonb_set(calendar, ARRAY[$2]::text[], COALESCE(calendar -> $2, '{}'::jsonb), true),
		        $3, to_jsonb($4::bigint), true)
		 WHERE name = $1 AND calendar #> $3 IS NULL`,
		name, date, pq.Array([]string{date, slot}), owner)
	if err != nil {
		return fmt.Errorf("claim slot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("claim slot rows: %w", err)
	}
	if n == 0 {
		logger.LogEvent(ctx, s.log, slog.LevelInfo, "claim.lost_race",
			slog.String("room", name),
			slog.String("date", date),
			slog.String("slot", slot),
		)
		return booking.ErrSlotTaken
	}
	return nil
}
