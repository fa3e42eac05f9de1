package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/ArtemYena07/questbot/booking"
	"github.com/ArtemYena07/questbot/core/logger"
)

// RedisConversations stores conversation state as JSON values keyed by chat
// id. Every write refreshes the idle TTL, so abandoned conversations decay
// back to a fresh idle state.
type RedisConversations struct {
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

// NewRedisConversations builds a conversation store on the given client.
// A zero ttl keeps records forever.
func NewRedisConversations(client *redis.Client, ttl time.Duration) *RedisConversations {
	return &RedisConversations{
		client: client,
		ttl:    ttl,
		log:    logger.Store,
	}
}

func conversationKey(chatID int64) string {
	return fmt.Sprintf("conv:%d", chatID)
}

// Get returns the conversation for the chat, or booking.ErrNotFound.
func (s *RedisConversations) Get(ctx context.Context, chatID int64) (*booking.Conversation, error) {
	raw, err := s.client.Get(ctx, conversationKey(chatID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, booking.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get conversation: %w", err)
	}

	var conv booking.Conversation
	if err := json.Unmarshal([]byte(raw), &conv); err != nil {
		// A corrupt record is unrecoverable; treat as absent so the
		// chat restarts from idle instead of failing every update.
		logger.LogEvent(ctx, s.log, slog.LevelWarn, "conversation.corrupt",
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()),
		)
		return nil, booking.ErrNotFound
	}
	return &conv, nil
}

// Put stores the full conversation record and refreshes its TTL.
func (s *RedisConversations) Put(ctx context.Context, conv *booking.Conversation) error {
	raw, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}
	if err := s.client.Set(ctx, conversationKey(conv.ChatID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis put conversation: %w", err)
	}
	return nil
}
