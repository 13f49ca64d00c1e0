package session

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/lectern/pkg/component/redis"
	"github.com/kart-io/lectern/pkg/utils/json"
)

const (
	sessionKeyPrefix = "lectern:session:"

	// Idle sessions are reclaimed after this period.
	defaultSessionTTL = 24 * time.Hour
)

// RedisStore keeps session history in a Redis list, one JSON entry per
// exchange. Eviction uses LTRIM so the list never exceeds the cap.
type RedisStore struct {
	client     *redis.Client
	maxHistory int
	ttl        time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a Redis-backed store capped at maxHistory
// exchanges per session.
func NewRedisStore(client *redis.Client, maxHistory int) *RedisStore {
	if maxHistory <= 0 {
		maxHistory = 10
	}
	return &RedisStore{
		client:     client,
		maxHistory: maxHistory,
		ttl:        defaultSessionTTL,
	}
}

func (s *RedisStore) key(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

func (s *RedisStore) Create(_ context.Context) (string, error) {
	// The list key is created lazily on first AddExchange; an id with
	// no key reads back as empty history.
	return NewSessionID(), nil
}

func (s *RedisStore) History(ctx context.Context, sessionID string) ([]Exchange, error) {
	entries, err := s.client.Client().LRange(ctx, s.key(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	exchanges := make([]Exchange, 0, len(entries))
	for _, entry := range entries {
		var e Exchange
		if err := json.Unmarshal([]byte(entry), &e); err != nil {
			logger.Warnw("skipping undecodable session entry", "session_id", sessionID, "error", err)
			continue
		}
		exchanges = append(exchanges, e)
	}
	return exchanges, nil
}

func (s *RedisStore) AddExchange(ctx context.Context, sessionID, userMsg, assistantMsg string) error {
	payload, err := json.Marshal(Exchange{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
	})
	if err != nil {
		return fmt.Errorf("encode exchange: %w", err)
	}

	key := s.key(sessionID)
	pipe := s.client.Client().TxPipeline()
	pipe.RPush(ctx, key, payload)
	pipe.LTrim(ctx, key, int64(-s.maxHistory), -1)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append exchange to session %s: %w", sessionID, err)
	}
	return nil
}

func (s *RedisStore) Reset(ctx context.Context, sessionID string) error {
	if err := s.client.Client().Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("reset session %s: %w", sessionID, err)
	}
	return nil
}
