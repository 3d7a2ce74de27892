package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rob0403/LiveVotingRW/pkg/redis"
)

// AttendeeTracker counts currently connected voters per session. Presence
// is a sliding window over heartbeat timestamps, not a fixed roster:
// voters are anonymous and ephemeral per connection.
type AttendeeTracker interface {
	// RecordHeartbeat updates the voter's last-seen timestamp, inserting
	// the voter if unseen
	RecordHeartbeat(ctx context.Context, sessionID, voterID string) error

	// CountActive counts voters whose last-seen falls within the trailing
	// window
	CountActive(ctx context.Context, sessionID string, window time.Duration) (int, error)
}

// redisAttendeeTracker keeps one sorted set per session with last-seen
// unix timestamps as scores
type redisAttendeeTracker struct {
	redis *redis.Client
	log   *zap.Logger
	now   func() time.Time
}

// NewRedisAttendeeTracker creates a redis-backed attendee tracker
func NewRedisAttendeeTracker(redisClient *redis.Client, log *zap.Logger) AttendeeTracker {
	return &redisAttendeeTracker{
		redis: redisClient,
		log:   log,
		now:   time.Now,
	}
}

func (t *redisAttendeeTracker) RecordHeartbeat(ctx context.Context, sessionID, voterID string) error {
	key := t.redis.KeyBuilder.KeySessionAttendees(sessionID)
	now := t.now()

	if err := t.redis.ZAdd(ctx, key, float64(now.Unix()), voterID); err != nil {
		return err
	}

	// Prune entries that fell far outside any plausible window so the
	// set does not grow unboundedly over a long session.
	cutoff := now.Add(-redis.TTLAttendees).Unix()
	if err := t.redis.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%d", cutoff)); err != nil {
		t.log.Warn("failed to prune attendee set",
			zap.String("session_id", sessionID),
			zap.Error(err))
	}

	return t.redis.Expire(ctx, key, redis.TTLAttendees)
}

func (t *redisAttendeeTracker) CountActive(ctx context.Context, sessionID string, window time.Duration) (int, error) {
	key := t.redis.KeyBuilder.KeySessionAttendees(sessionID)
	min := fmt.Sprintf("%d", t.now().Add(-window).Unix())

	count, err := t.redis.ZCount(ctx, key, min, "+inf")
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// memoryAttendeeTracker is the in-process fallback used when no Redis is
// configured. Same windowing semantics, no cross-instance visibility.
type memoryAttendeeTracker struct {
	mu       sync.Mutex
	sessions map[string]map[string]time.Time
	now      func() time.Time
}

// NewMemoryAttendeeTracker creates an in-memory attendee tracker
func NewMemoryAttendeeTracker() AttendeeTracker {
	return &memoryAttendeeTracker{
		sessions: make(map[string]map[string]time.Time),
		now:      time.Now,
	}
}

func (t *memoryAttendeeTracker) RecordHeartbeat(_ context.Context, sessionID, voterID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	voters, ok := t.sessions[sessionID]
	if !ok {
		voters = make(map[string]time.Time)
		t.sessions[sessionID] = voters
	}
	now := t.now()
	voters[voterID] = now

	cutoff := now.Add(-redis.TTLAttendees)
	for id, seen := range voters {
		if seen.Before(cutoff) {
			delete(voters, id)
		}
	}
	return nil
}

func (t *memoryAttendeeTracker) CountActive(_ context.Context, sessionID string, window time.Duration) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-window)
	count := 0
	for _, seen := range t.sessions[sessionID] {
		if !seen.Before(cutoff) {
			count++
		}
	}
	return count, nil
}
