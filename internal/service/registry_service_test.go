package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rob0403/LiveVotingRW/internal/domain"
	apperrors "github.com/rob0403/LiveVotingRW/pkg/errors"
	"github.com/rob0403/LiveVotingRW/pkg/redis"
)

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client, err := redis.NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create Redis client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func validCreateRequest() CreateSessionRequest {
	return CreateSessionRequest{
		Questions: []QuestionInput{
			{
				Title:   "Pick a side",
				Kind:    domain.KindSingleChoice,
				Options: []string{"Left", "Right"},
			},
			{
				Title:      "Rate the talk",
				Kind:       domain.KindNumberRange,
				RangeStart: 1,
				RangeEnd:   10,
				RangeStep:  1,
			},
		},
	}
}

func TestRegistryCreate(t *testing.T) {
	sessions := newFakeSessionRepo()
	svc := NewRegistryService(sessions, testRedis(t), zap.NewNop(), 4, 2*time.Minute)
	ctx := context.Background()

	session, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusIdle, session.Status)
	assert.Nil(t, session.ActiveIndex)
	assert.Len(t, session.Pin, 4)
	for _, r := range session.Pin {
		assert.True(t, r >= '0' && r <= '9', "pin must be numeric, got %q", session.Pin)
	}

	require.Len(t, session.Questions, 2)
	assert.Len(t, session.Questions[0].Options, 2)
	assert.NotEmpty(t, session.Questions[0].ID)
	assert.Equal(t, session.ID, session.Questions[0].SessionID)

	// The created session resolves through its pin.
	resolved, err := svc.Resolve(ctx, session.Pin)
	require.NoError(t, err)
	assert.Equal(t, session.ID, resolved.ID)
}

func TestRegistryCreateWithoutRedis(t *testing.T) {
	sessions := newFakeSessionRepo()
	svc := NewRegistryService(sessions, nil, zap.NewNop(), 4, 2*time.Minute)
	ctx := context.Background()

	session, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	resolved, err := svc.Resolve(ctx, session.Pin)
	require.NoError(t, err)
	assert.Equal(t, session.ID, resolved.ID)
}

func TestRegistryCreateValidation(t *testing.T) {
	svc := NewRegistryService(newFakeSessionRepo(), nil, zap.NewNop(), 4, 2*time.Minute)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateSessionRequest{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	// A misconfigured question fails the whole creation.
	_, err = svc.Create(ctx, CreateSessionRequest{
		Questions: []QuestionInput{
			{Title: "Broken range", Kind: domain.KindNumberRange, RangeStart: 0, RangeEnd: 10, RangeStep: 0},
		},
	})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = svc.Create(ctx, CreateSessionRequest{
		Questions: []QuestionInput{
			{Title: "One option only", Kind: domain.KindSingleChoice, Options: []string{"Lonely"}},
		},
	})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestRegistryResolveUnknownPin(t *testing.T) {
	svc := NewRegistryService(newFakeSessionRepo(), testRedis(t), zap.NewNop(), 4, 2*time.Minute)

	_, err := svc.Resolve(context.Background(), "0000")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnknownPin))

	_, err = svc.Resolve(context.Background(), "")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnknownPin))
}

func TestRegistryResolveGracePeriod(t *testing.T) {
	sessions := newFakeSessionRepo()
	svc := NewRegistryService(sessions, nil, zap.NewNop(), 4, 2*time.Minute)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	session, err := svc.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	// Terminate the session directly through the store.
	stored, err := sessions.GetByID(ctx, session.ID)
	require.NoError(t, err)
	terminatedAt := base
	stored.Status = domain.StatusTerminated
	stored.TerminatedAt = &terminatedAt
	require.NoError(t, sessions.UpdateState(ctx, stored))

	// Within the grace period the pin reports as expired, not unknown.
	svc.now = func() time.Time { return base.Add(time.Minute) }
	_, err = svc.Resolve(ctx, session.Pin)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExpiredPin))

	// Once the grace period has elapsed the pin is plain unknown again.
	svc.now = func() time.Time { return base.Add(3 * time.Minute) }
	_, err = svc.Resolve(ctx, session.Pin)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnknownPin))
}

// collidingSessionRepo reports the first n generated pins as taken.
type collidingSessionRepo struct {
	*fakeSessionRepo
	collisions int
	checks     int
}

func (r *collidingSessionRepo) PinInUse(ctx context.Context, pin string, graceCutoff time.Time) (bool, error) {
	r.checks++
	if r.checks <= r.collisions {
		return true, nil
	}
	return r.fakeSessionRepo.PinInUse(ctx, pin, graceCutoff)
}

func TestRegistryPinCollisionRetry(t *testing.T) {
	repo := &collidingSessionRepo{fakeSessionRepo: newFakeSessionRepo(), collisions: 3}
	svc := NewRegistryService(repo, nil, zap.NewNop(), 4, 2*time.Minute)

	session, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, session.Pin)
	assert.Equal(t, 4, repo.checks)
}

func TestRegistryPinExhaustion(t *testing.T) {
	repo := &collidingSessionRepo{fakeSessionRepo: newFakeSessionRepo(), collisions: 1000}
	svc := NewRegistryService(repo, nil, zap.NewNop(), 4, 2*time.Minute)

	_, err := svc.Create(context.Background(), validCreateRequest())
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
}

func TestRegistryTerminateReleasesPin(t *testing.T) {
	sessions := newFakeSessionRepo()
	redisClient := testRedis(t)
	registry := NewRegistryService(sessions, redisClient, zap.NewNop(), 4, 2*time.Minute)
	player := NewPlayerService(sessions, newFakeVoteStore(), registry, nil, zap.NewNop())
	ctx := context.Background()

	session, err := registry.Create(ctx, validCreateRequest())
	require.NoError(t, err)

	_, err = player.Terminate(ctx, session.ID)
	require.NoError(t, err)

	// The cached mapping is gone; the store lookup then classifies the pin.
	_, err = redisClient.Get(ctx, redisClient.KeyBuilder.KeyPin(session.Pin))
	assert.ErrorIs(t, err, redis.Nil)

	_, err = registry.Resolve(ctx, session.Pin)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExpiredPin))
}
