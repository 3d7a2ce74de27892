package service

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rob0403/LiveVotingRW/internal/domain"
	"github.com/rob0403/LiveVotingRW/internal/repository"
	apperrors "github.com/rob0403/LiveVotingRW/pkg/errors"
	"github.com/rob0403/LiveVotingRW/pkg/redis"
)

const maxPinAttempts = 25

// QuestionInput describes one question of a new session
type QuestionInput struct {
	Title         string              `json:"title"`
	Kind          domain.QuestionKind `json:"kind"`
	Required      bool                `json:"required"`
	RangeStart    int                 `json:"range_start"`
	RangeEnd      int                 `json:"range_end"`
	RangeStep     int                 `json:"range_step"`
	MaxLength     int                 `json:"max_length"`
	MinSelections int                 `json:"min_selections"`
	MaxSelections int                 `json:"max_selections"`
	Options       []string            `json:"options"`
}

// CreateSessionRequest carries everything needed to open a voting session
type CreateSessionRequest struct {
	Questions         []QuestionInput `json:"questions"`
	ShowAttendees     bool            `json:"show_attendees"`
	PercentageDisplay bool            `json:"percentage_display"`
	KeyboardControl   bool            `json:"keyboard_control"`
	PresentationMode  bool            `json:"presentation_mode"`
}

// RegistryService maps short-lived pins to sessions and owns the session
// lifecycle: created on first presenter start, destroyed on terminate.
// The pin is released for reuse only after a grace period, so in-flight
// clients holding the old pin see an expired-pin error instead of silently
// landing in a stranger's new session.
type RegistryService struct {
	sessions  repository.SessionRepository
	redis     *redis.Client // optional, nil disables the pin cache
	log       *zap.Logger
	pinLength int
	grace     time.Duration
	now       func() time.Time
}

// NewRegistryService creates a new session registry
func NewRegistryService(sessions repository.SessionRepository, redisClient *redis.Client, log *zap.Logger, pinLength int, grace time.Duration) *RegistryService {
	if pinLength < 4 {
		pinLength = 4
	}
	return &RegistryService{
		sessions:  sessions,
		redis:     redisClient,
		log:       log,
		pinLength: pinLength,
		grace:     grace,
		now:       time.Now,
	}
}

// Create validates the question set, reserves a unique pin and persists
// the new idle session
func (s *RegistryService) Create(ctx context.Context, req CreateSessionRequest) (*domain.Session, error) {
	if len(req.Questions) == 0 {
		return nil, apperrors.NewValidationError("a session needs at least one question", nil)
	}

	session := &domain.Session{
		ID:                uuid.NewString(),
		Status:            domain.StatusIdle,
		Version:           1,
		ShowAttendees:     req.ShowAttendees,
		PercentageDisplay: req.PercentageDisplay,
		KeyboardControl:   req.KeyboardControl,
		PresentationMode:  req.PresentationMode,
	}

	for i, input := range req.Questions {
		question := domain.Question{
			ID:            uuid.NewString(),
			SessionID:     session.ID,
			Position:      i,
			Title:         input.Title,
			Kind:          input.Kind,
			Required:      input.Required,
			RangeStart:    input.RangeStart,
			RangeEnd:      input.RangeEnd,
			RangeStep:     input.RangeStep,
			MaxLength:     input.MaxLength,
			MinSelections: input.MinSelections,
			MaxSelections: input.MaxSelections,
		}
		for j, text := range input.Options {
			question.Options = append(question.Options, domain.Option{
				ID:         uuid.NewString(),
				QuestionID: question.ID,
				Position:   j,
				Text:       text,
			})
		}
		if err := domain.ValidateQuestionConfig(&question); err != nil {
			return nil, err
		}
		session.Questions = append(session.Questions, question)
	}

	pin, err := s.reservePin(ctx)
	if err != nil {
		return nil, err
	}
	session.Pin = pin

	if err := s.sessions.Create(ctx, session); err != nil {
		s.releasePinCache(ctx, pin)
		return nil, err
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, s.redis.KeyBuilder.KeyPin(pin), session.ID, redis.TTLPin); err != nil {
			s.log.Warn("failed to cache pin mapping",
				zap.String("session_id", session.ID),
				zap.Error(err))
		}
	}

	s.log.Info("session created",
		zap.String("session_id", session.ID),
		zap.Int("questions", len(session.Questions)))

	return session, nil
}

// Resolve turns a pin into its session, distinguishing unknown pins from
// pins whose session ended within the grace period
func (s *RegistryService) Resolve(ctx context.Context, pin string) (*domain.Session, error) {
	if pin == "" {
		return nil, apperrors.NewUnknownPinError(pin)
	}

	graceCutoff := s.now().Add(-s.grace)

	if s.redis != nil {
		if sessionID, err := s.redis.Get(ctx, s.redis.KeyBuilder.KeyPin(pin)); err == nil && sessionID != "" {
			session, err := s.sessions.GetByID(ctx, sessionID)
			if err != nil {
				return nil, err
			}
			if session != nil {
				return s.checkResolved(session, pin, graceCutoff)
			}
		}
	}

	session, err := s.sessions.GetByPin(ctx, pin, graceCutoff)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperrors.NewUnknownPinError(pin)
	}
	return s.checkResolved(session, pin, graceCutoff)
}

func (s *RegistryService) checkResolved(session *domain.Session, pin string, graceCutoff time.Time) (*domain.Session, error) {
	if session.Status != domain.StatusTerminated {
		return session, nil
	}
	if session.TerminatedAt != nil && session.TerminatedAt.After(graceCutoff) {
		return nil, apperrors.NewExpiredPinError(pin)
	}
	return nil, apperrors.NewUnknownPinError(pin)
}

// Destroy releases a terminated session's pin cache entry
func (s *RegistryService) Destroy(ctx context.Context, session *domain.Session) {
	s.releasePinCache(ctx, session.Pin)
	s.log.Info("session released from registry",
		zap.String("session_id", session.ID))
}

func (s *RegistryService) releasePinCache(ctx context.Context, pin string) {
	if s.redis == nil || pin == "" {
		return
	}
	if err := s.redis.Delete(ctx, s.redis.KeyBuilder.KeyPin(pin)); err != nil {
		s.log.Warn("failed to drop pin cache entry", zap.Error(err))
	}
}

// reservePin generates a numeric pin unique among live and in-grace
// sessions, retrying on collision
func (s *RegistryService) reservePin(ctx context.Context) (string, error) {
	graceCutoff := s.now().Add(-s.grace)

	for attempt := 0; attempt < maxPinAttempts; attempt++ {
		pin, err := randomPin(s.pinLength)
		if err != nil {
			return "", apperrors.NewInternalError("failed to generate pin", err)
		}

		inUse, err := s.sessions.PinInUse(ctx, pin, graceCutoff)
		if err != nil {
			return "", err
		}
		if inUse {
			continue
		}

		if s.redis != nil {
			reserved, err := s.redis.SetNX(ctx, s.redis.KeyBuilder.KeyPin(pin), "", redis.TTLPin)
			if err != nil {
				s.log.Warn("pin reservation check failed, falling back to store uniqueness",
					zap.Error(err))
			} else if !reserved {
				continue
			}
		}

		return pin, nil
	}

	return "", apperrors.NewInternalError("could not find a free pin", nil)
}

// randomPin draws a zero-padded numeric code from crypto/rand
func randomPin(length int) (string, error) {
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
