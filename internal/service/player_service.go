package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/rob0403/LiveVotingRW/internal/domain"
	"github.com/rob0403/LiveVotingRW/internal/repository"
	apperrors "github.com/rob0403/LiveVotingRW/pkg/errors"
	"github.com/rob0403/LiveVotingRW/pkg/redis"
)

// AdvanceDirection selects the neighbor for the advance transition
type AdvanceDirection string

const (
	AdvanceNext     AdvanceDirection = "next"
	AdvancePrevious AdvanceDirection = "previous"
)

// StartOptions tunes the start transition. Frozen starts the voting with
// the cast gate already closed, mirroring the presenter flow where the
// question is shown before voting opens.
type StartOptions struct {
	Frozen bool `json:"frozen"`
}

// PlayerService drives the session state machine and the voter-facing
// vote path. Presenter transitions are serialized per session through the
// repository's versioned compare-and-swap; the vote path never takes that
// lock and stays fully parallel across voters.
type PlayerService struct {
	sessions repository.SessionRepository
	votes    repository.VoteRepository
	registry *RegistryService
	redis    *redis.Client // optional tally cache
	log      *zap.Logger
	now      func() time.Time
}

// NewPlayerService creates a new player service
func NewPlayerService(sessions repository.SessionRepository, votes repository.VoteRepository, registry *RegistryService, redisClient *redis.Client, log *zap.Logger) *PlayerService {
	return &PlayerService{
		sessions: sessions,
		votes:    votes,
		registry: registry,
		redis:    redisClient,
		log:      log,
		now:      time.Now,
	}
}

// Session loads a session by id, failing with not_found when absent
func (s *PlayerService) Session(ctx context.Context, sessionID string) (*domain.Session, error) {
	return s.load(ctx, sessionID)
}

func (s *PlayerService) load(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperrors.NewNotFoundError("session not found")
	}
	return session, nil
}

// Terminated is absorbing: every transition on a terminated session fails
// the same way.
func guardNotTerminated(session *domain.Session) error {
	if session.Status == domain.StatusTerminated {
		return apperrors.NewVotingClosedError("session has been terminated")
	}
	return nil
}

// Start activates a question and opens (or, with Frozen, prepares) voting.
// Allowed from idle and running; the active question may be switched while
// running without stopping the player.
func (s *PlayerService) Start(ctx context.Context, sessionID, questionID string, opts StartOptions) (*domain.Session, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := guardNotTerminated(session); err != nil {
		return nil, err
	}
	if session.Status == domain.StatusFrozen {
		return nil, apperrors.NewStateConflictError("cannot start while frozen, unfreeze first")
	}

	idx, ok := session.QuestionIndex(questionID)
	if !ok {
		return nil, apperrors.NewUnknownQuestionError(questionID)
	}

	session.ActiveIndex = &idx
	session.Status = domain.StatusRunning
	if opts.Frozen {
		session.Status = domain.StatusFrozen
	}
	session.CountdownUntil = nil

	if err := s.sessions.UpdateState(ctx, session); err != nil {
		return nil, err
	}

	s.log.Info("voting started",
		zap.String("session_id", session.ID),
		zap.String("question_id", questionID),
		zap.Bool("frozen", opts.Frozen))

	return session, nil
}

// Freeze closes the cast gate without touching existing votes
func (s *PlayerService) Freeze(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := guardNotTerminated(session); err != nil {
		return nil, err
	}
	if session.Status != domain.StatusRunning {
		return nil, apperrors.NewStateConflictError("only a running session can be frozen")
	}

	session.Status = domain.StatusFrozen
	session.CountdownUntil = nil

	if err := s.sessions.UpdateState(ctx, session); err != nil {
		return nil, err
	}

	s.log.Info("voting frozen", zap.String("session_id", session.ID))
	return session, nil
}

// Unfreeze reopens voting. A positive countdown re-freezes the session
// automatically once it elapses.
func (s *PlayerService) Unfreeze(ctx context.Context, sessionID string, countdownSeconds int) (*domain.Session, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := guardNotTerminated(session); err != nil {
		return nil, err
	}
	now := s.now()
	// The guard runs on the effective status: a running session whose
	// countdown has elapsed is frozen to voters and must be unfreezable
	// without a detour through an explicit freeze.
	if session.EffectiveStatus(now) != domain.StatusFrozen {
		return nil, apperrors.NewStateConflictError("only a frozen session can be unfrozen")
	}

	session.Status = domain.StatusRunning
	session.CountdownUntil = nil
	if countdownSeconds > 0 {
		until := now.Add(time.Duration(countdownSeconds) * time.Second)
		session.CountdownUntil = &until
	}

	if err := s.sessions.UpdateState(ctx, session); err != nil {
		return nil, err
	}

	s.log.Info("voting unfrozen",
		zap.String("session_id", session.ID),
		zap.Int("countdown_seconds", countdownSeconds))

	return session, nil
}

// Advance moves the active question to its neighbor, keeping the current
// status. There is no wraparound at the sequence boundaries.
func (s *PlayerService) Advance(ctx context.Context, sessionID string, direction AdvanceDirection) (*domain.Session, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := guardNotTerminated(session); err != nil {
		return nil, err
	}
	if session.Status != domain.StatusRunning && session.Status != domain.StatusFrozen {
		return nil, apperrors.NewStateConflictError("player is not running")
	}
	if session.ActiveIndex == nil {
		return nil, apperrors.NewNoSuchNeighborError("no question is active")
	}

	idx := *session.ActiveIndex
	switch direction {
	case AdvanceNext:
		idx++
	case AdvancePrevious:
		idx--
	default:
		return nil, apperrors.NewValidationError("unknown advance direction",
			map[string]interface{}{"direction": string(direction)})
	}
	if idx < 0 || idx >= len(session.Questions) {
		return nil, apperrors.NewNoSuchNeighborError("already at the end of the question sequence")
	}

	session.ActiveIndex = &idx

	if err := s.sessions.UpdateState(ctx, session); err != nil {
		return nil, err
	}

	s.log.Info("advanced to question",
		zap.String("session_id", session.ID),
		zap.Int("active_index", idx))

	return session, nil
}

// ResetActiveQuestion clears all votes for the active question, leaving
// the player status unchanged
func (s *PlayerService) ResetActiveQuestion(ctx context.Context, sessionID string) error {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := guardNotTerminated(session); err != nil {
		return err
	}

	question := session.ActiveQuestion()
	if question == nil {
		return apperrors.NewUnknownQuestionError("")
	}

	if err := s.votes.ClearVotesForQuestion(ctx, question.ID); err != nil {
		return err
	}
	s.invalidateTally(ctx, question.ID)

	s.log.Info("question votes reset",
		zap.String("session_id", session.ID),
		zap.String("question_id", question.ID))

	return nil
}

// ToggleResults flips the presenter's show-results flag
func (s *PlayerService) ToggleResults(ctx context.Context, sessionID string, show bool) (*domain.Session, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := guardNotTerminated(session); err != nil {
		return nil, err
	}

	session.ShowResults = show

	if err := s.sessions.UpdateState(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Terminate closes the session for good and releases its pin from the
// registry. Allowed from any state; terminated stays terminated.
func (s *PlayerService) Terminate(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := guardNotTerminated(session); err != nil {
		return nil, err
	}

	now := s.now()
	session.Status = domain.StatusTerminated
	session.TerminatedAt = &now
	session.CountdownUntil = nil

	if err := s.sessions.UpdateState(ctx, session); err != nil {
		return nil, err
	}

	if s.registry != nil {
		s.registry.Destroy(ctx, session)
	}

	s.log.Info("session terminated", zap.String("session_id", session.ID))
	return session, nil
}

// CastVote runs the voter path: freeze gate, answer validation, then the
// serialized store write. The gate lives here so presenter-side
// administrative writes can still reach the store directly.
func (s *PlayerService) CastVote(ctx context.Context, session *domain.Session, voterID string, req domain.VoteRequest) (*domain.CastResult, error) {
	now := s.now()
	if session.Status == domain.StatusTerminated {
		return nil, apperrors.NewVotingClosedError("session has been terminated")
	}
	if !session.AcceptsVotes(now) {
		return nil, apperrors.NewVotingClosedError("voting is currently frozen")
	}

	question := session.ActiveQuestion()
	if question == nil {
		return nil, apperrors.NewVotingClosedError("no question is open for voting")
	}
	if req.QuestionID != "" && req.QuestionID != question.ID {
		return nil, apperrors.NewUnknownQuestionError(req.QuestionID)
	}

	answer, err := domain.ValidateAnswer(question, req)
	if err != nil {
		return nil, err
	}

	votes, err := s.votes.CastVote(ctx, question, voterID, answer)
	if err != nil {
		return nil, err
	}
	s.invalidateTally(ctx, question.ID)

	s.log.Debug("vote cast",
		zap.String("session_id", session.ID),
		zap.String("question_id", question.ID),
		zap.Int("votes", len(votes)))

	return &domain.CastResult{
		QuestionID: question.ID,
		Votes:      votes,
		Timestamp:  now,
	}, nil
}

// ClearVote removes the calling voter's ballot for the active question.
// The freeze gate applies: clearing is a voter-facing write.
func (s *PlayerService) ClearVote(ctx context.Context, session *domain.Session, voterID string) error {
	if session.Status == domain.StatusTerminated {
		return apperrors.NewVotingClosedError("session has been terminated")
	}
	if !session.AcceptsVotes(s.now()) {
		return apperrors.NewVotingClosedError("voting is currently frozen")
	}

	question := session.ActiveQuestion()
	if question == nil {
		return apperrors.NewVotingClosedError("no question is open for voting")
	}

	if err := s.votes.UnvoteAll(ctx, question.ID, voterID); err != nil {
		return err
	}
	s.invalidateTally(ctx, question.ID)
	return nil
}

// Tally returns the per-question results snapshot, optionally served from
// a short-lived cache. Reads take no locks and may trail writes briefly.
func (s *PlayerService) Tally(ctx context.Context, session *domain.Session, questionID string) (*domain.QuestionTally, error) {
	idx, ok := session.QuestionIndex(questionID)
	if !ok {
		return nil, apperrors.NewUnknownQuestionError(questionID)
	}
	question := &session.Questions[idx]

	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, s.redis.KeyBuilder.KeyTally(questionID)); err == nil && cached != "" {
			var tally domain.QuestionTally
			if err := json.Unmarshal([]byte(cached), &tally); err == nil {
				return &tally, nil
			}
		}
	}

	tally, err := s.votes.TallyQuestion(ctx, question)
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		if data, err := json.Marshal(tally); err == nil {
			_ = s.redis.Set(ctx, s.redis.KeyBuilder.KeyTally(questionID), string(data), redis.TTLTally)
		}
	}

	return tally, nil
}

// State assembles the polling snapshot for a resolved session
func (s *PlayerService) State(ctx context.Context, session *domain.Session, voterID string, attendees AttendeeTracker, attendeeWindow time.Duration) (*domain.PlayerState, error) {
	now := s.now()
	state := &domain.PlayerState{
		SessionID:          session.ID,
		Pin:                session.Pin,
		Status:             session.EffectiveStatus(now),
		ActiveIndex:        session.ActiveIndex,
		ActiveQuestion:     session.ActiveQuestion(),
		QuestionCount:      len(session.Questions),
		ShowAttendees:      session.ShowAttendees,
		PercentageDisplay:  session.PercentageDisplay,
		KeyboardControl:    session.KeyboardControl,
		PresentationMode:   session.PresentationMode,
		ShowResults:        session.ShowResults,
		CountdownRemaining: session.CountdownRemaining(now),
	}

	if session.ShowAttendees && attendees != nil {
		count, err := attendees.CountActive(ctx, session.ID, attendeeWindow)
		if err != nil {
			s.log.Warn("failed to count attendees",
				zap.String("session_id", session.ID),
				zap.Error(err))
		} else {
			state.AttendeeCount = count
		}
	}

	question := session.ActiveQuestion()
	if question == nil {
		return state, nil
	}

	if session.ShowResults {
		tally, err := s.Tally(ctx, session, question.ID)
		if err != nil {
			return nil, err
		}
		state.Tally = tally
	}

	if voterID != "" {
		votes, err := s.votes.GetVotesOfVoter(ctx, question.ID, voterID)
		if err != nil {
			return nil, err
		}
		state.MyVotes = votes
	}

	return state, nil
}

func (s *PlayerService) invalidateTally(ctx context.Context, questionID string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Delete(ctx, s.redis.KeyBuilder.KeyTally(questionID)); err != nil {
		s.log.Debug("failed to invalidate tally cache",
			zap.String("question_id", questionID),
			zap.Error(err))
	}
}
