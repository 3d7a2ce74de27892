package repository

import (
	"context"
	"time"

	"github.com/rob0403/LiveVotingRW/internal/domain"
)

// SessionRepository defines the interface for session persistence
type SessionRepository interface {
	// Create persists a new session with its questions and options
	Create(ctx context.Context, session *domain.Session) error

	// GetByID retrieves a session with its full question sequence
	GetByID(ctx context.Context, id string) (*domain.Session, error)

	// GetByPin retrieves the session currently holding a pin. Terminated
	// sessions are still returned while their termination is newer than
	// graceCutoff, so callers can distinguish expired from unknown pins.
	GetByPin(ctx context.Context, pin string, graceCutoff time.Time) (*domain.Session, error)

	// PinInUse reports whether a pin is held by a live or in-grace session
	PinInUse(ctx context.Context, pin string, graceCutoff time.Time) (bool, error)

	// UpdateState writes the session's mutable player tuple (status,
	// active index, countdown, show-results flag, terminated-at) in one
	// atomic compare-and-swap against session.Version. A lost race
	// surfaces as a state conflict error and leaves the row untouched.
	UpdateState(ctx context.Context, session *domain.Session) error
}

// VoteRepository defines the interface for vote persistence
type VoteRepository interface {
	// CastVote replaces the voter's ballot for the question with the
	// normalized answer and returns the surviving vote set. Single
	// selection kinds unvote-all-then-insert; multi choice converges to
	// exactly the submitted option set. Concurrent casts for the same
	// (question, voter) pair are serialized.
	CastVote(ctx context.Context, question *domain.Question, voterID string, answer domain.Answer) ([]domain.Vote, error)

	// UnvoteAll removes all of one voter's votes for one question
	UnvoteAll(ctx context.Context, questionID, voterID string) error

	// ClearVotesForQuestion removes every vote for the question
	ClearVotesForQuestion(ctx context.Context, questionID string) error

	// CountVotesForOption counts active votes referencing an option
	CountVotesForOption(ctx context.Context, questionID, optionID string) (int, error)

	// GetVotesOfVoter lists one voter's active votes for one question
	GetVotesOfVoter(ctx context.Context, questionID, voterID string) ([]domain.Vote, error)

	// TallyQuestion aggregates a results snapshot for the question
	TallyQuestion(ctx context.Context, question *domain.Question) (*domain.QuestionTally, error)
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Session SessionRepository
	Vote    VoteRepository
}
