package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rob0403/LiveVotingRW/internal/domain"
	"github.com/rob0403/LiveVotingRW/pkg/database"
	apperrors "github.com/rob0403/LiveVotingRW/pkg/errors"
)

type sessionRepository struct {
	db *database.PostgresDB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.PostgresDB) SessionRepository {
	return &sessionRepository{db: db}
}

// Create persists a session together with its questions and options
func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		query := `
			INSERT INTO sessions (
				id, pin, status, active_index, version,
				show_attendees, percentage_display, keyboard_control,
				presentation_mode, show_results
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING created_at, updated_at
		`
		if err := tx.QueryRow(ctx, query,
			session.ID,
			session.Pin,
			session.Status,
			session.ActiveIndex,
			session.Version,
			session.ShowAttendees,
			session.PercentageDisplay,
			session.KeyboardControl,
			session.PresentationMode,
			session.ShowResults,
		).Scan(&session.CreatedAt, &session.UpdatedAt); err != nil {
			return fmt.Errorf("failed to insert session: %w", err)
		}

		for i := range session.Questions {
			q := &session.Questions[i]
			q.SessionID = session.ID
			q.Position = i
			query := `
				INSERT INTO questions (
					id, session_id, position, title, kind, required,
					range_start, range_end, range_step,
					max_length, min_selections, max_selections
				)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			`
			if _, err := tx.Exec(ctx, query,
				q.ID, q.SessionID, q.Position, q.Title, q.Kind, q.Required,
				q.RangeStart, q.RangeEnd, q.RangeStep,
				q.MaxLength, q.MinSelections, q.MaxSelections,
			); err != nil {
				return fmt.Errorf("failed to insert question: %w", err)
			}

			for j := range q.Options {
				opt := &q.Options[j]
				opt.QuestionID = q.ID
				opt.Position = j
				if _, err := tx.Exec(ctx,
					`INSERT INTO options (id, question_id, position, text) VALUES ($1, $2, $3, $4)`,
					opt.ID, opt.QuestionID, opt.Position, opt.Text,
				); err != nil {
					return fmt.Errorf("failed to insert option: %w", err)
				}
			}
		}
		return nil
	})

	if err != nil {
		return apperrors.NewStorageError("failed to create session", err)
	}
	return nil
}

// GetByID retrieves a session with its full question sequence
func (r *sessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	query := `
		SELECT id, pin, status, active_index, version,
		       show_attendees, percentage_display, keyboard_control,
		       presentation_mode, show_results,
		       countdown_until, terminated_at, created_at, updated_at
		FROM sessions
		WHERE id = $1
	`
	session, err := r.scanSession(ctx, query, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	if err := r.loadQuestions(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// GetByPin retrieves the live or in-grace session holding a pin
func (r *sessionRepository) GetByPin(ctx context.Context, pin string, graceCutoff time.Time) (*domain.Session, error) {
	query := `
		SELECT id, pin, status, active_index, version,
		       show_attendees, percentage_display, keyboard_control,
		       presentation_mode, show_results,
		       countdown_until, terminated_at, created_at, updated_at
		FROM sessions
		WHERE pin = $1
		  AND (status <> 'terminated' OR terminated_at >= $2)
		ORDER BY created_at DESC
		LIMIT 1
	`
	session, err := r.scanSession(ctx, query, pin, graceCutoff)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	if err := r.loadQuestions(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// PinInUse reports whether a pin is held by a live or in-grace session
func (r *sessionRepository) PinInUse(ctx context.Context, pin string, graceCutoff time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM sessions
			WHERE pin = $1
			  AND (status <> 'terminated' OR terminated_at >= $2)
		)
	`
	var inUse bool
	if err := r.db.Pool.QueryRow(ctx, query, pin, graceCutoff).Scan(&inUse); err != nil {
		return false, apperrors.NewStorageError("failed to check pin usage", err)
	}
	return inUse, nil
}

// UpdateState compare-and-swaps the session's mutable player tuple
func (r *sessionRepository) UpdateState(ctx context.Context, session *domain.Session) error {
	query := `
		UPDATE sessions
		SET status = $1,
		    active_index = $2,
		    countdown_until = $3,
		    show_results = $4,
		    terminated_at = $5,
		    version = version + 1,
		    updated_at = now()
		WHERE id = $6 AND version = $7
	`
	tag, err := r.db.Pool.Exec(ctx, query,
		session.Status,
		session.ActiveIndex,
		session.CountdownUntil,
		session.ShowResults,
		session.TerminatedAt,
		session.ID,
		session.Version,
	)
	if err != nil {
		return apperrors.NewStorageError("failed to update session state", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewStateConflictError("session state changed concurrently, refresh and retry")
	}
	session.Version++
	return nil
}

func (r *sessionRepository) scanSession(ctx context.Context, query string, args ...interface{}) (*domain.Session, error) {
	var session domain.Session
	err := r.db.Pool.QueryRow(ctx, query, args...).Scan(
		&session.ID,
		&session.Pin,
		&session.Status,
		&session.ActiveIndex,
		&session.Version,
		&session.ShowAttendees,
		&session.PercentageDisplay,
		&session.KeyboardControl,
		&session.PresentationMode,
		&session.ShowResults,
		&session.CountdownUntil,
		&session.TerminatedAt,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStorageError("failed to get session", err)
	}
	return &session, nil
}

func (r *sessionRepository) loadQuestions(ctx context.Context, session *domain.Session) error {
	query := `
		SELECT id, session_id, position, title, kind, required,
		       range_start, range_end, range_step,
		       max_length, min_selections, max_selections
		FROM questions
		WHERE session_id = $1
		ORDER BY position ASC
	`
	rows, err := r.db.Pool.Query(ctx, query, session.ID)
	if err != nil {
		return apperrors.NewStorageError("failed to load questions", err)
	}
	defer rows.Close()

	byID := make(map[string]*domain.Question)
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(
			&q.ID, &q.SessionID, &q.Position, &q.Title, &q.Kind, &q.Required,
			&q.RangeStart, &q.RangeEnd, &q.RangeStep,
			&q.MaxLength, &q.MinSelections, &q.MaxSelections,
		); err != nil {
			return apperrors.NewStorageError("failed to scan question", err)
		}
		session.Questions = append(session.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return apperrors.NewStorageError("error reading question rows", err)
	}
	for i := range session.Questions {
		byID[session.Questions[i].ID] = &session.Questions[i]
	}

	optQuery := `
		SELECT o.id, o.question_id, o.position, o.text
		FROM options o
		JOIN questions q ON q.id = o.question_id
		WHERE q.session_id = $1
		ORDER BY o.position ASC
	`
	optRows, err := r.db.Pool.Query(ctx, optQuery, session.ID)
	if err != nil {
		return apperrors.NewStorageError("failed to load options", err)
	}
	defer optRows.Close()

	for optRows.Next() {
		var opt domain.Option
		if err := optRows.Scan(&opt.ID, &opt.QuestionID, &opt.Position, &opt.Text); err != nil {
			return apperrors.NewStorageError("failed to scan option", err)
		}
		if q, ok := byID[opt.QuestionID]; ok {
			q.Options = append(q.Options, opt)
		}
	}
	if err := optRows.Err(); err != nil {
		return apperrors.NewStorageError("error reading option rows", err)
	}
	return nil
}
