package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/rob0403/LiveVotingRW/internal/domain"
	"github.com/rob0403/LiveVotingRW/pkg/database"
	apperrors "github.com/rob0403/LiveVotingRW/pkg/errors"
)

type voteRepository struct {
	db *database.PostgresDB
}

// NewVoteRepository creates a new vote repository
func NewVoteRepository(db *database.PostgresDB) VoteRepository {
	return &voteRepository{db: db}
}

// CastVote replaces the voter's ballot inside one transaction. An advisory
// lock on the (question, voter) pair serializes concurrent casts by the
// same voter so exactly one submission survives; different voters never
// contend on the same lock key.
func (r *voteRepository) CastVote(ctx context.Context, question *domain.Question, voterID string, answer domain.Answer) ([]domain.Vote, error) {
	var votes []domain.Vote

	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		lockKey := fmt.Sprintf("%s:%s", question.ID, voterID)
		if _, err := tx.Exec(ctx,
			`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, lockKey); err != nil {
			return fmt.Errorf("failed to acquire vote lock: %w", err)
		}

		switch {
		case answer.Kind == domain.KindMultiChoice:
			converged, err := r.convergeMultiChoice(ctx, tx, question.ID, voterID, answer.OptionIDs)
			if err != nil {
				return err
			}
			votes = converged
		case answer.Kind.IsChoice():
			vote, err := r.replaceWithOptionVote(ctx, tx, question.ID, voterID, answer.OptionIDs[0])
			if err != nil {
				return err
			}
			votes = []domain.Vote{*vote}
		default:
			vote, err := r.replaceWithFreeInputVote(ctx, tx, question.ID, voterID, answer.FreeInputValue())
			if err != nil {
				return err
			}
			votes = []domain.Vote{*vote}
		}
		return nil
	})

	if err != nil {
		return nil, apperrors.NewStorageError("failed to cast vote", err)
	}
	return votes, nil
}

// replaceWithOptionVote implements unvote-all-then-vote for single selection
func (r *voteRepository) replaceWithOptionVote(ctx context.Context, tx pgx.Tx, questionID, voterID, optionID string) (*domain.Vote, error) {
	if _, err := tx.Exec(ctx,
		`DELETE FROM votes WHERE question_id = $1 AND voter_id = $2`,
		questionID, voterID); err != nil {
		return nil, fmt.Errorf("failed to remove previous votes: %w", err)
	}

	vote := &domain.Vote{
		ID:         uuid.NewString(),
		QuestionID: questionID,
		VoterID:    voterID,
		OptionID:   &optionID,
	}
	if err := tx.QueryRow(ctx,
		`INSERT INTO votes (id, question_id, voter_id, option_id) VALUES ($1, $2, $3, $4) RETURNING created_at`,
		vote.ID, vote.QuestionID, vote.VoterID, vote.OptionID,
	).Scan(&vote.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert vote: %w", err)
	}
	return vote, nil
}

func (r *voteRepository) replaceWithFreeInputVote(ctx context.Context, tx pgx.Tx, questionID, voterID, input string) (*domain.Vote, error) {
	if _, err := tx.Exec(ctx,
		`DELETE FROM votes WHERE question_id = $1 AND voter_id = $2`,
		questionID, voterID); err != nil {
		return nil, fmt.Errorf("failed to remove previous votes: %w", err)
	}

	vote := &domain.Vote{
		ID:         uuid.NewString(),
		QuestionID: questionID,
		VoterID:    voterID,
		FreeInput:  &input,
	}
	if err := tx.QueryRow(ctx,
		`INSERT INTO votes (id, question_id, voter_id, free_input) VALUES ($1, $2, $3, $4) RETURNING created_at`,
		vote.ID, vote.QuestionID, vote.VoterID, vote.FreeInput,
	).Scan(&vote.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert vote: %w", err)
	}
	return vote, nil
}

// convergeMultiChoice diff-upserts the voter's option set: rows for
// deselected options are removed, rows for newly selected options are
// inserted, rows for unchanged options keep their timestamps. Votes by
// other voters are never touched.
func (r *voteRepository) convergeMultiChoice(ctx context.Context, tx pgx.Tx, questionID, voterID string, optionIDs []string) ([]domain.Vote, error) {
	rows, err := tx.Query(ctx,
		`SELECT option_id FROM votes WHERE question_id = $1 AND voter_id = $2 AND option_id IS NOT NULL`,
		questionID, voterID)
	if err != nil {
		return nil, fmt.Errorf("failed to read existing votes: %w", err)
	}
	existing := make(map[string]bool)
	for rows.Next() {
		var optionID string
		if err := rows.Scan(&optionID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan existing vote: %w", err)
		}
		existing[optionID] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading existing votes: %w", err)
	}

	wanted := make(map[string]bool, len(optionIDs))
	for _, id := range optionIDs {
		wanted[id] = true
	}

	for optionID := range existing {
		if !wanted[optionID] {
			if _, err := tx.Exec(ctx,
				`DELETE FROM votes WHERE question_id = $1 AND voter_id = $2 AND option_id = $3`,
				questionID, voterID, optionID); err != nil {
				return nil, fmt.Errorf("failed to remove deselected vote: %w", err)
			}
		}
	}
	for _, optionID := range optionIDs {
		if !existing[optionID] {
			if _, err := tx.Exec(ctx,
				`INSERT INTO votes (id, question_id, voter_id, option_id) VALUES ($1, $2, $3, $4)`,
				uuid.NewString(), questionID, voterID, optionID); err != nil {
				return nil, fmt.Errorf("failed to insert selected vote: %w", err)
			}
		}
	}

	return r.votesOfVoterTx(ctx, tx, questionID, voterID)
}

func (r *voteRepository) votesOfVoterTx(ctx context.Context, tx pgx.Tx, questionID, voterID string) ([]domain.Vote, error) {
	rows, err := tx.Query(ctx,
		`SELECT id, question_id, voter_id, option_id, free_input, created_at
		 FROM votes WHERE question_id = $1 AND voter_id = $2
		 ORDER BY created_at ASC`,
		questionID, voterID)
	if err != nil {
		return nil, fmt.Errorf("failed to read votes: %w", err)
	}
	defer rows.Close()
	return scanVotes(rows)
}

// UnvoteAll removes all of one voter's votes for one question
func (r *voteRepository) UnvoteAll(ctx context.Context, questionID, voterID string) error {
	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		lockKey := fmt.Sprintf("%s:%s", questionID, voterID)
		if _, err := tx.Exec(ctx,
			`SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, lockKey); err != nil {
			return fmt.Errorf("failed to acquire vote lock: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM votes WHERE question_id = $1 AND voter_id = $2`,
			questionID, voterID); err != nil {
			return fmt.Errorf("failed to delete votes: %w", err)
		}
		return nil
	})
	if err != nil {
		return apperrors.NewStorageError("failed to clear voter's votes", err)
	}
	return nil
}

// ClearVotesForQuestion removes every vote for the question
func (r *voteRepository) ClearVotesForQuestion(ctx context.Context, questionID string) error {
	if _, err := r.db.Pool.Exec(ctx,
		`DELETE FROM votes WHERE question_id = $1`, questionID); err != nil {
		return apperrors.NewStorageError("failed to clear question votes", err)
	}
	return nil
}

// CountVotesForOption counts active votes referencing an option
func (r *voteRepository) CountVotesForOption(ctx context.Context, questionID, optionID string) (int, error) {
	var count int
	if err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM votes WHERE question_id = $1 AND option_id = $2`,
		questionID, optionID,
	).Scan(&count); err != nil {
		return 0, apperrors.NewStorageError("failed to count option votes", err)
	}
	return count, nil
}

// GetVotesOfVoter lists one voter's active votes for one question
func (r *voteRepository) GetVotesOfVoter(ctx context.Context, questionID, voterID string) ([]domain.Vote, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, question_id, voter_id, option_id, free_input, created_at
		 FROM votes WHERE question_id = $1 AND voter_id = $2
		 ORDER BY created_at ASC`,
		questionID, voterID)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to get voter's votes", err)
	}
	defer rows.Close()

	votes, err := scanVotes(rows)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to scan voter's votes", err)
	}
	return votes, nil
}

// TallyQuestion aggregates a results snapshot without taking any locks
func (r *voteRepository) TallyQuestion(ctx context.Context, question *domain.Question) (*domain.QuestionTally, error) {
	tally := &domain.QuestionTally{
		QuestionID: question.ID,
		UpdatedAt:  time.Now().UTC(),
	}

	if err := r.db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM votes WHERE question_id = $1`, question.ID,
	).Scan(&tally.TotalVotes); err != nil {
		return nil, apperrors.NewStorageError("failed to count votes", err)
	}

	if question.Kind.IsChoice() {
		query := `
			SELECT o.id, o.text, o.position, COUNT(v.id)
			FROM options o
			LEFT JOIN votes v ON v.option_id = o.id
			WHERE o.question_id = $1
			GROUP BY o.id, o.text, o.position
			ORDER BY o.position ASC
		`
		rows, err := r.db.Pool.Query(ctx, query, question.ID)
		if err != nil {
			return nil, apperrors.NewStorageError("failed to tally options", err)
		}
		defer rows.Close()

		for rows.Next() {
			var ot domain.OptionTally
			if err := rows.Scan(&ot.OptionID, &ot.Text, &ot.Position, &ot.Votes); err != nil {
				return nil, apperrors.NewStorageError("failed to scan option tally", err)
			}
			if tally.TotalVotes > 0 {
				ot.Percentage = float64(ot.Votes) / float64(tally.TotalVotes) * 100
			}
			tally.Options = append(tally.Options, ot)
		}
		if err := rows.Err(); err != nil {
			return nil, apperrors.NewStorageError("error reading option tallies", err)
		}
		return tally, nil
	}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT free_input FROM votes
		 WHERE question_id = $1 AND free_input IS NOT NULL
		 ORDER BY created_at ASC`,
		question.ID)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to tally free inputs", err)
	}
	defer rows.Close()

	for rows.Next() {
		var input string
		if err := rows.Scan(&input); err != nil {
			return nil, apperrors.NewStorageError("failed to scan free input", err)
		}
		tally.FreeInputs = append(tally.FreeInputs, input)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("error reading free inputs", err)
	}
	return tally, nil
}

func scanVotes(rows pgx.Rows) ([]domain.Vote, error) {
	var votes []domain.Vote
	for rows.Next() {
		var vote domain.Vote
		if err := rows.Scan(
			&vote.ID, &vote.QuestionID, &vote.VoterID,
			&vote.OptionID, &vote.FreeInput, &vote.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes = append(votes, vote)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading vote rows: %w", err)
	}
	return votes, nil
}
