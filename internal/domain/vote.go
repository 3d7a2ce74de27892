package domain

import (
	"strconv"
	"time"
)

// Vote is one stored ballot. Choice votes carry an option reference,
// textual and numeric votes carry the normalized free input. A voter
// holds at most one vote per single-selection question; multi-choice
// questions hold one row per selected option.
type Vote struct {
	ID         string    `json:"id"`
	QuestionID string    `json:"question_id"`
	VoterID    string    `json:"voter_id"`
	OptionID   *string   `json:"option_id,omitempty"`
	FreeInput  *string   `json:"free_input,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// VoteRequest is the raw submission handed to the answer validator.
// Choice kinds read OptionIDs, the remaining kinds read Input.
type VoteRequest struct {
	QuestionID string   `json:"question_id"`
	Input      string   `json:"input"`
	OptionIDs  []string `json:"option_ids"`
}

// Answer is a validated, normalized submission ready for the vote store
type Answer struct {
	Kind      QuestionKind `json:"kind"`
	Number    int          `json:"number,omitempty"`
	Text      string       `json:"text,omitempty"`
	OptionIDs []string     `json:"option_ids,omitempty"`
}

// FreeInputValue renders the stored free-input payload for textual kinds
func (a Answer) FreeInputValue() string {
	if a.Kind == KindNumberRange {
		return strconv.Itoa(a.Number)
	}
	return a.Text
}

// CastResult is returned to the voter after a successful cast
type CastResult struct {
	QuestionID string    `json:"question_id"`
	Votes      []Vote    `json:"votes"`
	Timestamp  time.Time `json:"timestamp"`
}

// OptionTally is the aggregated count for one option
type OptionTally struct {
	OptionID   string  `json:"option_id"`
	Text       string  `json:"text"`
	Position   int     `json:"position"`
	Votes      int     `json:"votes"`
	Percentage float64 `json:"percentage"`
}

// QuestionTally is an eventually-consistent results snapshot for a question
type QuestionTally struct {
	QuestionID string        `json:"question_id"`
	TotalVotes int           `json:"total_votes"`
	Options    []OptionTally `json:"options,omitempty"`
	FreeInputs []string      `json:"free_inputs,omitempty"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// PlayerState is the polling snapshot consumed by voter and presenter screens
type PlayerState struct {
	SessionID          string         `json:"session_id"`
	Pin                string         `json:"pin"`
	Status             SessionStatus  `json:"status"`
	ActiveIndex        *int           `json:"active_index,omitempty"`
	ActiveQuestion     *Question      `json:"active_question,omitempty"`
	QuestionCount      int            `json:"question_count"`
	ShowAttendees      bool           `json:"show_attendees"`
	PercentageDisplay  bool           `json:"percentage_display"`
	KeyboardControl    bool           `json:"keyboard_control"`
	PresentationMode   bool           `json:"presentation_mode"`
	ShowResults        bool           `json:"show_results"`
	CountdownRemaining int            `json:"countdown_remaining,omitempty"`
	AttendeeCount      int            `json:"attendee_count"`
	Tally              *QuestionTally `json:"tally,omitempty"`
	MyVotes            []Vote         `json:"my_votes,omitempty"`
}
