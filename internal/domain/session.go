package domain

import (
	"time"
)

// SessionStatus is the player lifecycle state of a voting session
type SessionStatus string

const (
	StatusIdle       SessionStatus = "idle"
	StatusRunning    SessionStatus = "running"
	StatusFrozen     SessionStatus = "frozen"
	StatusTerminated SessionStatus = "terminated"
)

// Session is one run of a classroom voting, addressed by a short pin.
// The mutable tuple (Status, ActiveIndex, CountdownUntil, ShowResults,
// TerminatedAt) is only ever written through a versioned compare-and-swap
// so concurrent presenter actions cannot interleave partial updates.
type Session struct {
	ID          string        `json:"id"`
	Pin         string        `json:"pin"`
	Status      SessionStatus `json:"status"`
	ActiveIndex *int          `json:"active_index,omitempty"`
	Version     int64         `json:"-"`

	ShowAttendees     bool `json:"show_attendees"`
	PercentageDisplay bool `json:"percentage_display"`
	KeyboardControl   bool `json:"keyboard_control"`
	PresentationMode  bool `json:"presentation_mode"`
	ShowResults       bool `json:"show_results"`

	// CountdownUntil, when set on a running session, re-freezes voting
	// once it passes. Cleared by freeze/unfreeze/start.
	CountdownUntil *time.Time `json:"countdown_until,omitempty"`
	TerminatedAt   *time.Time `json:"terminated_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Questions []Question `json:"questions,omitempty"`
}

// ActiveQuestion returns the question currently open for voting, or nil
func (s *Session) ActiveQuestion() *Question {
	if s.ActiveIndex == nil {
		return nil
	}
	idx := *s.ActiveIndex
	if idx < 0 || idx >= len(s.Questions) {
		return nil
	}
	return &s.Questions[idx]
}

// QuestionIndex locates a question id within the session's sequence
func (s *Session) QuestionIndex(questionID string) (int, bool) {
	for i := range s.Questions {
		if s.Questions[i].ID == questionID {
			return i, true
		}
	}
	return 0, false
}

// EffectiveStatus folds an elapsed countdown into the reported status:
// a running session whose countdown has passed behaves as frozen.
func (s *Session) EffectiveStatus(now time.Time) SessionStatus {
	if s.Status == StatusRunning && s.CountdownUntil != nil && now.After(*s.CountdownUntil) {
		return StatusFrozen
	}
	return s.Status
}

// AcceptsVotes reports whether the voter-facing cast gate is open
func (s *Session) AcceptsVotes(now time.Time) bool {
	return s.EffectiveStatus(now) == StatusRunning
}

// CountdownRemaining returns the seconds left on an active countdown, 0 otherwise
func (s *Session) CountdownRemaining(now time.Time) int {
	if s.Status != StatusRunning || s.CountdownUntil == nil {
		return 0
	}
	remaining := s.CountdownUntil.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Seconds() + 0.5)
}
