package domain

// QuestionKind is the closed set of supported question types
type QuestionKind string

const (
	KindNumberRange  QuestionKind = "number_range"
	KindFreeText     QuestionKind = "free_text"
	KindSingleChoice QuestionKind = "single_choice"
	KindMultiChoice  QuestionKind = "multi_choice"
	KindFreeInput    QuestionKind = "free_input"
)

// IsChoice reports whether the kind stores votes as option references
func (k QuestionKind) IsChoice() bool {
	return k == KindSingleChoice || k == KindMultiChoice
}

// IsTextual reports whether the kind stores votes as free input
func (k QuestionKind) IsTextual() bool {
	return k == KindFreeText || k == KindFreeInput || k == KindNumberRange
}

// Question is one entry in a session's voting sequence. Configuration is
// immutable once voting has started; presenter edits happen only while
// the session is idle.
type Question struct {
	ID        string       `json:"id"`
	SessionID string       `json:"session_id"`
	Position  int          `json:"position"`
	Title     string       `json:"title"`
	Kind      QuestionKind `json:"kind"`
	Required  bool         `json:"required"`

	// NumberRange configuration
	RangeStart int `json:"range_start,omitempty"`
	RangeEnd   int `json:"range_end,omitempty"`
	RangeStep  int `json:"range_step,omitempty"`

	// FreeText / FreeInput configuration
	MaxLength int `json:"max_length,omitempty"`

	// MultiChoice configuration, zero means unconstrained
	MinSelections int `json:"min_selections,omitempty"`
	MaxSelections int `json:"max_selections,omitempty"`

	Options []Option `json:"options,omitempty"`
}

// Option is one selectable answer of a choice question
type Option struct {
	ID         string `json:"id"`
	QuestionID string `json:"question_id"`
	Position   int    `json:"position"`
	Text       string `json:"text"`
}

// HasOption reports whether the option id belongs to this question
func (q *Question) HasOption(optionID string) bool {
	for i := range q.Options {
		if q.Options[i].ID == optionID {
			return true
		}
	}
	return false
}
