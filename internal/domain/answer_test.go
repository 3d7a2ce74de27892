package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/rob0403/LiveVotingRW/pkg/errors"
)

func numberRangeQuestion(start, end, step int) *Question {
	return &Question{
		ID:         "q-range",
		Title:      "Pick a number",
		Kind:       KindNumberRange,
		RangeStart: start,
		RangeEnd:   end,
		RangeStep:  step,
	}
}

func choiceQuestion(kind QuestionKind, optionIDs ...string) *Question {
	q := &Question{
		ID:    "q-choice",
		Title: "Pick an option",
		Kind:  kind,
	}
	for i, id := range optionIDs {
		q.Options = append(q.Options, Option{ID: id, QuestionID: q.ID, Position: i, Text: "Option " + id})
	}
	return q
}

func TestValidateAnswer_NumberRange(t *testing.T) {
	tests := []struct {
		name      string
		start     int
		end       int
		step      int
		input     string
		want      int
		wantError bool
	}{
		{name: "start boundary", start: 0, end: 10, step: 3, input: "0", want: 0},
		{name: "first step", start: 0, end: 10, step: 3, input: "3", want: 3},
		{name: "second step", start: 0, end: 10, step: 3, input: "6", want: 6},
		{name: "last step inside range", start: 0, end: 10, step: 3, input: "9", want: 9},
		{name: "between boundaries low", start: 0, end: 10, step: 3, input: "1", wantError: true},
		{name: "between boundaries", start: 0, end: 10, step: 3, input: "2", wantError: true},
		{name: "in range but off step", start: 0, end: 10, step: 3, input: "10", wantError: true},
		{name: "below range", start: 0, end: 10, step: 3, input: "-3", wantError: true},
		{name: "above range", start: 0, end: 10, step: 3, input: "12", wantError: true},
		{name: "negative start on boundary", start: -10, end: 10, step: 5, input: "-5", want: -5},
		{name: "negative start off boundary", start: -10, end: 10, step: 5, input: "-4", wantError: true},
		{name: "step one accepts everything in range", start: 1, end: 5, step: 1, input: "4", want: 4},
		{name: "whitespace tolerated", start: 0, end: 10, step: 3, input: " 6 ", want: 6},
		{name: "not a number", start: 0, end: 10, step: 3, input: "six", wantError: true},
		{name: "float rejected", start: 0, end: 10, step: 3, input: "3.0", wantError: true},
		{name: "empty input", start: 0, end: 10, step: 3, input: "", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := numberRangeQuestion(tt.start, tt.end, tt.step)
			answer, err := ValidateAnswer(q, VoteRequest{QuestionID: q.ID, Input: tt.input})

			if tt.wantError {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, answer.Number)
			assert.Equal(t, KindNumberRange, answer.Kind)
		})
	}
}

func TestValidateAnswer_NumberRangeBadStep(t *testing.T) {
	q := numberRangeQuestion(0, 10, 0)
	_, err := ValidateAnswer(q, VoteRequest{QuestionID: q.ID, Input: "5"})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
}

func TestValidateAnswer_SingleChoice(t *testing.T) {
	q := choiceQuestion(KindSingleChoice, "a", "b", "c")

	tests := []struct {
		name      string
		optionIDs []string
		wantError bool
	}{
		{name: "valid selection", optionIDs: []string{"b"}},
		{name: "no selection", optionIDs: nil, wantError: true},
		{name: "two selections", optionIDs: []string{"a", "b"}, wantError: true},
		{name: "foreign option", optionIDs: []string{"z"}, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answer, err := ValidateAnswer(q, VoteRequest{QuestionID: q.ID, OptionIDs: tt.optionIDs})

			if tt.wantError {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.optionIDs, answer.OptionIDs)
		})
	}
}

func TestValidateAnswer_MultiChoice(t *testing.T) {
	tests := []struct {
		name      string
		min       int
		max       int
		optionIDs []string
		want      []string
		wantError bool
	}{
		{name: "single selection", optionIDs: []string{"b"}, want: []string{"b"}},
		{name: "all options", optionIDs: []string{"c", "a", "b"}, want: []string{"a", "b", "c"}},
		{name: "duplicates collapse", optionIDs: []string{"a", "a", "b"}, want: []string{"a", "b"}},
		{name: "empty selection", optionIDs: nil, wantError: true},
		{name: "foreign option", optionIDs: []string{"a", "z"}, wantError: true},
		{name: "below minimum", min: 2, optionIDs: []string{"a"}, wantError: true},
		{name: "at minimum", min: 2, optionIDs: []string{"a", "c"}, want: []string{"a", "c"}},
		{name: "above maximum", max: 1, optionIDs: []string{"a", "b"}, wantError: true},
		{name: "duplicates do not count toward maximum", max: 1, optionIDs: []string{"a", "a"}, want: []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := choiceQuestion(KindMultiChoice, "a", "b", "c")
			q.MinSelections = tt.min
			q.MaxSelections = tt.max

			answer, err := ValidateAnswer(q, VoteRequest{QuestionID: q.ID, OptionIDs: tt.optionIDs})

			if tt.wantError {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, answer.OptionIDs)
		})
	}
}

func TestValidateAnswer_FreeText(t *testing.T) {
	tests := []struct {
		name      string
		required  bool
		maxLength int
		input     string
		want      string
		wantError bool
	}{
		{name: "plain text", input: "hello", want: "hello"},
		{name: "trimmed", input: "  hello  ", want: "hello"},
		{name: "empty optional accepted", input: "", want: ""},
		{name: "whitespace only optional accepted", input: "   ", want: ""},
		{name: "empty required rejected", required: true, input: "", wantError: true},
		{name: "whitespace only required rejected", required: true, input: " \t ", wantError: true},
		{name: "newlines allowed", input: "line one\nline two", want: "line one\nline two"},
		{name: "tabs allowed", input: "a\tb", want: "a\tb"},
		{name: "control character rejected", input: "abc\x00def", wantError: true},
		{name: "escape character rejected", input: "abc\x1bdef", wantError: true},
		{name: "at length cap", maxLength: 5, input: "abcde", want: "abcde"},
		{name: "over length cap", maxLength: 5, input: "abcdef", wantError: true},
		{name: "over default cap", input: strings.Repeat("x", DefaultMaxTextLength+1), wantError: true},
		{name: "multibyte runes counted as one", maxLength: 3, input: "äöü", want: "äöü"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &Question{
				ID:        "q-text",
				Title:     "Say something",
				Kind:      KindFreeText,
				Required:  tt.required,
				MaxLength: tt.maxLength,
			}

			answer, err := ValidateAnswer(q, VoteRequest{QuestionID: q.ID, Input: tt.input})

			if tt.wantError {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, answer.Text)
		})
	}
}

func TestValidateQuestionConfig(t *testing.T) {
	tests := []struct {
		name      string
		question  *Question
		wantError bool
	}{
		{name: "valid range", question: numberRangeQuestion(0, 10, 3)},
		{name: "zero step", question: numberRangeQuestion(0, 10, 0), wantError: true},
		{name: "negative step", question: numberRangeQuestion(0, 10, -2), wantError: true},
		{name: "end before start", question: numberRangeQuestion(10, 0, 1), wantError: true},
		{name: "single point range", question: numberRangeQuestion(5, 5, 1)},
		{name: "valid choice", question: choiceQuestion(KindSingleChoice, "a", "b")},
		{name: "one option only", question: choiceQuestion(KindSingleChoice, "a"), wantError: true},
		{name: "min above max", question: func() *Question {
			q := choiceQuestion(KindMultiChoice, "a", "b", "c")
			q.MinSelections = 3
			q.MaxSelections = 2
			return q
		}(), wantError: true},
		{name: "empty title", question: &Question{Kind: KindFreeText, Title: "  "}, wantError: true},
		{name: "negative length cap", question: &Question{Kind: KindFreeText, Title: "t", MaxLength: -1}, wantError: true},
		{name: "unknown kind", question: &Question{Kind: "ranking", Title: "t"}, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQuestionConfig(tt.question)
			if tt.wantError {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
				return
			}
			require.NoError(t, err)
		})
	}
}
