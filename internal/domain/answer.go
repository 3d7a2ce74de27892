package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/rob0403/LiveVotingRW/pkg/errors"
)

// DefaultMaxTextLength caps free text answers when a question sets no limit
const DefaultMaxTextLength = 1000

// ValidateAnswer checks a raw submission against the question's
// configuration and returns the normalized answer. It is a pure function:
// no storage access, no clock, no side effects.
func ValidateAnswer(q *Question, req VoteRequest) (Answer, error) {
	switch q.Kind {
	case KindNumberRange:
		return validateNumberRange(q, req)
	case KindSingleChoice:
		return validateSingleChoice(q, req)
	case KindMultiChoice:
		return validateMultiChoice(q, req)
	case KindFreeText, KindFreeInput:
		return validateFreeText(q, req)
	default:
		return Answer{}, errors.NewInternalError(
			fmt.Sprintf("unsupported question kind %q", q.Kind), nil)
	}
}

func validateNumberRange(q *Question, req VoteRequest) (Answer, error) {
	if q.RangeStep <= 0 {
		return Answer{}, errors.NewInternalError(
			"number range question has a non-positive step", nil)
	}

	raw := strings.TrimSpace(req.Input)
	value, err := strconv.Atoi(raw)
	if err != nil {
		return Answer{}, errors.NewValidationError("value is not a whole number",
			map[string]interface{}{"input": req.Input})
	}

	if value < q.RangeStart || value > q.RangeEnd {
		return Answer{}, errors.NewValidationError("value is outside the configured range",
			map[string]interface{}{"value": value, "start": q.RangeStart, "end": q.RangeEnd})
	}

	// The UI only submits boundary-aligned values; re-derive the boundary
	// here to defend against tampered input. Values between boundaries are
	// rejected, not rounded.
	if value != snapToStep(value, q.RangeStart, q.RangeStep) {
		return Answer{}, errors.NewValidationError("value does not land on a step boundary",
			map[string]interface{}{"value": value, "step": q.RangeStep})
	}

	return Answer{Kind: q.Kind, Number: value}, nil
}

// snapToStep rounds a value up to the nearest step boundary above start
func snapToStep(value, start, step int) int {
	return int(math.Ceil(float64(value-start)/float64(step)))*step + start
}

func validateSingleChoice(q *Question, req VoteRequest) (Answer, error) {
	if len(req.OptionIDs) != 1 {
		return Answer{}, errors.NewValidationError("exactly one option must be selected",
			map[string]interface{}{"selected": len(req.OptionIDs)})
	}
	optionID := req.OptionIDs[0]
	if !q.HasOption(optionID) {
		return Answer{}, errors.NewValidationError("option does not belong to this question",
			map[string]interface{}{"option_id": optionID})
	}
	return Answer{Kind: q.Kind, OptionIDs: []string{optionID}}, nil
}

func validateMultiChoice(q *Question, req VoteRequest) (Answer, error) {
	if len(req.OptionIDs) == 0 {
		return Answer{}, errors.NewValidationError("at least one option must be selected", nil)
	}

	// Duplicates collapse to a set; keep question option order for stability.
	seen := make(map[string]bool, len(req.OptionIDs))
	for _, id := range req.OptionIDs {
		if !q.HasOption(id) {
			return Answer{}, errors.NewValidationError("option does not belong to this question",
				map[string]interface{}{"option_id": id})
		}
		seen[id] = true
	}
	selected := make([]string, 0, len(seen))
	for i := range q.Options {
		if seen[q.Options[i].ID] {
			selected = append(selected, q.Options[i].ID)
		}
	}

	if q.MinSelections > 0 && len(selected) < q.MinSelections {
		return Answer{}, errors.NewValidationError("too few options selected",
			map[string]interface{}{"selected": len(selected), "min": q.MinSelections})
	}
	if q.MaxSelections > 0 && len(selected) > q.MaxSelections {
		return Answer{}, errors.NewValidationError("too many options selected",
			map[string]interface{}{"selected": len(selected), "max": q.MaxSelections})
	}

	return Answer{Kind: q.Kind, OptionIDs: selected}, nil
}

func validateFreeText(q *Question, req VoteRequest) (Answer, error) {
	text := strings.TrimSpace(req.Input)

	if text == "" {
		if q.Required {
			return Answer{}, errors.NewValidationError("an answer is required", nil)
		}
		return Answer{Kind: q.Kind, Text: ""}, nil
	}

	// Markup sanitization belongs to the rendering layer; control
	// characters never have a legitimate place in an answer.
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return Answer{}, errors.NewValidationError("input contains control characters", nil)
		}
	}

	maxLen := q.MaxLength
	if maxLen <= 0 {
		maxLen = DefaultMaxTextLength
	}
	if len([]rune(text)) > maxLen {
		return Answer{}, errors.NewValidationError("input exceeds the length cap",
			map[string]interface{}{"length": len([]rune(text)), "max": maxLen})
	}

	return Answer{Kind: q.Kind, Text: text}, nil
}

// ValidateQuestionConfig fails fast on misconfigured questions at session
// creation time, before any voting can start.
func ValidateQuestionConfig(q *Question) error {
	if strings.TrimSpace(q.Title) == "" {
		return errors.NewValidationError("question title must not be empty", nil)
	}

	switch q.Kind {
	case KindNumberRange:
		if q.RangeStep <= 0 {
			return errors.NewValidationError("range step must be positive",
				map[string]interface{}{"step": q.RangeStep})
		}
		if q.RangeEnd < q.RangeStart {
			return errors.NewValidationError("range end must not precede range start",
				map[string]interface{}{"start": q.RangeStart, "end": q.RangeEnd})
		}
	case KindSingleChoice, KindMultiChoice:
		if len(q.Options) < 2 {
			return errors.NewValidationError("choice questions need at least two options",
				map[string]interface{}{"options": len(q.Options)})
		}
		if q.Kind == KindMultiChoice && q.MaxSelections > 0 && q.MinSelections > q.MaxSelections {
			return errors.NewValidationError("min selections exceeds max selections",
				map[string]interface{}{"min": q.MinSelections, "max": q.MaxSelections})
		}
	case KindFreeText, KindFreeInput:
		if q.MaxLength < 0 {
			return errors.NewValidationError("length cap must not be negative",
				map[string]interface{}{"max_length": q.MaxLength})
		}
	default:
		return errors.NewValidationError("unsupported question kind",
			map[string]interface{}{"kind": string(q.Kind)})
	}

	return nil
}
