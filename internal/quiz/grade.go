package quiz

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Answer is a learner's response to one question: a selected option for
// multiple choice, typed text otherwise.
type Answer struct {
	OptionID string `json:"option_id,omitempty"`
	Text     string `json:"text,omitempty"`
}

// Feedback is the per-question review shown after grading.
type Feedback struct {
	QuestionID        string `json:"question_id"`
	SelectedOptionID  string `json:"selected_option_id,omitempty"`
	IsCorrect         bool   `json:"is_correct"`
	CorrectAnswerText string `json:"correct_answer_text,omitempty"`
	NeedsReview       bool   `json:"needs_review,omitempty"`
}

// Result is the outcome of grading a whole quiz.
type Result struct {
	Score    int        `json:"score_obtained"`
	Total    int        `json:"total_questions"`
	Feedback []Feedback `json:"feedback"`
}

// Grade scores answers against questions. Unanswered questions count as
// incorrect; essays are left for review and never auto-scored. Grading
// never fails: a question with malformed options is marked incorrect.
func Grade(questions []Question, answers map[string]Answer) Result {
	res := Result{Total: len(questions), Feedback: make([]Feedback, 0, len(questions))}
	for _, q := range questions {
		fb := gradeQuestion(q, answers[q.ID])
		if fb.IsCorrect {
			res.Score++
		}
		res.Feedback = append(res.Feedback, fb)
	}
	return res
}

// IsPassed reports whether score meets passScore. Without a pass score
// nothing passes.
func IsPassed(score int, passScore *int) bool {
	return passScore != nil && score >= *passScore
}

func gradeQuestion(q Question, a Answer) Feedback {
	opts := NormalizeOptions(q)
	fb := Feedback{QuestionID: q.ID, SelectedOptionID: a.OptionID}

	var flagged []CanonicalOption
	for _, o := range opts {
		if o.IsCorrect {
			flagged = append(flagged, o)
		}
	}
	fb.CorrectAnswerText = q.CorrectAnswerText
	if len(flagged) > 0 {
		fb.CorrectAnswerText = flagged[0].Text
	}

	if q.Options.Kind == KindMalformed && q.Type != ShortAnswer && q.Type != Essay {
		return fb
	}

	switch q.Type {
	case Essay:
		fb.NeedsReview = true

	case ShortAnswer:
		typed := a.Text
		if typed == "" {
			if o, ok := findOption(opts, a.OptionID); ok {
				typed = o.Text
			}
		}
		for _, o := range flagged {
			if textEqual(typed, o.Text) {
				fb.IsCorrect = true
			}
		}
		if len(flagged) == 0 && q.CorrectAnswerText != "" {
			fb.IsCorrect = textEqual(typed, q.CorrectAnswerText)
		}

	default:
		selected, ok := findOption(opts, a.OptionID)
		if ok && selected.IsCorrect {
			fb.IsCorrect = true
			break
		}
		// Legacy data: nothing flagged correct, fall back to the stored text.
		if len(flagged) == 0 && q.CorrectAnswerText != "" {
			text := a.Text
			if ok {
				text = selected.Text
			}
			fb.IsCorrect = textEqual(text, q.CorrectAnswerText)
		}
	}
	return fb
}

func findOption(opts []CanonicalOption, id string) (CanonicalOption, bool) {
	if id == "" {
		return CanonicalOption{}, false
	}
	for _, o := range opts {
		if o.ID == id {
			return o, true
		}
	}
	return CanonicalOption{}, false
}

// textEqual compares answers after Unicode normalization, case folding and
// whitespace collapsing. Empty text never matches.
func textEqual(a, b string) bool {
	ca, cb := canonicalText(a), canonicalText(b)
	return ca != "" && ca == cb
}

func canonicalText(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return cases.Fold().String(norm.NFC.String(s))
}
