package quiz

import (
	"strconv"

	"github.com/google/uuid"
)

// optionNamespace scopes synthesized option ids.
var optionNamespace = uuid.MustParse("6f1c2a9e-4b7d-5e2f-9a31-0c8d4e6b2f17")

// CanonicalOption is the single shape every question is graded and shown in.
type CanonicalOption struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"-"`
}

// NormalizeOptions converts a question's stored options into canonical
// options. Ids are always synthesized from the question id, position and
// text, so they are stable across calls and unique within a question.
// Stored option ids are ignored.
//
// String options are correct when their index equals CorrectAnswerIndex;
// an out-of-range index marks none correct. A malformed payload yields one
// sentinel option that is never correct.
func NormalizeOptions(q Question) []CanonicalOption {
	switch q.Options.Kind {
	case KindStrings:
		opts := make([]CanonicalOption, len(q.Options.Strings))
		for i, text := range q.Options.Strings {
			opts[i] = CanonicalOption{
				ID:        optionID(q.ID, i, text),
				Text:      text,
				IsCorrect: q.CorrectAnswerIndex != nil && *q.CorrectAnswerIndex == i,
			}
		}
		return opts

	case KindObjects:
		opts := make([]CanonicalOption, len(q.Options.Objects))
		for i, o := range q.Options.Objects {
			opts[i] = CanonicalOption{ID: optionID(q.ID, i, o.Text), Text: o.Text, IsCorrect: o.IsCorrect}
		}
		return opts

	default:
		return []CanonicalOption{{
			ID:   uuid.NewSHA1(optionNamespace, []byte(q.ID+"/malformed")).String(),
			Text: q.Options.Raw,
		}}
	}
}

func optionID(questionID string, index int, text string) string {
	name := questionID + "/" + strconv.Itoa(index) + "/" + text
	return uuid.NewSHA1(optionNamespace, []byte(name)).String()
}
