package quiz_test

import (
	"testing"

	"github.com/p-n-ai/pai-learn/internal/quiz"
)

func intPtr(n int) *int { return &n }

func stringQuestion(id string, opts string, correct *int) quiz.Question {
	return quiz.Question{
		ID:                 id,
		Type:               quiz.MultipleChoice,
		Options:            quiz.ParseRawOptions([]byte(opts)),
		CorrectAnswerIndex: correct,
	}
}

func TestNormalizeOptions_StringList(t *testing.T) {
	opts := quiz.NormalizeOptions(stringQuestion("q1", `["A","B","C"]`, intPtr(1)))

	if len(opts) != 3 {
		t.Fatalf("len = %d, want 3", len(opts))
	}
	var correct []quiz.CanonicalOption
	for _, o := range opts {
		if o.IsCorrect {
			correct = append(correct, o)
		}
	}
	if len(correct) != 1 || correct[0].Text != "B" {
		t.Errorf("correct options = %+v, want exactly B", correct)
	}
}

func TestNormalizeOptions_StableIDs(t *testing.T) {
	q := stringQuestion("q1", `["A","B","A"]`, intPtr(0))
	first := quiz.NormalizeOptions(q)
	second := quiz.NormalizeOptions(q)

	seen := map[string]bool{}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("option %d id changed between calls", i)
		}
		if first[i].ID == "" || seen[first[i].ID] {
			t.Errorf("option %d id %q is empty or repeated", i, first[i].ID)
		}
		seen[first[i].ID] = true
	}

	other := quiz.NormalizeOptions(stringQuestion("q2", `["A","B","A"]`, intPtr(0)))
	if other[0].ID == first[0].ID {
		t.Error("ids should differ between questions")
	}
}

func TestNormalizeOptions_IndexOutOfRange(t *testing.T) {
	for _, idx := range []*int{nil, intPtr(-1), intPtr(3)} {
		for _, o := range quiz.NormalizeOptions(stringQuestion("q1", `["A","B","C"]`, idx)) {
			if o.IsCorrect {
				t.Errorf("index %v marked %q correct", idx, o.Text)
			}
		}
	}
}

func TestNormalizeOptions_Objects(t *testing.T) {
	q := quiz.Question{
		ID:      "q1",
		Options: quiz.ParseRawOptions([]byte(`[{"id":"a","text":"A","isCorrect":false},{"id":"a","text":"B","isCorrect":true}]`)),
	}
	opts := quiz.NormalizeOptions(q)

	if len(opts) != 2 {
		t.Fatalf("len = %d, want 2", len(opts))
	}
	if opts[0].ID == "a" || opts[0].ID == "" || opts[0].ID == opts[1].ID {
		t.Errorf("ids = %q, %q; want distinct synthesized ids", opts[0].ID, opts[1].ID)
	}
	if again := quiz.NormalizeOptions(q); again[1].ID != opts[1].ID {
		t.Errorf("id changed between calls: %q -> %q", opts[1].ID, again[1].ID)
	}
	if opts[1].ID == "" || !opts[1].IsCorrect || opts[1].Text != "B" {
		t.Errorf("opts[1] = %+v", opts[1])
	}
}

func TestNormalizeOptions_MalformedSentinel(t *testing.T) {
	q := quiz.Question{ID: "q1", Options: quiz.ParseRawOptions([]byte(`{"a":1}`))}
	opts := quiz.NormalizeOptions(q)

	if len(opts) != 1 {
		t.Fatalf("len = %d, want 1 sentinel", len(opts))
	}
	if opts[0].IsCorrect || opts[0].Text != `{"a":1}` || opts[0].ID == "" {
		t.Errorf("sentinel = %+v", opts[0])
	}
}
