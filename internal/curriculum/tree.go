package curriculum

import (
	"log/slog"
	"sort"
)

// Completion reports whether a lesson has been completed.
type Completion interface {
	Has(lessonID string) bool
}

// LessonNode is a lesson annotated with its completion flag.
type LessonNode struct {
	Lesson
	IsCompleted bool `json:"is_completed"`
}

// ModuleNode is a module with its lessons in traversal order.
type ModuleNode struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	OrderInCourse int          `json:"order_in_course"`
	Lessons       []LessonNode `json:"lessons"`
}

// Tree is a snapshot of a course for one learner. It is never updated in
// place; rebuild it whenever the modules or the completion set change.
type Tree struct {
	Modules  []ModuleNode `json:"modules"`
	Sequence []LessonNode `json:"sequence"`

	index map[string]int
}

// Build sorts modules by OrderInCourse and lessons by OrderInModule, using
// the input order as the tie-break. The inputs are not modified. A nil
// completion marks every lesson incomplete.
func Build(modules []Module, completed Completion) Tree {
	sorted := make([]Module, len(modules))
	copy(sorted, modules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OrderInCourse < sorted[j].OrderInCourse
	})

	t := Tree{
		Modules:  make([]ModuleNode, 0, len(sorted)),
		Sequence: []LessonNode{},
		index:    make(map[string]int),
	}

	for _, m := range sorted {
		lessons := make([]Lesson, len(m.Lessons))
		copy(lessons, m.Lessons)
		sort.SliceStable(lessons, func(i, j int) bool {
			return lessons[i].OrderInModule < lessons[j].OrderInModule
		})

		node := ModuleNode{
			ID:            m.ID,
			Title:         m.Title,
			OrderInCourse: m.OrderInCourse,
			Lessons:       make([]LessonNode, 0, len(lessons)),
		}
		for _, l := range lessons {
			if l.ModuleID == "" {
				l.ModuleID = m.ID
			}
			// A lesson belongs to exactly one module; keep the first position
			// if bad data repeats an id.
			if _, dup := t.index[l.ID]; dup {
				slog.Warn("duplicate lesson id skipped", "lesson_id", l.ID, "module_id", m.ID)
				continue
			}
			ln := LessonNode{Lesson: l, IsCompleted: completed != nil && completed.Has(l.ID)}
			node.Lessons = append(node.Lessons, ln)
			t.index[l.ID] = len(t.Sequence)
			t.Sequence = append(t.Sequence, ln)
		}
		t.Modules = append(t.Modules, node)
	}

	return t
}

// Lesson returns the lesson with the given id.
func (t Tree) Lesson(id string) (LessonNode, bool) {
	i, ok := t.index[id]
	if !ok {
		return LessonNode{}, false
	}
	return t.Sequence[i], true
}

// Previous returns the lesson before id in the flat sequence. It returns
// false at the first lesson and for unknown ids.
func (t Tree) Previous(id string) (LessonNode, bool) {
	i, ok := t.index[id]
	if !ok || i == 0 {
		return LessonNode{}, false
	}
	return t.Sequence[i-1], true
}

// Next returns the lesson after id in the flat sequence. It returns false
// at the last lesson and for unknown ids.
func (t Tree) Next(id string) (LessonNode, bool) {
	i, ok := t.index[id]
	if !ok || i+1 >= len(t.Sequence) {
		return LessonNode{}, false
	}
	return t.Sequence[i+1], true
}

// TotalLessons returns the number of lessons in the course.
func (t Tree) TotalLessons() int {
	return len(t.Sequence)
}

// CompletedCount returns how many lessons in the tree are completed.
func (t Tree) CompletedCount() int {
	n := 0
	for _, l := range t.Sequence {
		if l.IsCompleted {
			n++
		}
	}
	return n
}

// FirstIncomplete returns the first lesson not yet completed, the point a
// returning learner resumes from.
func (t Tree) FirstIncomplete() (LessonNode, bool) {
	for _, l := range t.Sequence {
		if !l.IsCompleted {
			return l, true
		}
	}
	return LessonNode{}, false
}
