// Package curriculum orders a course's modules and lessons into a navigable
// tree and a flat lesson sequence.
package curriculum

import "context"

// Course is a top-level unit of study.
type Course struct {
	ID        string   `yaml:"id" json:"id"`
	Title     string   `yaml:"title" json:"title"`
	ModuleIDs []string `yaml:"-" json:"module_ids"`
}

// Module groups lessons within a course. OrderInCourse defines traversal
// order; ties are allowed and resolved by fetch order.
type Module struct {
	ID            string   `yaml:"id" json:"id"`
	CourseID      string   `yaml:"-" json:"course_id"`
	Title         string   `yaml:"title" json:"title"`
	OrderInCourse int      `yaml:"order" json:"order_in_course"`
	Lessons       []Lesson `yaml:"lessons" json:"lessons"`
}

// Lesson is a single unit of content within a module.
type Lesson struct {
	ID            string `yaml:"id" json:"id"`
	ModuleID      string `yaml:"-" json:"module_id"`
	Title         string `yaml:"title" json:"title"`
	OrderInModule int    `yaml:"order" json:"order_in_module"`
}

// Source fetches a course and its modules with nested lessons. Modules and
// lessons may come back in any order.
type Source interface {
	Course(ctx context.Context, courseID string) (Course, error)
	CourseModules(ctx context.Context, courseID string) ([]Module, error)
}
