package domain

import "time"

// Column identifies the board lane a task sits in.
type Column string

const (
	ColumnTodo       Column = "todo"
	ColumnInProgress Column = "in-progress"
	ColumnDone       Column = "done"
)

// Priority ranks a task's urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Category classifies the kind of work a task represents.
type Category string

const (
	CategoryBug         Category = "bug"
	CategoryFeature     Category = "feature"
	CategoryEnhancement Category = "enhancement"
)

// Field defaults applied when a create request omits a value.
const (
	DefaultTitle    = "Untitled Task"
	DefaultColumn   = ColumnTodo
	DefaultPriority = PriorityMedium
	DefaultCategory = CategoryFeature
)

func (c Column) Valid() bool {
	switch c {
	case ColumnTodo, ColumnInProgress, ColumnDone:
		return true
	}
	return false
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func (c Category) Valid() bool {
	switch c {
	case CategoryBug, CategoryFeature, CategoryEnhancement:
		return true
	}
	return false
}

// Attachment is opaque metadata produced by the attachment pipeline. The sync
// core stores and forwards it unchanged; it never inspects the content.
type Attachment struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

// Task is the unit of synchronized state. ID and CreatedAt are fixed at
// creation; every successful mutation refreshes UpdatedAt.
type Task struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Column      Column       `json:"column"`
	Priority    Priority     `json:"priority"`
	Category    Category     `json:"category"`
	Attachments []Attachment `json:"attachments"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Clone returns a copy that shares no mutable state with t.
func (t Task) Clone() Task {
	out := t
	out.Attachments = make([]Attachment, len(t.Attachments))
	copy(out.Attachments, t.Attachments)
	return out
}

// TaskPatch carries a partial set of task fields for create and update
// requests. A nil field leaves the current value untouched; a non-nil
// Attachments replaces the whole sequence.
type TaskPatch struct {
	ID          int64         `json:"id,omitempty"`
	Title       *string       `json:"title,omitempty"`
	Description *string       `json:"description,omitempty"`
	Column      *Column       `json:"column,omitempty"`
	Priority    *Priority     `json:"priority,omitempty"`
	Category    *Category     `json:"category,omitempty"`
	Attachments *[]Attachment `json:"attachments,omitempty"`
}
