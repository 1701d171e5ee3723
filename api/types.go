package api

import "board-sync/domain"

// TaskStore is the canonical task collection behind the hub. It has no
// knowledge of connections or broadcasting.
type TaskStore interface {
	Create(patch domain.TaskPatch) (domain.Task, error)
	Update(id int64, patch domain.TaskPatch) (domain.Task, error)
	Move(id int64, column domain.Column) (domain.Task, error)
	Delete(id int64) (int64, error)
	List() []domain.Task
}
