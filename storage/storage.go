package storage

import (
	"sync"
	"time"

	"board-sync/domain"
)

// Store is the sole authority over task identity and field values. The
// canonical collection lives in memory in creation order; ids are assigned
// strictly increasing from 1 and never reused, even after deletion.
//
// Lookups scan linearly. At board scale that beats maintaining an index; the
// contract would not change if one were added.
type Store struct {
	policy domain.Policy

	mu     sync.Mutex
	nextID int64
	tasks  []domain.Task
}

// New returns an empty store applying the given validation policy to
// enumerated fields.
func New(policy domain.Policy) *Store {
	return &Store{policy: policy, nextID: 1}
}

// Create constructs a new record from patch, applying defaults for omitted
// fields. It fails only under the Reject policy when an enumerated field
// carries an unrecognized value.
func (s *Store) Create(patch domain.TaskPatch) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	task := domain.Task{
		Title:       domain.DefaultTitle,
		Column:      domain.DefaultColumn,
		Priority:    domain.DefaultPriority,
		Category:    domain.DefaultCategory,
		Attachments: []domain.Attachment{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.merge(&task, patch); err != nil {
		return domain.Task{}, err
	}

	task.ID = s.nextID
	s.nextID++
	s.tasks = append(s.tasks, task)
	return task.Clone(), nil
}

// Update merges patch over the record identified by id. ID and CreatedAt are
// always preserved from the existing record regardless of what the caller
// supplied; UpdatedAt is refreshed.
func (s *Store) Update(id int64, patch domain.TaskPatch) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return domain.Task{}, domain.NotFoundError{ID: id}
	}
	task := s.tasks[i].Clone()
	if err := s.merge(&task, patch); err != nil {
		return domain.Task{}, err
	}
	task.UpdatedAt = time.Now().UTC()
	s.tasks[i] = task
	return task.Clone(), nil
}

// Move changes only the record's column. It is the drag-and-drop hot path, so
// callers do not resend the full record.
func (s *Store) Move(id int64, column domain.Column) (domain.Task, error) {
	return s.Update(id, domain.TaskPatch{Column: &column})
}

// Delete removes the record and returns its id so observers can confirm the
// deletion without holding the record. The id is never reissued.
func (s *Store) Delete(id int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return 0, domain.NotFoundError{ID: id}
	}
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	return id, nil
}

// List returns a snapshot of the current collection in creation order.
// Subsequent store mutations never alter a snapshot already handed out.
func (s *Store) List() []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.Clone()
	}
	return out
}

func (s *Store) indexOf(id int64) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) merge(task *domain.Task, patch domain.TaskPatch) error {
	if patch.Title != nil {
		// An empty submitted title falls back to the placeholder; the
		// record never holds an empty display string.
		if *patch.Title == "" {
			task.Title = domain.DefaultTitle
		} else {
			task.Title = *patch.Title
		}
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Column != nil {
		col, err := s.normalizeColumn(*patch.Column)
		if err != nil {
			return err
		}
		task.Column = col
	}
	if patch.Priority != nil {
		pri, err := s.normalizePriority(*patch.Priority)
		if err != nil {
			return err
		}
		task.Priority = pri
	}
	if patch.Category != nil {
		cat, err := s.normalizeCategory(*patch.Category)
		if err != nil {
			return err
		}
		task.Category = cat
	}
	if patch.Attachments != nil {
		attachments := make([]domain.Attachment, len(*patch.Attachments))
		copy(attachments, *patch.Attachments)
		task.Attachments = attachments
	}
	return nil
}

func (s *Store) normalizeColumn(c domain.Column) (domain.Column, error) {
	if c == "" {
		return domain.DefaultColumn, nil
	}
	if c.Valid() {
		return c, nil
	}
	if s.policy == domain.Reject {
		return "", domain.ValidationError{Field: "column", Value: string(c)}
	}
	return domain.DefaultColumn, nil
}

func (s *Store) normalizePriority(p domain.Priority) (domain.Priority, error) {
	if p == "" {
		return domain.DefaultPriority, nil
	}
	if p.Valid() {
		return p, nil
	}
	if s.policy == domain.Reject {
		return "", domain.ValidationError{Field: "priority", Value: string(p)}
	}
	return domain.DefaultPriority, nil
}

func (s *Store) normalizeCategory(c domain.Category) (domain.Category, error) {
	if c == "" {
		return domain.DefaultCategory, nil
	}
	if c.Valid() {
		return c, nil
	}
	if s.policy == domain.Reject {
		return "", domain.ValidationError{Field: "category", Value: string(c)}
	}
	return domain.DefaultCategory, nil
}
