package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/JakeFAU/compliance-gateway/internal/compliance"
)

// ChecklistStore provides an in-memory checklist for development/testing.
type ChecklistStore struct {
	mu     sync.RWMutex
	clock  compliance.Clock
	nextID int64
	tasks  map[string][]compliance.ChecklistTask
}

// NewChecklistStore constructs a ChecklistStore. A nil clock uses time.Now in UTC.
func NewChecklistStore(clock compliance.Clock) *ChecklistStore {
	return &ChecklistStore{
		clock: clock,
		tasks: make(map[string][]compliance.ChecklistTask),
	}
}

// AddTask appends a task with the next id.
func (s *ChecklistStore) AddTask(_ context.Context, businessID, task string) (compliance.ChecklistTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	row := compliance.ChecklistTask{
		ID:         s.nextID,
		BusinessID: businessID,
		Task:       task,
		CreatedAt:  s.now(),
	}
	s.tasks[businessID] = append(s.tasks[businessID], row)
	return row, nil
}

// ListTasks returns a copy of the business's tasks, newest first.
func (s *ChecklistStore) ListTasks(_ context.Context, businessID string) ([]compliance.ChecklistTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := append([]compliance.ChecklistTask{}, s.tasks[businessID]...)
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].ID > rows[j].ID
	})
	return rows, nil
}

func (s *ChecklistStore) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock.Now()
}
