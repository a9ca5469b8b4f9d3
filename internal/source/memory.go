package source

import (
	"context"
	"fmt"
	"sync"

	apperrors "github.com/julianstephens/habitlink/internal/errors"
	"github.com/julianstephens/habitlink/internal/models"
)

// Memory is an in-process Source with fault injection, used by tests and
// by dry runs.
type Memory struct {
	mu     sync.Mutex
	items  []models.ForeignItem
	staged []models.ForeignItem

	// DenyAccess makes every call fail with ErrAccessDenied.
	DenyAccess bool
	SaveErr    error
	CommitErr  error

	Fetches int
	Commits int
}

func NewMemory(items ...models.ForeignItem) *Memory {
	return &Memory{items: append([]models.ForeignItem(nil), items...)}
}

// Items returns a copy of the committed reminders.
func (m *Memory) Items() []models.ForeignItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ForeignItem(nil), m.items...)
}

// SetItems replaces the committed reminders.
func (m *Memory) SetItems(items ...models.ForeignItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append([]models.ForeignItem(nil), items...)
}

func (m *Memory) FetchItems(ctx context.Context, p Predicate) ([]models.ForeignItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.DenyAccess {
		return nil, apperrors.ErrAccessDenied
	}
	m.Fetches++
	return filter(m.items, p), nil
}

func (m *Memory) Save(_ context.Context, item models.ForeignItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.DenyAccess {
		return apperrors.ErrAccessDenied
	}
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.staged = append(m.staged, item)
	return nil
}

func (m *Memory) Commit(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.DenyAccess {
		return apperrors.ErrAccessDenied
	}
	if m.CommitErr != nil {
		m.staged = nil
		return m.CommitErr
	}
	for _, s := range m.staged {
		found := false
		for i := range m.items {
			if m.items[i].LocalID == s.LocalID {
				m.items[i] = s
				found = true
				break
			}
		}
		if !found {
			m.staged = nil
			return fmt.Errorf("reminder %s not found", s.LocalID)
		}
	}
	m.staged = nil
	m.Commits++
	return nil
}
